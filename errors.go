package htm

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when an HtmConfig is invalid or inconsistent.
	ErrConfiguration = errors.New("htm: invalid configuration")
	// ErrInvalidInput is returned for input vectors or column sets of the wrong shape.
	// State is left untouched, the call can be retried with corrected input.
	ErrInvalidInput = errors.New("htm: invalid input")
	// ErrStructural signals a breach of an internal graph invariant.
	ErrStructural = errors.New("htm: structural error")

	ErrIndex    = fmt.Errorf("%w: index out of range", ErrStructural)
	ErrNotFound = fmt.Errorf("%w: not found", ErrStructural)
)

func configError(field string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s %s", ErrConfiguration, field, fmt.Sprintf(format, args...))
}

func indexError(kind string, idx, size int) error {
	return fmt.Errorf("%s %d of %d: %w", kind, idx, size, ErrIndex)
}

func notFoundError(kind string, idx int) error {
	return fmt.Errorf("%s %d: %w", kind, idx, ErrNotFound)
}
