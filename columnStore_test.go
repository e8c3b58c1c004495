package htm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryColumnStore(t *testing.T) {
	s := NewMemoryColumnStore()
	_, err := s.Get(0)
	assert.ErrorIs(t, err, ErrIndex)
	assert.ErrorIs(t, err, ErrStructural)

	require.NoError(t, s.Set(2, NewColumn(2)))
	require.NoError(t, s.Set(0, NewColumn(0)))
	assert.Equal(t, 3, s.Len())

	col, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 2, col.Index)

	// slot 1 was never written
	_, err = s.Get(1)
	assert.ErrorIs(t, err, ErrIndex)
	assert.Error(t, s.Set(-1, NewColumn(0)))

	var visited []int
	require.NoError(t, s.ForEach(func(c *Column) error {
		visited = append(visited, c.Index)
		return nil
	}))
	assert.Equal(t, []int{0, 2}, visited)

	stop := errors.New("stop")
	calls := 0
	err = s.ForEach(func(c *Column) error {
		calls++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, calls)
}
