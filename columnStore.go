package htm

import (
	"sync"
)

/*
 ColumnStore is the indexed key/value storage columns live in. The in
process MemoryColumnStore is the default, sqlstore provides a persistent
one. Writes made by the spatial pooler during a cycle are synchronous,
the store is responsible for their durability.
*/
type ColumnStore interface {
	Get(index int) (*Column, error)
	Set(index int, col *Column) error
	//Visits columns in index order until fn returns an error
	ForEach(fn func(col *Column) error) error
}

//Slice backed store, Get returns the stored pointer
type MemoryColumnStore struct {
	mu      sync.RWMutex
	columns []*Column
}

func NewMemoryColumnStore() *MemoryColumnStore {
	return &MemoryColumnStore{}
}

func (s *MemoryColumnStore) Get(index int) (*Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.columns) || s.columns[index] == nil {
		return nil, indexError("column", index, len(s.columns))
	}
	return s.columns[index], nil
}

func (s *MemoryColumnStore) Set(index int, col *Column) error {
	if index < 0 {
		return indexError("column", index, len(s.columns))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.columns) <= index {
		s.columns = append(s.columns, nil)
	}
	s.columns[index] = col
	return nil
}

func (s *MemoryColumnStore) ForEach(fn func(col *Column) error) error {
	s.mu.RLock()
	cols := make([]*Column, 0, len(s.columns))
	for _, c := range s.columns {
		if c != nil {
			cols = append(cols, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range cols {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

//Number of stored columns
func (s *MemoryColumnStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.columns)
}
