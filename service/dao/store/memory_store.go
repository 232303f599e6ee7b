package store

import (
	"context"
	"sync"

	"github.com/viant/workgrid/service/dao"
)

// MemoryStore is a generic in-memory implementation of dao.Service.
// Entities are cloned on the way in and out so callers never share state
// with the store.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	order       []K
	keySelector func(*T) K
	clone       func(*T) *T
	filter      func(*T, []*dao.Parameter) bool
}

// NewMemoryStore creates a new MemoryStore.
// keySelector extracts the entity key, clone deep copies an entity and filter,
// when not nil, decides whether an entity matches List parameters.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, clone func(*T) *T, filter func(*T, []*dao.Parameter) bool) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
		clone:       clone,
		filter:      filter,
	}
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = s.clone(v)
	return nil
}

// Load returns a copy of the record.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return s.clone(v), nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns copies of matching records in insertion order.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, key := range s.order {
		v := s.records[key]
		if s.filter != nil && !s.filter(v, parameters) {
			continue
		}
		out = append(out, s.clone(v))
	}
	return out, nil
}
