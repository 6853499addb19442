// Package memory is a process-local KV store. It backs STOCKDASH_STORE=memory
// and the unit tests of the packages that persist through model.KVStore.
package memory

import (
	"context"
	"sync"

	"stockdash/internal/model"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWith, when set, is returned by every call.
	FailWith error
}

var _ model.KVStore = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return "", false, s.FailWith
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.data[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	delete(s.data, key)
	return nil
}

func (s *Store) Close() error { return nil }
