package storage

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemoryStore is an in-process ItemStore used by tests and the local dev
// server. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]map[string]json.RawMessage)}
}

func (s *MemoryStore) Get(ctx context.Context, table, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if value, ok := s.items[table][key]; ok {
		return value, nil
	}
	return nil, ErrItemNotFound
}

func (s *MemoryStore) Put(ctx context.Context, table, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items[table] == nil {
		s.items[table] = make(map[string]json.RawMessage)
	}
	s.items[table][key] = data
	return nil
}

func (s *MemoryStore) PutIfAbsent(ctx context.Context, table, key string, value interface{}) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[table][key]; exists {
		return false, nil
	}
	if s.items[table] == nil {
		s.items[table] = make(map[string]json.RawMessage)
	}
	s.items[table][key] = data
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, table, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items[table], key)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, table, keyPrefix string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage)
	for key, value := range s.items[table] {
		if strings.HasPrefix(key, keyPrefix) {
			out[key] = value
		}
	}
	return out, nil
}
