package memory

import (
	"context"
	"sync"
)

// KVStore is an in-process implementation of kv.Store.
type KVStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewKVStore() *KVStore {
	return &KVStore{items: make(map[string]string)}
}

func (s *KVStore) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *KVStore) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
	return nil
}

func (s *KVStore) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *KVStore) Commit(_ context.Context, set map[string]string, remove []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range set {
		s.items[k] = v
	}
	for _, k := range remove {
		delete(s.items, k)
	}
	return nil
}
