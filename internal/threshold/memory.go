package threshold

import (
	"context"
	"sync"

	dErrors "greengate/pkg/domain-errors"
)

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewInMemory(values map[string]string) *InMemoryStore {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &InMemoryStore{values: cp}
}

func (s *InMemoryStore) Get(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	if !ok {
		return "", dErrors.New(dErrors.CodeConfigurationMissing, "threshold "+name+" is not configured")
	}
	return v, nil
}

func (s *InMemoryStore) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *InMemoryStore) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
}
