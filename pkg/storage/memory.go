package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. It is used when no MinIO
// endpoint is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, objectName string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = slices.Clone(data)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, objectName string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	return slices.Clone(data), nil
}

func (s *MemoryStore) Remove(_ context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

func (s *MemoryStore) PresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}
