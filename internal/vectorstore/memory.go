package vectorstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"docbrain-go/internal/model"
)

// MemoryStore keeps entries in insertion order in process memory.
// Every method holds the lock for the whole operation.
type MemoryStore struct {
	mu      sync.RWMutex
	dims    int
	entries []model.IndexEntry
	pos     map[string]int
}

func NewMemoryStore(dims int) *MemoryStore {
	return &MemoryStore{dims: dims, pos: make(map[string]int)}
}

func (s *MemoryStore) Name() string { return "in-memory" }

func (s *MemoryStore) Dimensions() int { return s.dims }

func (s *MemoryStore) Upsert(_ context.Context, e model.IndexEntry) error {
	if len(e.Vector) != s.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(e.Vector), s.dims)
	}
	e.Vector = slices.Clone(e.Vector)

	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.pos[e.ID]; ok {
		s.entries[i] = e
		return nil
	}
	s.pos[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dims)
	}

	s.mu.RLock()
	matches := make([]Match, 0, len(s.entries))
	for _, e := range s.entries {
		matches = append(matches, Match{
			ID:         e.ID,
			Text:       e.Text,
			Metadata:   e.Metadata,
			Similarity: Cosine(vector, e.Vector),
		})
	}
	s.mu.RUnlock()

	// ties keep insertion order
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if k < 0 {
		k = 0
	}
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *MemoryStore) Delete(_ context.Context, f Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Metadata.DocumentID != f.DocumentID {
			kept = append(kept, e)
		}
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	s.reindex()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.pos = make(map[string]int)
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) reindex() {
	s.pos = make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		s.pos[e.ID] = i
	}
}
