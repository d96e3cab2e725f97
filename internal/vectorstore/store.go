// Package vectorstore stores chunk embeddings and answers nearest-neighbour
// queries. Every backend reports cosine similarity in [-1, 1].
package vectorstore

import (
	"context"
	"errors"
	"math"

	"docbrain-go/internal/model"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the store's configured dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrBackendUnavailable wraps transport failures of external backends.
	ErrBackendUnavailable = errors.New("vector backend unavailable")
)

// Match is a stored entry with its similarity to the query vector.
type Match struct {
	ID         string
	Text       string
	Metadata   model.ChunkMetadata
	Similarity float64
}

// Filter selects entries for deletion.
type Filter struct {
	DocumentID string
}

// Store is implemented by every vector backend.
type Store interface {
	// Upsert inserts e or replaces the entry with the same id.
	Upsert(ctx context.Context, e model.IndexEntry) error
	// Query returns up to k entries ordered by descending similarity.
	// An empty store yields an empty slice.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
	Delete(ctx context.Context, f Filter) error
	Clear(ctx context.Context) error
	Dimensions() int
	Name() string
}

// Cosine returns the cosine similarity of a and b, or 0 when either has no
// magnitude.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
