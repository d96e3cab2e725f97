package service

import (
	"context"
	"errors"
	"testing"

	"docbrain-go/internal/model"
	"docbrain-go/internal/vectorstore"
	"docbrain-go/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func index(t *testing.T, store vectorstore.Store, id, source, text string) {
	t.Helper()
	vec, err := embedding.NewHashEmbedder().Embed(context.Background(), text)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), model.IndexEntry{
		ID:       id,
		Vector:   vec,
		Text:     text,
		Metadata: model.ChunkMetadata{DocumentID: id, DocumentName: source},
	}))
}

type brokenEmbedder struct{ embedding.Embedder }

func (brokenEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedder offline")
}

func TestRetrieveDistinctSourcesInOrder(t *testing.T) {
	store := vectorstore.NewMemoryStore(embedding.HashDimensions)
	index(t, store, "1", "zoning.pdf", "zoning permits for residential lots")
	index(t, store, "2", "zoning.pdf", "zoning permits for commercial lots")
	index(t, store, "3", "budget.md", "annual budget overview")

	s := NewSearchService(embedding.NewHashEmbedder(), store, 5)
	res, err := s.Retrieve(context.Background(), "zoning permits for residential lots", 0)
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	assert.Equal(t, "zoning permits for residential lots", res.Results[0].Text)
	assert.InDelta(t, 1.0, res.Results[0].Similarity, 1e-6)
	assert.Equal(t, []string{"zoning.pdf", "budget.md"}, res.Sources)
	for i := 1; i < len(res.Results); i++ {
		assert.GreaterOrEqual(t, res.Results[i-1].Similarity, res.Results[i].Similarity)
	}
}

func TestRetrieveHonoursK(t *testing.T) {
	store := vectorstore.NewMemoryStore(embedding.HashDimensions)
	index(t, store, "1", "a.txt", "first entry")
	index(t, store, "2", "b.txt", "second entry")

	s := NewSearchService(embedding.NewHashEmbedder(), store, 5)
	res, err := s.Retrieve(context.Background(), "entry", 1)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
	assert.Len(t, res.Sources, 1)
}

type queryRecorder struct {
	*vectorstore.MemoryStore
	ks []int
}

func (s *queryRecorder) Query(ctx context.Context, vector []float32, k int) ([]vectorstore.Match, error) {
	s.ks = append(s.ks, k)
	return s.MemoryStore.Query(ctx, vector, k)
}

func TestRetrieveCapsK(t *testing.T) {
	store := &queryRecorder{MemoryStore: vectorstore.NewMemoryStore(embedding.HashDimensions)}
	index(t, store, "1", "a.txt", "first entry")

	s := NewSearchService(embedding.NewHashEmbedder(), store, 5)
	res, err := s.Retrieve(context.Background(), "entry", 5000)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)

	_, err = s.Retrieve(context.Background(), "entry", 0)
	require.NoError(t, err)

	big := NewSearchService(embedding.NewHashEmbedder(), store, 1000)
	_, err = big.Search(context.Background(), "entry")
	require.NoError(t, err)

	assert.Equal(t, []int{MaxTopK, 5, MaxTopK}, store.ks)
}

func TestRetrieveEmptyStore(t *testing.T) {
	s := NewSearchService(embedding.NewHashEmbedder(), vectorstore.NewMemoryStore(embedding.HashDimensions), 5)
	res, err := s.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
	assert.Equal(t, []string{}, res.Sources)
	assert.Equal(t, "in-memory", s.Backend())
}

func TestRetrieveEmbedError(t *testing.T) {
	s := NewSearchService(brokenEmbedder{}, vectorstore.NewMemoryStore(embedding.HashDimensions), 5)
	_, err := s.Retrieve(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "embedder offline")
}
