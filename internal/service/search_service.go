// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"context"
	"fmt"

	"docbrain-go/internal/model"
	"docbrain-go/internal/vectorstore"
	"docbrain-go/pkg/embedding"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// MaxTopK caps the number of chunks one query may ask for. Elasticsearch
// rejects kNN searches with more than 10000 candidates.
const MaxTopK = 100

// SearchService finds the chunks most similar to a query.
type SearchService interface {
	// Retrieve returns the k best chunks for query. k <= 0 uses the
	// configured default and k is capped at MaxTopK.
	Retrieve(ctx context.Context, query string, k int) (model.SearchResult, error)
	// Search is Retrieve with the default k. It lets the answer pipeline
	// search on its own.
	Search(ctx context.Context, query string) (model.SearchResult, error)
	// Backend names the vector store in use.
	Backend() string
}

type searchService struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	topK     int
}

// NewSearchService creates a SearchService over store.
func NewSearchService(embedder embedding.Embedder, store vectorstore.Store, topK int) SearchService {
	if topK <= 0 {
		topK = 5
	}
	topK = min(topK, MaxTopK)
	return &searchService{embedder: embedder, store: store, topK: topK}
}

func (s *searchService) Retrieve(ctx context.Context, query string, k int) (model.SearchResult, error) {
	if k <= 0 {
		k = s.topK
	}
	k = min(k, MaxTopK)
	timer := prometheus.NewTimer(metrics.RetrievalDuration)
	defer timer.ObserveDuration()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("embed query: %w", err)
	}
	matches, err := s.store.Query(ctx, vector, k)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("query %s: %w", s.store.Name(), err)
	}

	result := model.SearchResult{
		Results: make([]model.RankedChunk, 0, len(matches)),
		Sources: []string{},
	}
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		source := m.Metadata.DocumentName
		result.Results = append(result.Results, model.RankedChunk{
			Text:       m.Text,
			Source:     source,
			Similarity: m.Similarity,
		})
		if _, ok := seen[source]; !ok {
			seen[source] = struct{}{}
			result.Sources = append(result.Sources, source)
		}
	}
	log.Debugf("[SearchService] %d results for %q from %d sources", len(result.Results), query, len(result.Sources))
	return result, nil
}

func (s *searchService) Search(ctx context.Context, query string) (model.SearchResult, error) {
	return s.Retrieve(ctx, query, s.topK)
}

func (s *searchService) Backend() string {
	return s.store.Name()
}
