package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"docbrain-go/internal/model"
	"docbrain-go/pkg/es"
	"docbrain-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticStore keeps entries in an Elasticsearch index with a cosine
// dense_vector field and queries it with approximate kNN.
type ElasticStore struct {
	client *elasticsearch.Client
	index  string
	dims   int
}

// NewElasticStore creates the index if needed. Any failure here means the
// cluster is unusable and the caller should fall back.
func NewElasticStore(ctx context.Context, client *elasticsearch.Client, index string, dims int) (*ElasticStore, error) {
	if err := es.EnsureIndex(ctx, client, index, dims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return &ElasticStore{client: client, index: index, dims: dims}, nil
}

func (s *ElasticStore) Name() string { return "elasticsearch" }

func (s *ElasticStore) Dimensions() int { return s.dims }

func (s *ElasticStore) Upsert(ctx context.Context, e model.IndexEntry) error {
	if len(e.Vector) != s.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(e.Vector), s.dims)
	}
	res, err := es.IndexDocument(ctx, s.client, s.index, model.EsChunk{
		ChunkID:      e.ID,
		DocumentID:   e.Metadata.DocumentID,
		DocumentName: e.Metadata.DocumentName,
		ChunkIndex:   e.Metadata.ChunkIndex,
		Text:         e.Text,
		Vector:       e.Vector,
	})
	if err != nil {
		return fmt.Errorf("%w: index chunk %s: %v", ErrBackendUnavailable, e.ID, err)
	}
	defer res.Body.Close()
	return responseError(res, "index chunk")
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Score  float64       `json:"_score"`
			Source model.EsChunk `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query runs a kNN search. Elasticsearch scores cosine as (1+cos)/2; the
// score is mapped back to cosine similarity. A zero query vector has no
// direction and matches nothing.
func (s *ElasticStore) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dims)
	}
	if k <= 0 || isZero(vector) {
		return []Match{}, nil
	}

	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": max(k*10, 100),
		},
		"size":    k,
		"_source": []string{"chunk_id", "document_id", "document_name", "chunk_index", "text"},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode knn query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrBackendUnavailable, err)
	}
	defer res.Body.Close()
	if err := responseError(res, "search"); err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	matches := make([]Match, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		src := hit.Source
		id := src.ChunkID
		if id == "" {
			id = hit.ID
		}
		matches = append(matches, Match{
			ID:   id,
			Text: src.Text,
			Metadata: model.ChunkMetadata{
				DocumentID:   src.DocumentID,
				DocumentName: src.DocumentName,
				ChunkIndex:   src.ChunkIndex,
			},
			Similarity: 2*hit.Score - 1,
		})
	}
	return matches, nil
}

func (s *ElasticStore) Delete(ctx context.Context, f Filter) error {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"document_id": f.DocumentID},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		&buf,
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("%w: delete by query: %v", ErrBackendUnavailable, err)
	}
	defer res.Body.Close()
	if err := responseError(res, "delete by query"); err != nil {
		return err
	}
	log.Infof("[ElasticStore] deleted chunks of document %s", f.DocumentID)
	return nil
}

// Clear drops the index and recreates it empty.
func (s *ElasticStore) Clear(ctx context.Context) error {
	res, err := s.client.Indices.Delete([]string{s.index}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: delete index: %v", ErrBackendUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError(res, "delete index")
	}
	if err := es.EnsureIndex(ctx, s.client, s.index, s.dims); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// responseError turns an error response into an error. Server-side failures
// count as the backend being unavailable.
func responseError(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}
	if res.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s: %s", ErrBackendUnavailable, op, res.Status())
	}
	return fmt.Errorf("elasticsearch %s: %s", op, res.String())
}
