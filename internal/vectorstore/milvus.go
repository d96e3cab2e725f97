package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"docbrain-go/internal/config"
	"docbrain-go/internal/model"
	"docbrain-go/pkg/log"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	milvusMaxIDLength   = 512
	milvusMaxTextLength = 65535
)

var milvusOutputFields = []string{"document_id", "document_name", "chunk_index", "text"}

// MilvusStore keeps entries in a Milvus collection with a COSINE HNSW index.
// Milvus reports cosine similarity directly as the search score.
type MilvusStore struct {
	client     client.Client
	collection string
	dims       int
}

// DialMilvus connects to the server in cfg.
func DialMilvus(ctx context.Context, cfg config.MilvusConfig) (client.Client, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect milvus: %v", ErrBackendUnavailable, err)
	}
	return c, nil
}

// NewMilvusStore makes sure the collection exists, is indexed and is loaded.
func NewMilvusStore(ctx context.Context, c client.Client, collection string, dims int) (*MilvusStore, error) {
	s := &MilvusStore{client: c, collection: collection, dims: dims}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return s, nil
}

func (s *MilvusStore) Name() string { return "milvus" }

func (s *MilvusStore) Dimensions() int { return s.dims }

func (s *MilvusStore) schema() *entity.Schema {
	return &entity.Schema{
		CollectionName: s.collection,
		Description:    "document chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": strconv.Itoa(milvusMaxIDLength)},
			},
			{
				Name:       "document_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(milvusMaxIDLength)},
			},
			{
				Name:       "document_name",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(milvusMaxIDLength)},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       "text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(milvusMaxTextLength)},
			},
			{
				Name:       "vector",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(s.dims)},
			},
		},
	}
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		if err := s.client.CreateCollection(ctx, s.schema(), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		index, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
		if err != nil {
			return fmt.Errorf("build index params: %w", err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		log.Infof("[MilvusStore] collection '%s' created, dims=%d", s.collection, s.dims)
	}
	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusStore) Upsert(ctx context.Context, e model.IndexEntry) error {
	if len(e.Vector) != s.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(e.Vector), s.dims)
	}
	_, err := s.client.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar("id", []string{e.ID}),
		entity.NewColumnVarChar("document_id", []string{e.Metadata.DocumentID}),
		entity.NewColumnVarChar("document_name", []string{e.Metadata.DocumentName}),
		entity.NewColumnInt64("chunk_index", []int64{int64(e.Metadata.ChunkIndex)}),
		entity.NewColumnVarChar("text", []string{e.Text}),
		entity.NewColumnFloatVector("vector", s.dims, [][]float32{e.Vector}),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrBackendUnavailable, e.ID, err)
	}
	return nil
}

func (s *MilvusStore) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dims)
	}
	if k <= 0 || isZero(vector) {
		return []Match{}, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(max(64, k))
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	results, err := s.client.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		milvusOutputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrBackendUnavailable, err)
	}
	if len(results) == 0 {
		return []Match{}, nil
	}
	result := results[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search: %w", result.Err)
	}

	var ids, docIDs, docNames, texts []string
	var indexes []int64
	if col, ok := result.IDs.(*entity.ColumnVarChar); ok {
		ids = col.Data()
	}
	for _, field := range result.Fields {
		switch col := field.(type) {
		case *entity.ColumnVarChar:
			switch col.Name() {
			case "document_id":
				docIDs = col.Data()
			case "document_name":
				docNames = col.Data()
			case "text":
				texts = col.Data()
			}
		case *entity.ColumnInt64:
			if col.Name() == "chunk_index" {
				indexes = col.Data()
			}
		}
	}

	matches := make([]Match, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		m := Match{
			ID:   at(ids, i),
			Text: at(texts, i),
			Metadata: model.ChunkMetadata{
				DocumentID:   at(docIDs, i),
				DocumentName: at(docNames, i),
				ChunkIndex:   int(at(indexes, i)),
			},
		}
		if i < len(result.Scores) {
			m.Similarity = float64(result.Scores[i])
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *MilvusStore) Delete(ctx context.Context, f Filter) error {
	expr := fmt.Sprintf("document_id == %s", strconv.Quote(f.DocumentID))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrBackendUnavailable, f.DocumentID, err)
	}
	return nil
}

// Clear drops the collection and creates it again.
func (s *MilvusStore) Clear(ctx context.Context) error {
	if err := s.client.DropCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("%w: drop collection: %v", ErrBackendUnavailable, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func at[T any](s []T, i int) T {
	var zero T
	if i < len(s) {
		return s[i]
	}
	return zero
}
