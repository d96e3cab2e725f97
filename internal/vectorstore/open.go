package vectorstore

import (
	"context"
	"time"

	"docbrain-go/internal/config"
	"docbrain-go/pkg/es"
	"docbrain-go/pkg/log"
)

const openTimeout = 10 * time.Second

// Open tries the external backend named in cfg.VectorStore.Provider once.
// On any failure it returns a MemoryStore, which then serves the process for
// its whole lifetime.
func Open(ctx context.Context, cfg config.Config, dims int) Store {
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	var (
		store Store
		err   error
	)
	switch cfg.VectorStore.Provider {
	case "elasticsearch":
		store, err = openElastic(ctx, cfg.Elasticsearch, dims)
	case "milvus":
		store, err = openMilvus(ctx, cfg.Milvus, dims)
	default:
		log.Infof("[VectorStore] using in-memory store, dims=%d", dims)
		return NewMemoryStore(dims)
	}
	if err != nil {
		log.Warnf("[VectorStore] %s unavailable, falling back to in-memory store: %v", cfg.VectorStore.Provider, err)
		return NewMemoryStore(dims)
	}
	log.Infof("[VectorStore] using %s, dims=%d", store.Name(), dims)
	return store
}

func openElastic(ctx context.Context, cfg config.ElasticsearchConfig, dims int) (Store, error) {
	client, err := es.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewElasticStore(ctx, client, cfg.IndexName, dims)
}

func openMilvus(ctx context.Context, cfg config.MilvusConfig, dims int) (Store, error) {
	c, err := DialMilvus(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := NewMilvusStore(ctx, c, cfg.CollectionName, dims)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return s, nil
}
