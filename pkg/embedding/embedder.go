// Package embedding turns text into fixed-length vectors for similarity search.
package embedding

import (
	"context"
	"fmt"

	"docbrain-go/internal/config"
)

// Embedder maps a piece of text to a vector of Dimensions() floats.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Name() string
}

// New builds the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "hash":
		return NewHashEmbedder(), nil
	case "openai":
		return NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
