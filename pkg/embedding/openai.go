package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docbrain-go/internal/config"
	"docbrain-go/pkg/log"

	openai "github.com/sashabaranov/go-openai"
)

var openAIDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder builds an embedder from cfg. cfg.Dimensions overrides the
// model's native size and is sent with each request.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("embedding api key is not configured")
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	dims := cfg.Dimensions
	if dims == 0 {
		if d, ok := openAIDimensions[model]; ok {
			dims = d
		} else {
			dims = 1536
		}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: dims,
	}, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

func (e *OpenAIEmbedder) Name() string { return e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	log.Debugf("[EmbeddingClient] calling embeddings api, model: %s, input_len: %d", e.model, len(text))
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	}
	if _, native := openAIDimensions[e.model]; native && e.dimensions != openAIDimensions[e.model] {
		req.Dimensions = e.dimensions
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		log.Errorf("[EmbeddingClient] embeddings api call failed: %v", err)
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response is empty")
	}
	vec := resp.Data[0].Embedding
	if len(vec) != e.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), e.dimensions)
	}
	return vec, nil
}
