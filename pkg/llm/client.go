// Package llm provides a client for OpenAI-compatible chat completion APIs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docbrain-go/internal/config"
	"docbrain-go/pkg/log"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is wrapped in a ProviderError when no API key is set.
var ErrNotConfigured = errors.New("language model api key is not configured")

// Completion is a generated reply with the total tokens the call consumed.
type Completion struct {
	Text       string
	TokenUsage int
}

// LanguageModel generates a reply to userMessage under systemInstruction.
type LanguageModel interface {
	Generate(ctx context.Context, systemInstruction, userMessage string) (Completion, error)
}

// ProviderError reports a failed call to the model provider, whether the
// cause was transport, authentication or an API error.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Client talks to Groq, OpenAI or any server speaking the same API.
type Client struct {
	client   *openai.Client
	apiKey   string
	provider string
	model    string
	gen      config.LLMGenerationConfig
}

// NewClient builds a client from cfg. A missing API key is reported on the
// first Generate call so the rest of the service can still start.
func NewClient(cfg config.LLMConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	return &Client{
		client:   openai.NewClientWithConfig(clientCfg),
		apiKey:   cfg.APIKey,
		provider: provider,
		model:    cfg.Model,
		gen:      cfg.Generation,
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Provider() string { return c.provider }

func (c *Client) Generate(ctx context.Context, systemInstruction, userMessage string) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, &ProviderError{Provider: c.provider, Err: ErrNotConfigured}
	}
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: float32(c.gen.Temperature),
		TopP:        float32(c.gen.TopP),
		MaxTokens:   c.gen.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Errorf("[LLMClient] chat completion failed, model: %s, error: %v", c.model, err)
		return Completion{}, c.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &ProviderError{Provider: c.provider, Err: errors.New("response has no choices")}
	}
	log.Debugf("[LLMClient] chat completion done, model: %s, tokens: %d", c.model, resp.Usage.TotalTokens)
	return Completion{
		Text:       resp.Choices[0].Message.Content,
		TokenUsage: resp.Usage.TotalTokens,
	}, nil
}

func (c *Client) wrap(err error) error {
	pe := &ProviderError{Provider: c.provider, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
	}
	return pe
}
