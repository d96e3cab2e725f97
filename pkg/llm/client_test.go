package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"docbrain-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			MaxTokens int `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be brief", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "hello?", req.Messages[1].Content)
		assert.Equal(t, 256, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"x","object":"chat.completion","model":"llama-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}
		}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{
		Provider:   "groq",
		APIKey:     "key",
		BaseURL:    srv.URL + "/v1/",
		Model:      "llama-test",
		Generation: config.LLMGenerationConfig{Temperature: 0.7, MaxTokens: 256},
	})
	out, err := c.Generate(context.Background(), "be brief", "hello?")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out.Text)
	assert.Equal(t, 13, out.TokenUsage)
	assert.Equal(t, "groq", c.Provider())
	assert.Equal(t, "llama-test", c.Model())
}

func TestGenerateProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "bad", BaseURL: srv.URL + "/v1", Model: "m"})
	_, err := c.Generate(context.Background(), "s", "u")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestGenerateWithoutKey(t *testing.T) {
	c := NewClient(config.LLMConfig{Model: "m"})
	_, err := c.Generate(context.Background(), "s", "u")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, ErrNotConfigured)
}
