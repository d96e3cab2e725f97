package tika

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"docbrain-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor(nil)
	text, err := e.Extract(context.Background(), []byte("# notes\nhello"), "README.MD")
	require.NoError(t, err)
	assert.Equal(t, "# notes\nhello", text)

	text, err = e.Extract(context.Background(), []byte("ok\xff"), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestExtractUnsupported(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.Extract(context.Background(), []byte("x"), "image.png")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = e.Extract(context.Background(), []byte("%PDF"), "report.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractViaTika(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-1.4", string(body))
		_, _ = w.Write([]byte("extracted text"))
	}))
	defer srv.Close()

	e := NewExtractor(NewClient(config.TikaConfig{ServerURL: srv.URL + "/"}))
	text, err := e.Extract(context.Background(), []byte("%PDF-1.4"), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "extracted text", text)
}

func TestTikaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("corrupt"))
	}))
	defer srv.Close()

	c := NewClient(config.TikaConfig{ServerURL: srv.URL})
	_, err := c.ExtractText(context.Background(), nil, "x.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.PDF"))
	assert.True(t, Supported("notes.md"))
	assert.False(t, Supported("a.exe"))
	assert.False(t, Supported("noext"))
}
