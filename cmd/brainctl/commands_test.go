package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--server", srv.URL, "--token", "tok"}, args...))
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestAskPrintsAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is zoning", req["message"])
		_, _ = io.WriteString(w, `{"success":true,"answer":"Zoning is land use.","sources":["a.pdf"],"confidence":0.8}`)
	}))
	defer srv.Close()

	out, err := run(t, srv, "ask", "what", "is", "zoning")
	require.NoError(t, err)
	assert.Contains(t, out, "Zoning is land use.")
	assert.Contains(t, out, "Sources: a.pdf")
	assert.Contains(t, out, "Confidence: 80%")
}

func TestDocsDeleteReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/abc", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"Document not found"}`)
	}))
	defer srv.Close()

	_, err := run(t, srv, "docs", "delete", "abc")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Document not found", apiErr.Message)
}

func TestDocsUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["documents"]
		require.Len(t, files, 1)
		assert.Equal(t, "notes.txt", files[0].Filename)
		_, _ = io.WriteString(w, `{"success":true,"documents":[{"fileName":"notes.txt","documentId":"d1","chunkCount":2,"success":true}]}`)
	}))
	defer srv.Close()

	path := t.TempDir() + "/notes.txt"
	require.NoError(t, writeFile(path, "hello"))
	out, err := run(t, srv, "docs", "upload", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok    notes.txt -> d1 (2 chunks)")
}

func TestSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "budget", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("k"))
		_, _ = io.WriteString(w, `{"success":true,"results":[],"sources":[]}`)
	}))
	defer srv.Close()

	out, err := run(t, srv, "search", "-n", "3", "budget")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestHashPassword(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	out, err := run(t, srv, "hash-password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "$2a$")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
