package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docbrain-go/internal/agent"
	"docbrain-go/internal/chunker"
	"docbrain-go/internal/config"
	"docbrain-go/internal/personality"
	"docbrain-go/internal/pipeline"
	"docbrain-go/internal/repository"
	"docbrain-go/internal/service"
	"docbrain-go/internal/vectorstore"
	"docbrain-go/pkg/embedding"
	"docbrain-go/pkg/hash"
	"docbrain-go/pkg/llm"
	"docbrain-go/pkg/storage"
	"docbrain-go/pkg/tika"
	"docbrain-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type cannedLM struct{}

func (cannedLM) Generate(_ context.Context, system, _ string) (llm.Completion, error) {
	if strings.Contains(system, "Respond in JSON format:") {
		return llm.Completion{Text: `{"queryType":"general","needsSearch":false,"searchTerms":[],"responseFormat":"paragraph"}`, TokenUsage: 5}, nil
	}
	return llm.Completion{Text: "The knowledge base covers fruit.", TokenUsage: 20}, nil
}

const fruit = "Apples and pears are both fruit grown in orchards across the region every year."

type testServer struct {
	router     *gin.Engine
	store      *vectorstore.MemoryStore
	jwtManager *token.JWTManager
}

func newTestServer(t *testing.T, withAuth bool) testServer {
	t.Helper()
	ch, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	store := vectorstore.NewMemoryStore(embedding.HashDimensions)
	objects := storage.NewMemoryStore()
	docs := repository.NewMemoryDocumentRepository()
	extractor := tika.NewExtractor(nil)
	embedder := embedding.NewHashEmbedder()
	proc := pipeline.NewProcessor(ch, embedder, store, extractor, objects, docs)

	registry := personality.MustNewRegistry()
	a := agent.New(cannedLM{}, registry, agent.Options{Model: "m", Provider: "p"})
	search := service.NewSearchService(embedder, store, 5)
	conversations := service.NewConversationService(nil)

	var jwtManager *token.JWTManager
	authCfg := config.AuthConfig{AdminUsername: "admin"}
	if withAuth {
		jwtManager = token.NewJWTManager("secret", 1)
		authCfg.AdminPasswordHash, err = hash.HashPassword("pw")
		require.NoError(t, err)
	}

	router := NewRouter(Services{
		Documents:     service.NewDocumentService(proc, extractor, store, objects, docs, nil, 1<<20),
		Chat:          service.NewChatService(search, a, conversations, 5),
		Search:        search,
		Personalities: service.NewPersonalityService(registry, a),
		Conversations: conversations,
		Auth:          service.NewAuthService(authCfg, jwtManager),
	}, RouterOptions{JWTManager: jwtManager, MaxUploadBytes: 1 << 20})
	return testServer{router: router, store: store, jwtManager: jwtManager}
}

func (s testServer) do(t *testing.T, method, path string, body any, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (s testServer) upload(t *testing.T, files map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("documents", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)
	w, body := s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "In-Memory", body["vectorDB"])
	assert.Equal(t, "Government Professional", body["personality"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestServer(t, false)

	w, body := s.upload(t, map[string]string{"fruit.txt": fruit})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["count"])
	outcomes := body["documents"].([]any)
	require.Len(t, outcomes, 1)
	id := outcomes[0].(map[string]any)["documentId"].(string)
	assert.Equal(t, 1, s.store.Len())

	w, body = s.do(t, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := body["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "fruit.txt", docs[0].(map[string]any)["name"])
	assert.EqualValues(t, 1, docs[0].(map[string]any)["chunkCount"])

	w, _ = s.do(t, http.MethodGet, "/api/documents/"+id+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fruit, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "fruit.txt")

	w, body = s.do(t, http.MethodPost, "/api/documents/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Embeddings rebuilt successfully", body["message"])
	assert.Equal(t, 1, s.store.Len())

	w, body = s.do(t, http.MethodDelete, "/api/documents/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Document deleted successfully", body["message"])
	assert.Zero(t, s.store.Len())

	w, body = s.do(t, http.MethodDelete, "/api/documents/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Document not found", body["message"])
}

func TestUploadWithoutFiles(t *testing.T) {
	s := newTestServer(t, false)
	w, body := s.do(t, http.MethodPost, "/api/documents/upload", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No files uploaded", body["message"])
}

func TestUploadUnsupportedType(t *testing.T) {
	s := newTestServer(t, false)
	w, body := s.upload(t, map[string]string{"tool.exe": "MZ"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
	outcome := body["documents"].([]any)[0].(map[string]any)
	assert.Contains(t, outcome["error"], "unsupported file type")
}

func TestClearRoutes(t *testing.T) {
	s := newTestServer(t, false)
	s.upload(t, map[string]string{"a.txt": fruit, "b.md": fruit})
	require.Equal(t, 2, s.store.Len())

	w, body := s.do(t, http.MethodDelete, "/api/documents/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "All documents cleared", body["message"])
	assert.Zero(t, s.store.Len())

	w, _ = s.do(t, http.MethodDelete, "/api/documents", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChat(t *testing.T) {
	s := newTestServer(t, false)
	s.upload(t, map[string]string{"fruit.txt": fruit})

	w, body := s.do(t, http.MethodPost, "/api/chat", gin.H{"message": "What fruit grows here?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "The knowledge base covers fruit.", body["answer"])
	assert.Equal(t, []any{"fruit.txt"}, body["sources"])
	assert.EqualValues(t, 25, body["tokenCount"])
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, "m", meta["model"])

	w, body = s.do(t, http.MethodPost, "/api/chat", gin.H{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Message is required", body["message"])
}

func TestChatWebSocket(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ChatRequest{Message: "hello"}))
	var types, stages []string
	for {
		var event map[string]any
		require.NoError(t, conn.ReadJSON(&event))
		types = append(types, event["type"].(string))
		if event["type"] == "stage" {
			stages = append(stages, event["stage"].(string))
		}
		if event["type"] == "answer" {
			assert.Equal(t, "The knowledge base covers fruit.", event["answer"])
		}
		if event["type"] == "completion" {
			break
		}
	}
	assert.Equal(t, []string{
		string(agent.StageAnalyze),
		string(agent.StageGenerate),
		string(agent.StageValidate),
		string(agent.StageFormat),
		string(agent.StageDone),
	}, stages)
	assert.Equal(t, "answer", types[len(types)-2])
}

func TestPersonalityRoutes(t *testing.T) {
	s := newTestServer(t, false)

	w, body := s.do(t, http.MethodGet, "/api/personalities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, personality.DefaultKey, body["current"])
	assert.Len(t, body["personalities"], 5)

	w, body = s.do(t, http.MethodPost, "/api/personality", gin.H{"personality": "executive_brief"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Personality updated to: Executive Brief", body["message"])
	assert.Equal(t, "executive_brief", body["personality"].(map[string]any)["type"])

	w, body = s.do(t, http.MethodPost, "/api/personality", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Personality type is required", body["message"])
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, false)
	s.upload(t, map[string]string{"fruit.txt": fruit})

	w, body := s.do(t, http.MethodGet, "/api/search?q=orchards&k=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["results"], 1)
	assert.Equal(t, []any{"fruit.txt"}, body["sources"])

	w, body = s.do(t, http.MethodGet, "/api/search?q=orchards&k=50000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["results"], 1)

	w, _ = s.do(t, http.MethodGet, "/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationRequiresSession(t *testing.T) {
	s := newTestServer(t, false)
	w, _ := s.do(t, http.MethodGet, "/api/conversation", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := s.do(t, http.MethodGet, "/api/conversation", nil, "X-Session-ID", "s1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", body["sessionId"])
	assert.Empty(t, body["messages"])
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, true)

	w, _ := s.do(t, http.MethodPost, "/api/documents/rebuild", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])

	w, body = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	tok := body["token"].(string)

	w, _ = s.do(t, http.MethodPost, "/api/documents/rebuild", nil, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)

	// public routes stay open
	w, _ = s.do(t, http.MethodGet, "/api/documents", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginWithoutAuthConfigured(t *testing.T) {
	s := newTestServer(t, false)
	w, _ := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "pw"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	s.do(t, http.MethodGet, "/api/health", nil)
	w, _ := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docbrain_http_requests_total")
}
