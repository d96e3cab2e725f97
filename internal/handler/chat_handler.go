package handler

import (
	"net/http"
	"strings"
	"time"

	"docbrain-go/internal/agent"
	"docbrain-go/internal/service"
	"docbrain-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatRequest is the body of POST /api/chat and of each websocket message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// ChatHandler serves the question answering routes.
type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func resultBody(res agent.Result) gin.H {
	return gin.H{
		"success":    res.Success,
		"answer":     res.Answer,
		"sources":    res.Sources,
		"confidence": res.Confidence,
		"tokenCount": res.TokenCount,
		"metadata":   res.Metadata,
	}
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, "Message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = sessionID(c)
	}

	res, err := h.chatService.AnswerQuery(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		log.Errorf("Chat error: %v", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, resultBody(res))
}

// Stream handles GET /api/chat/ws. Each text message is a ChatRequest; the
// server answers with one "stage" event per pipeline stage, then an
// "answer" event and a "completion" event.
func (h *ChatHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	fallbackSession := sessionID(c)
	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("reading from WebSocket failed: %v", err)
			}
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			if err := conn.WriteJSON(gin.H{"type": "error", "message": "Message is required"}); err != nil {
				return
			}
			continue
		}
		if req.SessionID == "" {
			req.SessionID = fallbackSession
		}

		// progress runs on this goroutine, so writes never overlap
		res, err := h.chatService.StreamQuery(ctx, req.SessionID, req.Message, func(stage agent.Stage) {
			_ = conn.WriteJSON(gin.H{"type": "stage", "stage": stage})
		})
		if err != nil {
			log.Errorf("streamed chat failed: %v", err)
			_ = conn.WriteJSON(gin.H{"type": "error", "message": err.Error()})
		} else {
			body := resultBody(res)
			body["type"] = "answer"
			if err := conn.WriteJSON(body); err != nil {
				return
			}
		}
		if err := conn.WriteJSON(gin.H{
			"type":      "completion",
			"status":    "finished",
			"timestamp": time.Now().UnixMilli(),
		}); err != nil {
			return
		}
	}
}
