package handler

import (
	"net/http"

	"docbrain-go/internal/service"
	"docbrain-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationHandler serves chat history.
type ConversationHandler struct {
	conversationService service.ConversationService
}

func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// GetConversation handles GET /api/conversation.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		fail(c, http.StatusBadRequest, "Session id is required")
		return
	}
	history, err := h.conversationService.History(c.Request.Context(), id)
	if err != nil {
		log.Errorf("GetConversation: session %s: %v", id, err)
		fail(c, http.StatusInternalServerError, "Failed to load conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": id, "messages": history})
}

// ClearConversation handles DELETE /api/conversation.
func (h *ConversationHandler) ClearConversation(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		fail(c, http.StatusBadRequest, "Session id is required")
		return
	}
	if err := h.conversationService.Clear(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to clear conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Conversation cleared"})
}
