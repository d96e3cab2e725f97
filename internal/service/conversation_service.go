package service

import (
	"context"
	"time"

	"docbrain-go/internal/agent"
	"docbrain-go/internal/model"
	"docbrain-go/internal/repository"
	"docbrain-go/pkg/log"
)

// ConversationService keeps the recent messages of each chat session.
type ConversationService interface {
	// Record stores a question and its answer. Failures are logged only.
	Record(ctx context.Context, sessionID, query string, res agent.Result)
	History(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
}

type conversationService struct {
	repo repository.ConversationRepository
	now  func() time.Time
}

// NewConversationService creates a ConversationService. A nil repo turns
// history off: nothing is recorded and History is always empty.
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo, now: time.Now}
}

func (s *conversationService) Record(ctx context.Context, sessionID, query string, res agent.Result) {
	if s.repo == nil || sessionID == "" {
		return
	}
	now := s.now()
	err := s.repo.AppendMessages(ctx, sessionID,
		model.ChatMessage{Role: "user", Content: query, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: res.Answer, Sources: res.Sources, Confidence: res.Confidence, Timestamp: now},
	)
	if err != nil {
		log.Warnf("[ConversationService] saving history of session %s failed: %v", sessionID, err)
	}
}

func (s *conversationService) History(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	if s.repo == nil || sessionID == "" {
		return []model.ChatMessage{}, nil
	}
	return s.repo.GetConversationHistory(ctx, sessionID)
}

func (s *conversationService) Clear(ctx context.Context, sessionID string) error {
	if s.repo == nil || sessionID == "" {
		return nil
	}
	return s.repo.ClearConversation(ctx, sessionID)
}
