package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docbrain-go/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	historyLimit = 20
	historyTTL   = 7 * 24 * time.Hour
)

// ConversationRepository keeps recent chat messages per session.
type ConversationRepository interface {
	GetConversationHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error
	ClearConversation(ctx context.Context, sessionID string) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
}

// NewConversationRepository creates a Redis-backed ConversationRepository.
func NewConversationRepository(redisClient *redis.Client) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s", sessionID)
}

// GetConversationHistory returns the stored messages, oldest first.
func (r *redisConversationRepository) GetConversationHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	items, err := r.redisClient.LRange(ctx, conversationKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	messages := make([]model.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// AppendMessages pushes messages, keeps the most recent 20 and refreshes
// the TTL in one MULTI/EXEC, so concurrent chats in a session lose nothing.
func (r *redisConversationRepository) AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation message: %w", err)
		}
		values = append(values, data)
	}

	key := conversationKey(sessionID)
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, -historyLimit, -1)
		pipe.Expire(ctx, key, historyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append conversation history: %w", err)
	}
	return nil
}

func (r *redisConversationRepository) ClearConversation(ctx context.Context, sessionID string) error {
	return r.redisClient.Del(ctx, conversationKey(sessionID)).Err()
}
