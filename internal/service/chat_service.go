package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"docbrain-go/internal/agent"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/metrics"
)

// ChatService answers questions against the indexed documents.
type ChatService interface {
	// AnswerQuery retrieves context for message and runs the answer
	// pipeline. Only retrieval failures are returned as errors; pipeline
	// failures are reported in the Result.
	AnswerQuery(ctx context.Context, sessionID, message string) (agent.Result, error)
	// StreamQuery is AnswerQuery with a callback for each pipeline stage.
	StreamQuery(ctx context.Context, sessionID, message string, progress func(agent.Stage)) (agent.Result, error)
}

type chatService struct {
	search        SearchService
	agent         *agent.Agent
	conversations ConversationService
	contextSize   int
}

// NewChatService creates a ChatService that retrieves contextSize chunks
// per question.
func NewChatService(search SearchService, a *agent.Agent, conversations ConversationService, contextSize int) ChatService {
	return &chatService{
		search:        search,
		agent:         a,
		conversations: conversations,
		contextSize:   contextSize,
	}
}

func (s *chatService) AnswerQuery(ctx context.Context, sessionID, message string) (agent.Result, error) {
	return s.StreamQuery(ctx, sessionID, message, nil)
}

func (s *chatService) StreamQuery(ctx context.Context, sessionID, message string, progress func(agent.Stage)) (agent.Result, error) {
	start := time.Now()
	found, err := s.search.Retrieve(ctx, message, s.contextSize)
	if err != nil {
		return agent.Result{}, fmt.Errorf("retrieve context: %w", err)
	}
	log.Infof("[ChatService] %d chunks retrieved for session %q", len(found.Results), sessionID)

	res := s.agent.ProcessWithProgress(ctx, message, agent.Context{
		SearchResults: found.Results,
		Sources:       found.Sources,
	}, progress)

	metrics.PipelineRuns.WithLabelValues(strconv.FormatBool(res.Success)).Inc()
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	metrics.PipelineTokens.Add(float64(res.TokenCount))

	s.conversations.Record(ctx, sessionID, message, res)
	return res, nil
}
