package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/domain"
	"github.com/briefdesk/brief-service/internal/llm"
	"github.com/briefdesk/brief-service/internal/parser"
	"github.com/briefdesk/brief-service/internal/prompts"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

// ChatStreamer opens a streaming chat completion.
type ChatStreamer interface {
	StreamChat(ctx context.Context, messages []llm.ChatMessage) (io.ReadCloser, error)
}

// ChatService relays the interview to the chat model.
type ChatService struct {
	client  ChatStreamer
	prompts *prompts.Set
	logger  *zap.Logger
}

// ChatDependencies bundles collaborators for the chat service. Client is nil
// when the model provider is not configured.
type ChatDependencies struct {
	Client  ChatStreamer
	Prompts *prompts.Set
	Logger  *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{client: deps.Client, prompts: deps.Prompts, logger: logger}
}

// Configured reports whether a model client is available.
func (s *ChatService) Configured() bool {
	return s.client != nil
}

// Stream returns the model's event stream for the transcript. currentStep is
// the client's 0-based interview step. A policy rejection of non-English
// input is answered with a canned single-chunk stream.
func (s *ChatService) Stream(ctx context.Context, messages []domain.Message, currentStep int) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, apperrors.NewServiceUnavailable(llm.ErrNotConfigured.Error())
	}
	if len(messages) == 0 {
		return nil, apperrors.NewValidationError("messages are required", nil)
	}
	if currentStep < 0 {
		currentStep = 0
	}

	payload := make([]llm.ChatMessage, 0, len(messages)+1)
	payload = append(payload, llm.ChatMessage{Role: string(domain.RoleSystem), Content: s.prompts.SystemPrompt(currentStep + 1)})
	for _, msg := range messages {
		payload = append(payload, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	stream, err := s.client.StreamChat(ctx, payload)
	if err == nil {
		return stream, nil
	}
	if errors.Is(err, llm.ErrContentFiltered) && parser.IsNonEnglish(lastUserContent(messages)) {
		s.logger.Info("content filtered; sending fallback reply", zap.Int("step", currentStep+1))
		return llm.SyntheticStream(s.prompts.Fallback()), nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	s.logger.Error("chat completion failed", zap.Error(err))
	return nil, apperrors.NewBadGateway("Failed to get AI response", err)
}

func lastUserContent(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
