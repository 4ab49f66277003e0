package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/config"
	"github.com/briefdesk/brief-service/internal/events"
)

// NotificationService reacts to intake events on behalf of the sales team.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventConversationCompleted, n.handleConversationCompleted)
	n.dispatcher.Subscribe(events.EventBriefEmailSent, n.handleBriefEmailSent)
	n.dispatcher.Subscribe(events.EventBriefEmailFailed, n.handleBriefEmailFailed)
}

func (n *NotificationService) handleConversationCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("ConversationCompleted", zap.String("conversation_id", event.ConversationID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBriefEmailSent(ctx context.Context, event events.Event) error {
	n.logger.Info("BriefEmailSent", zap.String("conversation_id", event.ConversationID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleBriefEmailFailed(ctx context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("conversation_id", event.ConversationID)}
	if payload, ok := event.Payload.(events.BriefEmailFailedPayload); ok {
		fields = append(fields,
			zap.String("recipient", payload.Recipient),
			zap.Int("attempts", payload.Attempts),
			zap.Bool("manual_retry", payload.Manual),
			zap.String("error", payload.Error))
	}
	n.logger.Warn("BriefEmailFailed: manual follow-up required", fields...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("conversation_id", event.ConversationID),
		zap.String("event_type", string(event.Type)))
}
