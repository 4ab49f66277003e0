package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/domain"
	"github.com/briefdesk/brief-service/internal/events"
	"github.com/briefdesk/brief-service/internal/parser"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

const (
	msgSaveSent        = "Brief saved and email sent successfully"
	msgSaveAlreadySent = "Brief already exists and email was previously sent"
	msgSaveEmailFailed = "Brief saved successfully, but email delivery failed. Our team will follow up manually within 24 hours."
)

// Locker serializes saves and email retries of the same conversation.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// IntakeService turns a finished interview into a stored brief and an email.
type IntakeService struct {
	conversations *ConversationService
	tracking      *EmailTrackingService
	locker        Locker
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	Conversations *ConversationService
	Tracking      *EmailTrackingService
	Locker        Locker
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{
		conversations: deps.Conversations,
		tracking:      deps.Tracking,
		locker:        deps.Locker,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
	}
}

// SaveInput is the client's save request. Brief and ContactInfo are
// extracted from Messages when omitted.
type SaveInput struct {
	ConversationID string
	Messages       []domain.Message
	ContactInfo    *domain.ContactInfo
	Brief          *domain.Brief
}

// SaveResult reports the stored brief and the email outcome. Success is true
// whenever the brief was stored, even if the email failed.
type SaveResult struct {
	Success        bool
	ConversationID string
	BriefID        string
	EmailStatus    string
	EmailMessageID string
	EmailError     string
	Message        string
}

// SaveConversation completes the conversation, stores its brief and emails it
// to the client. A conversation whose email already went out is not resent.
func (s *IntakeService) SaveConversation(ctx context.Context, input SaveInput) (*SaveResult, error) {
	id := strings.TrimSpace(input.ConversationID)
	if id == "" || len(input.Messages) == 0 {
		return nil, apperrors.NewValidationError("Missing required fields", nil)
	}

	brief := input.Brief
	if brief == nil {
		if brief = parser.ParseBriefFromMessages(input.Messages); brief == nil {
			return nil, apperrors.NewValidationError("Could not extract brief", nil)
		}
	}
	contact := input.ContactInfo
	if contact == nil {
		if contact = parser.ParseContactInfo(input.Messages); contact == nil {
			return nil, apperrors.NewValidationError("Could not extract contact information", nil)
		}
	}
	if !parser.ValidEmail(contact.Email) {
		return nil, apperrors.NewValidationError("Valid email address is required", nil)
	}
	brief.Normalize()

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, id)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	if result := s.alreadySent(ctx, id); result != nil {
		return result, nil
	}

	if _, err := s.conversations.EnsureConversation(ctx, id, input.Messages); err != nil {
		return nil, err
	}
	conv, err := s.conversations.CompleteConversation(ctx, id, *brief, *contact)
	if err != nil {
		return nil, err
	}
	// the stored brief wins over the request body on a repeated save
	if conv.Brief != nil {
		brief = conv.Brief
	}
	doc, err := s.conversations.EnsureBrief(ctx, conv.ID, conv.UserID, *brief)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:           events.EventConversationCompleted,
		ConversationID: conv.ID,
		Payload: events.ConversationCompletedPayload{
			UserID:      conv.UserID,
			BriefID:     doc.ID,
			ProjectType: brief.ProjectType,
			Email:       contact.Email,
		},
	})

	outcome := s.tracking.Deliver(ctx, conv.ID, doc.ID, *contact, *brief, false)
	result := &SaveResult{
		Success:        true,
		ConversationID: conv.ID,
		BriefID:        doc.ID,
	}
	if outcome.Sent {
		result.EmailStatus = outcome.Status
		result.EmailMessageID = outcome.MessageID
		result.Message = msgSaveSent
		return result, nil
	}
	result.EmailStatus = domain.EmailStatusFailed
	result.EmailError = outcome.Error
	result.Message = msgSaveEmailFailed
	return result, nil
}

// alreadySent returns the short-circuit result when the conversation's email
// was delivered before. Lookup failures let the save proceed.
func (s *IntakeService) alreadySent(ctx context.Context, id string) *SaveResult {
	existing, err := s.conversations.GetConversation(ctx, id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Warn("existing conversation lookup failed", zap.String("conversation_id", id), zap.Error(err))
		}
		return nil
	}
	if !existing.EmailDelivered() {
		return nil
	}
	briefID := s.conversations.BriefIDFor(ctx, id)
	if briefID == "" {
		briefID = existing.ID
	}
	s.logger.Info("brief email already sent", zap.String("conversation_id", id))
	return &SaveResult{
		Success:        true,
		ConversationID: existing.ID,
		BriefID:        briefID,
		EmailStatus:    domain.EmailStatusAlreadySent,
		Message:        msgSaveAlreadySent,
	}
}
