package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/domain"
	"github.com/briefdesk/brief-service/internal/email"
	"github.com/briefdesk/brief-service/internal/events"
	"github.com/briefdesk/brief-service/internal/observability"
	"github.com/briefdesk/brief-service/internal/repository"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

const (
	DefaultStatsPeriodDays = 7
	recentFailureWindow    = 24 * time.Hour
	recentFailureLimit     = 10
	errorKeyLength         = 100
	unknownError           = "Unknown error"
)

// EmailSender delivers a brief to a contact.
type EmailSender interface {
	SendBriefEmail(ctx context.Context, contact domain.ContactInfo, brief domain.Brief, conversationID string) (*email.Result, error)
}

// EmailTrackingService records delivery attempts and reports on them.
type EmailTrackingService struct {
	conversations repository.ConversationRepository
	lifecycle     *ConversationService
	sender        EmailSender
	locker        Locker
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// EmailTrackingDependencies bundles collaborators for email tracking.
type EmailTrackingDependencies struct {
	Store         *repository.Store
	Conversations *ConversationService
	Sender        EmailSender
	Locker        Locker
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewEmailTrackingService constructs the service.
func NewEmailTrackingService(deps EmailTrackingDependencies) *EmailTrackingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailTrackingService{
		conversations: deps.Store.Conversations,
		lifecycle:     deps.Conversations,
		sender:        deps.Sender,
		locker:        deps.Locker,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// RecordSuccess stores a delivered send and returns the new attempt count.
func (s *EmailTrackingService) RecordSuccess(ctx context.Context, conversationID string, result *email.Result) (int, error) {
	attempts, err := s.conversations.RecordEmailSuccess(ctx, conversationID, domain.EmailAttempt{
		At:        s.now().UTC(),
		Status:    result.Status,
		MessageID: result.MessageID,
	})
	if err != nil {
		return 0, notFoundOr(err, "Conversation")
	}
	s.metrics.RecordEmail(true)
	return attempts, nil
}

// RecordFailure stores a failed send and returns the new attempt count.
func (s *EmailTrackingService) RecordFailure(ctx context.Context, conversationID string, sendErr error) (int, error) {
	now := s.now().UTC()
	attempts, err := s.conversations.RecordEmailFailure(ctx, conversationID, domain.EmailAttempt{
		At:     now,
		Status: domain.EmailStatusFailed,
		Error: &domain.EmailError{
			Message:   sendErr.Error(),
			Name:      email.ErrorName(sendErr),
			Timestamp: now,
		},
	})
	if err != nil {
		return 0, notFoundOr(err, "Conversation")
	}
	s.metrics.RecordEmail(false)
	return attempts, nil
}

// DeliveryOutcome summarizes one dispatch and its bookkeeping.
type DeliveryOutcome struct {
	Sent      bool
	Status    string
	MessageID string
	Error     string
	Attempts  int
}

// Deliver sends the brief and records the result on the conversation. The
// send and the bookkeeping outlive the caller's cancellation so a delivered
// email is never left unrecorded.
func (s *EmailTrackingService) Deliver(ctx context.Context, conversationID, briefID string, contact domain.ContactInfo, brief domain.Brief, manual bool) DeliveryOutcome {
	ctx = context.WithoutCancel(ctx)
	logger := s.logger.With(zap.String("conversation_id", conversationID), zap.Bool("manual_retry", manual))

	result, sendErr := s.sender.SendBriefEmail(ctx, contact, brief, conversationID)
	if sendErr != nil {
		attempts, err := s.RecordFailure(ctx, conversationID, sendErr)
		if err != nil {
			logger.Error("record email failure", zap.Error(err))
		}
		logger.Warn("brief email failed", zap.Error(sendErr))
		s.publishEvent(ctx, events.Event{
			Type:           events.EventBriefEmailFailed,
			ConversationID: conversationID,
			Payload: events.BriefEmailFailedPayload{
				Recipient: contact.Email,
				Error:     sendErr.Error(),
				Attempts:  attempts,
				Manual:    manual,
			},
		})
		return DeliveryOutcome{Status: domain.EmailStatusFailed, Error: sendErr.Error(), Attempts: attempts}
	}

	attempts, err := s.RecordSuccess(ctx, conversationID, result)
	if err != nil {
		logger.Error("record email success", zap.Error(err))
	}
	if briefID != "" && s.lifecycle != nil {
		if err := s.lifecycle.MarkBriefSent(ctx, briefID, contact.Email); err != nil {
			logger.Error("mark brief sent", zap.String("brief_id", briefID), zap.Error(err))
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:           events.EventBriefEmailSent,
		ConversationID: conversationID,
		Payload: events.BriefEmailSentPayload{
			Recipient: contact.Email,
			MessageID: result.MessageID,
			Status:    result.Status,
			Attempts:  attempts,
			Manual:    manual,
		},
	})
	return DeliveryOutcome{Sent: true, Status: result.Status, MessageID: result.MessageID, Attempts: attempts}
}

// ConversationEmailStatus is the delivery state of one conversation.
type ConversationEmailStatus struct {
	ID               string
	EmailStatus      string
	EmailSentAt      *time.Time
	EmailMessageID   string
	EmailAttempts    int
	LastEmailAttempt *time.Time
	EmailError       *domain.EmailError
	Email            string
}

// GetConversationStatus reports the delivery state of one conversation.
func (s *EmailTrackingService) GetConversationStatus(ctx context.Context, conversationID string) (*ConversationEmailStatus, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, notFoundOr(err, "Conversation")
	}
	status := &ConversationEmailStatus{
		ID:               conv.ID,
		EmailStatus:      conv.EmailStatus,
		EmailSentAt:      conv.EmailSentAt,
		EmailMessageID:   conv.EmailMessageID,
		EmailAttempts:    conv.EmailAttempts,
		LastEmailAttempt: conv.LastEmailAttempt,
		EmailError:       conv.EmailError,
	}
	if conv.ContactInfo != nil {
		status.Email = conv.ContactInfo.Email
	}
	return status, nil
}

// FailureSummary describes a recent failed delivery.
type FailureSummary struct {
	ConversationID string
	RecipientEmail string
	Error          string
	LastAttempt    *time.Time
	Attempts       int
}

// EmailActivity is one conversation's delivery record within the period.
type EmailActivity struct {
	ConversationID string
	RecipientEmail string
	Status         string
	SentAt         *time.Time
	Attempts       int
	LastAttempt    *time.Time
	Error          string
}

// EmailStats aggregates delivery over a period.
type EmailStats struct {
	Total           int
	Successful      int
	Failed          int
	Pending         int
	RetryAttempts   int
	AverageAttempts float64
	SuccessRate     int
	CommonErrors    map[string]int
	RecentFailures  []FailureSummary
}

// EmailStatsReport is the aggregate response for a period.
type EmailStatsReport struct {
	PeriodDays  int
	PeriodStart time.Time
	Stats       EmailStats
	Details     []EmailActivity
	GeneratedAt time.Time
}

// GetStats aggregates delivery activity for conversations that attempted or
// completed a send within the last periodDays days.
func (s *EmailTrackingService) GetStats(ctx context.Context, periodDays int, includeDetails bool) (*EmailStatsReport, error) {
	if periodDays <= 0 {
		periodDays = DefaultStatsPeriodDays
	}
	now := s.now().UTC()
	since := now.Add(-time.Duration(periodDays) * 24 * time.Hour)

	rows, err := s.conversations.ListEmailActivity(ctx, since)
	if err != nil {
		return nil, repository.ClassifyError(err)
	}

	report := &EmailStatsReport{
		PeriodDays:  periodDays,
		PeriodStart: since,
		Stats:       aggregateEmailStats(rows, now),
		GeneratedAt: now,
	}
	if includeDetails {
		report.Details = make([]EmailActivity, 0, len(rows))
		for _, conv := range rows {
			report.Details = append(report.Details, EmailActivity{
				ConversationID: conv.ID,
				RecipientEmail: recipientOf(conv),
				Status:         conv.EmailStatus,
				SentAt:         conv.EmailSentAt,
				Attempts:       conv.EmailAttempts,
				LastAttempt:    conv.LastEmailAttempt,
				Error:          errorMessage(conv.EmailError),
			})
		}
	}
	return report, nil
}

func aggregateEmailStats(rows []domain.Conversation, now time.Time) EmailStats {
	stats := EmailStats{
		Total:          len(rows),
		CommonErrors:   map[string]int{},
		RecentFailures: []FailureSummary{},
	}
	for _, conv := range rows {
		switch conv.EmailStatus {
		case domain.EmailStatusSucceeded:
			stats.Successful++
		case domain.EmailStatusFailed:
			stats.Failed++
		case "", domain.EmailStatusPending:
			stats.Pending++
		}
		stats.RetryAttempts += conv.EmailAttempts

		if conv.EmailError != nil && conv.EmailError.Message != "" {
			stats.CommonErrors[truncateRunes(conv.EmailError.Message, errorKeyLength)]++
		}

		if conv.EmailStatus == domain.EmailStatusFailed &&
			conv.LastEmailAttempt != nil &&
			now.Sub(*conv.LastEmailAttempt) <= recentFailureWindow &&
			len(stats.RecentFailures) < recentFailureLimit {
			msg := errorMessage(conv.EmailError)
			if msg == "" {
				msg = unknownError
			}
			stats.RecentFailures = append(stats.RecentFailures, FailureSummary{
				ConversationID: conv.ID,
				RecipientEmail: recipientOf(conv),
				Error:          msg,
				LastAttempt:    conv.LastEmailAttempt,
				Attempts:       conv.EmailAttempts,
			})
		}
	}
	if stats.Total > 0 {
		stats.AverageAttempts = math.Round(float64(stats.RetryAttempts)/float64(stats.Total)*100) / 100
		stats.SuccessRate = int(math.Round(float64(stats.Successful) / float64(stats.Total) * 100))
	}
	return stats
}

// RetryResult is the outcome of a manual resend.
type RetryResult struct {
	Success        bool
	ConversationID string
	EmailStatus    string
	EmailMessageID string
	EmailError     string
	EmailAttempts  int
	Message        string
}

const (
	msgRetryAlreadySent = "Email was already sent successfully for this conversation"
	msgRetrySent        = "Email sent successfully on retry"
	msgRetryFailed      = "Email retry failed. Manual follow-up required."
)

// RetryEmail resends the stored brief of a conversation. It holds the same
// per-conversation lock as a save, so a concurrent save or retry gets a
// conflict. Provider failures are reported in the result, not as an error.
func (s *EmailTrackingService) RetryEmail(ctx context.Context, conversationID string) (*RetryResult, error) {
	if conversationID == "" {
		return nil, apperrors.NewValidationError("Conversation ID is required", nil)
	}
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, notFoundOr(err, "Conversation")
	}
	if conv.EmailStatus == domain.EmailStatusSucceeded && conv.EmailDelivered() {
		return &RetryResult{
			Success:        false,
			ConversationID: conv.ID,
			EmailStatus:    domain.EmailStatusAlreadySent,
			Message:        msgRetryAlreadySent,
		}, nil
	}
	if conv.ContactInfo == nil || conv.Brief == nil {
		return nil, apperrors.NewValidationError("Missing contact info or brief data", nil)
	}

	briefID := ""
	if s.lifecycle != nil {
		briefID = s.lifecycle.BriefIDFor(ctx, conv.ID)
	}
	outcome := s.Deliver(ctx, conv.ID, briefID, *conv.ContactInfo, *conv.Brief, true)
	if outcome.Sent {
		return &RetryResult{
			Success:        true,
			ConversationID: conv.ID,
			EmailStatus:    outcome.Status,
			EmailMessageID: outcome.MessageID,
			EmailAttempts:  outcome.Attempts,
			Message:        msgRetrySent,
		}, nil
	}
	return &RetryResult{
		Success:        false,
		ConversationID: conv.ID,
		EmailStatus:    domain.EmailStatusFailed,
		EmailError:     outcome.Error,
		EmailAttempts:  outcome.Attempts,
		Message:        msgRetryFailed,
	}, nil
}

func (s *EmailTrackingService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, event)
}

// publishEvent fills envelope fields and publishes. Delivery errors are
// logged and never fail the caller.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = event.ConversationID
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func recipientOf(conv domain.Conversation) string {
	if conv.ContactInfo == nil {
		return ""
	}
	return conv.ContactInfo.Email
}

func errorMessage(e *domain.EmailError) string {
	if e == nil {
		return ""
	}
	return e.Message
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
