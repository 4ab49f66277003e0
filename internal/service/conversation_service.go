package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/domain"
	"github.com/briefdesk/brief-service/internal/parser"
	"github.com/briefdesk/brief-service/internal/repository"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

// ConversationService owns the conversation, user and brief document lifecycle.
type ConversationService struct {
	conversations repository.ConversationRepository
	users         repository.UserRepository
	briefs        repository.BriefRepository
	logger        *zap.Logger
	now           func() time.Time
}

// ConversationDependencies bundles repositories for the conversation service.
type ConversationDependencies struct {
	Store  *repository.Store
	Logger *zap.Logger
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		conversations: deps.Store.Conversations,
		users:         deps.Store.Users,
		briefs:        deps.Store.Briefs,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateConversation stores a new active conversation owned by the anonymous user.
func (s *ConversationService) CreateConversation(ctx context.Context, messages []domain.Message, language domain.Language) (*domain.Conversation, error) {
	return s.create(ctx, uuid.NewString(), messages, language)
}

func (s *ConversationService) create(ctx context.Context, id string, messages []domain.Message, language domain.Language) (*domain.Conversation, error) {
	now := s.now().UTC()
	messages = normalizeMessages(messages, now)
	if language == "" {
		language = parser.DetectLanguage(messages)
	}

	conv := &domain.Conversation{
		ID:          id,
		UserID:      domain.AnonymousUserID,
		Messages:    messages,
		Status:      domain.ConversationStatusActive,
		Language:    language,
		ProjectType: parser.ExtractProjectType(messages),
		CreatedAt:   now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, repository.ClassifyError(err)
	}
	return conv, nil
}

// EnsureConversation returns the conversation with the given client id,
// creating it when the client never registered one. The stored transcript of
// an active conversation is replaced with the supplied messages.
func (s *ConversationService) EnsureConversation(ctx context.Context, id string, messages []domain.Message) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	switch {
	case err == nil:
	case repository.IsNotFound(err):
		created, createErr := s.create(ctx, id, messages, "")
		if createErr == nil {
			return created, nil
		}
		if !apperrors.IsConflict(createErr) {
			return nil, createErr
		}
		// lost a creation race; fall through to the stored row
		if conv, err = s.conversations.GetByID(ctx, id); err != nil {
			return nil, repository.ClassifyError(err)
		}
	default:
		return nil, repository.ClassifyError(err)
	}

	if conv.Status != domain.ConversationStatusActive || len(messages) == 0 {
		return conv, nil
	}
	messages = normalizeMessages(messages, s.now().UTC())
	language := parser.DetectLanguage(messages)
	if err := s.conversations.UpdateTranscript(ctx, id, messages, language); err != nil {
		return nil, repository.ClassifyError(err)
	}
	conv.Messages = messages
	conv.Language = language
	return conv, nil
}

// GetConversation loads a conversation by id.
func (s *ConversationService) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Conversation")
	}
	return conv, nil
}

// CompleteConversation links the conversation to the client identified by
// the contact email and moves it to completed. Completing an already
// completed conversation leaves its stored brief untouched.
func (s *ConversationService) CompleteConversation(ctx context.Context, id string, brief domain.Brief, contact domain.ContactInfo) (*domain.Conversation, error) {
	// users are only touched for a conversation that exists
	if _, err := s.GetConversation(ctx, id); err != nil {
		return nil, err
	}
	user, err := s.findOrCreateUser(ctx, contact, brief.Company)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	changed, err := s.conversations.Complete(ctx, id, repository.Completion{
		UserID:      user.ID,
		Brief:       brief,
		ContactInfo: contact,
		ProjectType: brief.ProjectType,
		CompletedAt: now,
	})
	if err != nil {
		return nil, notFoundOr(err, "Conversation")
	}
	if !changed {
		s.logger.Info("conversation already completed", zap.String("conversation_id", id))
	}

	if _, err := s.users.AttachConversation(ctx, user.ID, id, now); err != nil {
		return nil, repository.ClassifyError(err)
	}
	return s.GetConversation(ctx, id)
}

// findOrCreateUser looks the client up by lower-cased email. Known clients get
// missing phone and company filled in; stored values are never blanked.
func (s *ConversationService) findOrCreateUser(ctx context.Context, contact domain.ContactInfo, company string) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(contact.Email))
	now := s.now().UTC()

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		mergeUser(user, contact.Phone, company)
		user.LastActiveAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return nil, repository.ClassifyError(err)
		}
		return user, nil
	}
	if !repository.IsNotFound(err) {
		return nil, repository.ClassifyError(err)
	}

	user = &domain.User{
		ID:              uuid.NewString(),
		Email:           email,
		Phone:           strings.TrimSpace(contact.Phone),
		Company:         strings.TrimSpace(company),
		ConversationIDs: []string{},
		CreatedAt:       now,
		LastActiveAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, repository.ClassifyError(err)
		}
		existing, getErr := s.users.GetByEmail(ctx, email)
		if getErr != nil {
			return nil, repository.ClassifyError(getErr)
		}
		return existing, nil
	}
	return user, nil
}

func mergeUser(user *domain.User, phone, company string) {
	if phone = strings.TrimSpace(phone); phone != "" {
		user.Phone = phone
	}
	if company = strings.TrimSpace(company); company != "" {
		user.Company = company
	}
}

// CreateBrief stores a draft brief document for a completed conversation.
func (s *ConversationService) CreateBrief(ctx context.Context, conversationID, userID string, brief domain.Brief) (*domain.BriefDocument, error) {
	now := s.now().UTC()
	doc := &domain.BriefDocument{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Brief:          brief,
		Version:        1,
		Status:         domain.BriefStatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.briefs.Create(ctx, doc); err != nil {
		return nil, repository.ClassifyError(err)
	}
	return doc, nil
}

// EnsureBrief returns the conversation's brief document, creating it once.
func (s *ConversationService) EnsureBrief(ctx context.Context, conversationID, userID string, brief domain.Brief) (*domain.BriefDocument, error) {
	doc, err := s.briefs.GetByConversationID(ctx, conversationID)
	if err == nil {
		return doc, nil
	}
	if !repository.IsNotFound(err) {
		return nil, repository.ClassifyError(err)
	}

	doc, err = s.CreateBrief(ctx, conversationID, userID, brief)
	if err == nil || !apperrors.IsConflict(err) {
		return doc, err
	}
	doc, err = s.briefs.GetByConversationID(ctx, conversationID)
	if err != nil {
		return nil, repository.ClassifyError(err)
	}
	return doc, nil
}

// BriefIDFor returns the brief document id of a conversation, or "" when none exists.
func (s *ConversationService) BriefIDFor(ctx context.Context, conversationID string) string {
	doc, err := s.briefs.GetByConversationID(ctx, conversationID)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.logger.Warn("brief lookup failed", zap.String("conversation_id", conversationID), zap.Error(err))
		}
		return ""
	}
	return doc.ID
}

// MarkBriefSent records delivery of the brief document.
func (s *ConversationService) MarkBriefSent(ctx context.Context, briefID, recipient string) error {
	if err := s.briefs.UpdateStatus(ctx, briefID, domain.BriefStatusSent, s.now().UTC(), recipient); err != nil {
		return repository.ClassifyError(err)
	}
	return nil
}

// GetPublicBrief returns a conversation whose brief may be shown by link.
// id is a conversation id or a brief document id. Active conversations and
// conversations without a brief are not found.
func (s *ConversationService) GetPublicBrief(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		doc, docErr := s.briefs.GetByID(ctx, id)
		if docErr != nil {
			return nil, notFoundOr(docErr, "Brief")
		}
		conv, err = s.conversations.GetByID(ctx, doc.ConversationID)
	}
	if err != nil {
		return nil, notFoundOr(err, "Brief")
	}
	if conv.Status == domain.ConversationStatusActive || conv.Brief == nil {
		return nil, apperrors.NewNotFound("Brief", nil)
	}
	return conv, nil
}

// MarkBriefViewed flags the conversation's brief document as viewed. Accepted
// briefs keep their status.
func (s *ConversationService) MarkBriefViewed(ctx context.Context, conversationID string) error {
	doc, err := s.briefs.GetByConversationID(ctx, conversationID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return repository.ClassifyError(err)
	}
	if doc.Status == domain.BriefStatusAccepted {
		return nil
	}
	if err := s.briefs.UpdateStatus(ctx, doc.ID, domain.BriefStatusViewed, s.now().UTC(), ""); err != nil {
		return repository.ClassifyError(err)
	}
	return nil
}

// UpdateStatus advances a completed conversation through the sales pipeline.
func (s *ConversationService) UpdateStatus(ctx context.Context, id string, next domain.ConversationStatus) (*domain.Conversation, error) {
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(conv.Status, next) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": conv.Status,
			"to":   next,
		})
	}

	changed, err := s.conversations.UpdateStatus(ctx, id, conv.Status, next)
	if err != nil {
		return nil, notFoundOr(err, "Conversation")
	}
	if !changed {
		return nil, apperrors.NewConflict("conversation status changed concurrently", map[string]any{"id": id})
	}
	conv.Status = next
	conv.UpdatedAt = s.now().UTC()
	return conv, nil
}

var allowedTransitions = map[domain.ConversationStatus][]domain.ConversationStatus{
	domain.ConversationStatusActive:    {},
	domain.ConversationStatusCompleted: {domain.ConversationStatusContacted, domain.ConversationStatusConverted},
	domain.ConversationStatusContacted: {domain.ConversationStatusConverted},
	domain.ConversationStatusConverted: {},
}

func isValidTransition(current, next domain.ConversationStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// normalizeMessages assigns ids and timestamps to messages that lack them.
func normalizeMessages(messages []domain.Message, now time.Time) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		out = append(out, msg)
	}
	return out
}

func notFoundOr(err error, resource string) error {
	if repository.IsNotFound(err) {
		return apperrors.NewNotFound(resource, nil)
	}
	return repository.ClassifyError(err)
}
