package domain

import "time"

// ConversationStatus captures the lifecycle state of an intake conversation.
type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "active"
	ConversationStatusCompleted ConversationStatus = "completed"
	ConversationStatusContacted ConversationStatus = "contacted"
	ConversationStatusConverted ConversationStatus = "converted"
)

// Language is the detected interview language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageThai    Language = "th"
)

// AnonymousUserID is the placeholder owner until contact details are known.
const AnonymousUserID = "anonymous"

// Email status tokens written by this service. Transport statuses such as
// "Succeeded" are stored verbatim.
const (
	EmailStatusFailed      = "failed"
	EmailStatusPending     = "pending"
	EmailStatusAlreadySent = "already_sent"
	EmailStatusSucceeded   = "Succeeded"
)

// EmailError is the last recorded delivery failure.
type EmailError struct {
	Message   string    `json:"message"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one client's transcript plus lifecycle and delivery state.
type Conversation struct {
	ID               string
	UserID           string
	Messages         []Message
	Brief            *Brief
	ContactInfo      *ContactInfo
	Status           ConversationStatus
	Language         Language
	ProjectType      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	EmailSentAt      *time.Time
	EmailStatus      string
	EmailMessageID   string
	EmailAttempts    int
	LastEmailAttempt *time.Time
	EmailError       *EmailError
}

// EmailDelivered reports whether a send has already succeeded.
func (c *Conversation) EmailDelivered() bool {
	return c.EmailSentAt != nil
}

// EmailAttempt describes the outcome of one dispatch, recorded on the conversation.
type EmailAttempt struct {
	At        time.Time
	Status    string
	MessageID string
	Error     *EmailError
}
