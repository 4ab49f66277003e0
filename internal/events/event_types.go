package events

import "time"

// EventType enumerates supported event identifiers. The value doubles as the
// broker routing key.
type EventType string

const (
	EventConversationCompleted EventType = "conversation_completed"
	EventBriefEmailSent        EventType = "brief_email_sent"
	EventBriefEmailFailed      EventType = "brief_email_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	ConversationID string      `json:"conversation_id"`
	CorrelationID  string      `json:"correlation_id,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// ConversationCompletedPayload payload.
type ConversationCompletedPayload struct {
	UserID      string `json:"user_id"`
	BriefID     string `json:"brief_id"`
	ProjectType string `json:"project_type"`
	Email       string `json:"email"`
}

// BriefEmailSentPayload payload.
type BriefEmailSentPayload struct {
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	Manual    bool   `json:"manual_retry"`
}

// BriefEmailFailedPayload payload.
type BriefEmailFailedPayload struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
	Attempts  int    `json:"attempts"`
	Manual    bool   `json:"manual_retry"`
}
