package domain

import "time"

// MessageRole identifies who authored a transcript message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one immutable entry of a conversation transcript.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ContactInfo is the contact channel derived from user messages.
type ContactInfo struct {
	Email                string `json:"email"`
	Phone                string `json:"phone,omitempty"`
	PreferredContactTime string `json:"preferredContactTime,omitempty"`
}
