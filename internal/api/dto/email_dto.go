package dto

import (
	"time"

	"github.com/briefdesk/brief-service/internal/domain"
)

// ConversationEmailStatus is the delivery state of one conversation.
type ConversationEmailStatus struct {
	ID               string             `json:"id"`
	EmailStatus      string             `json:"emailStatus"`
	EmailSentAt      *time.Time         `json:"emailSentAt"`
	EmailMessageID   string             `json:"emailMessageId"`
	EmailAttempts    int                `json:"emailAttempts"`
	LastEmailAttempt *time.Time         `json:"lastEmailAttempt"`
	EmailError       *domain.EmailError `json:"emailError"`
	Email            string             `json:"email"`
}

// ConversationEmailStatusResponse wraps a single-conversation lookup.
type ConversationEmailStatusResponse struct {
	Conversation ConversationEmailStatus `json:"conversation"`
	Timestamp    time.Time               `json:"timestamp"`
}

// EmailStatsResponse is the windowed aggregate.
type EmailStatsResponse struct {
	Period      string          `json:"period"`
	PeriodStart time.Time       `json:"periodStart"`
	Stats       EmailStats      `json:"stats"`
	Timestamp   time.Time       `json:"timestamp"`
	Details     []EmailActivity `json:"details,omitempty"`
}

type EmailStats struct {
	Total           int              `json:"total"`
	Successful      int              `json:"successful"`
	Failed          int              `json:"failed"`
	Pending         int              `json:"pending"`
	RetryAttempts   int              `json:"retryAttempts"`
	AverageAttempts float64          `json:"averageAttempts"`
	SuccessRate     int              `json:"successRate"`
	CommonErrors    map[string]int   `json:"commonErrors"`
	RecentFailures  []FailureSummary `json:"recentFailures"`
}

type FailureSummary struct {
	ConversationID string     `json:"conversationId"`
	RecipientEmail string     `json:"recipientEmail"`
	Error          string     `json:"error"`
	LastAttempt    *time.Time `json:"lastAttempt"`
	Attempts       int        `json:"attempts"`
}

type EmailActivity struct {
	ConversationID string     `json:"conversationId"`
	RecipientEmail string     `json:"recipientEmail"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sentAt"`
	Attempts       int        `json:"attempts"`
	LastAttempt    *time.Time `json:"lastAttempt"`
	Error          string     `json:"error"`
}

// RetryEmailRequest payload for POST /retry-email.
type RetryEmailRequest struct {
	ConversationID string `json:"conversationId"`
}

// RetryEmailResponse is always a structured result, also for provider failures.
type RetryEmailResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId,omitempty"`
	EmailStatus    string `json:"emailStatus"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	EmailError     string `json:"emailError,omitempty"`
	EmailAttempts  *int   `json:"emailAttempts,omitempty"`
	Message        string `json:"message"`
}
