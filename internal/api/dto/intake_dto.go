package dto

import (
	"time"

	"github.com/briefdesk/brief-service/internal/domain"
)

// ChatRequest payload for POST /chat. CurrentStep is 0-based.
type ChatRequest struct {
	Messages    []domain.Message `json:"messages"`
	CurrentStep int              `json:"currentStep"`
}

// SaveConversationRequest payload. ContactInfo and Brief are optional; the
// server extracts them from Messages when absent.
type SaveConversationRequest struct {
	ConversationID string              `json:"conversationId"`
	Messages       []domain.Message    `json:"messages"`
	ContactInfo    *domain.ContactInfo `json:"contactInfo"`
	Brief          *domain.Brief       `json:"brief"`
}

// SaveConversationResponse reports the stored brief and email outcome.
type SaveConversationResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId"`
	BriefID        string `json:"briefId"`
	EmailStatus    string `json:"emailStatus"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	EmailError     string `json:"emailError,omitempty"`
	Message        string `json:"message"`
}

// BriefResponse is the public view of a completed brief.
type BriefResponse struct {
	Brief       domain.Brief `json:"brief"`
	ProjectType string       `json:"projectType"`
	CreatedAt   *time.Time   `json:"createdAt"`
	Company     string       `json:"company,omitempty"`
}

// BriefPreviewRequest carries one assistant message.
type BriefPreviewRequest struct {
	Content string `json:"content"`
}

// BriefPreviewResponse tells the client whether to render content as a brief.
type BriefPreviewResponse struct {
	IsBrief bool          `json:"isBrief"`
	Brief   *domain.Brief `json:"brief,omitempty"`
}

// CreateConversationRequest payload for POST /conversations.
type CreateConversationRequest struct {
	Messages []domain.Message `json:"messages"`
	Language domain.Language  `json:"language"`
}

// ConversationResponse summarizes a conversation's lifecycle state.
type ConversationResponse struct {
	ConversationID string                    `json:"conversationId"`
	Status         domain.ConversationStatus `json:"status"`
	Language       domain.Language           `json:"language"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// UpdateStatusRequest payload for PATCH /conversations/:id/status.
type UpdateStatusRequest struct {
	Status domain.ConversationStatus `json:"status"`
}
