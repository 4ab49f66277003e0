package domain

import "time"

// BriefStatus tracks delivery of a stored brief.
type BriefStatus string

const (
	BriefStatusDraft    BriefStatus = "draft"
	BriefStatusSent     BriefStatus = "sent"
	BriefStatusViewed   BriefStatus = "viewed"
	BriefStatusAccepted BriefStatus = "accepted"
)

// BriefDocument is the persisted copy of a completed conversation's brief.
type BriefDocument struct {
	ID             string
	ConversationID string
	UserID         string
	Brief          Brief
	Version        int
	Status         BriefStatus
	EmailSentTo    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	EmailSentAt    *time.Time
	ViewedAt       *time.Time
	AcceptedAt     *time.Time
}
