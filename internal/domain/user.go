package domain

import "time"

// User is a client identified by lower-cased email.
type User struct {
	ID              string
	Email           string
	Phone           string
	Name            string
	Company         string
	ConversationIDs []string
	TotalBriefs     int
	CreatedAt       time.Time
	LastActiveAt    time.Time
}

// HasConversation reports whether the conversation is already linked.
func (u *User) HasConversation(id string) bool {
	for _, existing := range u.ConversationIDs {
		if existing == id {
			return true
		}
	}
	return false
}
