package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation links exactly two participants. IsGroup is carried for a
// future group feature but nothing models groups yet; the unordered-pair
// uniqueness rule applies whenever IsGroup is false.
type Conversation struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name,omitempty"`
	Participants  []uuid.UUID `json:"participants"`
	IsGroup       bool        `json:"is_group"`
	LastMessage   string      `json:"last_message,omitempty"`
	LastMessageAt *time.Time  `json:"last_message_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (c Conversation) HasParticipant(accountID uuid.UUID) bool {
	for _, id := range c.Participants {
		if id == accountID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the counterpart of accountID in a pairwise
// conversation. The second return is false when accountID is not a member.
func (c Conversation) OtherParticipant(accountID uuid.UUID) (uuid.UUID, bool) {
	if !c.HasParticipant(accountID) {
		return uuid.Nil, false
	}
	for _, id := range c.Participants {
		if id != accountID {
			return id, true
		}
	}
	return uuid.Nil, false
}

// LastActivity is the sort key for conversation listings: conversations
// without any message yet sort as oldest.
func (c Conversation) LastActivity() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return time.Time{}
}

// ConversationView is the read-side join of a conversation with its
// participants resolved to profiles.
type ConversationView struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name,omitempty"`
	IsGroup       bool       `json:"is_group"`
	Participants  []Profile  `json:"participants"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ConversationSummary is one row of an account's conversation listing.
type ConversationSummary struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name,omitempty"`
	OtherParticipant Profile    `json:"other_participant"`
	LastMessage      string     `json:"last_message,omitempty"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
}
