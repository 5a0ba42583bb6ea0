package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"courier/errors"

	"github.com/google/uuid"
)

// MaxContentLength bounds message text, in runes, after trimming.
const MaxContentLength = 5000

// Message belongs to one conversation. IsRead transitions false to true
// exactly once, and only a participant other than the sender flips it.
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Content        string     `json:"content"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NormalizeContent trims message text and enforces the length bounds.
// A non-positive limit falls back to MaxContentLength.
func NormalizeContent(raw string, limit int) (string, error) {
	if limit <= 0 {
		limit = MaxContentLength
	}
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", errors.BadRequest("message content is empty")
	}
	if n := utf8.RuneCountInString(content); n > limit {
		return "", errors.BadRequest("message content exceeds %d characters (got %d)", limit, n)
	}
	return content, nil
}
