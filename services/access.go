package services

import (
	"courier/domain"
	"courier/errors"

	"github.com/google/uuid"
)

// The access guard: two pure predicates, consulted before every
// conversation- or message-scoped operation. Identity always arrives as an
// explicit argument, resolved once at the transport boundary.

// RequireParticipant fails with Forbidden unless accountID is a member of
// the conversation.
func RequireParticipant(conv domain.Conversation, accountID uuid.UUID) error {
	if !conv.HasParticipant(accountID) {
		return errors.Forbidden("not a participant of this conversation")
	}
	return nil
}

// RequireSender fails with Forbidden unless accountID sent the message.
func RequireSender(msg domain.Message, accountID uuid.UUID) error {
	if msg.SenderID != accountID {
		return errors.Forbidden("only the sender may modify this message")
	}
	return nil
}
