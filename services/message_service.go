package services

import (
	"log/slog"
	"time"

	"courier/domain"
	"courier/repositories"

	"github.com/google/uuid"
)

type IMessageService interface {
	Send(senderID, conversationID uuid.UUID, content string) (domain.Message, error)
	ListByConversation(conversationID, requesterID uuid.UUID) ([]domain.Message, error)
	Update(messageID, requesterID uuid.UUID, newContent string) (domain.Message, error)
	Delete(messageID, requesterID uuid.UUID) (domain.Message, error)
}

type MessageService struct {
	messages      repositories.IMessageRepository
	conversations repositories.IConversationRepository
	log           *slog.Logger
	maxLength     int
}

func NewMessageService(messages repositories.IMessageRepository,
	conversations repositories.IConversationRepository, log *slog.Logger,
	maxLength int) *MessageService {
	if maxLength <= 0 {
		maxLength = domain.MaxContentLength
	}
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		log:           log,
		maxLength:     maxLength,
	}
}

// Send persists a message and then refreshes the conversation's
// last-message projection. The projection write is best-effort: by the time
// it runs the message is already authoritative, so its failure is logged
// and the send still succeeds.
func (s *MessageService) Send(senderID, conversationID uuid.UUID, content string) (domain.Message, error) {
	content, err := domain.NormalizeContent(content, s.maxLength)
	if err != nil {
		return domain.Message{}, err
	}

	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := RequireParticipant(conv, senderID); err != nil {
		return domain.Message{}, err
	}

	now := time.Now().UTC()
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.messages.Create(msg); err != nil {
		return domain.Message{}, err
	}

	if err := s.conversations.SetLastMessage(conversationID, msg.Content, msg.CreatedAt); err != nil {
		s.log.Warn("last-message projection update failed",
			"conversation", conversationID, "message", msg.ID, "error", err)
	}
	return msg, nil
}

// ListByConversation returns the conversation newest-first. Fetching is
// what marks the other side's messages read: the transition runs first so
// the returned records already reflect it. It never touches the
// requester's own messages and flipping an already-read message is a no-op.
func (s *MessageService) ListByConversation(conversationID, requesterID uuid.UUID) ([]domain.Message, error) {
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if err := RequireParticipant(conv, requesterID); err != nil {
		return nil, err
	}

	if _, err := s.messages.MarkConversationRead(conversationID, requesterID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(conversationID)
}

// Update edits a message's content. Only the sender may do this.
func (s *MessageService) Update(messageID, requesterID uuid.UUID, newContent string) (domain.Message, error) {
	content, err := domain.NormalizeContent(newContent, s.maxLength)
	if err != nil {
		return domain.Message{}, err
	}

	msg, err := s.messages.GetByID(messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := RequireSender(msg, requesterID); err != nil {
		return domain.Message{}, err
	}

	msg.Content = content
	msg.UpdatedAt = time.Now().UTC()
	if err := s.messages.Update(msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// Delete removes a message and returns its prior state for confirmation.
// Only the sender may do this.
func (s *MessageService) Delete(messageID, requesterID uuid.UUID) (domain.Message, error) {
	msg, err := s.messages.GetByID(messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := RequireSender(msg, requesterID); err != nil {
		return domain.Message{}, err
	}

	if err := s.messages.Delete(messageID); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}
