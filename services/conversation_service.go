package services

import (
	"log/slog"
	"sort"
	"time"

	"courier/domain"
	"courier/errors"
	"courier/repositories"

	"github.com/google/uuid"
)

type IConversationService interface {
	Create(creatorID, participantID uuid.UUID, name string) (domain.ConversationView, error)
	Get(conversationID, requesterID uuid.UUID) (domain.ConversationView, error)
	ListForAccount(accountID uuid.UUID) ([]domain.ConversationSummary, error)
	Delete(conversationID, requesterID uuid.UUID) error
}

type ConversationService struct {
	conversations repositories.IConversationRepository
	accounts      repositories.IAccountRepository
	messages      repositories.IMessageRepository
	log           *slog.Logger
}

func NewConversationService(conversations repositories.IConversationRepository,
	accounts repositories.IAccountRepository, messages repositories.IMessageRepository,
	log *slog.Logger) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		accounts:      accounts,
		messages:      messages,
		log:           log,
	}
}

// Create opens the single conversation allowed for this pair. The
// uniqueness check lives in the repository, inside the insert transaction,
// so a concurrent duplicate attempt loses with Conflict instead of
// producing a second conversation.
func (s *ConversationService) Create(creatorID, participantID uuid.UUID, name string) (domain.ConversationView, error) {
	if creatorID == participantID {
		return domain.ConversationView{}, errors.BadRequest("cannot start a conversation with yourself")
	}

	participant, err := s.accounts.GetByID(participantID)
	if err != nil || !participant.Active {
		return domain.ConversationView{}, errors.NotFound("participant not found")
	}

	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:           uuid.New(),
		Name:         name,
		Participants: []uuid.UUID{creatorID, participantID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.conversations.Create(conv); err != nil {
		return domain.ConversationView{}, err
	}
	return s.view(conv)
}

func (s *ConversationService) Get(conversationID, requesterID uuid.UUID) (domain.ConversationView, error) {
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return domain.ConversationView{}, err
	}
	if err := RequireParticipant(conv, requesterID); err != nil {
		return domain.ConversationView{}, err
	}
	return s.view(conv)
}

// ListForAccount summarizes every conversation the account participates in,
// most recently active first; conversations without a message yet sort last.
func (s *ConversationService) ListForAccount(accountID uuid.UUID) ([]domain.ConversationSummary, error) {
	conversations, err := s.conversations.ListByParticipant(accountID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		otherID, ok := conv.OtherParticipant(accountID)
		if !ok {
			s.log.Warn("conversation listed without counterpart", "conversation", conv.ID, "account", accountID)
			continue
		}
		other, err := s.accounts.GetByID(otherID)
		if err != nil {
			s.log.Warn("counterpart account unresolvable", "conversation", conv.ID, "account", otherID)
			continue
		}
		summaries = append(summaries, domain.ConversationSummary{
			ID:               conv.ID,
			Name:             conv.Name,
			OtherParticipant: other.Profile(),
			LastMessage:      conv.LastMessage,
			LastMessageAt:    conv.LastMessageAt,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaryActivity(summaries[i]).After(summaryActivity(summaries[j]))
	})
	return summaries, nil
}

func summaryActivity(s domain.ConversationSummary) time.Time {
	if s.LastMessageAt != nil {
		return *s.LastMessageAt
	}
	return time.Time{}
}

// Delete cascades: messages go first, and a cascade failure aborts the
// whole operation so a half-deleted conversation is never reported as
// success. Only once the messages are gone does the record itself go.
func (s *ConversationService) Delete(conversationID, requesterID uuid.UUID) error {
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return err
	}
	if err := RequireParticipant(conv, requesterID); err != nil {
		return err
	}

	count, err := s.messages.DeleteAllByConversation(conversationID)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "message cascade failed, conversation left in place")
	}
	if err := s.conversations.Delete(conversationID); err != nil {
		return err
	}

	s.log.Info("conversation deleted", "conversation", conversationID, "messages", count)
	return nil
}

// view resolves participant ids to profiles: a read-side join for caller
// convenience, never a back-reference stored on Account.
func (s *ConversationService) view(conv domain.Conversation) (domain.ConversationView, error) {
	profiles := make([]domain.Profile, 0, len(conv.Participants))
	for _, id := range conv.Participants {
		account, err := s.accounts.GetByID(id)
		if err != nil {
			return domain.ConversationView{}, errors.Wrap(errors.KindInternal, err, "resolving participant")
		}
		profiles = append(profiles, account.Profile())
	}
	return domain.ConversationView{
		ID:            conv.ID,
		Name:          conv.Name,
		IsGroup:       conv.IsGroup,
		Participants:  profiles,
		LastMessage:   conv.LastMessage,
		LastMessageAt: conv.LastMessageAt,
		CreatedAt:     conv.CreatedAt,
	}, nil
}
