//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"courier/domain"
	"courier/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IConversationRepository interface {
	Create(conv domain.Conversation) error
	GetByID(id uuid.UUID) (domain.Conversation, error)
	ListByParticipant(accountID uuid.UUID) ([]domain.Conversation, error)
	SetLastMessage(conversationID uuid.UUID, content string, at time.Time) error
	Delete(conversationID uuid.UUID) error
}

// ConversationRepository persists conversations in BadgerDB.
//
// Key schema:
//
//	conv:id:{uuid}                  -> JSON record
//	conv:pair:{loID}:{hiID}         -> conversation id (unordered-pair uniqueness)
//	conv:member:{accountID}:{convID} -> empty (listing index)
//
// The pair key is written with the participant ids sorted, so both
// orderings of the same pair land on one key. Check and insert share a
// transaction: of two concurrent creations for the same pair, Badger's
// conflict detection aborts one, and the loser observes Conflict.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

func conversationKey(id uuid.UUID) []byte {
	return []byte("conv:id:" + id.String())
}

func pairKey(a, b uuid.UUID) []byte {
	first, second := a.String(), b.String()
	if second < first {
		first, second = second, first
	}
	return []byte("conv:pair:" + first + ":" + second)
}

func memberKey(accountID, conversationID uuid.UUID) []byte {
	return []byte("conv:member:" + accountID.String() + ":" + conversationID.String())
}

func memberPrefix(accountID uuid.UUID) []byte {
	return []byte("conv:member:" + accountID.String() + ":")
}

func (r *ConversationRepository) Create(conv domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "encoding conversation")
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if !conv.IsGroup && len(conv.Participants) == 2 {
			key := pairKey(conv.Participants[0], conv.Participants[1])
			if _, err := txn.Get(key); err == nil {
				return errors.Conflict("a conversation between these participants already exists")
			} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(key, []byte(conv.ID.String())); err != nil {
				return err
			}
		}
		for _, participant := range conv.Participants {
			if err := txn.Set(memberKey(participant, conv.ID), nil); err != nil {
				return err
			}
		}
		return txn.Set(conversationKey(conv.ID), data)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrConflict) {
			return errors.Conflict("a conversation between these participants already exists")
		}
		if errors.KindOf(err) == errors.KindConflict {
			return err
		}
		return errors.Wrap(errors.KindInternal, err, "storing conversation")
	}
	return nil
}

func (r *ConversationRepository) GetByID(id uuid.UUID) (domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, conversationKey(id), &conv)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Conversation{}, errors.NotFound("conversation not found")
		}
		return domain.Conversation{}, errors.Wrap(errors.KindInternal, err, "loading conversation")
	}
	return conv, nil
}

func (r *ConversationRepository) ListByParticipant(accountID uuid.UUID) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := memberPrefix(accountID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rawID := it.Item().Key()[len(prefix):]
			id, err := uuid.ParseBytes(rawID)
			if err != nil {
				r.log.Warn("skipping malformed member key", "key", string(it.Item().Key()))
				continue
			}
			var conv domain.Conversation
			if err := readJSON(txn, conversationKey(id), &conv); err != nil {
				if stderrors.Is(err, badger.ErrKeyNotFound) {
					r.log.Warn("member index points at missing conversation", "conversation", id)
					continue
				}
				return err
			}
			conversations = append(conversations, conv)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "listing conversations")
	}
	return conversations, nil
}

// SetLastMessage writes the denormalized projection. A stale write (older
// than the current projection) is skipped so concurrent senders cannot
// regress the field; transaction conflicts are retried a few times since
// this is the one write the message path refuses to fail on.
func (r *ConversationRepository) SetLastMessage(conversationID uuid.UUID, content string, at time.Time) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		lastErr = r.db.Update(func(txn *badger.Txn) error {
			var conv domain.Conversation
			if err := readJSON(txn, conversationKey(conversationID), &conv); err != nil {
				return err
			}
			if conv.LastMessageAt != nil && at.Before(*conv.LastMessageAt) {
				return nil
			}
			conv.LastMessage = content
			conv.LastMessageAt = &at
			conv.UpdatedAt = time.Now().UTC()
			data, err := json.Marshal(conv)
			if err != nil {
				return err
			}
			return txn.Set(conversationKey(conversationID), data)
		})
		if !stderrors.Is(lastErr, badger.ErrConflict) {
			break
		}
	}
	if lastErr != nil {
		if stderrors.Is(lastErr, badger.ErrKeyNotFound) {
			return errors.NotFound("conversation not found")
		}
		return errors.Wrap(errors.KindInternal, lastErr, "updating last-message projection")
	}
	return nil
}

// Delete removes the record and every index key derived from it. Messages
// are not touched here; the service layer cascades them first.
func (r *ConversationRepository) Delete(conversationID uuid.UUID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		var conv domain.Conversation
		if err := readJSON(txn, conversationKey(conversationID), &conv); err != nil {
			return err
		}
		if !conv.IsGroup && len(conv.Participants) == 2 {
			if err := txn.Delete(pairKey(conv.Participants[0], conv.Participants[1])); err != nil {
				return err
			}
		}
		for _, participant := range conv.Participants {
			if err := txn.Delete(memberKey(participant, conversationID)); err != nil {
				return err
			}
		}
		return txn.Delete(conversationKey(conversationID))
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFound("conversation not found")
		}
		return errors.Wrap(errors.KindInternal, err, "deleting conversation")
	}
	return nil
}
