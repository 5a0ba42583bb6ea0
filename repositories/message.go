//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"courier/domain"
	"courier/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Create(msg domain.Message) error
	GetByID(id uuid.UUID) (domain.Message, error)
	ListByConversation(conversationID uuid.UUID) ([]domain.Message, error)
	Update(msg domain.Message) error
	Delete(id uuid.UUID) error
	DeleteAllByConversation(conversationID uuid.UUID) (int, error)
	MarkConversationRead(conversationID, readerID uuid.UUID, at time.Time) (int, error)
}

// MessageRepository persists messages in BadgerDB.
//
// Key schema:
//
//	msg:conv:{convID}:{timestamp_padded}:{msgID} -> JSON record
//	msg:id:{msgID}                               -> primary key bytes
//
// The 19-digit zero-padded creation timestamp makes a prefix scan return a
// conversation in chronological order (reverse iteration for newest-first);
// the message id disambiguates two messages landing on the same nanosecond.
// The pointer key lets a message be addressed by id alone for edit/delete.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

func messageKey(conversationID uuid.UUID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:conv:%s:%019d:%s", conversationID, at.UnixNano(), id))
}

func messagePrefix(conversationID uuid.UUID) []byte {
	return []byte("msg:conv:" + conversationID.String() + ":")
}

func messagePointerKey(id uuid.UUID) []byte {
	return []byte("msg:id:" + id.String())
}

func (r *MessageRepository) Create(msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "encoding message")
	}

	key := messageKey(msg.ConversationID, msg.CreatedAt, msg.ID)
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messagePointerKey(msg.ID), key); err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "storing message")
	}
	return nil
}

func (r *MessageRepository) GetByID(id uuid.UUID) (domain.Message, error) {
	var msg domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		key, err := resolvePointer(txn, id)
		if err != nil {
			return err
		}
		return readJSON(txn, key, &msg)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Message{}, errors.NotFound("message not found")
		}
		return domain.Message{}, errors.Wrap(errors.KindInternal, err, "loading message")
	}
	return msg, nil
}

// ListByConversation returns the conversation newest-first. The padded
// timestamp in the key makes this a reverse prefix scan, seeded past the
// largest possible timestamp.
func (r *MessageRepository) ListByConversation(conversationID uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			var msg domain.Message
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			})
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "listing messages")
	}
	return messages, nil
}

// Update rewrites the record in place. The primary key embeds the creation
// timestamp, not the update time, so editing never reorders a conversation.
func (r *MessageRepository) Update(msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "encoding message")
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key, err := resolvePointer(txn, msg.ID)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFound("message not found")
		}
		return errors.Wrap(errors.KindInternal, err, "updating message")
	}
	return nil
}

func (r *MessageRepository) Delete(id uuid.UUID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		key, err := resolvePointer(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(messagePointerKey(id))
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFound("message not found")
		}
		return errors.Wrap(errors.KindInternal, err, "deleting message")
	}
	return nil
}

// DeleteAllByConversation removes every message a conversation owns and
// returns how many went. Used by the conversation cascade, which runs it
// before touching the conversation record itself. Deletion goes through a
// write batch, so it is not limited by transaction size.
func (r *MessageRepository) DeleteAllByConversation(conversationID uuid.UUID) (int, error) {
	type doomed struct {
		key []byte
		id  uuid.UUID
	}

	var targets []doomed
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var msg domain.Message
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			}); err != nil {
				return err
			}
			targets = append(targets, doomed{key: it.Item().KeyCopy(nil), id: msg.ID})
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(errors.KindInternal, err, "scanning conversation messages")
	}
	if len(targets) == 0 {
		return 0, nil
	}

	batch := r.db.NewWriteBatch()
	defer batch.Cancel()
	for _, target := range targets {
		if err := batch.Delete(target.key); err != nil {
			return 0, errors.Wrap(errors.KindInternal, err, "deleting conversation messages")
		}
		if err := batch.Delete(messagePointerKey(target.id)); err != nil {
			return 0, errors.Wrap(errors.KindInternal, err, "deleting conversation messages")
		}
	}
	if err := batch.Flush(); err != nil {
		return 0, errors.Wrap(errors.KindInternal, err, "deleting conversation messages")
	}
	return len(targets), nil
}

// MarkConversationRead flips every unread message not sent by readerID to
// read. The transition is one-way and conditional, so running it twice, or
// concurrently from two readers, converges on the same state; conflicting
// transactions are simply retried.
func (r *MessageRepository) MarkConversationRead(conversationID, readerID uuid.UUID, at time.Time) (int, error) {
	var flipped int
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		flipped = 0
		lastErr = r.db.Update(func(txn *badger.Txn) error {
			prefix := messagePrefix(conversationID)
			options := badger.DefaultIteratorOptions
			options.PrefetchValues = true
			it := txn.NewIterator(options)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var msg domain.Message
				if err := it.Item().Value(func(value []byte) error {
					return json.Unmarshal(value, &msg)
				}); err != nil {
					return err
				}
				if msg.IsRead || msg.SenderID == readerID {
					continue
				}
				readAt := at
				msg.IsRead = true
				msg.ReadAt = &readAt
				msg.UpdatedAt = at
				data, err := json.Marshal(msg)
				if err != nil {
					return err
				}
				if err := txn.Set(it.Item().KeyCopy(nil), data); err != nil {
					return err
				}
				flipped++
			}
			return nil
		})
		if !stderrors.Is(lastErr, badger.ErrConflict) {
			break
		}
	}
	if lastErr != nil {
		return 0, errors.Wrap(errors.KindInternal, lastErr, "marking conversation read")
	}
	return flipped, nil
}

func resolvePointer(txn *badger.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(messagePointerKey(id))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
