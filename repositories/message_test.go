package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"courier/domain"
	"courier/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func testMessage(conversationID, senderID uuid.UUID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}

func TestMessagesListNewestFirst(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default())

	conversationID := uuid.New()
	sender := uuid.New()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg := testMessage(conversationID, sender, fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Minute))
		req.NoError(repo.Create(msg))
	}
	// A message in another conversation must not leak into the scan.
	req.NoError(repo.Create(testMessage(uuid.New(), sender, "elsewhere", base)))

	messages, err := repo.ListByConversation(conversationID)
	req.NoError(err)
	req.Len(messages, 5)
	contents := lo.Map(messages, func(m domain.Message, _ int) string { return m.Content })
	req.Equal([]string{"message 4", "message 3", "message 2", "message 1", "message 0"}, contents)
}

func TestMessageGetUpdateDelete(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default())

	msg := testMessage(uuid.New(), uuid.New(), "first draft", time.Now().UTC())
	req.NoError(repo.Create(msg))

	stored, err := repo.GetByID(msg.ID)
	req.NoError(err)
	req.Equal("first draft", stored.Content)

	stored.Content = "second draft"
	stored.UpdatedAt = time.Now().UTC()
	req.NoError(repo.Update(stored))

	stored, err = repo.GetByID(msg.ID)
	req.NoError(err)
	req.Equal("second draft", stored.Content)

	req.NoError(repo.Delete(msg.ID))
	_, err = repo.GetByID(msg.ID)
	req.ErrorIs(err, errors.ErrNotFound)
	req.ErrorIs(repo.Delete(msg.ID), errors.ErrNotFound)
}

func TestEditDoesNotReorderConversation(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default())

	conversationID := uuid.New()
	sender := uuid.New()
	base := time.Now().UTC()
	oldest := testMessage(conversationID, sender, "oldest", base)
	newest := testMessage(conversationID, sender, "newest", base.Add(time.Minute))
	req.NoError(repo.Create(oldest))
	req.NoError(repo.Create(newest))

	oldest.Content = "oldest, edited"
	oldest.UpdatedAt = base.Add(2 * time.Minute)
	req.NoError(repo.Update(oldest))

	messages, err := repo.ListByConversation(conversationID)
	req.NoError(err)
	req.Equal("newest", messages[0].Content)
	req.Equal("oldest, edited", messages[1].Content)
}

func TestDeleteAllByConversation(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default())

	conversationID := uuid.New()
	sender := uuid.New()
	base := time.Now().UTC()
	var ids []uuid.UUID
	for i := 0; i < 7; i++ {
		msg := testMessage(conversationID, sender, "doomed", base.Add(time.Duration(i)*time.Second))
		req.NoError(repo.Create(msg))
		ids = append(ids, msg.ID)
	}
	survivor := testMessage(uuid.New(), sender, "survivor", base)
	req.NoError(repo.Create(survivor))

	count, err := repo.DeleteAllByConversation(conversationID)
	req.NoError(err)
	req.Equal(7, count)

	messages, err := repo.ListByConversation(conversationID)
	req.NoError(err)
	req.Empty(messages)
	for _, id := range ids {
		_, err := repo.GetByID(id)
		req.ErrorIs(err, errors.ErrNotFound)
	}
	_, err = repo.GetByID(survivor.ID)
	req.NoError(err)

	count, err = repo.DeleteAllByConversation(conversationID)
	req.NoError(err)
	req.Zero(count)
}

func TestMarkConversationRead(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default())

	conversationID := uuid.New()
	sender, recipient := uuid.New(), uuid.New()
	base := time.Now().UTC()
	fromSender := []domain.Message{
		testMessage(conversationID, sender, "one", base),
		testMessage(conversationID, sender, "two", base.Add(time.Second)),
	}
	fromRecipient := testMessage(conversationID, recipient, "reply", base.Add(2*time.Second))
	for _, msg := range append(fromSender, fromRecipient) {
		req.NoError(repo.Create(msg))
	}

	readAt := base.Add(time.Minute)
	flipped, err := repo.MarkConversationRead(conversationID, recipient, readAt)
	req.NoError(err)
	req.Equal(2, flipped)

	messages, err := repo.ListByConversation(conversationID)
	req.NoError(err)
	for _, msg := range messages {
		if msg.SenderID == sender {
			req.True(msg.IsRead)
			req.NotNil(msg.ReadAt)
		} else {
			// The reader's own message stays untouched.
			req.False(msg.IsRead)
			req.Nil(msg.ReadAt)
		}
	}

	t.Run("idempotent", func(t *testing.T) {
		flipped, err := repo.MarkConversationRead(conversationID, recipient, readAt.Add(time.Minute))
		req.NoError(err)
		req.Zero(flipped)

		messages, err := repo.ListByConversation(conversationID)
		req.NoError(err)
		for _, msg := range messages {
			if msg.SenderID == sender {
				// ReadAt keeps the first transition's timestamp.
				req.True(msg.ReadAt.Equal(readAt))
			}
		}
	})
}
