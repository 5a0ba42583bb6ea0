package services

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"courier/domain"
	"courier/errors"
	"courier/mocks"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type messageFixture struct {
	messages      *mocks.MockIMessageRepository
	conversations *mocks.MockIConversationRepository
	svc           *MessageService
}

func newMessageFixture(ctrl *gomock.Controller) messageFixture {
	f := messageFixture{
		messages:      mocks.NewMockIMessageRepository(ctrl),
		conversations: mocks.NewMockIConversationRepository(ctrl),
	}
	f.svc = NewMessageService(f.messages, f.conversations,
		logs.GetLoggerFromLevel(slog.LevelDebug), domain.MaxContentLength)
	return f
}

func TestMessageService_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newMessageFixture(ctrl)
	sender := uuid.New()
	other := uuid.New()
	conv := domain.Conversation{
		ID:           uuid.New(),
		Participants: []uuid.UUID{sender, other},
	}

	t.Run("should persist the message and refresh the projection", func(t *testing.T) {
		req := require.New(t)

		f.conversations.EXPECT().GetByID(conv.ID).Return(conv, nil).Times(1)
		f.messages.EXPECT().
			Create(gomock.Any()).
			DoAndReturn(func(m domain.Message) error {
				req.Equal(conv.ID, m.ConversationID)
				req.Equal(sender, m.SenderID)
				req.Equal("hello", m.Content)
				req.False(m.IsRead)
				return nil
			}).
			Times(1)
		f.conversations.EXPECT().
			SetLastMessage(conv.ID, "hello", gomock.Any()).
			Return(nil).
			Times(1)

		msg, err := f.svc.Send(sender, conv.ID, "  hello  ")
		req.NoError(err)
		req.Equal("hello", msg.Content)
	})

	t.Run("should refuse blank and oversized content before any lookup", func(t *testing.T) {
		req := require.New(t)

		f.conversations.EXPECT().GetByID(gomock.Any()).Times(0)

		_, err := f.svc.Send(sender, conv.ID, "   \n\t ")
		req.ErrorIs(err, errors.ErrBadRequest)

		_, err = f.svc.Send(sender, conv.ID, strings.Repeat("x", domain.MaxContentLength+1))
		req.ErrorIs(err, errors.ErrBadRequest)
	})

	t.Run("should forbid a sender outside the conversation", func(t *testing.T) {
		req := require.New(t)

		f.conversations.EXPECT().GetByID(conv.ID).Return(conv, nil).Times(1)
		f.messages.EXPECT().Create(gomock.Any()).Times(0)

		_, err := f.svc.Send(uuid.New(), conv.ID, "hello")
		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("should still succeed when the projection write fails", func(t *testing.T) {
		req := require.New(t)

		f.conversations.EXPECT().GetByID(conv.ID).Return(conv, nil).Times(1)
		f.messages.EXPECT().Create(gomock.Any()).Return(nil).Times(1)
		f.conversations.EXPECT().
			SetLastMessage(conv.ID, "hello", gomock.Any()).
			Return(errors.Internal("transaction conflict")).
			Times(1)

		msg, err := f.svc.Send(sender, conv.ID, "hello")
		req.NoError(err)
		req.Equal("hello", msg.Content)
	})
}

func TestMessageService_ListByConversation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newMessageFixture(ctrl)
	reader := uuid.New()
	other := uuid.New()
	conv := domain.Conversation{
		ID:           uuid.New(),
		Participants: []uuid.UUID{reader, other},
	}

	t.Run("should mark incoming messages read before listing", func(t *testing.T) {
		req := require.New(t)

		listed := []domain.Message{
			{ID: uuid.New(), ConversationID: conv.ID, SenderID: other, Content: "second", IsRead: true},
			{ID: uuid.New(), ConversationID: conv.ID, SenderID: other, Content: "first", IsRead: true},
		}

		f.conversations.EXPECT().GetByID(conv.ID).Return(conv, nil).Times(1)
		gomock.InOrder(
			f.messages.EXPECT().MarkConversationRead(conv.ID, reader, gomock.Any()).Return(2, nil),
			f.messages.EXPECT().ListByConversation(conv.ID).Return(listed, nil),
		)

		messages, err := f.svc.ListByConversation(conv.ID, reader)
		req.NoError(err)
		req.Len(messages, 2)
		req.True(messages[0].IsRead)
	})

	t.Run("should forbid an outsider", func(t *testing.T) {
		req := require.New(t)

		f.conversations.EXPECT().GetByID(conv.ID).Return(conv, nil).Times(1)
		f.messages.EXPECT().MarkConversationRead(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := f.svc.ListByConversation(conv.ID, uuid.New())
		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("should fail when the read transition cannot be recorded", func(t *testing.T) {
		req := require.New(t)

		f.conversations.EXPECT().GetByID(conv.ID).Return(conv, nil).Times(1)
		f.messages.EXPECT().
			MarkConversationRead(conv.ID, reader, gomock.Any()).
			Return(0, errors.Internal("transaction conflict")).
			Times(1)
		f.messages.EXPECT().ListByConversation(gomock.Any()).Times(0)

		_, err := f.svc.ListByConversation(conv.ID, reader)
		req.ErrorIs(err, errors.ErrInternal)
	})
}

func TestMessageService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newMessageFixture(ctrl)
	sender := uuid.New()
	created := time.Now().UTC().Add(-time.Minute)
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       sender,
		Content:        "original",
		CreatedAt:      created,
		UpdatedAt:      created,
	}

	t.Run("should edit content and bump UpdatedAt only", func(t *testing.T) {
		req := require.New(t)

		f.messages.EXPECT().GetByID(msg.ID).Return(msg, nil).Times(1)
		f.messages.EXPECT().
			Update(gomock.Any()).
			DoAndReturn(func(updated domain.Message) error {
				req.Equal("edited", updated.Content)
				req.Equal(created, updated.CreatedAt)
				req.True(updated.UpdatedAt.After(created))
				return nil
			}).
			Times(1)

		updated, err := f.svc.Update(msg.ID, sender, "edited")
		req.NoError(err)
		req.Equal("edited", updated.Content)
	})

	t.Run("should forbid anyone but the sender", func(t *testing.T) {
		req := require.New(t)

		f.messages.EXPECT().GetByID(msg.ID).Return(msg, nil).Times(1)
		f.messages.EXPECT().Update(gomock.Any()).Times(0)

		_, err := f.svc.Update(msg.ID, uuid.New(), "edited")
		req.ErrorIs(err, errors.ErrForbidden)
	})
}

func TestMessageService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newMessageFixture(ctrl)
	sender := uuid.New()
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       sender,
		Content:        "to be removed",
	}

	t.Run("should delete and return the prior record", func(t *testing.T) {
		req := require.New(t)

		f.messages.EXPECT().GetByID(msg.ID).Return(msg, nil).Times(1)
		f.messages.EXPECT().Delete(msg.ID).Return(nil).Times(1)

		deleted, err := f.svc.Delete(msg.ID, sender)
		req.NoError(err)
		req.Equal("to be removed", deleted.Content)
	})

	t.Run("should forbid anyone but the sender", func(t *testing.T) {
		req := require.New(t)

		f.messages.EXPECT().GetByID(msg.ID).Return(msg, nil).Times(1)
		f.messages.EXPECT().Delete(gomock.Any()).Times(0)

		_, err := f.svc.Delete(msg.ID, uuid.New())
		req.ErrorIs(err, errors.ErrForbidden)
	})
}
