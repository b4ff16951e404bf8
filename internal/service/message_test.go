package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tempmail/disposable/internal/domain"
	"tempmail/disposable/internal/storage/memory"
)

func newTestMessageService(t *testing.T) (*MessageService, *MailboxService, *MockNotifier, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := memory.NewStore(10*time.Minute, memory.WithClock(clock.Now))
	notifier := new(MockNotifier)

	messages := NewMessageService(store, zap.NewNop())
	messages.now = clock.Now
	messages.SetNotifier(notifier)

	mailboxes := NewMailboxService(store, store, NewAddressGenerator(testDomain), zap.NewNop())
	return messages, mailboxes, notifier, clock
}

func TestMessageService_Ingest(t *testing.T) {
	messages, mailboxes, notifier, clock := newTestMessageService(t)

	address, err := mailboxes.Create()
	require.NoError(t, err)

	t.Run("投递成功", func(t *testing.T) {
		notifier.On("NotifyNewMail", address.Email, mock.AnythingOfType("*domain.Message")).Once()

		message, err := messages.Ingest(domain.InboundMessage{
			To:      " " + address.Email + " ",
			From:    "alice@example.com",
			Subject: "Hello",
			Body:    "First message",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, message.ID)
		assert.False(t, message.Read)
		assert.Equal(t, clock.Now(), message.Timestamp)

		inbox, err := mailboxes.Inbox(address.Email)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, *message, inbox[0])
		notifier.AssertExpectations(t)
	})

	t.Run("保留发件方时间戳", func(t *testing.T) {
		notifier.On("NotifyNewMail", address.Email, mock.Anything).Once()
		sent := time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)

		message, err := messages.Ingest(domain.InboundMessage{
			To:        address.Email,
			From:      "bob@example.com",
			Timestamp: sent,
		})

		require.NoError(t, err)
		assert.Equal(t, sent, message.Timestamp)
	})

	t.Run("缺少必填字段", func(t *testing.T) {
		_, err := messages.Ingest(domain.InboundMessage{To: address.Email})
		assert.ErrorIs(t, err, domain.ErrValidationMissing)
	})

	t.Run("未知地址不产生副作用", func(t *testing.T) {
		_, err := messages.Ingest(domain.InboundMessage{
			To:   "ghost@" + testDomain,
			From: "alice@example.com",
		})
		assert.ErrorIs(t, err, domain.ErrAddressNotFound)
		notifier.AssertNotCalled(t, "NotifyNewMail", "ghost@"+testDomain, mock.Anything)
	})
}

func TestMessageService_OpenAndDelete(t *testing.T) {
	messages, mailboxes, notifier, _ := newTestMessageService(t)
	notifier.On("NotifyNewMail", mock.Anything, mock.Anything)

	address, err := mailboxes.Create()
	require.NoError(t, err)

	var ids []string
	for _, subject := range []string{"one", "two", "three"} {
		message, err := messages.Ingest(domain.InboundMessage{
			To:      address.Email,
			From:    "sender@example.com",
			Subject: subject,
		})
		require.NoError(t, err)
		ids = append(ids, message.ID)
	}

	t.Run("打开邮件标记已读", func(t *testing.T) {
		opened, err := messages.Open(ids[1])
		require.NoError(t, err)
		assert.True(t, opened.Read)
		assert.Equal(t, "two", opened.Subject)

		inbox, err := mailboxes.Inbox(address.Email)
		require.NoError(t, err)
		assert.False(t, inbox[0].Read)
		assert.True(t, inbox[1].Read)
		assert.False(t, inbox[2].Read)
	})

	t.Run("删除保持其余顺序", func(t *testing.T) {
		require.NoError(t, messages.Delete(ids[0]))

		inbox, err := mailboxes.Inbox(address.Email)
		require.NoError(t, err)
		require.Len(t, inbox, 2)
		assert.Equal(t, ids[1], inbox[0].ID)
		assert.Equal(t, ids[2], inbox[1].ID)
	})

	t.Run("不存在的邮件", func(t *testing.T) {
		_, err := messages.Open("missing")
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)

		err = messages.Delete(ids[0])
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})
}

// sweptAfterMarkStore 模拟标记已读之后地址立即被清理：此后的任何查找都返回不存在
type sweptAfterMarkStore struct {
	*memory.Store
}

func (s sweptAfterMarkStore) FindMessage(string) (string, *domain.Message, error) {
	return "", nil, domain.ErrMessageNotFound
}

func TestMessageService_OpenSingleStoreCall(t *testing.T) {
	store := sweptAfterMarkStore{Store: memory.NewStore(10 * time.Minute)}
	_, err := store.CreateAddress("a@tempmail.dev")
	require.NoError(t, err)

	messages := NewMessageService(store, zap.NewNop())
	ingested, err := messages.Ingest(domain.InboundMessage{
		To:      "a@tempmail.dev",
		From:    "sender@example.com",
		Subject: "hello",
	})
	require.NoError(t, err)

	opened, err := messages.Open(ingested.ID)
	require.NoError(t, err)
	assert.True(t, opened.Read)
	assert.Equal(t, "hello", opened.Subject)
}
