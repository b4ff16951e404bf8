package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"tempmail/disposable/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewStore(10*time.Minute, WithClock(clock.Now)), clock
}

func testMessage(id, subject string) *domain.Message {
	return &domain.Message{
		ID:        id,
		From:      "x@y.com",
		Subject:   subject,
		Body:      "Hello",
		Timestamp: time.Now(),
	}
}

func TestMemoryStore_AddressOperations(t *testing.T) {
	store, clock := newTestStore(t)

	record, err := store.CreateAddress("Test@TempMail.dev")
	require.NoError(t, err)
	assert.Equal(t, "test@tempmail.dev", record.Email)
	assert.Equal(t, clock.Now(), record.CreatedAt)
	assert.Equal(t, record.CreatedAt.Add(10*time.Minute), record.ExpiresAt)

	got, err := store.GetAddress("test@tempmail.dev")
	require.NoError(t, err)
	assert.Equal(t, record.ExpiresAt, got.ExpiresAt)

	// 重复创建不修改已有记录
	clock.Advance(time.Minute)
	_, err = store.CreateAddress("test@tempmail.dev")
	assert.ErrorIs(t, err, domain.ErrAddressExists)
	got, err = store.GetAddress("test@tempmail.dev")
	require.NoError(t, err)
	assert.Equal(t, record.CreatedAt, got.CreatedAt)

	messages, err := store.ListMessages("test@tempmail.dev")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMemoryStore_AppendAndList(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.CreateAddress("a@tempmail.dev")
	require.NoError(t, err)

	msg := testMessage("m1", "Hi")
	require.NoError(t, store.AppendMessage("a@tempmail.dev", msg))

	messages, err := store.ListMessages("a@tempmail.dev")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, msg.From, messages[0].From)
	assert.Equal(t, msg.Subject, messages[0].Subject)
	assert.Equal(t, msg.Body, messages[0].Body)
	assert.False(t, messages[0].Read)

	// 返回的是快照，修改不影响存储
	messages[0].Subject = "changed"
	again, err := store.ListMessages("a@tempmail.dev")
	require.NoError(t, err)
	assert.Equal(t, "Hi", again[0].Subject)
}

func TestMemoryStore_AppendUnknownAddress(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.AppendMessage("nobody@tempmail.dev", testMessage("m1", "Hi"))
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)

	_, err = store.GetAddress("nobody@tempmail.dev")
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	_, _, err = store.FindMessage("m1")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	addresses, messages := store.Stats()
	assert.Zero(t, addresses)
	assert.Zero(t, messages)
}

func TestMemoryStore_MarkRead(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.CreateAddress("a@tempmail.dev")
	require.NoError(t, err)
	_, err = store.CreateAddress("b@tempmail.dev")
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage("a@tempmail.dev", testMessage("m1", "one")))
	require.NoError(t, store.AppendMessage("a@tempmail.dev", testMessage("m2", "two")))
	require.NoError(t, store.AppendMessage("b@tempmail.dev", testMessage("m3", "three")))

	marked, err := store.MarkMessageRead("m2")
	require.NoError(t, err)
	assert.True(t, marked.Read)
	assert.Equal(t, "two", marked.Subject)

	// 返回的是副本
	marked.Subject = "changed"

	address, msg, err := store.FindMessage("m2")
	require.NoError(t, err)
	assert.Equal(t, "a@tempmail.dev", address)
	assert.True(t, msg.Read)
	assert.Equal(t, "two", msg.Subject)

	for _, id := range []string{"m1", "m3"} {
		_, other, err := store.FindMessage(id)
		require.NoError(t, err)
		assert.False(t, other.Read, id)
	}

	_, err = store.MarkMessageRead("missing")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestMemoryStore_DeleteMessageKeepsOrder(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.CreateAddress("a@tempmail.dev")
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		require.NoError(t, store.AppendMessage("a@tempmail.dev", testMessage(fmt.Sprintf("m%d", i), "s")))
	}

	require.NoError(t, store.DeleteMessage("m2"))

	messages, err := store.ListMessages("a@tempmail.dev")
	require.NoError(t, err)
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m3", "m4"}, ids)

	assert.ErrorIs(t, store.DeleteMessage("m2"), domain.ErrMessageNotFound)
}

func TestMemoryStore_Cleanup(t *testing.T) {
	store, clock := newTestStore(t)
	sweepInterval := time.Minute

	_, err := store.CreateAddress("old@tempmail.dev")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage("old@tempmail.dev", testMessage("m1", "Hi")))

	clock.Advance(5 * time.Minute)
	_, err = store.CreateAddress("new@tempmail.dev")
	require.NoError(t, err)

	// 未到期时清理不删除任何地址
	removed, err := store.DeleteExpiredAddresses(clock.Now())
	require.NoError(t, err)
	assert.Empty(t, removed)

	// TTL + 一个清理周期之后
	clock.Advance(5*time.Minute + sweepInterval)
	removed, err = store.DeleteExpiredAddresses(clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"old@tempmail.dev"}, removed)

	_, err = store.ListMessages("old@tempmail.dev")
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	_, _, err = store.FindMessage("m1")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	_, err = store.ListMessages("new@tempmail.dev")
	assert.NoError(t, err)

	addresses, messages := store.Stats()
	assert.Equal(t, 1, addresses)
	assert.Zero(t, messages)
}

func TestMemoryStore_ExpiredBeforeSweep(t *testing.T) {
	store, clock := newTestStore(t)
	_, err := store.CreateAddress("a@tempmail.dev")
	require.NoError(t, err)

	clock.Advance(10*time.Minute + time.Second)

	_, err = store.ListMessages("a@tempmail.dev")
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	assert.ErrorIs(t, store.AppendMessage("a@tempmail.dev", testMessage("m1", "late")), domain.ErrAddressNotFound)

	// 过期但未清理的地址可被重新创建
	record, err := store.CreateAddress("a@tempmail.dev")
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), record.CreatedAt)
	messages, err := store.ListMessages("a@tempmail.dev")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewStore(time.Hour)
	_, err := store.CreateAddress("a@tempmail.dev")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("m%d", i)
			_ = store.AppendMessage("a@tempmail.dev", testMessage(id, "s"))
			_, _ = store.ListMessages("a@tempmail.dev")
			_, _ = store.MarkMessageRead(id)
			_, _ = store.DeleteExpiredAddresses(time.Now())
		}(i)
	}
	wg.Wait()

	messages, err := store.ListMessages("a@tempmail.dev")
	require.NoError(t, err)
	assert.Len(t, messages, 50)
}
