package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tempmail/disposable/internal/domain"
	"tempmail/disposable/internal/monitoring"
	"tempmail/disposable/internal/storage/memory"
)

func TestSweeper_SweepOnce(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewStore(10*time.Minute, memory.WithClock(clock.Now))
	mailboxes := NewMailboxService(store, store, NewAddressGenerator(testDomain), zap.NewNop())
	messages := NewMessageService(store, zap.NewNop())

	notifier := new(MockNotifier)
	metrics := monitoring.NewMetrics()
	sweeper := NewSweeper(store, time.Minute, zap.NewNop())
	sweeper.SetNotifier(notifier)
	sweeper.SetMetrics(metrics)

	assert.True(t, sweeper.LastRun().IsZero())

	old, err := mailboxes.Create()
	require.NoError(t, err)
	_, err = messages.Ingest(domain.InboundMessage{To: old.Email, From: "a@example.com"})
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	fresh, err := mailboxes.Create()
	require.NoError(t, err)

	t.Run("未过期不清理", func(t *testing.T) {
		removed, err := sweeper.SweepOnce(clock.Now())
		require.NoError(t, err)
		assert.Empty(t, removed)
		last := sweeper.LastRun()
		assert.True(t, clock.Now().Equal(last), "last run %s", last)
		assert.Equal(t, time.UTC, last.Location())
	})

	t.Run("TTL 加一个周期后清理", func(t *testing.T) {
		notifier.On("NotifyAddressExpired", old.Email).Once()
		clock.Advance(5*time.Minute + time.Minute)

		removed, err := sweeper.SweepOnce(clock.Now())
		require.NoError(t, err)
		assert.Equal(t, []string{old.Email}, removed)
		notifier.AssertExpectations(t)

		_, err = mailboxes.Inbox(old.Email)
		assert.ErrorIs(t, err, domain.ErrAddressNotFound)
		_, err = mailboxes.Inbox(fresh.Email)
		assert.NoError(t, err)

		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AddressesExpired))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AddressesActive))
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.MessagesTotal))
	})
}

func TestSweeper_Run(t *testing.T) {
	store := memory.NewStore(time.Millisecond)
	sweeper := NewSweeper(store, 5*time.Millisecond, zap.NewNop())
	notifier := new(MockNotifier)
	notifier.On("NotifyAddressExpired", mock.Anything).Maybe()
	sweeper.SetNotifier(notifier)

	_, err := store.CreateAddress("short@" + testDomain)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	assert.Eventually(t, func() bool {
		addresses, _ := store.Stats()
		return addresses == 0 && !sweeper.LastRun().IsZero()
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
