package service

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tempmail/disposable/internal/domain"
	"tempmail/disposable/internal/storage/memory"
)

const testDomain = "tempmail.dev"

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

// MockAddressRepository 模拟地址存储
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) CreateAddress(address string) (*domain.Address, error) {
	args := m.Called(address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *MockAddressRepository) GetAddress(address string) (*domain.Address, error) {
	args := m.Called(address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *MockAddressRepository) DeleteExpiredAddresses(now time.Time) ([]string, error) {
	args := m.Called(now)
	return args.Get(0).([]string), args.Error(1)
}

// MockNotifier 模拟实时通知
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewMail(address string, message *domain.Message) {
	m.Called(address, message)
}

func (m *MockNotifier) NotifyAddressExpired(address string) {
	m.Called(address)
}

func newTestMailboxService(t *testing.T) (*MailboxService, *memory.Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := memory.NewStore(10*time.Minute, memory.WithClock(clock.Now))
	return NewMailboxService(store, store, NewAddressGenerator(testDomain), zap.NewNop()), store, clock
}

func TestMailboxService_Create(t *testing.T) {
	service, _, clock := newTestMailboxService(t)

	t.Run("创建地址成功", func(t *testing.T) {
		address, err := service.Create()

		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(address.Email, "@"+testDomain))
		assert.Equal(t, clock.Now(), address.CreatedAt)
		assert.Equal(t, clock.Now().Add(10*time.Minute), address.ExpiresAt)
	})

	t.Run("新地址收件箱为空", func(t *testing.T) {
		address, err := service.Create()
		require.NoError(t, err)

		messages, err := service.Inbox(address.Email)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("多次创建地址不同", func(t *testing.T) {
		first, err := service.Create()
		require.NoError(t, err)
		second, err := service.Create()
		require.NoError(t, err)

		assert.NotEqual(t, first.Email, second.Email)
	})
}

func TestMailboxService_CreateRetriesOnCollision(t *testing.T) {
	repo := new(MockAddressRepository)
	created := &domain.Address{Email: "x@" + testDomain}

	repo.On("CreateAddress", mock.AnythingOfType("string")).Return(nil, domain.ErrAddressExists).Twice()
	repo.On("CreateAddress", mock.AnythingOfType("string")).Return(created, nil).Once()

	service := NewMailboxService(repo, memory.NewStore(time.Minute), NewAddressGenerator(testDomain), zap.NewNop())

	address, err := service.Create()

	require.NoError(t, err)
	assert.Equal(t, created, address)
	repo.AssertNumberOfCalls(t, "CreateAddress", 3)
}

func TestMailboxService_CreateGivesUp(t *testing.T) {
	repo := new(MockAddressRepository)
	repo.On("CreateAddress", mock.AnythingOfType("string")).Return(nil, domain.ErrAddressExists)

	service := NewMailboxService(repo, memory.NewStore(time.Minute), NewAddressGenerator(testDomain), zap.NewNop())

	address, err := service.Create()

	assert.Nil(t, address)
	assert.ErrorIs(t, err, domain.ErrAddressExists)
	repo.AssertNumberOfCalls(t, "CreateAddress", maxGenerateAttempts)
}

func TestMailboxService_CreateStoreFailure(t *testing.T) {
	repo := new(MockAddressRepository)
	boom := errors.New("store unavailable")
	repo.On("CreateAddress", mock.AnythingOfType("string")).Return(nil, boom)

	service := NewMailboxService(repo, memory.NewStore(time.Minute), NewAddressGenerator(testDomain), zap.NewNop())

	_, err := service.Create()

	assert.ErrorIs(t, err, boom)
	repo.AssertNumberOfCalls(t, "CreateAddress", 1)
}

func TestMailboxService_GetAndInbox(t *testing.T) {
	service, _, clock := newTestMailboxService(t)

	address, err := service.Create()
	require.NoError(t, err)

	t.Run("地址大小写与空白不敏感", func(t *testing.T) {
		got, err := service.Get("  " + strings.ToUpper(address.Email) + " ")
		require.NoError(t, err)
		assert.Equal(t, address.Email, got.Email)
	})

	t.Run("未知地址", func(t *testing.T) {
		_, err := service.Get("ghost@" + testDomain)
		assert.ErrorIs(t, err, domain.ErrAddressNotFound)

		_, err = service.Inbox("ghost@" + testDomain)
		assert.ErrorIs(t, err, domain.ErrAddressNotFound)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("过期后不可见", func(t *testing.T) {
		clock.Advance(10*time.Minute + time.Second)

		_, err := service.Inbox(address.Email)
		assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	})
}
