package memory

import (
	"slices"
	"sort"
	"sync"
	"time"

	"tempmail/disposable/internal/domain"
)

// Store 使用内存保存临时地址与收件箱。
//
// 地址元数据与收件箱分别保存在两个 map 中，所有读写都经过同一把锁，
// 过期清理时二者在一次加锁内一起删除。
type Store struct {
	mu        sync.RWMutex
	addresses map[string]*domain.Address   // address -> metadata
	inboxes   map[string][]*domain.Message // address -> 按到达顺序排列的邮件

	ttl time.Duration
	now func() time.Time
}

// Option 内存存储的可选配置
type Option func(*Store)

// WithClock 替换时间来源，测试中用于模拟时钟。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore 创建一个内存存储实例，ttl 为地址固定生存时间。
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		addresses: make(map[string]*domain.Address),
		inboxes:   make(map[string][]*domain.Message),
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAddress 登记新地址并初始化空收件箱。
//
// 地址已存在且未过期时不做任何修改，返回 domain.ErrAddressExists。
func (s *Store) CreateAddress(address string) (*domain.Address, error) {
	address = domain.NormalizeAddress(address)
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked(address, now) {
		return nil, domain.ErrAddressExists
	}

	record := &domain.Address{
		Email:     address,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.addresses[address] = record
	s.inboxes[address] = make([]*domain.Message, 0)

	copied := *record
	return &copied, nil
}

// GetAddress 获取地址元数据。
func (s *Store) GetAddress(address string) (*domain.Address, error) {
	address = domain.NormalizeAddress(address)
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.liveLocked(address, now) {
		return nil, domain.ErrAddressNotFound
	}
	copied := *s.addresses[address]
	return &copied, nil
}

// DeleteExpiredAddresses 删除所有在 now 时刻已过期的地址及其收件箱。
func (s *Store) DeleteExpiredAddresses(now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]string, 0)
	for address, record := range s.addresses {
		if record.ExpiredAt(now) {
			delete(s.addresses, address)
			delete(s.inboxes, address)
			removed = append(removed, address)
		}
	}
	sort.Strings(removed)
	return removed, nil
}

// ListMessages 返回收件箱快照，保持到达顺序。
func (s *Store) ListMessages(address string) ([]domain.Message, error) {
	address = domain.NormalizeAddress(address)
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.liveLocked(address, now) {
		return nil, domain.ErrAddressNotFound
	}

	inbox := s.inboxes[address]
	result := make([]domain.Message, 0, len(inbox))
	for _, msg := range inbox {
		result = append(result, *msg)
	}
	return result, nil
}

// AppendMessage 将邮件追加到地址的收件箱末尾。地址不存在时不会创建。
func (s *Store) AppendMessage(address string, message *domain.Message) error {
	address = domain.NormalizeAddress(address)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveLocked(address, now) {
		return domain.ErrAddressNotFound
	}

	copied := *message
	s.inboxes[address] = append(s.inboxes[address], &copied)
	return nil
}

// FindMessage 在所有收件箱中线性查找邮件。
func (s *Store) FindMessage(messageID string) (string, *domain.Message, error) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	address, idx := s.findLocked(messageID, now)
	if idx < 0 {
		return "", nil, domain.ErrMessageNotFound
	}
	copied := *s.inboxes[address][idx]
	return address, &copied, nil
}

// MarkMessageRead 将邮件标记为已读并返回副本，其他邮件不受影响。
// 标记与读取在同一次加锁内完成，清理任务无法插入其间。
func (s *Store) MarkMessageRead(messageID string) (*domain.Message, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	address, idx := s.findLocked(messageID, now)
	if idx < 0 {
		return nil, domain.ErrMessageNotFound
	}
	message := s.inboxes[address][idx]
	message.Read = true
	copied := *message
	return &copied, nil
}

// DeleteMessage 删除单封邮件，其余邮件保持原有顺序。
func (s *Store) DeleteMessage(messageID string) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	address, idx := s.findLocked(messageID, now)
	if idx < 0 {
		return domain.ErrMessageNotFound
	}
	s.inboxes[address] = slices.Delete(s.inboxes[address], idx, idx+1)
	return nil
}

// Stats 返回未过期的地址数与其邮件总数。
func (s *Store) Stats() (addresses, messages int) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for address, record := range s.addresses {
		if record.ExpiredAt(now) {
			continue
		}
		addresses++
		messages += len(s.inboxes[address])
	}
	return addresses, messages
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}

// Health 内存存储始终可用。
func (s *Store) Health() error {
	return nil
}

// liveLocked 判断地址存在且未过期，调用方需持有锁。
func (s *Store) liveLocked(address string, now time.Time) bool {
	record, ok := s.addresses[address]
	return ok && !record.ExpiredAt(now)
}

func (s *Store) findLocked(messageID string, now time.Time) (string, int) {
	for address, inbox := range s.inboxes {
		if !s.liveLocked(address, now) {
			continue
		}
		for i, msg := range inbox {
			if msg.ID == messageID {
				return address, i
			}
		}
	}
	return "", -1
}
