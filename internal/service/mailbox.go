package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tempmail/disposable/internal/domain"
	"tempmail/disposable/internal/storage"
)

// 生成地址冲突时的最大尝试次数
const maxGenerateAttempts = 3

// MailboxService 封装临时地址相关业务操作。
type MailboxService struct {
	addresses storage.AddressRepository
	messages  storage.MessageRepository
	generator *AddressGenerator
	logger    *zap.Logger
}

// NewMailboxService 创建地址业务服务。
func NewMailboxService(addresses storage.AddressRepository, messages storage.MessageRepository, generator *AddressGenerator, logger *zap.Logger) *MailboxService {
	return &MailboxService{
		addresses: addresses,
		messages:  messages,
		generator: generator,
		logger:    logger.Named("mailbox"),
	}
}

// Create 生成并登记一个新的临时地址。
//
// 生成的地址与现存地址冲突时重新生成，最多尝试 maxGenerateAttempts 次。
func (s *MailboxService) Create() (*domain.Address, error) {
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		candidate := s.generator.Generate()

		address, err := s.addresses.CreateAddress(candidate)
		if errors.Is(err, domain.ErrAddressExists) {
			s.logger.Warn("generated address collided, retrying",
				zap.String("address", candidate),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create address: %w", err)
		}

		s.logger.Info("address generated",
			zap.String("address", address.Email),
			zap.Time("expires_at", address.ExpiresAt))
		return address, nil
	}

	return nil, fmt.Errorf("create address after %d attempts: %w", maxGenerateAttempts, domain.ErrAddressExists)
}

// Get 根据地址获取记录。
func (s *MailboxService) Get(address string) (*domain.Address, error) {
	return s.addresses.GetAddress(domain.NormalizeAddress(address))
}

// Inbox 返回地址收件箱的快照，按到达顺序排列。
func (s *MailboxService) Inbox(address string) ([]domain.Message, error) {
	messages, err := s.messages.ListMessages(domain.NormalizeAddress(address))
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return messages, nil
}
