package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tempmail/disposable/internal/domain"
	"tempmail/disposable/internal/storage"
)

// MessageService 封装邮件投递与读取逻辑。
type MessageService struct {
	repo     storage.MessageRepository
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewMessageService 创建邮件业务服务。
func NewMessageService(repo storage.MessageRepository, logger *zap.Logger) *MessageService {
	return &MessageService{
		repo:     repo,
		notifier: nopNotifier{},
		now:      time.Now,
		logger:   logger.Named("message"),
	}
}

// SetNotifier 设置实时通知
func (s *MessageService) SetNotifier(notifier Notifier) {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s.notifier = notifier
}

// Ingest 将外部投递的邮件追加到目标地址的收件箱。
//
// 目标地址不存在或已过期时返回 ErrAddressNotFound，不产生任何副作用。
func (s *MessageService) Ingest(input domain.InboundMessage) (*domain.Message, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}

	address := domain.NormalizeAddress(input.To)
	message := &domain.Message{
		ID:        uuid.NewString(),
		From:      strings.TrimSpace(input.From),
		Subject:   input.Subject,
		Body:      input.Body,
		Timestamp: timestamp.UTC(),
		Read:      false,
	}

	if err := s.repo.AppendMessage(address, message); err != nil {
		return nil, fmt.Errorf("deliver message: %w", err)
	}

	s.logger.Info("message received",
		zap.String("id", message.ID),
		zap.String("to", address),
		zap.String("from", message.From))

	s.notifier.NotifyNewMail(address, message)

	return message, nil
}

// Open 将邮件标记为已读并返回最新内容。
func (s *MessageService) Open(id string) (*domain.Message, error) {
	message, err := s.repo.MarkMessageRead(id)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return message, nil
}

// Delete 删除单封邮件。
func (s *MessageService) Delete(id string) error {
	if err := s.repo.DeleteMessage(id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	s.logger.Info("message deleted", zap.String("id", id))
	return nil
}
