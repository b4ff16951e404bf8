package storage

import (
	"time"

	"tempmail/disposable/internal/domain"
)

// AddressRepository 定义临时地址的存取操作。
type AddressRepository interface {
	CreateAddress(address string) (*domain.Address, error)
	GetAddress(address string) (*domain.Address, error)
	DeleteExpiredAddresses(now time.Time) ([]string, error) // 删除过期地址及其收件箱，返回被删除的地址
}

// MessageRepository 定义收件箱邮件的存取操作。
type MessageRepository interface {
	ListMessages(address string) ([]domain.Message, error)
	AppendMessage(address string, message *domain.Message) error
	FindMessage(messageID string) (string, *domain.Message, error) // 返回所属地址与邮件快照
	MarkMessageRead(messageID string) (*domain.Message, error)       // 标记已读并返回更新后的快照
	DeleteMessage(messageID string) error
}

// InboxStore 定义完整的收件箱存储接口。
type InboxStore interface {
	AddressRepository
	MessageRepository

	// Stats 返回当前存活的地址数与邮件总数
	Stats() (addresses, messages int)
	Close() error
	Health() error
}
