package service

import "tempmail/disposable/internal/domain"

// Notifier 实时通知接口，由 websocket.Hub 实现。
type Notifier interface {
	NotifyNewMail(address string, message *domain.Message)
	NotifyAddressExpired(address string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyNewMail(string, *domain.Message) {}
func (nopNotifier) NotifyAddressExpired(string)           {}
