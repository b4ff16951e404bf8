package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tempmail/disposable/internal/monitoring"
	"tempmail/disposable/internal/storage"
)

// Sweeper 定期清理过期地址及其收件箱。
//
// 地址最长可能存活 TTL 加一个清理周期。
type Sweeper struct {
	store    storage.InboxStore
	interval time.Duration
	notifier Notifier
	metrics  *monitoring.Metrics
	now      func() time.Time
	logger   *zap.Logger
	lastRun  atomic.Int64
}

// NewSweeper 创建过期清理任务
func NewSweeper(store storage.InboxStore, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		notifier: nopNotifier{},
		now:      time.Now,
		logger:   logger.Named("sweeper"),
	}
}

// SetNotifier 设置实时通知
func (s *Sweeper) SetNotifier(notifier Notifier) {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s.notifier = notifier
}

// SetMetrics 设置监控指标
func (s *Sweeper) SetMetrics(metrics *monitoring.Metrics) {
	s.metrics = metrics
}

// Interval 返回清理周期
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Run 按固定周期执行清理，直到 ctx 结束。
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting expired address cleanup task", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cleanup task stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(s.now()); err != nil {
				s.logger.Error("failed to cleanup expired addresses", zap.Error(err))
			}
		}
	}
}

// SweepOnce 删除在 now 时刻已过期的地址及其收件箱，返回被删除的地址。
func (s *Sweeper) SweepOnce(now time.Time) ([]string, error) {
	start := time.Now()
	removed, err := s.store.DeleteExpiredAddresses(now)
	s.lastRun.Store(now.UnixNano())
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("sweep_failed", "sweeper")
		}
		return nil, err
	}

	for _, address := range removed {
		s.notifier.NotifyAddressExpired(address)
	}

	if s.metrics != nil {
		s.metrics.RecordSweep(time.Since(start))
		s.metrics.RecordAddressesExpired(len(removed))
		addresses, messages := s.store.Stats()
		s.metrics.UpdateStoreGauges(addresses, messages)
	}

	if len(removed) > 0 {
		s.logger.Info("cleaned up expired addresses", zap.Int("count", len(removed)))
	} else {
		s.logger.Debug("no expired addresses")
	}

	return removed, nil
}

// LastRun 返回最近一次清理的时间（UTC），尚未执行时为零值。
func (s *Sweeper) LastRun() time.Time {
	ns := s.lastRun.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
