package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"tempmail/disposable/internal/storage"
)

// 协程数量上限，超过视为泄漏
const maxGoroutines = 10000

// SweepStatus 提供清理任务的最近一次执行时间
type SweepStatus interface {
	LastRun() time.Time
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health   healthcheck.Handler
	store    storage.InboxStore
	sweeper  SweepStatus
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.InboxStore, sweeper SweepStatus, interval time.Duration, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health:   healthcheck.NewHandler(),
		store:    store,
		sweeper:  sweeper,
		interval: interval,
		now:      time.Now,
		logger:   logger.Named("health"),
	}

	hc.addChecks()

	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))

	hc.health.AddReadinessCheck("store", func() error {
		return hc.store.Health()
	})

	hc.health.AddReadinessCheck("sweeper", hc.checkSweeper)
}

// checkSweeper 清理任务需在三个周期内执行过
func (hc *HealthChecker) checkSweeper() error {
	if hc.sweeper == nil {
		return nil
	}
	last := hc.sweeper.LastRun()
	if last.IsZero() {
		// 启动后第一个周期内尚未执行
		return nil
	}
	if lag := hc.now().Sub(last); lag > 3*hc.interval {
		hc.logger.Warn("sweeper is stale", zap.Duration("lag", lag), zap.Duration("interval", hc.interval))
		return fmt.Errorf("sweeper last ran %s ago", lag.Round(time.Second))
	}
	return nil
}

// LiveHandler 存活检查
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 就绪检查
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}

// CheckHealth 执行健康检查
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string)

	if err := hc.store.Health(); err != nil {
		results["store"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["store"] = "OK"
	}

	if err := hc.checkSweeper(); err != nil {
		results["sweeper"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["sweeper"] = "OK"
	}

	results["timestamp"] = hc.now().Format(time.RFC3339)

	return results
}
