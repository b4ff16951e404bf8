package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tempmail/disposable/internal/monitoring"
)

// StatsFunc 返回当前存活的地址数与邮件数
type StatsFunc func() (addresses, messages int)

// MonitoringMiddleware 监控中间件
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
	logger  *zap.Logger
	stats   StatsFunc
}

// NewMonitoringMiddleware 创建监控中间件
func NewMonitoringMiddleware(metrics *monitoring.Metrics, logger *zap.Logger, stats StatsFunc) *MonitoringMiddleware {
	return &MonitoringMiddleware{
		metrics: metrics,
		logger:  logger,
		stats:   stats,
	}
}

// HTTPMetrics HTTP 指标中间件
func (mm *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestSize := c.Request.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		c.Next()

		duration := time.Since(start)
		statusCode := strconv.Itoa(c.Writer.Status())
		responseSize := int64(c.Writer.Size())
		if responseSize < 0 {
			responseSize = 0
		}

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		mm.metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			statusCode,
			duration,
			requestSize,
			responseSize,
		)

		if c.Writer.Status() >= http.StatusInternalServerError {
			mm.metrics.RecordError("http_error", "http")
		}
	}
}

// BusinessMetrics 业务指标中间件
func (mm *MonitoringMiddleware) BusinessMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		method := c.Request.Method

		switch c.FullPath() {
		case "/api/generate-email":
			if method == http.MethodPost && status == http.StatusOK {
				mm.metrics.RecordAddressGenerated()
			}
		case "/api/webhook/email":
			if method != http.MethodPost {
				return
			}
			if status != http.StatusOK {
				mm.logger.Debug("webhook rejected", zap.Int("status", status), zap.String("ip", c.ClientIP()))
			}
			switch status {
			case http.StatusOK:
				mm.metrics.RecordMessageReceived()
			case http.StatusBadRequest:
				mm.metrics.RecordMessageRejected("validation")
			case http.StatusNotFound:
				mm.metrics.RecordMessageRejected("unknown_address")
			case http.StatusRequestEntityTooLarge:
				mm.metrics.RecordMessageRejected("too_large")
			}
		case "/api/email/:id":
			if status != http.StatusOK {
				return
			}
			switch method {
			case http.MethodGet:
				mm.metrics.RecordMessageRead()
			case http.MethodDelete:
				mm.metrics.RecordMessageDeleted()
			}
		}
	}
}

// StoreMetrics 在写请求之后刷新存储容量指标
func (mm *MonitoringMiddleware) StoreMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if mm.stats == nil {
			return
		}
		switch c.Request.Method {
		case http.MethodPost, http.MethodDelete:
			addresses, messages := mm.stats()
			mm.metrics.UpdateStoreGauges(addresses, messages)
		}
	}
}
