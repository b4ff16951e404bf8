package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 地址指标
	AddressesGenerated prometheus.Counter
	AddressesExpired   prometheus.Counter
	AddressesActive    prometheus.Gauge

	// 邮件指标
	MessagesReceived prometheus.Counter
	MessagesRejected *prometheus.CounterVec
	MessagesRead     prometheus.Counter
	MessagesDeleted  prometheus.Counter
	MessagesTotal    prometheus.Gauge

	// 清理任务指标
	SweepDuration prometheus.Histogram

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 实时推送指标
	WebSocketClients prometheus.Gauge
}

// NewMetrics 创建监控指标
//
// 每个实例使用独立的注册表，同一进程内可以创建多个实例（例如测试）。
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tempmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tempmail_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tempmail_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		AddressesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_addresses_generated_total",
			Help: "Total number of temporary addresses generated",
		}),
		AddressesExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_addresses_expired_total",
			Help: "Total number of addresses removed by the expiry sweeper",
		}),
		AddressesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tempmail_addresses_active",
			Help: "Number of live addresses",
		}),

		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_messages_received_total",
			Help: "Total number of messages accepted by the webhook",
		}),
		MessagesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_messages_rejected_total",
				Help: "Total number of webhook deliveries rejected",
			},
			[]string{"reason"},
		),
		MessagesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_messages_read_total",
			Help: "Total number of messages opened",
		}),
		MessagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_messages_deleted_total",
			Help: "Total number of messages deleted explicitly",
		}),
		MessagesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tempmail_messages_stored",
			Help: "Number of messages currently held in live inboxes",
		}),

		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tempmail_sweep_duration_seconds",
			Help:    "Expiry sweep duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),
		PanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_panics_total",
			Help: "Total number of recovered panics",
		}),

		WebSocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tempmail_websocket_clients",
			Help: "Number of connected websocket clients",
		}),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordAddressGenerated 记录地址生成
func (m *Metrics) RecordAddressGenerated() {
	m.AddressesGenerated.Inc()
}

// RecordAddressesExpired 记录被清理的地址数量
func (m *Metrics) RecordAddressesExpired(count int) {
	m.AddressesExpired.Add(float64(count))
}

// RecordMessageReceived 记录邮件接收
func (m *Metrics) RecordMessageReceived() {
	m.MessagesReceived.Inc()
}

// RecordMessageRejected 记录被拒绝的投递
func (m *Metrics) RecordMessageRejected(reason string) {
	m.MessagesRejected.WithLabelValues(reason).Inc()
}

// RecordMessageRead 记录邮件阅读
func (m *Metrics) RecordMessageRead() {
	m.MessagesRead.Inc()
}

// RecordMessageDeleted 记录邮件删除
func (m *Metrics) RecordMessageDeleted() {
	m.MessagesDeleted.Inc()
}

// RecordSweep 记录一次清理耗时
func (m *Metrics) RecordSweep(duration time.Duration) {
	m.SweepDuration.Observe(duration.Seconds())
}

// UpdateStoreGauges 更新存储容量指标
func (m *Metrics) UpdateStoreGauges(addresses, messages int) {
	m.AddressesActive.Set(float64(addresses))
	m.MessagesTotal.Set(float64(messages))
}

// UpdateWebSocketClients 更新 WebSocket 连接数
func (m *Metrics) UpdateWebSocketClients(count int) {
	m.WebSocketClients.Set(float64(count))
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
