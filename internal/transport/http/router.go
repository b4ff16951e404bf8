package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"tempmail/disposable/docs"
	"tempmail/disposable/internal/config"
	"tempmail/disposable/internal/health"
	"tempmail/disposable/internal/middleware"
	"tempmail/disposable/internal/monitoring"
	"tempmail/disposable/internal/service"
	"tempmail/disposable/internal/storage"
	"tempmail/disposable/internal/websocket"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	checker   *health.HealthChecker
	now       func() time.Time
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	MailboxService *service.MailboxService
	MessageService *service.MessageService
	WebSocketHub   *websocket.Hub        // 可选
	Metrics        *monitoring.Metrics   // 可选
	HealthChecker  *health.HealthChecker // 可选
	Store          storage.InboxStore
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var panics middleware.PanicRecorder
	if deps.Metrics != nil {
		panics = deps.Metrics
	}
	router.Use(middleware.RecoveryHandler(logger, panics))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())

	if deps.Metrics != nil {
		var stats middleware.StatsFunc
		if deps.Store != nil {
			stats = deps.Store.Stats
		}
		monitor := middleware.NewMonitoringMiddleware(deps.Metrics, logger, stats)
		router.Use(monitor.HTTPMetrics(), monitor.BusinessMetrics(), monitor.StoreMetrics())
	}

	router.Use(middleware.BodySizeLimit(middleware.SmallBodyLimit))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:  deps.Config.CORS.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "X-Max-Body-Size"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		mailboxes: deps.MailboxService,
		messages:  deps.MessageService,
		checker:   deps.HealthChecker,
		now:       time.Now,
	}

	// Swagger 文档
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 存活与就绪检查
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveHandler()))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyHandler()))
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	api := router.Group("/api")
	{
		api.GET("/health", handler.health)

		api.POST("/generate-email", handler.generateEmail)
		api.GET("/inbox/:email", handler.getInbox)

		api.POST("/webhook/email", handler.receiveEmail)

		api.GET("/email/:id", handler.getEmail)
		api.DELETE("/email/:id", handler.deleteEmail)

		if deps.WebSocketHub != nil {
			api.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, http.StatusText(http.StatusNotFound))
	})

	return router
}

type healthResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"` // 各组件检查结果，未配置健康检查时省略
}

// health godoc
// @Summary 服务状态
// @Tags System
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := healthResponse{
		Success:   true,
		Message:   MsgServerRunning,
		Timestamp: h.now().UnixMilli(),
	}
	if h.checker != nil {
		resp.Checks = h.checker.CheckHealth()
	}
	Success(c, resp)
}
