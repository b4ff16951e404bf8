package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tempmail/disposable/internal/config"
	"tempmail/disposable/internal/health"
	"tempmail/disposable/internal/logger"
	"tempmail/disposable/internal/monitoring"
	"tempmail/disposable/internal/service"
	"tempmail/disposable/internal/storage/memory"
	httptransport "tempmail/disposable/internal/transport/http"
	"tempmail/disposable/internal/websocket"
)

// main 启动临时邮箱 HTTP 服务、过期清理任务与实时推送。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(logger.FromConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting tempmail server",
		zap.String("domain", cfg.Mailbox.Domain),
		zap.Duration("ttl", cfg.Mailbox.TTL),
		zap.Duration("sweep_interval", cfg.Mailbox.SweepInterval),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 存储层：进程内存，重启即清空
	store := memory.NewStore(cfg.Mailbox.TTL)
	defer store.Close()

	metrics := monitoring.NewMetrics()

	// 服务层
	generator := service.NewAddressGenerator(cfg.Mailbox.Domain)
	mailboxService := service.NewMailboxService(store, store, generator, log)
	messageService := service.NewMessageService(store, log)
	sweeper := service.NewSweeper(store, cfg.Mailbox.SweepInterval, log)
	sweeper.SetMetrics(metrics)

	// 实时推送
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, store, log)
	wsHub.SetClientCounter(metrics.UpdateWebSocketClients)
	messageService.SetNotifier(wsHub)
	sweeper.SetNotifier(wsHub)

	healthChecker := health.NewHealthChecker(store, sweeper, sweeper.Interval(), log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		MailboxService: mailboxService,
		MessageService: messageService,
		WebSocketHub:   wsHub,
		Metrics:        metrics,
		HealthChecker:  healthChecker,
		Store:          store,
		Logger:         log,
	})

	httpAddr := cfg.Addr()
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理过期地址 goroutine
	group.Go(func() error {
		return sweeper.Run(groupCtx)
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
