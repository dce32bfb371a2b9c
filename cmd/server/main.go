package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"condorledger/internal/api"
	"condorledger/internal/api/middleware"
	"condorledger/internal/config"
	"condorledger/internal/repository"
	"condorledger/internal/service"
	"condorledger/internal/websocket"
	"condorledger/pkg/ratelimit"
	"condorledger/pkg/utils"

	"github.com/joho/godotenv"
)

// limiterSweepInterval - период очистки неактивных адресов rate limiter
const limiterSweepInterval = 5 * time.Minute

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		Development: cfg.Logging.Development,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
	})
	defer logger.Sync()

	logger.Info("starting condorledger",
		utils.Env(cfg.Env),
		utils.Strings("symbols", cfg.Partitions.Symbols()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", utils.Err(err))
	}
	defer db.Close()

	// Репозитории
	tradeRepo := repository.NewTradeRepository(db)
	configRepo := repository.NewBotConfigRepository(db)

	// Сервисы
	ledgerService := service.NewLedgerService(tradeRepo, configRepo, cfg.Partitions, cfg.Ledger)
	adminService := service.NewAdminService(tradeRepo, configRepo, cfg.Partitions, ledgerService)

	// WebSocket hub
	hub := websocket.NewHub(cfg.Server.AllowedOrigins...)
	go hub.Run()
	ledgerService.SetWebSocketHub(hub)

	adminLimiter := ratelimit.NewKeyedLimiter(cfg.Admin.RateLimit, cfg.Admin.RateBurst)
	go sweepLimiter(ctx, adminLimiter)

	if cfg.Security.AdminPasswordHash == "" {
		logger.Warn("admin credentials not configured, admin endpoints disabled",
			utils.Bool("pass_through", cfg.IsDevelopment()),
		)
	}

	router := api.SetupRoutes(&api.Dependencies{
		LedgerService: ledgerService,
		AdminService:  adminService,
		Hub:           hub,
		AdminAuth: middleware.AdminAuthConfig{
			Username:          cfg.Security.AdminUsername,
			PasswordHash:      cfg.Security.AdminPasswordHash,
			AllowUnconfigured: cfg.IsDevelopment(),
			Limiter:           adminLimiter,
		},
		WebhookSecret:  cfg.Security.WebhookSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HealthCheck:    db.PingContext,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			utils.Address(server.Addr),
			utils.Bool("https", cfg.Server.UseHTTPS),
		)
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", utils.Err(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", utils.Err(err))
	}
	hub.Stop()

	logger.Info("server exited",
		utils.Int64("ws_dropped_messages", hub.DroppedMessages()),
	)
}

// sweepLimiter периодически удаляет заполненные корзины лимитера
func sweepLimiter(ctx context.Context, limiter *ratelimit.KeyedLimiter) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := limiter.Sweep(); removed > 0 {
				utils.Debug("admin limiter swept", utils.Count(removed))
			}
		}
	}
}
