package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	libredis "github.com/redis/go-redis/v9"

	"github.com/skillmarket/escrow-backend/internal/config"
	"github.com/skillmarket/escrow-backend/internal/db"
	"github.com/skillmarket/escrow-backend/internal/goroutine"
	httpHandlers "github.com/skillmarket/escrow-backend/internal/http/handlers"
	httpRouter "github.com/skillmarket/escrow-backend/internal/http/router"
	"github.com/skillmarket/escrow-backend/internal/logger"
	"github.com/skillmarket/escrow-backend/internal/repository"
	"github.com/skillmarket/escrow-backend/internal/service"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis нужен только общему rate limit; без него лимиты локальные.
	var redisClient *libredis.Client
	if cfg.RedisURL != "" {
		opts, err := libredis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("main: некорректный REDIS_URL: %v", err)
		}
		redisClient = libredis.NewClient(opts)
		defer redisClient.Close()
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	orderRepo := repository.NewOrderRepository(dbConn)
	refundRepo := repository.NewRefundRepository(dbConn)
	auditRepo := repository.NewAuditRepository(dbConn)

	// Сервисы.
	escrowService := service.NewEscrowService(orderRepo, nil, cfg.AutoReleaseWindow)
	milestoneService := service.NewMilestoneService(orderRepo)
	disputeService := service.NewDisputeService(orderRepo, refundRepo, auditRepo)
	refundService := service.NewRefundService(orderRepo, refundRepo, auditRepo)
	adminService := service.NewAdminService(orderRepo, auditRepo)
	sweepService := service.NewSweepService(orderRepo, refundRepo, cfg.SweepInterval)

	// Фоновые обходы: авторелиз и сверка журнала возвратов.
	goroutine.SafeGoWithContext(ctx, sweepService.Run)

	// HTTP хэндлеры.
	orderHandler := httpHandlers.NewOrderHandler(escrowService)
	milestoneHandler := httpHandlers.NewMilestoneHandler(milestoneService)
	disputeHandler := httpHandlers.NewDisputeHandler(escrowService, disputeService)
	refundHandler := httpHandlers.NewRefundHandler(refundService)
	adminHandler := httpHandlers.NewAdminHandler(adminService, refundService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, redisClient)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, orderHandler, milestoneHandler, disputeHandler, refundHandler, adminHandler, healthHandler, tokenManager, redisClient)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
