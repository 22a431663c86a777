package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/victorivanov/supportline/internal/api"
	"github.com/victorivanov/supportline/internal/auth"
	"github.com/victorivanov/supportline/internal/config"
	"github.com/victorivanov/supportline/internal/database"
	"github.com/victorivanov/supportline/internal/events"
	"github.com/victorivanov/supportline/internal/gateway"
	"github.com/victorivanov/supportline/internal/metrics"
	redisclient "github.com/victorivanov/supportline/internal/redis"
	"github.com/victorivanov/supportline/internal/service"
	"github.com/victorivanov/supportline/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	health := map[string]api.HealthChecker{}

	// --- Infrastructure ---

	var (
		messages    database.MessageStore
		attachments database.AttachmentRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		messages = database.NewMessageRepository(pool)
		attachments = database.NewAttachmentRepository(pool)
		health["database"] = pool.Ping
	} else {
		slog.Warn("DATABASE_URL not set, messages are kept in memory")
		mem := database.NewMemoryStore()
		messages, attachments = mem, mem
	}

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	health["redis"] = rdb.Ping

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, slog.Default())
		if err != nil {
			log.Fatalf("amqp: %v", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	tokenSvc := auth.NewTokenService(cfg.JWTSecret)
	m := metrics.New(prometheus.DefaultRegisterer)

	// --- Gateway ---

	gwManager := gateway.NewManager(tokenSvc, gateway.NewPresenceService(rdb), m, gateway.Options{
		SendRate:  cfg.SendRate,
		SendBurst: cfg.SendBurst,
	})

	// --- Services ---

	broker := service.NewBroker(messages, gwManager, publisher, m, service.BrokerOptions{
		PersistTimeout:   cfg.PersistTimeout,
		MaxContentLength: cfg.MaxContentLength,
	})
	gwManager.SetSender(broker)

	convos := service.NewConversationService(messages, publisher)
	receipts := service.NewReadReceiptService(messages, gwManager, publisher, m)

	// --- Handlers ---

	deps := &api.Dependencies{
		Conversations: api.NewConversationHandler(convos, gwManager),
		ReadStates:    api.NewReadStateHandler(receipts),
		Messages:      api.NewMessageHandler(broker),
		Gateway:       gwManager.HandleWebSocket,
		TokenService:  tokenSvc,
		Redis:         rdb,
		Health:        health,
	}

	if cfg.MinIOEndpoint != "" {
		store, err := storage.NewMinIOClient(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOSecure)
		if err != nil {
			log.Fatalf("minio: %v", err)
		}
		deps.Uploads = api.NewUploadHandler(service.NewUploadService(attachments, store))
		health["storage"] = store.Healthy
	} else {
		slog.Warn("MINIO_ENDPOINT not set, uploads are disabled")
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("supportline starting", "addr", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
