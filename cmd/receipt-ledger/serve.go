package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"receipt-ledger/internal/api"
	"receipt-ledger/internal/api/handlers"
	"receipt-ledger/internal/bot"
	"receipt-ledger/internal/metrics"
	"receipt-ledger/internal/repository"
	"receipt-ledger/internal/service"
	"receipt-ledger/pkg/logger"
	"receipt-ledger/pkg/postgres"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, appLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	appLogger.Info("Starting receipt ledger", zap.String("version", Version))
	for _, missing := range cfg.Validate() {
		appLogger.Warn("Configuration incomplete",
			zap.String("setting", missing.Key),
			zap.String("disabled", missing.Feature))
	}

	// Initialize database
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Outbound transport
	var (
		messenger bot.Messenger
		notifier  service.Notifier
	)
	if cfg.Telegram.Token != "" {
		tg, err := bot.NewTelegramMessenger(cfg.Telegram.Token, cfg.Telegram.APIEndpoint, m, appLogger)
		if err != nil {
			return err
		}
		messenger, notifier = tg, tg
	} else {
		lm := bot.NewLogMessenger(appLogger)
		messenger, notifier = lm, lm
	}

	var vision service.VisionClient
	if cfg.GigaChat.APIKey != "" {
		vision = service.NewLLMService(&cfg.GigaChat, appLogger)
	}

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db, appLogger)
	groupRepo := repository.NewGroupRepository(db, appLogger)
	receiptRepo := repository.NewReceiptRepository(db, appLogger)

	// Initialize services
	clock := service.Clock(time.Now)
	profileService := service.NewProfileService(profileRepo, notifier, cfg.Bot.AdminUserID, clock, appLogger)
	groupService := service.NewGroupService(groupRepo, profileRepo, profileService, clock, appLogger)
	receiptService := service.NewReceiptService(receiptRepo, groupService, profileService, clock, appLogger)
	extractionService := service.NewExtractionService(vision, cfg.GigaChat.Timeout, appLogger)

	pipeline := bot.NewPipeline(extractionService, receiptService, groupService, messenger, clock, cfg.Bot.Location(), m, appLogger)
	dispatcher := bot.NewDispatcher(profileService, groupService, receiptService, pipeline, messenger, m, appLogger)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(dispatcher, appLogger)
	healthHandler := handlers.NewHealthHandler(db, appLogger)

	app := api.SetupRouter(webhookHandler, healthHandler, api.RouterConfig{
		WebhookSecret: cfg.Telegram.WebhookSecret,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		Gatherer:      reg,
	}, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	return nil
}
