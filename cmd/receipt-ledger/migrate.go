package main

import (
	"context"
	"fmt"
	"time"

	"receipt-ledger/internal/repository"
	"receipt-ledger/internal/service"
	"receipt-ledger/pkg/logger"
	"receipt-ledger/pkg/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var skipAdmin bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and seed the admin profile",
		Long: `Create the tables and the composite indexes that the recent-receipts
listing sorts on, then make sure the configured admin (ADMIN_USER_ID)
has an approved profile. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), skipAdmin)
		},
	}
	cmd.Flags().BoolVar(&skipAdmin, "skip-admin", false, "do not create the admin profile")
	return cmd
}

func runMigrate(ctx context.Context, skipAdmin bool) error {
	cfg, appLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, appLogger); err != nil {
		return err
	}

	if skipAdmin || cfg.Bot.AdminUserID == "" {
		appLogger.Info("Skipping admin profile")
		return nil
	}

	profiles := service.NewProfileService(repository.NewProfileRepository(db, appLogger), nil, cfg.Bot.AdminUserID, time.Now, appLogger)
	p, created, err := profiles.EnsureProfile(ctx, cfg.Bot.AdminUserID)
	if err != nil {
		return fmt.Errorf("failed to seed admin profile: %w", err)
	}
	appLogger.Info("Admin profile ready",
		zap.String("user_id", p.TelegramUserID),
		zap.String("status", string(p.Status)),
		zap.Bool("created", created))
	return nil
}
