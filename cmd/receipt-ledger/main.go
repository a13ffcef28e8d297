package main

import (
	"fmt"
	"os"

	"receipt-ledger/pkg/config"
	"receipt-ledger/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title Receipt Ledger API
// @version 1.0
// @description Webhook backend of the receipt ledger chat bot.

// @BasePath /

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "receipt-ledger",
		Short:        "Chat bot that turns grocery receipt photos into spending records",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(setCommandsCmd())
	rootCmd.AddCommand(setWebhookCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and initializes the global logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.File); err != nil {
		logger.Get().Warn("Log file disabled, logging to stdout only",
			zap.String("file", cfg.Logger.File),
			zap.Error(err))
	}
	return cfg, logger.Get(), nil
}
