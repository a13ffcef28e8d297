package main

import (
	"errors"

	"receipt-ledger/internal/bot"
	"receipt-ledger/pkg/logger"

	"github.com/spf13/cobra"
)

var errNoToken = errors.New("TELEGRAM_BOT_TOKEN is not set")

var commandOrder = []string{"start", "menu", "listreceipts", "deletereceipts", "mygroup", "leavegroup", "edithelp", "daterange"}

var commandDescriptions = map[string]string{
	"start":          "Start the bot",
	"menu":           "Show the main menu",
	"listreceipts":   "List recent receipts",
	"deletereceipts": "Delete a recent receipt",
	"mygroup":        "Show your group",
	"leavegroup":     "Leave your group",
	"edithelp":       "How to correct a receipt",
	"daterange":      "Spending between two dates",
}

func setCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-commands",
		Short: "Register the chat command menu with Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			tg, err := telegramClient()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return tg.SetCommands(commandDescriptions, commandOrder)
		},
	}
}

func setWebhookCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Point Telegram at the webhook endpoint",
		Long: `Register the webhook URL (TELEGRAM_WEBHOOK_URL or --url) together with
TELEGRAM_WEBHOOK_SECRET, which Telegram then sends with every delivery.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Telegram.WebhookURL
			}
			if url == "" {
				return errors.New("no webhook url: set TELEGRAM_WEBHOOK_URL or pass --url")
			}
			tg, err := telegramClient()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return tg.SetWebhook(url, cfg.Telegram.WebhookSecret)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "public https URL of the /webhook endpoint")
	return cmd
}

func telegramClient() (*bot.TelegramMessenger, error) {
	cfg, appLogger, err := bootstrap()
	if err != nil {
		return nil, err
	}
	if cfg.Telegram.Token == "" {
		return nil, errNoToken
	}
	return bot.NewTelegramMessenger(cfg.Telegram.Token, cfg.Telegram.APIEndpoint, nil, appLogger)
}
