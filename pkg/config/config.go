package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GigaChat GigaChatConfig
	Telegram TelegramConfig
	Bot      BotConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
	// File is a rotatelogs pattern, e.g. logs/receipt-ledger.%Y%m%d.log. Empty disables file output.
	File string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

type TelegramConfig struct {
	Token         string
	APIEndpoint   string
	WebhookURL    string
	WebhookSecret string
}

type BotConfig struct {
	AdminUserID string
	Timezone    string
}

// MissingSetting reports a credential or setting that is absent. The feature
// depending on it is disabled instead of failing startup.
type MissingSetting struct {
	Key     string
	Feature string
}

func (e *MissingSetting) Error() string {
	return fmt.Sprintf("%s is not set: %s disabled", e.Key, e.Feature)
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work too (Docker/K8s)
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, err := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT: %w", err)
	}
	llmTimeout, err := strconv.Atoi(getEnv("GIGACHAT_TIMEOUT_SECONDS", "180"))
	if err != nil {
		return nil, fmt.Errorf("invalid GIGACHAT_TIMEOUT_SECONDS: %w", err)
	}
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "receipt_ledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat-Pro"),
			InsecureSkipVerify: insecureSkipVerify,
			Timeout:            time.Duration(llmTimeout) * time.Second,
		},
		Telegram: TelegramConfig{
			Token:         getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIEndpoint:   getEnv("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
			WebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		},
		Bot: BotConfig{
			AdminUserID: getEnv("ADMIN_USER_ID", ""),
			Timezone:    getEnv("BOT_TIMEZONE", "UTC"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}, nil
}

// Validate lists the settings whose absence degrades the service.
func (c *Config) Validate() []*MissingSetting {
	var missing []*MissingSetting
	if c.Telegram.Token == "" {
		missing = append(missing, &MissingSetting{Key: "TELEGRAM_BOT_TOKEN", Feature: "outgoing chat messages"})
	}
	if c.GigaChat.APIKey == "" {
		missing = append(missing, &MissingSetting{Key: "GIGACHAT_API_KEY", Feature: "receipt extraction"})
	}
	if c.Bot.AdminUserID == "" {
		missing = append(missing, &MissingSetting{Key: "ADMIN_USER_ID", Feature: "admin commands"})
	}
	if c.Telegram.WebhookSecret == "" {
		missing = append(missing, &MissingSetting{Key: "TELEGRAM_WEBHOOK_SECRET", Feature: "webhook secret check"})
	}
	return missing
}

// Location resolves the configured timezone, falling back to UTC.
func (c *BotConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
