package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	JWT      JWTConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type TelegramConfig struct {
	BotToken    string
	BotUsername string // without @; used to build referral deep links
	APIURL      string // override for tests; default is the public Bot API
	OwnerID     int64
	// RequiredChannels the user must be a member of before withdrawing or claiming,
	// e.g. "@FilesDaily,@FilesDailyChat".
	RequiredChannels []string
	WebhookBaseURL   string // public base URL; webhook is WebhookBaseURL + /webhook/<token>
	OracleTimeout    time.Duration
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

type AdminConfig struct {
	// PasswordHash is a bcrypt hash of the admin password for the REST API.
	PasswordHash string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
	return &Config{
		Server: ServerConfig{
			Port:         envStr("PORT", "8080"),
			Env:          envStr("ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envStr("DATABASE_DSN", "droply:droply@tcp(localhost:3306)/droply?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: time.Hour,
		},
		Telegram: TelegramConfig{
			BotToken:         os.Getenv("BOT_TOKEN"),
			BotUsername:      os.Getenv("BOT_USERNAME"),
			APIURL:           envStr("TELEGRAM_API_URL", "https://api.telegram.org"),
			OwnerID:          envInt64("OWNER_ID", 0),
			RequiredChannels: splitList(os.Getenv("REQUIRED_CHANNELS")),
			WebhookBaseURL:   os.Getenv("WEBHOOK_BASE_URL"),
			OracleTimeout:    5 * time.Second,
		},
		JWT: JWTConfig{
			Secret: envStr("JWT_SECRET", "change-me-in-production"),
			Expiry: 12 * time.Hour,
			Issuer: "droply",
		},
		Admin: AdminConfig{
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
