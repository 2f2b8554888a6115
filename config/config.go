// Package config loads the engine configuration from the environment
// once at startup. Core packages never read env vars themselves; they
// receive this struct (or the pieces they need) explicitly.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tosynthegeek/stabuse/registry"
	"github.com/tosynthegeek/stabuse/types"
)

type Config struct {
	Port           string
	DatabaseURL    string
	AMQPURL        string
	QueueName      string
	JWTSecret      string
	WebhookBaseURL string
	LogLevel       string
	EnableMetrics  bool
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		QueueName:      getEnvOrDefault("VERIFICATION_QUEUE", "transaction_verifications"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		WebhookBaseURL: os.Getenv("WEBHOOK_BASE_URL"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		EnableMetrics:  os.Getenv("ENABLE_METRICS") == "true",
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// InitDB opens the postgres connection and migrates the payment and
// registry tables. TranslateError turns driver unique-violation errors
// into gorm.ErrDuplicatedKey, which the settlement path depends on.
func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&types.PendingPayment{},
		&types.Payment{},
		&registry.NetworkRecord{},
		&registry.NetworkAsset{},
		&registry.MerchantAddress{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
