package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"accommodation-backend/utils"

	"github.com/go-playground/validator/v10"
)

const AppName = "accommodation-backend"

// Config is the process configuration read from the environment (and .env,
// loaded by main before LoadConfig).
type Config struct {
	Port        string `validate:"required,numeric"`
	LogLevel    string `validate:"oneof=trace debug info warn warning error fatal panic"`
	CorsOrigins string

	DB DBConfig

	SendgridAPIKey    string
	SendgridFromEmail string `validate:"omitempty,email"`
	SendgridSandbox   bool
	FrontendURL       string `validate:"omitempty,url"`

	ReconcileSchedule string        `validate:"required"`
	LockIdleTTL       time.Duration `validate:"min=1s"`
	GormLogLevel      string        `validate:"oneof=silent error warn info"`
}

// DBConfig holds the MySQL settings. URL, when set, wins over the parts.
type DBConfig struct {
	URL  string
	User string `validate:"required_without=URL"`
	Pass string
	Host string `validate:"required_without=URL"`
	Port string `validate:"omitempty,numeric"`
	Name string `validate:"required_without=URL"`
}

var configValidate = validator.New()

// LoadConfig reads and validates the environment.
func LoadConfig() (*Config, error) {
	ttl, err := time.ParseDuration(utils.EnvOrDefault("LOCK_IDLE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_IDLE_TTL: %w", err)
	}

	dbURL := strings.TrimSpace(os.Getenv("MYSQL_URL"))
	if dbURL == "" {
		dbURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	cfg := &Config{
		Port:        utils.EnvOrDefault("PORT", "8080"),
		LogLevel:    strings.ToLower(utils.EnvOrDefault("LOG_LEVEL", "info")),
		CorsOrigins: os.Getenv("CORS_ORIGINS"),
		DB: DBConfig{
			URL:  dbURL,
			User: utils.EnvOrDefault("DB_USER", "root"),
			Pass: os.Getenv("DB_PASS"),
			Host: utils.EnvOrDefault("DB_HOST", "127.0.0.1"),
			Port: utils.EnvOrDefault("DB_PORT", "3306"),
			Name: utils.EnvOrDefault("DB_NAME", "accommodation_db"),
		},
		SendgridAPIKey:    strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		SendgridFromEmail: strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL")),
		SendgridSandbox:   strings.EqualFold(os.Getenv("SENDGRID_SANDBOX"), "true"),
		FrontendURL:       strings.TrimSpace(os.Getenv("FRONTEND_URL")),
		ReconcileSchedule: utils.EnvOrDefault("RECONCILE_SCHEDULE", "@every 15m"),
		LockIdleTTL:       ttl,
		GormLogLevel:      strings.ToLower(utils.EnvOrDefault("GORM_LOG_LEVEL", "warn")),
	}

	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.SendgridAPIKey != "" && cfg.SendgridFromEmail == "" {
		return nil, fmt.Errorf("invalid configuration: SENDGRID_FROM_EMAIL is required with SENDGRID_API_KEY")
	}
	return cfg, nil
}
