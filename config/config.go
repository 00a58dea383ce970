/*
Package config loads process configuration for the leave daemons and CLI.

Values come from the environment, after an optional .env file in the working
directory has been loaded. Every key is prefixed with LEAVE_.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	DBDriver          string        `validate:"oneof=sqlite postgres"`
	SQLitePath        string        `validate:"required_if=DBDriver sqlite"`
	DatabaseURL       string        `validate:"required_if=DBDriver postgres"`
	DBMaxConns        int           `validate:"gte=0"`
	HTTPAddr          string        `validate:"required"`
	LogLevel          string        `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat         string        `validate:"oneof=text json"`
	ReconcileInterval time.Duration `validate:"gte=0"`
	AutoRollover      bool
	MaintenanceMode   bool
	HolidayFile       string
	ReportDir         string
	CORSOrigins       []string
	Mail              MailConfig
}

type MailConfig struct {
	Host     string
	Port     int    `validate:"gte=0,lte=65535"`
	User     string
	Password string
	From     string `validate:"omitempty,email"`
	HREmail  string `validate:"omitempty,email"`
}

// Enabled reports whether an SMTP relay is configured.
func (m MailConfig) Enabled() bool { return m.Host != "" }

var validate = validator.New()

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment without touching .env.
func FromEnv() (Config, error) {
	cfg := Config{
		DBDriver:          strings.ToLower(getEnv("LEAVE_DB_DRIVER", DriverSQLite)),
		SQLitePath:        getEnv("LEAVE_SQLITE_PATH", "leave.db"),
		DatabaseURL:       getEnv("LEAVE_DATABASE_URL", ""),
		DBMaxConns:        getEnvInt("LEAVE_DB_MAX_CONNS", 0),
		HTTPAddr:          getEnv("LEAVE_HTTP_ADDR", ":8080"),
		LogLevel:          strings.ToLower(getEnv("LEAVE_LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LEAVE_LOG_FORMAT", "text")),
		ReconcileInterval: getEnvDuration("LEAVE_RECONCILE_INTERVAL", time.Hour),
		AutoRollover:      getEnvBool("LEAVE_AUTO_ROLLOVER", false),
		MaintenanceMode:   getEnvBool("LEAVE_MAINTENANCE_MODE", false),
		HolidayFile:       getEnv("LEAVE_HOLIDAY_FILE", ""),
		ReportDir:         getEnv("LEAVE_REPORT_DIR", "."),
		CORSOrigins:       getEnvList("LEAVE_CORS_ORIGINS", []string{"*"}),
		Mail: MailConfig{
			Host:     getEnv("LEAVE_SMTP_HOST", ""),
			Port:     getEnvInt("LEAVE_SMTP_PORT", 587),
			User:     getEnv("LEAVE_SMTP_USER", ""),
			Password: getEnv("LEAVE_SMTP_PASSWORD", ""),
			From:     getEnv("LEAVE_MAIL_FROM", ""),
			HREmail:  getEnv("LEAVE_HR_EMAIL", ""),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Mail.Enabled() && c.Mail.From == "" {
		return fmt.Errorf("config: LEAVE_MAIL_FROM must be set when LEAVE_SMTP_HOST is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
