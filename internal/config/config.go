package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Session        SessionConfig
	PasswordPolicy PasswordPolicyConfig
	Email          EmailConfig
	AdminBootstrap AdminBootstrapConfig
	Logging        LoggingConfig
	Environment    string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
	// CSRFKey enables CSRF protection on the cookie-authenticated surface
	// when set (32+ bytes). Empty disables it.
	CSRFKey string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
}

type SessionConfig struct {
	TTL time.Duration
	// CookieSecure is toggled off only for local development over plain HTTP.
	CookieSecure bool
}

type PasswordPolicyConfig struct {
	MinLength  int
	MinEntropy float64
}

type EmailConfig struct {
	Enabled             bool
	Provider            string // "smtp" or "resend"
	From                string
	SMTPHost            string
	SMTPPort            int
	SMTPUser            string
	SMTPPassword        string
	ResendAPIKey        string
	RegistrationBaseURL string
	ResetBaseURL        string
}

type AdminBootstrapConfig struct {
	DisplayName string
	Email       string
	Password    string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvInt("SERVER_PORT", 8080),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			CSRFKey: getEnv("CSRF_AUTH_KEY", ""),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
		},
		Session: SessionConfig{
			TTL:          time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
			CookieSecure: getEnvBool("SESSION_COOKIE_SECURE", true),
		},
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:  getEnvInt("PASSWORD_MIN_LENGTH", 20),
			MinEntropy: float64(getEnvInt("PASSWORD_MIN_ENTROPY_BITS", 80)),
		},
		Email: EmailConfig{
			Enabled:             getEnvBool("EMAIL_ENABLED", false),
			Provider:            getEnv("EMAIL_PROVIDER", "smtp"),
			From:                getEnv("EMAIL_FROM", ""),
			SMTPHost:            getEnv("SMTP_HOST", ""),
			SMTPPort:            getEnvInt("SMTP_PORT", 587),
			SMTPUser:            getEnv("SMTP_USERNAME", ""),
			SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
			ResendAPIKey:        getEnv("RESEND_API_KEY", ""),
			RegistrationBaseURL: getEnv("REGISTRATION_BASE_URL", "http://localhost:3000/register"),
			ResetBaseURL:        getEnv("PASSWORD_RESET_BASE_URL", "http://localhost:3000/reset-password"),
		},
		AdminBootstrap: AdminBootstrapConfig{
			DisplayName: getEnv("ADMIN_DISPLAY_NAME", ""),
			Email:       getEnv("ADMIN_EMAIL", ""),
			Password:    getEnv("ADMIN_PASSWORD", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Session.TTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if cfg.Email.Enabled {
		if cfg.Email.From == "" {
			return Config{}, fmt.Errorf("EMAIL_FROM is required when email is enabled")
		}
		switch cfg.Email.Provider {
		case "smtp":
			if cfg.Email.SMTPHost == "" {
				return Config{}, fmt.Errorf("SMTP_HOST is required for the smtp provider")
			}
		case "resend":
			if cfg.Email.ResendAPIKey == "" {
				return Config{}, fmt.Errorf("RESEND_API_KEY is required for the resend provider")
			}
		default:
			return Config{}, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.Email.Provider)
		}
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
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
