// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetDispatchBatchSize() int
}

// CacheConfig provides settings for the dashboard read-through cache.
type CacheConfig interface {
	GetRedisURL() string
	GetDashboardCacheTTL() time.Duration
}

// SMTPConfig provides settings for the email send channel.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsEmailEnabled() bool
}

// GatewayConfig provides settings for the SMS/WhatsApp messaging gateway.
type GatewayConfig interface {
	GetGatewayBaseURL() string
	GetGatewayAPIKey() string
	IsGatewayEnabled() bool
}

// PatientsConfig provides settings for the patient-record collaborator.
type PatientsConfig interface {
	GetPatientsBaseURL() string
	GetPatientsAPIKey() string
	IsPatientsEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	JWTAccessSecret   string
	CORSAllowAll      bool
	CORSOrigins       []string
	CORSAllowCreds    bool
	RedisURL          string
	AsynqQueueName    string
	AsynqConcurrency  int
	DispatchBatchSize int
	DashboardCacheTTL time.Duration
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	EmailFromName     string
	EmailFromAddress  string
	GatewayBaseURL    string
	GatewayAPIKey     string
	PatientsBaseURL   string
	PatientsAPIKey    string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetDispatchBatchSize() int { return c.DispatchBatchSize }

// CacheConfig implementation
func (c *Config) GetDashboardCacheTTL() time.Duration { return c.DashboardCacheTTL }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsEmailEnabled() bool        { return c.SMTPHost != "" }

// GatewayConfig implementation
func (c *Config) GetGatewayBaseURL() string { return c.GatewayBaseURL }
func (c *Config) GetGatewayAPIKey() string  { return c.GatewayAPIKey }
func (c *Config) IsGatewayEnabled() bool    { return c.GatewayBaseURL != "" }

// PatientsConfig implementation
func (c *Config) GetPatientsBaseURL() string { return c.PatientsBaseURL }
func (c *Config) GetPatientsAPIKey() string  { return c.PatientsAPIKey }
func (c *Config) IsPatientsEnabled() bool    { return c.PatientsBaseURL != "" }

// Load reads configuration from the environment, with .env as a fallback
// for local development. Missing required values return an error.
func Load() (*Config, error) {
	// .env is optional; real environments inject variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:               getEnv("APP_ENV", "development"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTAccessSecret:   os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:      getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:       getEnvList("CORS_ORIGINS"),
		CORSAllowCreds:    getEnvBool("CORS_ALLOW_CREDENTIALS", true),
		RedisURL:          getEnv("REDIS_URL", ""),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE", "crm"),
		AsynqConcurrency:  getEnvInt("ASYNQ_CONCURRENCY", 10),
		DispatchBatchSize: getEnvInt("DISPATCH_BATCH_SIZE", 100),
		DashboardCacheTTL: getEnvDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Clinic CRM"),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
		GatewayBaseURL:    getEnv("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:     getEnv("GATEWAY_API_KEY", ""),
		PatientsBaseURL:   getEnv("PATIENTS_BASE_URL", ""),
		PatientsAPIKey:    getEnv("PATIENTS_API_KEY", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
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

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
