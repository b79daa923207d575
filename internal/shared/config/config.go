package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is loaded once at startup and handed to each component.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	KurrentDB KurrentDBConfig
	Auth      AuthConfig
	LLM       LLMConfig
	OCR       OCRConfig
	SMTP      SMTPConfig
	Redis     RedisConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           int
	Env            string
	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// LLMConfig configures the vision/text model service.
type LLMConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	APIVersion        string
	Timeout           time.Duration
	RetryAttempts     int
	RetryWait         time.Duration
	RetryMaxWait      time.Duration
	RequestsPerSecond float64
}

// Configured reports whether the model credentials are present.
func (c LLMConfig) Configured() bool {
	return c.APIKey != ""
}

type OCRConfig struct {
	Concurrency  int
	FetchTimeout time.Duration
}

// SMTPConfig holds the outbound mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Configured reports whether SMTP credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.User != "" && c.Password != ""
}

type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	SummaryCacheTTL time.Duration
}

// Enabled reports whether a Redis address was given.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	// A missing .env is fine; the environment is authoritative.
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("ENV"),
			CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
			RateLimitRPS:   v.GetInt("RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KurrentDB: KurrentDBConfig{
			Enabled:  v.GetBool("KURRENTDB_ENABLED"),
			Host:     v.GetString("KURRENTDB_HOST"),
			Port:     v.GetInt("KURRENTDB_PORT"),
			Insecure: v.GetBool("KURRENTDB_INSECURE"),
			Username: v.GetString("KURRENTDB_USERNAME"),
			Password: v.GetString("KURRENTDB_PASSWORD"),
		},
		Auth: AuthConfig{
			Enabled:   v.GetBool("AUTH_ENABLED"),
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		LLM: LLMConfig{
			APIKey:            v.GetString("ANTHROPIC_API_KEY"),
			BaseURL:           v.GetString("ANTHROPIC_BASE_URL"),
			Model:             v.GetString("LLM_MODEL"),
			APIVersion:        v.GetString("ANTHROPIC_VERSION"),
			Timeout:           v.GetDuration("LLM_TIMEOUT"),
			RetryAttempts:     v.GetInt("LLM_RETRY_ATTEMPTS"),
			RetryWait:         v.GetDuration("LLM_RETRY_WAIT"),
			RetryMaxWait:      v.GetDuration("LLM_RETRY_MAX_WAIT"),
			RequestsPerSecond: v.GetFloat64("LLM_REQUESTS_PER_SECOND"),
		},
		OCR: OCRConfig{
			Concurrency:  v.GetInt("OCR_CONCURRENCY"),
			FetchTimeout: v.GetDuration("OCR_FETCH_TIMEOUT"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Redis: RedisConfig{
			Addr:            v.GetString("REDIS_ADDR"),
			Password:        v.GetString("REDIS_PASSWORD"),
			DB:              v.GetInt("REDIS_DB"),
			SummaryCacheTTL: v.GetDuration("SUMMARY_CACHE_TTL"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
	if cfg.OCR.Concurrency < 1 {
		cfg.OCR.Concurrency = 1
	}

	if cfg.Server.Env == "production" && cfg.Auth.Enabled && cfg.Auth.JWTSecret == "dev-secret-change-in-prod" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:8081,http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "agentes")
	v.SetDefault("DB_PASSWORD", "agentes")
	v.SetDefault("DB_NAME", "agentes")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("KURRENTDB_ENABLED", false)
	v.SetDefault("KURRENTDB_HOST", "localhost")
	v.SetDefault("KURRENTDB_PORT", 2113)
	v.SetDefault("KURRENTDB_INSECURE", true)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev-secret-change-in-prod")

	v.SetDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com")
	v.SetDefault("ANTHROPIC_VERSION", "2023-06-01")
	v.SetDefault("LLM_MODEL", "claude-sonnet-4-6")
	v.SetDefault("LLM_TIMEOUT", 120*time.Second)
	v.SetDefault("LLM_RETRY_ATTEMPTS", 3)
	v.SetDefault("LLM_RETRY_WAIT", time.Second)
	v.SetDefault("LLM_RETRY_MAX_WAIT", 10*time.Second)
	v.SetDefault("LLM_REQUESTS_PER_SECOND", 2.0)

	v.SetDefault("OCR_CONCURRENCY", 4)
	v.SetDefault("OCR_FETCH_TIMEOUT", 60*time.Second)

	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SUMMARY_CACHE_TTL", 6*time.Hour)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
