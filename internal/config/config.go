package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// ConnectTimeout bounds dialing one connection. Rounded up to whole seconds.
	ConnectTimeout time.Duration
	// StatementTimeout and LockTimeout are session settings. LockTimeout caps the
	// wait for a registration row held by another patch or expiry claim.
	StatementTimeout time.Duration
	LockTimeout      time.Duration
	// PingTimeout bounds the startup connectivity check.
	PingTimeout time.Duration
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds the optional Redis used to claim daily expiry notifications.
// An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig holds the bearer token settings. Tokens are issued elsewhere.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	AdminRole string
}

// NotifyConfig holds the email relay webhook settings.
type NotifyConfig struct {
	WebhookURL string
	Timeout    time.Duration
	MaxRetries int
}

// ExpiryConfig controls registration expiry and the background sweep.
type ExpiryConfig struct {
	DefaultDays   int
	SweepInterval time.Duration
	SweepBatch    int
	SweepWorkers  int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost      string
	Port         string
	Timezone     string
	LogLevel     string
	FeeRatesFile string
	PresignTTL   time.Duration
	Database     DatabaseConfig
	MinIO        MinIOConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Notify       NotifyConfig
	Expiry       ExpiryConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:      getEnv("APP_HOST", "localhost:8080"),
		Port:         getEnv("PORT", "8080"), // default only for non-sensitive value
		Timezone:     getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		FeeRatesFile: getEnv("FEE_RATES_FILE", ""),
		PresignTTL:   getEnvDuration("DOCUMENT_LINK_TTL", 15*time.Minute),
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", ""),
			Port:             getEnv("DB_PORT", "5432"),
			User:             getEnv("DB_USER", ""),
			Password:         getEnv("DB_PASSWORD", ""),
			Name:             getEnv("DB_NAME", ""),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime:  getEnvDuration("DB_CONN_MAX_IDLE_TIME", time.Minute),
			ConnectTimeout:   getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			StatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 15*time.Second),
			LockTimeout:      getEnvDuration("DB_LOCK_TIMEOUT", 5*time.Second),
			PingTimeout:      getEnvDuration("DB_PING_TIMEOUT", 5*time.Second),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
			AdminRole: getEnv("AUTH_ADMIN_ROLE", "admin"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
			MaxRetries: getEnvInt("NOTIFY_MAX_RETRIES", 2),
		},
		Expiry: ExpiryConfig{
			DefaultDays:   getEnvInt("REGISTRATION_EXPIRE_DAYS", 30),
			SweepInterval: getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Hour),
			SweepBatch:    getEnvInt("EXPIRY_SWEEP_BATCH", 200),
			SweepWorkers:  getEnvInt("EXPIRY_SWEEP_WORKERS", 4),
		},
	}
}

// Location resolves Timezone; "today" for expiry purposes is a calendar day here.
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
