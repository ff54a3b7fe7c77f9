package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Sync       SyncConfig
	LocalStore LocalStoreConfig
	Terminal   TerminalConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// SyncConfig tunes the terminal's background sync loop.
type SyncConfig struct {
	Interval       time.Duration
	BaseBackoff    time.Duration
	MaxAttempts    int
	APIBaseURL     string
	RequestTimeout time.Duration
}

// LocalStoreConfig selects and locates the terminal's local store engine.
type LocalStoreConfig struct {
	// Engine is "sqlite" or "bolt"; empty means sqlite with bolt fallback.
	Engine string
	Path   string
}

// TerminalConfig carries the terminal agent's login, tenant selection
// and the loopback port its local UI API listens on.
type TerminalConfig struct {
	Email      string
	Password   string
	MerchantID string
	LocalPort  string
	Currency   string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "spidpos-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "spidpos")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "Europe/Rome")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("SYNC_INTERVAL_MS", 5000)
	viper.SetDefault("SYNC_BASE_BACKOFF_MS", 5000)
	viper.SetDefault("SYNC_MAX_ATTEMPTS", 5)
	viper.SetDefault("SYNC_API_BASE_URL", "http://localhost:8080")
	viper.SetDefault("SYNC_REQUEST_TIMEOUT_MS", 15000)
	viper.SetDefault("LOCAL_STORE_ENGINE", "")
	viper.SetDefault("LOCAL_STORE_PATH", "./data/spidpos-terminal")
	viper.SetDefault("TERMINAL_EMAIL", "demo@spidpos.dev")
	viper.SetDefault("TERMINAL_PASSWORD", "demo-password")
	viper.SetDefault("TERMINAL_MERCHANT_ID", "")
	viper.SetDefault("TERMINAL_LOCAL_PORT", "7070")
	viper.SetDefault("TERMINAL_CURRENCY", "EUR")

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Sync: SyncConfig{
			Interval:       time.Duration(viper.GetInt("SYNC_INTERVAL_MS")) * time.Millisecond,
			BaseBackoff:    time.Duration(viper.GetInt("SYNC_BASE_BACKOFF_MS")) * time.Millisecond,
			MaxAttempts:    viper.GetInt("SYNC_MAX_ATTEMPTS"),
			APIBaseURL:     viper.GetString("SYNC_API_BASE_URL"),
			RequestTimeout: time.Duration(viper.GetInt("SYNC_REQUEST_TIMEOUT_MS")) * time.Millisecond,
		},
		LocalStore: LocalStoreConfig{
			Engine: viper.GetString("LOCAL_STORE_ENGINE"),
			Path:   viper.GetString("LOCAL_STORE_PATH"),
		},
		Terminal: TerminalConfig{
			Email:      viper.GetString("TERMINAL_EMAIL"),
			Password:   viper.GetString("TERMINAL_PASSWORD"),
			MerchantID: viper.GetString("TERMINAL_MERCHANT_ID"),
			LocalPort:  viper.GetString("TERMINAL_LOCAL_PORT"),
			Currency:   viper.GetString("TERMINAL_CURRENCY"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
