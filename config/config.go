// Package config provides configuration management for the application.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Books      BooksConfig      `mapstructure:"books"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MasterKey      string        `mapstructure:"master_key"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

// OpenRouterConfig holds upstream model provider configuration
type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// BooksConfig holds Google Books catalog configuration
type BooksConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RateLimitConfig holds per-client rate limiter configuration
type RateLimitConfig struct {
	MinDelay time.Duration `mapstructure:"min_delay"`
	Window   time.Duration `mapstructure:"window"`
	Ceiling  int           `mapstructure:"ceiling"`
}

// RedisConfig holds the optional shared rate-limit store configuration
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// Load .env file using Viper (optional, won't fail if not found)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if .env file doesn't exist

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("REQUEST_TIMEOUT", "30s")
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	viper.SetDefault("OPENROUTER_MODEL", "anthropic/claude-3-haiku")
	viper.SetDefault("RATE_LIMIT_MIN_DELAY", "3s")
	viper.SetDefault("RATE_LIMIT_WINDOW", "60s")
	viper.SetDefault("RATE_LIMIT_CEILING", 10)
	viper.SetDefault("LOG_LEVEL", "info")

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("PORT"),
			RequestTimeout: viper.GetDuration("REQUEST_TIMEOUT"),
			MasterKey:      viper.GetString("MASTER_KEY"),
			MetricsEnabled: viper.GetBool("METRICS_ENABLED"),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:  viper.GetString("OPENROUTER_API_KEY"),
			BaseURL: viper.GetString("OPENROUTER_BASE_URL"),
			Model:   viper.GetString("OPENROUTER_MODEL"),
		},
		Books: BooksConfig{
			APIKey: viper.GetString("GOOGLE_BOOKS_API_KEY"),
		},
		RateLimit: RateLimitConfig{
			MinDelay: viper.GetDuration("RATE_LIMIT_MIN_DELAY"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
			Ceiling:  viper.GetInt("RATE_LIMIT_CEILING"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("REDIS_URL"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
