package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the broker.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	PublicURL   string `mapstructure:"PUBLIC_URL"` // Base URL providers redirect back to
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	// RedisAddr switches the state and ticket stores to Redis when set,
	// which is required for multi-instance deployments. Empty means the
	// in-process ttlcache backends are used.
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`

	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Remote account service (the chat server whose accounts we provision).
	TavernBaseURL       string `mapstructure:"TAVERN_BASE_URL"`
	TavernAdminHandle   string `mapstructure:"TAVERN_ADMIN_HANDLE"`
	TavernAdminPassword string `mapstructure:"TAVERN_ADMIN_PASSWORD"`
	TavernTimeoutSec    int    `mapstructure:"TAVERN_TIMEOUT_SEC"`

	// OAuth provider credentials. A provider with an empty client ID is not
	// registered.
	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
}

// TavernTimeout returns the outbound HTTP timeout for remote service calls.
func (c *ServerConfig) TavernTimeout() time.Duration {
	if c.TavernTimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TavernTimeoutSec) * time.Second
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/tavern-register/")
	v.AddConfigPath("$HOME/.tavern-register")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// AutomaticEnv only resolves env vars for keys viper already knows about,
	// so every key must be bound explicitly or an env-only deployment would
	// silently lose the values that have no default (admin credentials, OAuth
	// client secrets).
	for _, key := range []string{
		"HTTP_PORT", "PUBLIC_URL",
		"MONGO_URI", "MONGO_DB_NAME",
		"REDIS_ADDR", "REDIS_PREFIX",
		"LOG_LEVEL", "LOG_PRETTY", "OTEL_SERVICE_NAME",
		"TAVERN_BASE_URL", "TAVERN_ADMIN_HANDLE", "TAVERN_ADMIN_PASSWORD", "TAVERN_TIMEOUT_SEC",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env key %s: %w", key, err)
		}
	}

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/tavern_register_dev")
	v.SetDefault("MONGO_DB_NAME", "tavern_register_dev")
	v.SetDefault("REDIS_PREFIX", "tavreg")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "tavern-register")
	v.SetDefault("TAVERN_BASE_URL", "http://localhost:8000")
	v.SetDefault("TAVERN_TIMEOUT_SEC", 15)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
