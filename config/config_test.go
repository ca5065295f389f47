package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanVenturas/Tavern-Register/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8080", cfg.PublicURL)
	assert.Equal(t, "tavern_register_dev", cfg.MongoDBName)
	assert.Equal(t, "tavreg", cfg.RedisPrefix)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.TavernTimeout())
	assert.Empty(t, cfg.RedisAddr, "memory stores by default")
}

// Keys without defaults must still load from the environment alone.
func TestLoadConfigEnvOnlyKeys(t *testing.T) {
	t.Setenv("TAVERN_ADMIN_HANDLE", "admin")
	t.Setenv("TAVERN_ADMIN_PASSWORD", "hunter2")
	t.Setenv("GITHUB_CLIENT_ID", "gh-id")
	t.Setenv("GITHUB_CLIENT_SECRET", "gh-secret")
	t.Setenv("GOOGLE_CLIENT_ID", "goog-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "goog-secret")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.TavernAdminHandle)
	assert.Equal(t, "hunter2", cfg.TavernAdminPassword)
	assert.Equal(t, "gh-id", cfg.GitHubClientID)
	assert.Equal(t, "gh-secret", cfg.GitHubClientSecret)
	assert.Equal(t, "goog-id", cfg.GoogleClientID)
	assert.Equal(t, "goog-secret", cfg.GoogleClientSecret)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadConfigEnvOverridesDefault(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TAVERN_TIMEOUT_SEC", "30")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.TavernTimeout())
}
