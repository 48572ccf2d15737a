package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9000
  mode: production
redis:
  host: cache.internal
  port: 6380
rate_limits:
  createHabit:
    requests: 5
    window: 30s
logging:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Mode)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr())
	assert.Equal(t, "debug", cfg.Logging.Level)

	// viper lower-cases map keys
	limit, ok := cfg.RateLimits["createhabit"]
	require.True(t, ok)
	assert.Equal(t, int64(5), limit.Requests)
	assert.Equal(t, 30*time.Second, limit.Window)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "habits:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "5 0 * * *", cfg.Scheduler.StreakRefreshSpec)
	assert.Equal(t, time.UTC, cfg.App.Location())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_PORT", "7000")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 7000, cfg.Redis.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC", d.DSN())
}
