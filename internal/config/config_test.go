package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "app.db"))
}

func TestParseDefaults(t *testing.T) {
	setBase(t)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestParseRequiresSecret(t *testing.T) {
	setBase(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Parse()
	assert.Error(t, err)
}

func TestParseMySQLRequiresConnection(t *testing.T) {
	setBase(t)
	t.Setenv("DB_DRIVER", "MySQL")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required env var")

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "escape")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.DBDriver)
}

func TestParseRejectsUnknownDriverAndZone(t *testing.T) {
	setBase(t)
	t.Setenv("DB_DRIVER", "postgres")
	_, err := Parse()
	assert.Error(t, err)

	setBase(t)
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err = Parse()
	assert.Error(t, err)

	t.Setenv("APP_TIMEZONE", "Asia/Seoul")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", cfg.Location().String())
}

func TestLoadDotEnvKeepsProcessValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ESCAPE_TEST_A=fromfile\nESCAPE_TEST_B=fromfile\n"), 0o600))
	t.Setenv("ESCAPE_TEST_A", "fromprocess")
	t.Cleanup(func() { _ = os.Unsetenv("ESCAPE_TEST_B") })

	LoadDotEnv(path)
	assert.Equal(t, "fromprocess", os.Getenv("ESCAPE_TEST_A"))
	assert.Equal(t, "fromfile", os.Getenv("ESCAPE_TEST_B"))
}

func TestRateLimitConfigNormalized(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg, err := LoadRateLimitConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 50*time.Second, cfg.TTL)

	t.Setenv("RATE_LIMIT_TTL", "soon")
	_, err = LoadRateLimitConfig()
	assert.Error(t, err)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")

	cfg, err := LoadCacheConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Cacheable("GET"))
	assert.True(t, cfg.Cacheable("HEAD"))
	assert.False(t, cfg.Cacheable("POST"))
}

func TestRedisConfigHostPortOverride(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := LoadRedisConfig()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Addr)
}
