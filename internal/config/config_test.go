package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates tests from the developer's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CYCLEDCA_SYMBOL", "CYCLEDCA_PROVIDERS", "HTTPS_PROXY", "DATA_DIR", "CACHE_BACKEND",
		"SQLITE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"HTTP_ADDR", "LOG_LEVEL", "LOG_PRETTY", "COINGECKO_API_KEY", "BYBIT_API_KEY",
		"BYBIT_API_SECRET", "CRON_DAILY",
	} {
		t.Setenv(k, "")
	}
	// godotenv reads .env from the working directory
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "BTC", cfg.Asset.Symbol)
	assert.Equal(t, []string{"yahoo", "coingecko", "bybit"}, cfg.Asset.Providers)
	assert.Equal(t, 2, cfg.Fetch.Retries)
	assert.Equal(t, time.Second, cfg.Fetch.RetryDelay)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, filepath.Join("data", "BTC", "complete.csv"), cfg.Data.BulkFile)
	assert.Equal(t, filepath.Join("data", "BTC"), cfg.YearDir())
	assert.Equal(t, time.Hour, cfg.Cache.RefreshInterval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
asset:
  symbol: btc
  providers: [coingecko, mock]
fetch:
  retries: 4
  retry_delay: 250ms
cache:
  backend: redis
  redis_addr: cache:6379
kafka:
  brokers: [k1:9092]
`), 0o644))
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "BTC", cfg.Asset.Symbol)
	assert.Equal(t, []string{"coingecko", "mock"}, cfg.Asset.Providers)
	assert.Equal(t, 4, cfg.Fetch.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.RetryDelay)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=debug\n"), 0o644))
	// t.Setenv registered an empty value; godotenv only fills unset keys
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	cfg, err := Load("missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("asset: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := func() *Config {
		cfg, err := Load("missing.yaml")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Asset.Providers = []string{"yahoo", "binance"}
	assert.ErrorContains(t, cfg.Validate(), "binance")

	cfg = base()
	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Cache.Backend = BackendNone
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Fetch.Retries = -1
	assert.Error(t, cfg.Validate())
}
