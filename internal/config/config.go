package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Provider names accepted in asset.providers.
var knownProviders = map[string]bool{"yahoo": true, "coingecko": true, "bybit": true, "mock": true}

// Config holds all application configuration.
type Config struct {
	Asset struct {
		Symbol    string   `yaml:"symbol"`
		Providers []string `yaml:"providers"`
		CoinID    string   `yaml:"coin_id"`
	} `yaml:"asset"`
	Fetch struct {
		Retries      int           `yaml:"retries"`
		RetryDelay   time.Duration `yaml:"retry_delay"`
		ChainRetries int           `yaml:"chain_retries"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"fetch"`
	CoinGecko struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"coingecko"`
	Bybit struct {
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"bybit"`
	Data struct {
		Dir       string `yaml:"dir"`
		BulkFile  string `yaml:"bulk_file"`
		StateFile string `yaml:"state_file"`
	} `yaml:"data"`
	Cache struct {
		Backend         string        `yaml:"backend"`
		SQLitePath      string        `yaml:"sqlite_path"`
		RedisAddr       string        `yaml:"redis_addr"`
		RedisPassword   string        `yaml:"redis_password"`
		RedisDB         int           `yaml:"redis_db"`
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		HourlyDays      int           `yaml:"hourly_days"`
		Minute15Days    int           `yaml:"minute15_days"`
	} `yaml:"cache"`
	Schedule struct {
		DailyCron   string `yaml:"daily_cron"`
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CYCLEDCA_SYMBOL"); v != "" {
		cfg.Asset.Symbol = v
	}
	if v := os.Getenv("CYCLEDCA_PROVIDERS"); v != "" {
		cfg.Asset.Providers = splitList(v)
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Cache.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Pretty = b
		}
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.CoinGecko.APIKey = v
	}
	if v := os.Getenv("BYBIT_API_KEY"); v != "" {
		cfg.Bybit.APIKey = v
	}
	if v := os.Getenv("BYBIT_API_SECRET"); v != "" {
		cfg.Bybit.APISecret = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Asset.Symbol == "" {
		cfg.Asset.Symbol = "BTC"
	}
	cfg.Asset.Symbol = strings.ToUpper(cfg.Asset.Symbol)
	if len(cfg.Asset.Providers) == 0 {
		cfg.Asset.Providers = []string{"yahoo", "coingecko", "bybit"}
	}
	if cfg.Asset.CoinID == "" {
		cfg.Asset.CoinID = "bitcoin"
	}
	if cfg.Fetch.Retries == 0 {
		cfg.Fetch.Retries = 2
	}
	if cfg.Fetch.RetryDelay == 0 {
		cfg.Fetch.RetryDelay = time.Second
	}
	if cfg.Fetch.ChainRetries == 0 {
		cfg.Fetch.ChainRetries = 1
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 15 * time.Second
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.BulkFile == "" {
		cfg.Data.BulkFile = filepath.Join(cfg.Data.Dir, cfg.Asset.Symbol, "complete.csv")
	}
	if cfg.Data.StateFile == "" {
		cfg.Data.StateFile = filepath.Join(cfg.Data.Dir, "update_state.json")
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendSQLite
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = filepath.Join(cfg.Data.Dir, "cycledca.db")
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Cache.RefreshInterval == 0 {
		cfg.Cache.RefreshInterval = time.Hour
	}
	if cfg.Cache.HourlyDays == 0 {
		cfg.Cache.HourlyDays = 365
	}
	if cfg.Cache.Minute15Days == 0 {
		cfg.Cache.Minute15Days = 90
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 5 0 * * *"
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */15 * * * *"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "cycledca.events"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Asset.Symbol == "" {
		return fmt.Errorf("asset.symbol is required")
	}
	for _, p := range c.Asset.Providers {
		if !knownProviders[p] {
			return fmt.Errorf("asset.providers: unknown provider %q", p)
		}
	}
	if c.Fetch.Retries < 0 || c.Fetch.ChainRetries < 0 {
		return fmt.Errorf("fetch retries must not be negative")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	switch c.Cache.Backend {
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	case BackendNone:
	default:
		return fmt.Errorf("cache.backend must be one of sqlite, redis, none: got %q", c.Cache.Backend)
	}
	if c.Cache.HourlyDays < 0 || c.Cache.Minute15Days < 0 {
		return fmt.Errorf("cache interpolation windows must not be negative")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return nil
}

// YearDir returns the per-year file directory of the configured asset.
func (c *Config) YearDir() string {
	return filepath.Join(c.Data.Dir, c.Asset.Symbol)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
