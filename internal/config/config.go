package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Provider    ProviderConfig
	Storage     StorageConfig
	Retry       RetryConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	EnableMetrics bool
}

// ProviderConfig points at the hosted Supabase Auth (GoTrue) instance.
type ProviderConfig struct {
	URL             string
	AnonKey         string
	RedirectURL     string
	RefreshInterval time.Duration
	RefreshMargin   time.Duration
	HTTPTimeout     time.Duration
}

type StorageConfig struct {
	Driver     string
	BoltPath   string
	BoltBucket string
	Redis      RedisConfig
	CacheKey   string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Prefix   string
}

// RetryConfig holds the attempt limits of the remote auth operations.
type RetryConfig struct {
	AuthAttempts    int
	AuthDelay       time.Duration
	AuthTimeout     time.Duration
	SignOutAttempts int
	SignOutDelay    time.Duration
	SignOutTimeout  time.Duration
	SkipRejected    bool
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MonitorInterval time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "acreage-auth"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "127.0.0.1"),
			Port:          getString("SERVER_PORT", "8787"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 70*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", false),
		},
		Provider: ProviderConfig{
			URL:             strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
			AnonKey:         os.Getenv("SUPABASE_ANON_KEY"),
			RedirectURL:     os.Getenv("AUTH_REDIRECT_URL"),
			RefreshInterval: getDuration("AUTH_REFRESH_INTERVAL", 30*time.Second),
			RefreshMargin:   getDuration("AUTH_REFRESH_MARGIN", 90*time.Second),
			HTTPTimeout:     getDuration("AUTH_HTTP_TIMEOUT", 20*time.Second),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getString("STORAGE_DRIVER", StorageBolt)),
			BoltPath:   getString("BOLTDB_PATH", "./data/session.db"),
			BoltBucket: getString("BOLTDB_BUCKET", "local_storage"),
			Redis: RedisConfig{
				URL:      getString("REDIS_URL", "redis://localhost:6379"),
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       getInt("REDIS_DB", 0),
				Prefix:   getString("REDIS_PREFIX", "acreage:"),
			},
			CacheKey: getString("SESSION_CACHE_KEY", "acreage.auth.session"),
		},
		Retry: RetryConfig{
			AuthAttempts:    getInt("AUTH_RETRY_ATTEMPTS", 3),
			AuthDelay:       getDuration("AUTH_RETRY_DELAY", 2*time.Second),
			AuthTimeout:     getDuration("AUTH_RETRY_TIMEOUT", 15*time.Second),
			SignOutAttempts: getInt("SIGNOUT_RETRY_ATTEMPTS", 2),
			SignOutDelay:    getDuration("SIGNOUT_RETRY_DELAY", time.Second),
			SignOutTimeout:  getDuration("SIGNOUT_RETRY_TIMEOUT", 8*time.Second),
			SkipRejected:    getBool("AUTH_RETRY_SKIP_REJECTED", false),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 60*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
			MonitorInterval: getDuration("MONITOR_INTERVAL", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var errs error
	if c.Provider.URL == "" {
		errs = errors.Join(errs, errors.New("SUPABASE_URL is required"))
	}
	if c.Provider.AnonKey == "" {
		errs = errors.Join(errs, errors.New("SUPABASE_ANON_KEY is required"))
	}
	switch c.Storage.Driver {
	case StorageBolt, StorageRedis, StorageMemory:
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Storage.CacheKey == "" {
		errs = errors.Join(errs, errors.New("SESSION_CACHE_KEY must not be empty"))
	}
	return errs
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the listen address of the local consumer API.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
