package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Storage     StorageConfig     `yaml:"storage" envPrefix:"STORAGE_"`
	MySQL       MySQLConfig       `yaml:"mysql" envPrefix:"MYSQL_"`
	Redis       RedisConfig       `yaml:"redis" envPrefix:"REDIS_"`
	Cache       CacheConfig       `yaml:"cache" envPrefix:"CACHE_"`
	BloomFilter BloomFilterConfig `yaml:"bloom_filter" envPrefix:"BLOOM_"`
	Snowflake   SnowflakeConfig   `yaml:"snowflake" envPrefix:"SNOWFLAKE_"`
	Sweeper     SweeperConfig     `yaml:"sweeper" envPrefix:"SWEEPER_"`
	Resolver    ResolverConfig    `yaml:"resolver" envPrefix:"RESOLVER_"`
	Auth        AuthConfig        `yaml:"auth" envPrefix:"AUTH_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port int    `yaml:"port" env:"PORT"`
	Mode string `yaml:"mode" env:"MODE"`
	// BaseURL prefixes short codes in responses; defaults to http://localhost:<port>
	BaseURL         string        `yaml:"base_url" env:"BASE_URL"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects the durable link store: mysql, sqlite or memory
type StorageConfig struct {
	Driver     string `yaml:"driver" env:"DRIVER"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// MySQLConfig represents MySQL configuration
type MySQLConfig struct {
	Host         string `yaml:"host" env:"HOST"`
	Port         int    `yaml:"port" env:"PORT"`
	Username     string `yaml:"username" env:"USERNAME"`
	Password     string `yaml:"password" env:"PASSWORD"`
	Database     string `yaml:"database" env:"DATABASE"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host         string        `yaml:"host" env:"HOST"`
	Port         int           `yaml:"port" env:"PORT"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// CacheConfig selects the redirect cache: redis or local
type CacheConfig struct {
	Driver          string        `yaml:"driver" env:"DRIVER"`
	TTL             time.Duration `yaml:"ttl" env:"TTL"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
}

// BloomFilterConfig represents Bloom filter configuration. Only safe with a single writer instance.
type BloomFilterConfig struct {
	Enabled           bool    `yaml:"enabled" env:"ENABLED"`
	Capacity          uint    `yaml:"capacity" env:"CAPACITY"`
	FalsePositiveRate float64 `yaml:"false_positive_rate" env:"FALSE_POSITIVE_RATE"`
}

// SnowflakeConfig represents Snowflake ID generator configuration
type SnowflakeConfig struct {
	DatacenterID int64 `yaml:"datacenter_id" env:"DATACENTER_ID"`
	WorkerID     int64 `yaml:"worker_id" env:"WORKER_ID"`
}

// SweeperConfig controls the in-process expiry sweeper
type SweeperConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

type ResolverConfig struct {
	StoreTimeout time.Duration `yaml:"store_timeout" env:"STORE_TIMEOUT"`
}

// AuthConfig holds the HS256 key used to verify bearer tokens
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// RateLimitConfig configures the Redis-backed limiter on the public routes
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Strategy string        `yaml:"strategy" env:"STRATEGY"`
	Redirect EndpointLimit `yaml:"redirect" envPrefix:"REDIRECT_"`
	Shorten  EndpointLimit `yaml:"shorten" envPrefix:"SHORTEN_"`
}

type EndpointLimit struct {
	Limit  int           `yaml:"limit" env:"LIMIT"`
	Window time.Duration `yaml:"window" env:"WINDOW"`
}

// DSN returns MySQL data source name
func (m *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// Addr returns Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// NeedsRedis reports whether any enabled component talks to Redis
func (c *Config) NeedsRedis() bool {
	return c.Cache.Driver == "redis" || c.RateLimit.Enabled
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     "mysql",
			SQLitePath: "short_link.db",
		},
		MySQL: MySQLConfig{
			Host:         "localhost",
			Port:         3306,
			Username:     "root",
			Database:     "short_link",
			MaxIdleConns: 10,
			MaxOpenConns: 100,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Cache: CacheConfig{
			Driver:          "redis",
			TTL:             24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		BloomFilter: BloomFilterConfig{
			Capacity:          1_000_000,
			FalsePositiveRate: 0.001,
		},
		Sweeper: SweeperConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
		Resolver: ResolverConfig{
			StoreTimeout: 3 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Strategy: "sliding_window",
			Redirect: EndpointLimit{Limit: 100, Window: time.Minute},
			Shorten:  EndpointLimit{Limit: 10, Window: time.Minute},
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at
// configPath (skipped when it does not exist), then a .env file, then
// environment variables.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, errors.Wrap(err, "failed to parse config file")
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	// a missing .env is normal outside local development
	_ = godotenv.Load()

	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Driver {
	case "mysql", "sqlite", "memory":
	default:
		return errors.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Cache.Driver {
	case "redis", "local":
	default:
		return errors.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if c.BloomFilter.Enabled && (c.BloomFilter.FalsePositiveRate <= 0 || c.BloomFilter.FalsePositiveRate >= 1) {
		return errors.New("bloom_filter.false_positive_rate must be between 0 and 1")
	}
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		return errors.New("sweeper.interval must be positive")
	}
	if c.RateLimit.Enabled {
		for name, l := range map[string]EndpointLimit{"redirect": c.RateLimit.Redirect, "shorten": c.RateLimit.Shorten} {
			if l.Limit <= 0 || l.Window <= 0 {
				return errors.Errorf("rate_limit.%s needs a positive limit and window", name)
			}
		}
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}
