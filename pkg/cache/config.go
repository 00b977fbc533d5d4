package cache

import "time"

// Config is the redis section of the service configuration.
type Config struct {
	Enabled      bool          `yaml:"enabled" default:"false"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"6379" validate:"gte=0,lte=65535"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" default:"0" validate:"gte=0"`
	PoolSize     int           `yaml:"pool_size" default:"10" validate:"gte=1"`
	PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
	Prefix       string        `yaml:"prefix" default:"trendpull"`
	TTL          time.Duration `yaml:"ttl" default:"24h"`
}

// RedisOption configures Redis cache.
type RedisOption func(*Config)

// FromConfig copies every field of cfg.
func FromConfig(cfg Config) RedisOption {
	return func(c *Config) { *c = cfg }
}

// WithRedisHost sets Redis host.
func WithRedisHost(host string) RedisOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithRedisPort sets Redis port.
func WithRedisPort(port int) RedisOption {
	return func(c *Config) {
		c.Port = port
	}
}

// WithRedisPassword sets Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(c *Config) {
		c.Password = password
	}
}

// WithRedisDB sets Redis database number.
func WithRedisDB(db int) RedisOption {
	return func(c *Config) {
		c.DB = db
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *Config) {
		c.Prefix = prefix
	}
}

// MemoryOption configures Memory cache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory cache configuration.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

// WithMemoryMaxSize sets max cache size.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxSize = size
	}
}

// WithMemoryCleanup sets cleanup interval.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		c.CleanupInterval = interval
	}
}
