package clickhouse

import "time"

// Config is the clickhouse section of the service configuration.
type Config struct {
	Enabled         bool          `yaml:"enabled" default:"false"`
	Host            string        `yaml:"host" default:"localhost" validate:"required_if=Enabled true"`
	Port            int           `yaml:"port" default:"9000" validate:"gte=0,lte=65535"`
	Database        string        `yaml:"database" default:"trendpull"`
	User            string        `yaml:"user" default:"default"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"10" validate:"gte=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" default:"5" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"5m"`
	DialTimeout     time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	UseHTTP         bool          `yaml:"use_http"`
	AsyncInsert     bool          `yaml:"async_insert"`
	WaitForAsync    bool          `yaml:"wait_for_async"`
	MaxExecTime     time.Duration `yaml:"max_exec_time" default:"60s"`
}

// ClientOption configures Client.
type ClientOption func(*Config)

// FromConfig copies every field of cfg.
func FromConfig(cfg Config) ClientOption {
	return func(c *Config) { *c = cfg }
}

// WithHost sets database host.
func WithHost(host string) ClientOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPort sets database port.
func WithPort(port int) ClientOption {
	return func(c *Config) {
		c.Port = port
	}
}

// WithDatabase sets database name.
func WithDatabase(database string) ClientOption {
	return func(c *Config) {
		c.Database = database
	}
}

// WithCredentials sets username and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

// WithMaxConnections sets max open and idle connections.
func WithMaxConnections(maxOpen, maxIdle int) ClientOption {
	return func(c *Config) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
	}
}

// WithTimeouts sets dial and read timeouts.
func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *Config) {
		c.DialTimeout = dial
		c.ReadTimeout = read
	}
}

// WithAsyncInsert configures async_insert and wait behavior.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *Config) {
		c.AsyncInsert = enabled
		c.WaitForAsync = wait
	}
}
