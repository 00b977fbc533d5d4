package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"TrendPull/internal/domain/models"
	"TrendPull/pkg/cache"
	"TrendPull/pkg/clickhouse"
	"TrendPull/pkg/logger"
	"TrendPull/pkg/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRENDPULL_"

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"2m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
	} `yaml:"metrics"`
	Run struct {
		Timeout      time.Duration `yaml:"timeout" default:"2m"`
		DefaultLimit int           `yaml:"default_limit" default:"5000" validate:"gte=1"`
	} `yaml:"run"`
	Strategy   models.Params     `yaml:"strategy"`
	ClickHouse clickhouse.Config `yaml:"clickhouse"`
	Kafka      struct {
		Enabled      bool     `yaml:"enabled" default:"false"`
		Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
		SignalTopic  string   `yaml:"signal_topic" default:"trendpull.signals"`
		RunTopic     string   `yaml:"run_topic" default:"trendpull.runs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"500"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"trendpull-runs"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3" validate:"gte=0"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"trendpull.runs.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis    cache.Config `yaml:"redis"`
	Queue    struct {
		Enabled     bool          `yaml:"enabled" default:"false"`
		Workers     int           `yaml:"workers" default:"2" validate:"gte=1"`
		RetryLimit  int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
		RetryDelay  time.Duration `yaml:"retry_delay" default:"10s"`
		PollTimeout time.Duration `yaml:"poll_timeout" default:"1s"`
		KeyPrefix   string        `yaml:"key_prefix" default:"trendpull:queue"`
	} `yaml:"queue"`
	Backtest struct {
		Enabled  bool          `yaml:"enabled" default:"false"`
		URL      string        `yaml:"url" validate:"required_if=Enabled true"`
		Path     string        `yaml:"path" default:"/backtest"`
		Token    string        `yaml:"token"`
		Timeout  time.Duration `yaml:"timeout" default:"5m"`
		Attempts int           `yaml:"attempts" default:"3" validate:"gte=1"`
		Leverage float64       `yaml:"leverage" default:"1" validate:"gt=0"`
	} `yaml:"backtest"`
}

var configValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and applies TRENDPULL_* overrides.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	env := func(key string) string { return strings.TrimSpace(getenv(EnvPrefix + key)) }

	if v := env("ENV"); v != "" {
		c.Environment = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := env("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := env("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = util.SplitList(v)
	}
	if v := env("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Enabled = true
		c.ClickHouse.Host = v
	}
	if v := env("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := env("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := env("REDIS_HOST"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Host = v
	}
	if v := env("BACKTEST_URL"); v != "" {
		c.Backtest.Enabled = true
		c.Backtest.URL = v
	}
	if v := env("BACKTEST_TOKEN"); v != "" {
		c.Backtest.Token = v
	}
}

// Validate checks the whole tree. Strategy problems come back as *models.ConfigurationError
// with the field path prefixed by "strategy.".
func (c *Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		var ce *models.ConfigurationError
		if errors.As(err, &ce) {
			return &models.ConfigurationError{Field: "strategy." + ce.Field, Reason: ce.Reason, Err: ce.Err}
		}
		return err
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return &models.ConfigurationError{Field: "queue.enabled", Reason: "the run queue needs redis.enabled"}
	}
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		return &models.ConfigurationError{
			Field:  ns,
			Reason: fmt.Sprintf("failed %q (value %v)", fe.Tag(), fe.Value()),
			Err:    err,
		}
	}
	return err
}
