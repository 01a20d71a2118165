package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SigDerive/pkg/util"
)

type Config struct {
	Environment string          `yaml:"environment" default:"development" validate:"required"`
	Service     ServiceConfig   `yaml:"service"`
	Log         LogConfig       `yaml:"log"`
	Server      ServerConfig    `yaml:"server"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Derived     DerivedConfig   `yaml:"derived"`
	Registry    RegistryConfig  `yaml:"registry"`
	Redis       RedisConfig     `yaml:"redis"`
	ClickHouse  ClickHouse      `yaml:"clickhouse"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	Collector   CollectorConfig `yaml:"collector"`
}

type ServiceConfig struct {
	Name    string `yaml:"name" default:"derived-signal-service"`
	Version string `yaml:"version" default:"1.0.0"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" default:"[\"*\"]"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"20" validate:"gt=0"`
	Burst   int     `yaml:"burst" default:"40" validate:"gt=0"`
}

// DerivedConfig bounds a single evaluation request.
type DerivedConfig struct {
	MaxFormulaLength int           `yaml:"max_formula_length" default:"1024" validate:"gt=0"`
	FetchConcurrency int           `yaml:"fetch_concurrency" default:"8" validate:"gt=0"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" default:"10s" validate:"gt=0"`
}

type RegistryConfig struct {
	Backend string `yaml:"backend" default:"clickhouse" validate:"oneof=clickhouse redis memory"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" default:"localhost:6379"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" default:"0"`
	KeyPrefix string `yaml:"key_prefix" default:"sigderive:signal:"`
}

type ClickHouse struct {
	Host             string        `yaml:"host" default:"localhost" validate:"required"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"signals" validate:"required"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	InitSchema       bool          `yaml:"init_schema" default:"true"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	SamplesTopic string   `yaml:"samples_topic" default:"channel-samples"`
	EventsTopic  string   `yaml:"events_topic" default:"derived-signal-events"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		Linger       time.Duration `yaml:"linger" default:"200ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id" default:"sigderive-ingest"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

// CollectorConfig drives the websocket sample feed.
type CollectorConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Backend        string        `yaml:"backend" default:"kafka" validate:"oneof=kafka clickhouse"`
	URL            string        `yaml:"url"`
	Channels       []string      `yaml:"channels"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	BatchSize      int           `yaml:"batch_size" default:"500" validate:"gt=0"`
	BatchTimeout   time.Duration `yaml:"batch_timeout" default:"1s" validate:"gt=0"`
}

// Load applies defaults, then the YAML file at path (if non-empty), then validates.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment variables.
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
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PORT"); v != "" {
		c.ClickHouse.Port = util.ParseIntDefault(v, c.ClickHouse.Port)
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REGISTRY_BACKEND"); v != "" {
		c.Registry.Backend = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}
	if v := getenv("COLLECTOR_URL"); v != "" {
		c.Collector.URL = v
	}
	if v := getenv("COLLECTOR_CHANNELS"); v != "" {
		c.Collector.Channels = util.SplitCSV(v)
	}
}

var validate = validator.New()

// Validate checks field constraints and cross-section requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.consumer.enabled requires kafka.enabled")
	}
	if c.Collector.Enabled {
		if c.Collector.URL == "" {
			return fmt.Errorf("collector.url is required when the collector is enabled")
		}
		if len(c.Collector.Channels) == 0 {
			return fmt.Errorf("collector.channels cannot be empty")
		}
		if c.Collector.Backend == "kafka" && !c.Kafka.Enabled {
			return fmt.Errorf("collector.backend 'kafka' requires kafka.enabled")
		}
	}
	return nil
}
