package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 15*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, c.Server.AllowedOrigins)
	assert.Equal(t, 1024, c.Derived.MaxFormulaLength)
	assert.Equal(t, 8, c.Derived.FetchConcurrency)
	assert.Equal(t, "clickhouse", c.Registry.Backend)
	assert.Equal(t, "channel-samples", c.Kafka.SamplesTopic)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, 200*time.Millisecond, c.Kafka.Producer.Linger)
	assert.False(t, c.Kafka.Enabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
server:
  port: 9090
derived:
  fetch_concurrency: 2
  fetch_timeout: 3s
registry:
  backend: redis
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 30*time.Second, c.Server.WriteTimeout)
	assert.Equal(t, 2, c.Derived.FetchConcurrency)
	assert.Equal(t, 3*time.Second, c.Derived.FetchTimeout)
	assert.Equal(t, "redis", c.Registry.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad registry":         func(c *Config) { c.Registry.Backend = "sqlite" },
		"bad log level":        func(c *Config) { c.Log.Level = "loud" },
		"zero concurrency":     func(c *Config) { c.Derived.FetchConcurrency = 0 },
		"kafka without broker": func(c *Config) { c.Kafka.Enabled = true },
		"consumer w/o kafka":   func(c *Config) { c.Kafka.Consumer.Enabled = true },
		"collector without url": func(c *Config) {
			c.Collector.Enabled = true
			c.Collector.Channels = []string{"a"}
		},
		"collector kafka backend without kafka": func(c *Config) {
			c.Collector.Enabled = true
			c.Collector.URL = "ws://feed"
			c.Collector.Channels = []string{"a"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Load("")
			require.NoError(t, err)
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	env := map[string]string{
		"LOG_LEVEL":          "debug",
		"HTTP_PORT":          "7000",
		"CLICKHOUSE_HOST":    "ch.internal",
		"CLICKHOUSE_PORT":    "not-a-port",
		"REGISTRY_BACKEND":   "memory",
		"REDIS_ADDR":         "redis:6379",
		"KAFKA_BROKERS":      "a:9092, b:9092",
		"COLLECTOR_CHANNELS": "temp-1,temp-2",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 7000, c.Server.Port)
	assert.Equal(t, "ch.internal", c.ClickHouse.Host)
	assert.Equal(t, 9000, c.ClickHouse.Port)
	assert.Equal(t, "memory", c.Registry.Backend)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"temp-1", "temp-2"}, c.Collector.Channels)
	require.NoError(t, c.Validate())
}
