package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"conversation-ai-core/pkg/constants"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	EnableCaching     bool  `yaml:"enable_caching"`
	TimeoutMS         int64 `yaml:"timeout_ms"`
	MaxConcurrent     int   `yaml:"max_concurrent"`
	CacheTTLSeconds   int   `yaml:"cache_ttl_seconds"`
	CacheSweepEvery   int   `yaml:"cache_sweep_every"`
	MaxCacheEntries   int   `yaml:"max_cache_entries"`
	ShutdownGraceMS   int64 `yaml:"shutdown_grace_ms"`
	MonitorIntervalMS int64 `yaml:"monitor_interval_ms"`

	MemoryBackend string `yaml:"memory_backend"`
	RedisURL      string `yaml:"redis_url"`

	EnableKafkaEvents bool     `yaml:"enable_kafka_events"`
	KafkaBrokers      []string `yaml:"kafka_brokers"`
	KafkaEventsTopic  string   `yaml:"kafka_events_topic"`
}

// Load builds the configuration from defaults, an optional config.yaml overlay,
// and environment variable overrides, in that order.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              "8080",
		LogLevel:          "info",
		EnableCaching:     true,
		TimeoutMS:         constants.DefaultTimeoutMS,
		MaxConcurrent:     constants.DefaultMaxConcurrent,
		CacheTTLSeconds:   constants.DefaultCacheTTLSeconds,
		CacheSweepEvery:   constants.DefaultCacheSweepEvery,
		MaxCacheEntries:   constants.DefaultMaxCacheEntries,
		ShutdownGraceMS:   constants.DefaultShutdownGraceMS,
		MonitorIntervalMS: constants.DefaultMonitorIntervalMS,
		MemoryBackend:     "inmemory",
		RedisURL:          "redis://localhost:6379",
		EnableKafkaEvents: false,
		KafkaBrokers:      []string{"localhost:9092"},
		KafkaEventsTopic:  "pipeline-events",
	}

	// Load from YAML if exists
	if data, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv(constants.EnvPort, cfg.Port)
	cfg.LogLevel = getEnv(constants.EnvLogLevel, cfg.LogLevel)
	cfg.EnableCaching = getEnvBool(constants.EnvEnableCaching, cfg.EnableCaching)
	cfg.TimeoutMS = getEnvInt64(constants.EnvTimeoutMS, cfg.TimeoutMS)
	cfg.MaxConcurrent = getEnvInt(constants.EnvMaxConcurrent, cfg.MaxConcurrent)
	cfg.CacheTTLSeconds = getEnvInt(constants.EnvCacheTTLSeconds, cfg.CacheTTLSeconds)
	cfg.CacheSweepEvery = getEnvInt(constants.EnvCacheSweepEvery, cfg.CacheSweepEvery)
	cfg.MaxCacheEntries = getEnvInt(constants.EnvMaxCacheEntries, cfg.MaxCacheEntries)
	cfg.ShutdownGraceMS = getEnvInt64(constants.EnvShutdownGraceMS, cfg.ShutdownGraceMS)
	cfg.MonitorIntervalMS = getEnvInt64(constants.EnvMonitorIntervalMS, cfg.MonitorIntervalMS)
	cfg.MemoryBackend = getEnv(constants.EnvMemoryBackend, cfg.MemoryBackend)
	cfg.RedisURL = getEnv(constants.EnvRedisURL, cfg.RedisURL)
	cfg.EnableKafkaEvents = getEnvBool(constants.EnvEnableKafkaEvents, cfg.EnableKafkaEvents)
	cfg.KafkaEventsTopic = getEnv(constants.EnvKafkaEventsTopic, cfg.KafkaEventsTopic)
	if v := os.Getenv(constants.EnvKafkaBrokers); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}

	return cfg, nil
}

func (c *Config) Timeout() time.Duration {
	return constants.MillisecondsToDuration(c.TimeoutMS)
}

func (c *Config) CacheTTL() time.Duration {
	return constants.SecondsToDuration(c.CacheTTLSeconds)
}

func (c *Config) ShutdownGrace() time.Duration {
	return constants.MillisecondsToDuration(c.ShutdownGraceMS)
}

func (c *Config) MonitorInterval() time.Duration {
	return constants.MillisecondsToDuration(c.MonitorIntervalMS)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
