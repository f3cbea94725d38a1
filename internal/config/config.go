// Package config loads service configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the variable pointing at a YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "/etc/footprint/config.yaml"}

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Storage  StorageConfig  `koanf:"storage"`
	Kafka    KafkaConfig    `koanf:"kafka"`
	Outbox   OutboxConfig   `koanf:"outbox"`
	DLQ      DLQConfig      `koanf:"dlq"`
	Consumer ConsumerConfig `koanf:"consumer"`
	Auth     AuthConfig     `koanf:"auth"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type HTTPConfig struct {
	Address      string        `koanf:"address" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	CORSOrigins  []string      `koanf:"cors_origins"`
	// RateLimit is requests per minute per client IP. Zero disables limiting.
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
}

type StorageConfig struct {
	Driver      string `koanf:"driver" validate:"oneof=memory postgres"`
	PostgresURL string `koanf:"postgres_url" validate:"required_if=Driver postgres"`
}

type KafkaConfig struct {
	Brokers           []string `koanf:"brokers"`
	SchemaRegistryURL string   `koanf:"schema_registry_url" validate:"omitempty,url"`
}

type OutboxConfig struct {
	PollInterval     time.Duration `koanf:"poll_interval" validate:"gt=0"`
	BatchSize        int           `koanf:"batch_size" validate:"gt=0"`
	BreakerThreshold uint32        `koanf:"breaker_threshold" validate:"gt=0"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

type DLQConfig struct {
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`
	MaxRetries   int           `koanf:"max_retries" validate:"gt=0"`
	BaseDelay    time.Duration `koanf:"base_delay" validate:"gt=0"`
	BatchSize    int           `koanf:"batch_size" validate:"gt=0"`
}

type ConsumerConfig struct {
	GroupID string   `koanf:"group_id" validate:"required"`
	Topics  []string `koanf:"topics" validate:"min=1"`
}

type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret"`
	JWTIssuer   string `koanf:"jwt_issuer"`
	JWTAudience string `koanf:"jwt_audience"`
}

type MetricsConfig struct {
	Address string `koanf:"address"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigins:  []string{"*"},
			RateLimit:    300,
		},
		Storage: StorageConfig{Driver: StorageMemory},
		Kafka: KafkaConfig{
			Brokers:           []string{"localhost:9092"},
			SchemaRegistryURL: "http://localhost:8081",
		},
		Outbox: OutboxConfig{
			PollInterval:     2 * time.Second,
			BatchSize:        25,
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		DLQ: DLQConfig{
			PollInterval: 30 * time.Second,
			MaxRetries:   5,
			BaseDelay:    time.Minute,
			BatchSize:    50,
		},
		Consumer: ConsumerConfig{
			GroupID: "footprint-consumer",
			Topics:  []string{"footprint_activity_events"},
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret",
			JWTIssuer: "footprint",
		},
		Metrics: MetricsConfig{Address: ":9100"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from all layers and validates it.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	return validate.Struct(c)
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"http.cors_origins",
	"kafka.brokers",
	"consumer.topics",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables to config keys. Variables not listed are ignored.
var envMappings = map[string]string{
	"http_address":             "http.address",
	"http_read_timeout":        "http.read_timeout",
	"http_write_timeout":       "http.write_timeout",
	"http_idle_timeout":        "http.idle_timeout",
	"cors_origins":             "http.cors_origins",
	"rate_limit":               "http.rate_limit",
	"storage_driver":           "storage.driver",
	"postgres_url":             "storage.postgres_url",
	"database_url":             "storage.postgres_url",
	"kafka_brokers":            "kafka.brokers",
	"schema_registry_url":      "kafka.schema_registry_url",
	"outbox_poll_interval":     "outbox.poll_interval",
	"outbox_batch_size":        "outbox.batch_size",
	"outbox_breaker_threshold": "outbox.breaker_threshold",
	"outbox_breaker_timeout":   "outbox.breaker_timeout",
	"dlq_poll_interval":        "dlq.poll_interval",
	"dlq_max_retries":          "dlq.max_retries",
	"dlq_base_delay":           "dlq.base_delay",
	"dlq_batch_size":           "dlq.batch_size",
	"consumer_group_id":        "consumer.group_id",
	"consumer_topics":          "consumer.topics",
	"jwt_secret":               "auth.jwt_secret",
	"jwt_issuer":               "auth.jwt_issuer",
	"jwt_audience":             "auth.jwt_audience",
	"metrics_address":          "metrics.address",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
	"log_caller":               "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
