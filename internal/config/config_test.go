package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 25, cfg.Outbox.BatchSize)
	assert.Equal(t, time.Minute, cfg.DLQ.BaseDelay)
	assert.Equal(t, []string{"footprint_activity_events"}, cfg.Consumer.Topics)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9000"
  rate_limit: 10
storage:
  driver: postgres
  postgres_url: postgres://file
kafka:
  brokers: [a:9092, b:9092]
logging:
  level: debug
`), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("POSTGRES_URL", "postgres://env")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, 10, cfg.HTTP.RateLimit)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://env", cfg.Storage.PostgresURL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadValidation(t *testing.T) {
	isolate(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	_, err := Load()
	require.ErrorContains(t, err, "PostgresURL")

	t.Setenv("STORAGE_DRIVER", "cassandra")
	_, err = Load()
	require.ErrorContains(t, err, "Driver")
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "kafka.brokers", envTransformFunc("KAFKA_BROKERS"))
	assert.Equal(t, "storage.postgres_url", envTransformFunc("DATABASE_URL"))
	assert.Empty(t, envTransformFunc("HOME"))
}
