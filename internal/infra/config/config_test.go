package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "GRPC_HEALTH_ADDR", "STORAGE_DRIVER", "SQLITE_PATH", "MONGO_URI", "MONGO_DB",
		"KAFKA_BROKERS", "KAFKA_TOPIC_PREFIX", "KAFKA_CONSUMER_GROUP", "IDEMP_TTL", "OUTBOX_POLL_INTERVAL",
		"RETRY_BACKOFF", "JWT_SECRET", "JWT_TTL", "ADMIN_USERNAMES", "MEETING_BASE_URL", "CONFLICT_RETRIES", "FIXTURES_PATH",
		"SKILLSWAP_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "dev-secret", cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 3, cfg.ConflictRetries)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ADMIN_USERNAMES", "root,Ops")
	t.Setenv("OUTBOX_POLL_INTERVAL", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.True(t, cfg.IsAdmin("ops"))
	assert.False(t, cfg.IsAdmin("alice"))
	assert.False(t, cfg.IsDev())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"secret outside dev": {"APP_ENV": "prod"},
		"unknown driver":     {"STORAGE_DRIVER": "postgres"},
		"mongo without uri":  {"STORAGE_DRIVER": "mongo"},
		"bad duration":       {"JWT_TTL": "soon"},
		"bad backoff":        {"RETRY_BACKOFF": "1s,later"},
		"bad retries":        {"CONFLICT_RETRIES": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadYAMLFileIsOverriddenByEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "skillswap.yaml")
	body := []byte(`
http_addr: ":9090"
storage_driver: mongo
mongo_uri: mongodb://localhost:27017
kafka_brokers:
  - a:9092
  - b:9092
conflict_retries: 5
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("SKILLSWAP_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, DriverMongo, cfg.StorageDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.ConflictRetries)
}

func TestLoadRejectsNestedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "skillswap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kafka:\n  brokers: a\n"), 0o600))
	t.Setenv("SKILLSWAP_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}
