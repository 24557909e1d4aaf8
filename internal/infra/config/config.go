package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config aggregates application configuration values. Environment variables
// win over the optional YAML file named by SKILLSWAP_CONFIG.
type Config struct {
	Env                string
	HTTPAddr           string
	GRPCHealthAddr     string
	StorageDriver      string
	SQLitePath         string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaConsumerGroup string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	JWTSecret          string
	JWTTTL             time.Duration
	AdminUsernames     []string
	MeetingBaseURL     string
	ConflictRetries    int
	FixturesPath       string
}

// Load reads .env (when present), the optional YAML file and the current
// environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	src := source{}
	if path := os.Getenv("SKILLSWAP_CONFIG"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}
	return src.load()
}

// source resolves a key from the environment first, then the YAML file.
type source struct {
	file map[string]string
}

func (s source) load() (Config, error) {
	cfg := Config{
		Env:                s.getEnv("APP_ENV", "dev"),
		HTTPAddr:           s.getEnv("HTTP_ADDR", ":8080"),
		GRPCHealthAddr:     s.getEnv("GRPC_HEALTH_ADDR", ""),
		StorageDriver:      strings.ToLower(s.getEnv("STORAGE_DRIVER", DriverMemory)),
		SQLitePath:         s.getEnv("SQLITE_PATH", "data/skillswap.db"),
		MongoURI:           s.getEnv("MONGO_URI", ""),
		MongoDB:            s.getEnv("MONGO_DB", "skillswap"),
		KafkaBrokers:       splitList(s.getEnv("KAFKA_BROKERS", "")),
		KafkaTopicPrefix:   s.getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaConsumerGroup: s.getEnv("KAFKA_CONSUMER_GROUP", "skillswap"),
		JWTSecret:          s.getEnv("JWT_SECRET", ""),
		AdminUsernames:     splitList(s.getEnv("ADMIN_USERNAMES", "")),
		MeetingBaseURL:     s.getEnv("MEETING_BASE_URL", "https://meet.skillswap.local"),
		FixturesPath:       s.getEnv("FIXTURES_PATH", ""),
	}

	var err error
	if cfg.IdempotencyTTL, err = s.parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = s.parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.JWTTTL, err = s.parseDurationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ConflictRetries, err = s.parseIntEnv("CONFLICT_RETRIES", 3); err != nil {
		return Config{}, err
	}

	retryStr := s.getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("JWT_SECRET is required outside dev")
		}
		cfg.JWTSecret = "dev-secret"
	}
	switch cfg.StorageDriver {
	case DriverMemory, DriverSQLite:
	case DriverMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.ConflictRetries < 1 {
		return Config{}, fmt.Errorf("CONFLICT_RETRIES must be at least 1")
	}
	return cfg, nil
}

// IsDev reports whether the service runs in a developer environment.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "local" || c.Env == "test"
}

// IsAdmin reports whether username is configured as an administrator.
func (c Config) IsAdmin(username string) bool {
	for _, name := range c.AdminUsernames {
		if strings.EqualFold(name, username) {
			return true
		}
	}
	return false
}

// readFile parses a flat YAML mapping whose keys are the environment variable
// names in any case. Sequences are joined with commas.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch val := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("parsing config file: key %s must be a scalar or list", k)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func (s source) getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return def
}

func (s source) parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := s.getEnv(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func (s source) parseIntEnv(key string, def int) (int, error) {
	raw := s.getEnv(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
