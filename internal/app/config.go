package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	// StorageDriverMemory хранит данные в памяти процесса (локальный запуск, тесты).
	StorageDriverMemory = "memory"
	// StorageDriverPostgres хранит данные в PostgreSQL.
	StorageDriverPostgres = "postgres"
)

const envPrefix = "COMMERCE_"

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	PostgresMaxConns    int

	KafkaBrokers string
	KafkaTopic   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPending — порог backlog, выше которого health check переходит в degraded.
	OutboxMaxPending int
	// OutboxRetention — сколько хранить отправленные и failed сообщения до очистки.
	OutboxRetention       time.Duration
	OutboxCleanupInterval time.Duration

	LogLevel string
}

// DefaultConfig возвращает базовые адреса и параметры по умолчанию.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:              ":50051",
		HTTPAddr:              ":8080",
		MetricsAddr:           ":9090",
		StorageDriver:         StorageDriverMemory,
		PostgresAutoMigrate:   true,
		PostgresMaxConns:      25,
		OutboxPollInterval:    time.Second,
		OutboxBatchSize:       100,
		OutboxMaxAttempts:     3,
		OutboxRetryDelay:      50 * time.Millisecond,
		OutboxMaxPending:      1000,
		OutboxRetention:       24 * time.Hour,
		OutboxCleanupInterval: 10 * time.Minute,
		LogLevel:              "info",
	}
}

// LoadConfig читает .env (если есть) и переменные окружения COMMERCE_* поверх DefaultConfig.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return loadConfigFromEnv(os.LookupEnv)
}

func loadConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	env := envReader{lookup: lookup}

	env.str("GRPC_ADDR", &cfg.GRPCAddr)
	env.str("HTTP_ADDR", &cfg.HTTPAddr)
	env.str("METRICS_ADDR", &cfg.MetricsAddr)
	env.str("STORAGE_DRIVER", &cfg.StorageDriver)
	env.str("POSTGRES_DSN", &cfg.PostgresDSN)
	env.boolean("POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)
	env.integer("POSTGRES_MAX_CONNS", &cfg.PostgresMaxConns)
	env.str("KAFKA_BROKERS", &cfg.KafkaBrokers)
	env.str("KAFKA_TOPIC", &cfg.KafkaTopic)
	env.duration("OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)
	env.integer("OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	env.integer("OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts)
	env.duration("OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)
	env.integer("OUTBOX_MAX_PENDING", &cfg.OutboxMaxPending)
	env.duration("OUTBOX_RETENTION", &cfg.OutboxRetention)
	env.duration("OUTBOX_CLEANUP_INTERVAL", &cfg.OutboxCleanupInterval)
	env.str("LOG_LEVEL", &cfg.LogLevel)

	if env.err != nil {
		return Config{}, env.err
	}
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%sPOSTGRES_DSN is required for storage driver %q", envPrefix, StorageDriverPostgres)
		}
		if c.PostgresMaxConns <= 0 {
			return fmt.Errorf("%sPOSTGRES_MAX_CONNS must be > 0", envPrefix)
		}
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.StorageDriver)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("%sOUTBOX_BATCH_SIZE must be > 0", envPrefix)
	}
	if c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("%sOUTBOX_MAX_ATTEMPTS must be > 0", envPrefix)
	}
	if c.OutboxRetention < 0 {
		return fmt.Errorf("%sOUTBOX_RETENTION must be >= 0", envPrefix)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err)
	}
	return nil
}

// envReader запоминает первую ошибку разбора, чтобы не проверять каждую переменную отдельно.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) value(key string) (string, bool) {
	v, ok := r.lookup(envPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.value(key); ok {
		*dst = v
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.value(key)
	if !ok || r.err != nil {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("%s%s: %w", envPrefix, key, err)
		return
	}
	*dst = parsed
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.value(key)
	if !ok || r.err != nil {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("%s%s: %w", envPrefix, key, err)
		return
	}
	*dst = parsed
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.value(key)
	if !ok || r.err != nil {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		r.err = fmt.Errorf("%s%s: %w", envPrefix, key, err)
		return
	}
	*dst = parsed
}
