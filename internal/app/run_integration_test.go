package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/commerce/internal/health"
	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
)

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.StorageDriver = StorageDriverMemory

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, cfg)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestRun_ServesHTTPAPI(t *testing.T) {
	httpPort := findFreePort(t)

	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", httpPort)
	cfg.MetricsAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- Run(ctx, cfg) }()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", httpPort)
	var resp *http.Response
	require.Eventually(t, func() bool {
		body := bytes.NewBufferString(`{"name":"Jane","email":"jane@example.com"}`)
		r, err := http.Post(baseURL+"/customers", "application/json", body)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "jane@example.com", created.Email)

	cancel()
	select {
	case err := <-runErr:
		require.True(t, errors.Is(err, context.Canceled), "unexpected run error: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestInitRuntimeDependencies_PostgresSuccess(t *testing.T) {
	dsn := postgresTestDSNCandidate()
	if dsn == "" {
		t.Skip("postgres dsn is not available")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn
	cfg.PostgresAutoMigrate = true

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "postgres-init"))
	if err != nil {
		t.Skipf("postgres is not available for app integration test: %v", err)
	}
	defer deps.close(log.WithField("test", "postgres-init"))

	require.NotNil(t, deps.customers)
	require.NotNil(t, deps.products)
	require.NotNil(t, deps.orders)
	require.NotNil(t, deps.outboxRepo)
	require.NotNil(t, deps.storageChecker)

	check := deps.storageChecker.Check(context.Background())
	require.Equal(t, healthcheck.StatusHealthy, check.Status, "storage check: %+v", check)
}

func TestShutdownHelpers(t *testing.T) {
	logger := log.WithField("test", "shutdown")

	cancelCalled := false
	done := make(chan struct{})
	close(done)
	shutdownOutboxWorker(func() { cancelCalled = true }, done, logger)
	require.True(t, cancelCalled, "expected outbox cancel func to be called")

	shutdownOutboxWorker(nil, nil, logger)

	closeKafkaProducer(nil, logger)
}

func TestCloseKafkaProducer_NonNil(t *testing.T) {
	syncProducer := mocks.NewSyncProducer(t, nil)
	closeKafkaProducer(kafka.NewProducerFromSync(syncProducer), log.WithField("test", "kafka-close"))
}

func postgresTestDSNCandidate() string {
	return strings.TrimSpace(os.Getenv("COMMERCE_POSTGRES_TEST_DSN"))
}
