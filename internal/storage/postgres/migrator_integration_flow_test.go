package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireMigrationState(t *testing.T, store *Store, version int64, applied int, pending ...string) {
	t.Helper()

	state, err := store.MigrationStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, version, state.Version)
	require.Equal(t, applied, state.Applied)
	if len(pending) == 0 {
		require.Empty(t, state.Pending)
	} else {
		require.Equal(t, pending, state.Pending)
	}
}

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// откат к пустой схеме
	require.NoError(t, store.MigrateDown(ctx, 100))
	requireMigrationState(t, store, 0, 0, "0001_init", "0002_outbox")

	require.NoError(t, store.MigrateUp(ctx, 1))
	requireMigrationState(t, store, 1, 1, "0002_outbox")

	require.NoError(t, store.MigrateUp(ctx, 0))
	requireMigrationState(t, store, 2, 2)

	// повторный up ничего не меняет
	require.NoError(t, store.MigrateUp(ctx, 0))
	requireMigrationState(t, store, 2, 2)

	require.NoError(t, store.MigrateDown(ctx, 1))
	requireMigrationState(t, store, 1, 1, "0002_outbox")

	// steps=0 для down означает один шаг
	require.NoError(t, store.MigrateDown(ctx, 0))
	requireMigrationState(t, store, 0, 0, "0001_init", "0002_outbox")

	require.NoError(t, store.MigrateDown(ctx, 1), "down on empty schema is a no-op")

	require.NoError(t, store.EnsureSchema(ctx))
	requireMigrationState(t, store, 2, 2)
}

func TestMigrator_GuardsAndUnsupportedDirection(t *testing.T) {
	var nilStore *Store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.Error(t, nilStore.MigrateUp(ctx, 0))
	require.Error(t, nilStore.MigrateDown(ctx, 1))
	_, err := nilStore.MigrationStatus(ctx)
	require.Error(t, err)

	store := openRawPostgresStoreForIntegrationTest(t)
	require.ErrorContains(t, store.migrate(ctx, migrationDirection("invalid"), 0), "unsupported migration direction")
}
