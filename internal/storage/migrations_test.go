package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesSchema(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	for _, table := range []string{"slots", "receipts", "backup_metadata"} {
		var count int
		err := store.db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store1, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Migrate(ctx))
	require.NoError(t, store1.WriteSlots(ctx, testPayloads()))
	require.NoError(t, store1.Close())

	store2, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store2.Close() }()

	require.NoError(t, store2.Migrate(ctx))

	version, err := store2.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Data written before the second migration run survives it.
	payload, err := store2.ReadSlot(ctx, "expenses")
	require.NoError(t, err)
	assert.Equal(t, testPayloads()["expenses"], payload)
}

func TestMigrate_NilContext(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	//nolint:staticcheck // nil context is the case under test
	err := store.Migrate(nil)
	assert.ErrorIs(t, err, ErrNilContext)
}
