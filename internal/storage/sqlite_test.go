package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/service"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testPayloads() map[service.Slot][]byte {
	return map[service.Slot][]byte{
		service.SlotExpenses:   []byte(`[{"id":"e1","name":"Lunch","amount":"12.5"}]`),
		service.SlotCategories: []byte(`[{"id":"c1","name":"Others","emoji":"📦"}]`),
		service.SlotProfile:    []byte(`{"name":"User","currency":"USD"}`),
	}
}

func TestSQLiteStorage_WriteAndReadSlots(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.WriteSlots(ctx, testPayloads()))

	for slot, want := range testPayloads() {
		got, err := store.ReadSlot(ctx, slot)
		require.NoError(t, err, "slot %s", slot)
		assert.Equal(t, want, got, "slot %s", slot)
	}
}

func TestSQLiteStorage_WriteSlotsOverwrites(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.WriteSlots(ctx, testPayloads()))
	require.NoError(t, store.WriteSlots(ctx, map[service.Slot][]byte{
		service.SlotExpenses: []byte(`[]`),
	}))

	got, err := store.ReadSlot(ctx, service.SlotExpenses)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	// Slots left out of the batch are untouched.
	got, err = store.ReadSlot(ctx, service.SlotProfile)
	require.NoError(t, err)
	assert.Equal(t, testPayloads()[service.SlotProfile], got)
}

func TestSQLiteStorage_ReadSlotErrors(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.ReadSlot(ctx, service.SlotExpenses)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = store.ReadSlot(ctx, service.Slot("bogus"))
	assert.ErrorIs(t, err, ErrUnknownSlot)

	//nolint:staticcheck // nil context is the case under test
	_, err = store.ReadSlot(nil, service.SlotExpenses)
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestSQLiteStorage_WriteSlotsIsAtomic(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.WriteSlots(ctx, testPayloads()))

	// A batch holding an unknown slot is rejected before anything is written.
	err := store.WriteSlots(ctx, map[service.Slot][]byte{
		service.SlotExpenses: []byte(`[]`),
		service.Slot("bogus"): []byte(`{}`),
	})
	require.ErrorIs(t, err, ErrUnknownSlot)

	got, err := store.ReadSlot(ctx, service.SlotExpenses)
	require.NoError(t, err)
	assert.Equal(t, testPayloads()[service.SlotExpenses], got)
}

func TestSQLiteStorage_Receipts(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	png := []byte("\x89PNG\r\n\x1a\n0000")
	require.NoError(t, store.SaveReceipt(ctx, "exp-1", png, ""))

	receipt, err := store.LoadReceipt(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, png, receipt.Image)
	assert.Equal(t, "image/png", receipt.ContentType)
	assert.Equal(t, "exp-1", receipt.ExpenseID)

	// Saving again replaces the image.
	require.NoError(t, store.SaveReceipt(ctx, "exp-1", []byte("other"), "text/plain"))
	receipt, err = store.LoadReceipt(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("other"), receipt.Image)
	assert.Equal(t, "text/plain", receipt.ContentType)

	require.NoError(t, store.DeleteReceipt(ctx, "exp-1"))
	_, err = store.LoadReceipt(ctx, "exp-1")
	assert.ErrorIs(t, err, ErrReceiptNotFound)

	// Deleting a missing receipt is fine.
	assert.NoError(t, store.DeleteReceipt(ctx, "exp-1"))
}

func TestSQLiteStorage_ConcurrentAccess(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.WriteSlots(ctx, testPayloads()))

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf(`[{"id":"e%d"}]`, id))
			if err := store.WriteSlots(ctx, map[service.Slot][]byte{service.SlotExpenses: payload}); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := store.ReadSlot(ctx, service.SlotExpenses); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent access error: %v", err)
	}
}

func TestMemoryStorage(t *testing.T) {
	mem := NewMemoryStorage()
	ctx := context.Background()

	_, err := mem.ReadSlot(ctx, service.SlotProfile)
	require.ErrorIs(t, err, ErrSlotNotFound)

	require.NoError(t, mem.WriteSlots(ctx, testPayloads()))
	assert.Equal(t, 1, mem.Writes())

	got, err := mem.ReadSlot(ctx, service.SlotProfile)
	require.NoError(t, err)
	assert.Equal(t, testPayloads()[service.SlotProfile], got)

	// Returned payloads are copies.
	got[0] = 'X'
	again, err := mem.ReadSlot(ctx, service.SlotProfile)
	require.NoError(t, err)
	assert.Equal(t, testPayloads()[service.SlotProfile], again)

	mem.SetSlot(service.SlotExpenses, []byte("not json"))
	got, err = mem.ReadSlot(ctx, service.SlotExpenses)
	require.NoError(t, err)
	assert.Equal(t, []byte("not json"), got)
	assert.Equal(t, 1, mem.Writes(), "SetSlot does not count as a write")

	require.NoError(t, mem.SaveReceipt(ctx, "exp-1", []byte("img"), "image/jpeg"))
	receipt, err := mem.LoadReceipt(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", receipt.ContentType)
	require.NoError(t, mem.DeleteReceipt(ctx, "exp-1"))
	_, err = mem.LoadReceipt(ctx, "exp-1")
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}
