package storage

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Veraticus/purse/internal/service"
)

// MemoryStorage keeps slots and receipts in process memory. Used by tests and
// ephemeral runs where nothing should touch disk.
type MemoryStorage struct {
	slots    map[service.Slot][]byte
	receipts map[string]service.Receipt
	writes   int
	mu       sync.RWMutex
}

var _ service.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		slots:    make(map[service.Slot][]byte),
		receipts: make(map[string]service.Receipt),
	}
}

// ReadSlot returns a copy of the payload stored under slot.
func (m *MemoryStorage) ReadSlot(ctx context.Context, slot service.Slot) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSlot(slot); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return append([]byte(nil), payload...), nil
}

// WriteSlots stores copies of every payload.
func (m *MemoryStorage) WriteSlots(ctx context.Context, payloads map[service.Slot][]byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePayloads(payloads); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for slot, payload := range payloads {
		m.slots[slot] = append([]byte(nil), payload...)
	}
	m.writes++
	return nil
}

// Writes reports how many WriteSlots calls succeeded.
func (m *MemoryStorage) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// SetSlot overwrites a raw slot payload, bypassing validation of its contents.
func (m *MemoryStorage) SetSlot(slot service.Slot, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), payload...)
}

// SaveReceipt stores or replaces the receipt image for an expense.
func (m *MemoryStorage) SaveReceipt(ctx context.Context, expenseID string, image []byte, contentType string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReceipt(expenseID, image); err != nil {
		return err
	}
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.receipts[expenseID] = service.Receipt{
		ExpenseID:   expenseID,
		Image:       append([]byte(nil), image...),
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}
	return nil
}

// LoadReceipt returns the receipt for an expense, or ErrReceiptNotFound.
func (m *MemoryStorage) LoadReceipt(ctx context.Context, expenseID string) (*service.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(expenseID, "expenseID"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.receipts[expenseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, expenseID)
	}
	r.Image = append([]byte(nil), r.Image...)
	return &r, nil
}

// DeleteReceipt removes the receipt for an expense.
func (m *MemoryStorage) DeleteReceipt(ctx context.Context, expenseID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(expenseID, "expenseID"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.receipts, expenseID)
	return nil
}

// Migrate is a no-op for memory storage.
func (m *MemoryStorage) Migrate(ctx context.Context) error {
	return validateContext(ctx)
}

// Close is a no-op for memory storage.
func (m *MemoryStorage) Close() error {
	return nil
}
