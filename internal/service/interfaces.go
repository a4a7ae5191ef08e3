// Package service defines the contracts between the application's packages.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Slot names a persisted blob holding one top-level collection or singleton.
type Slot string

// The three slots making up a complete ledger snapshot.
const (
	SlotExpenses   Slot = "expenses"
	SlotCategories Slot = "categories"
	SlotProfile    Slot = "profile"
)

// AllSlots lists every slot in write order.
var AllSlots = []Slot{SlotExpenses, SlotCategories, SlotProfile}

// SlotStorage is the key-value persistence layer behind the expense store.
type SlotStorage interface {
	// ReadSlot returns the stored payload or an error wrapping storage.ErrSlotNotFound.
	ReadSlot(ctx context.Context, slot Slot) ([]byte, error)
	// WriteSlots stores every given payload as one unit.
	WriteSlots(ctx context.Context, payloads map[Slot][]byte) error
}

// ReceiptStorage keeps one receipt image per expense, independent of the slots.
type ReceiptStorage interface {
	SaveReceipt(ctx context.Context, expenseID string, image []byte, contentType string) error
	LoadReceipt(ctx context.Context, expenseID string) (*Receipt, error)
	DeleteReceipt(ctx context.Context, expenseID string) error
}

// Storage is the full persistence surface used by the command line front-end.
type Storage interface {
	SlotStorage
	ReceiptStorage
	Migrate(ctx context.Context) error
	Close() error
}

// Receipt is a stored receipt image.
type Receipt struct {
	CreatedAt   time.Time
	ExpenseID   string
	ContentType string
	Image       []byte
}

// RateFetcher retrieves exchange rates relative to a base currency.
type RateFetcher interface {
	FetchRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Publisher delivers a serialized event to a message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}
