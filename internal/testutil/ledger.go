// Package testutil provides fixtures for building ledgers in tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/storage"
	"github.com/Veraticus/purse/internal/store"
)

// TestLedger bundles a store with the storage behind it.
type TestLedger struct {
	Storage *storage.MemoryStorage
	Store   *store.Store
	t       *testing.T
}

// SetupLedger creates an empty ledger over in-memory storage, loaded so that it
// holds the default categories and profile.
func SetupLedger(t *testing.T, opts ...store.Option) *TestLedger {
	t.Helper()

	mem := storage.NewMemoryStorage()
	s := store.New(mem, opts...)
	s.Load(context.Background())

	return &TestLedger{Storage: mem, Store: s, t: t}
}

// SetupSQLiteLedger creates a ledger over a migrated in-memory SQLite database.
func SetupSQLiteLedger(t *testing.T) (*store.Store, *storage.SQLiteStorage) {
	t.Helper()

	db, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	s := store.New(db)
	s.Load(context.Background())
	return s, db
}

// MustCategory returns the category with the given name or fails the test.
func (l *TestLedger) MustCategory(name string) model.Category {
	l.t.Helper()
	c, ok := l.Store.CategoryByName(name)
	if !ok {
		l.t.Fatalf("category %q not found", name)
	}
	return c
}

// AddExpense records an expense in the named category and returns it.
func (l *TestLedger) AddExpense(name, amount, category string, date time.Time) model.Expense {
	l.t.Helper()
	e := model.NewExpense(name, decimal.RequireFromString(amount), date, l.MustCategory(category))
	l.Store.AddExpense(context.Background(), e)
	return e
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
