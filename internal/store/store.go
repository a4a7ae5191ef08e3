// Package store holds the canonical in-memory ledger: expenses, categories and
// the profile. Every mutation is written through to slot storage.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

// Store errors.
var (
	ErrProtectedCategory = errors.New("the Others category cannot be deleted or renamed")
	ErrCategoryNotFound  = errors.New("category not found")
)

// Store is the expense ledger. It is safe for concurrent use.
type Store struct {
	slots      service.SlotStorage
	logger     *slog.Logger
	subs       map[int]func(Event)
	profile    model.Profile
	expenses   []model.Expense
	categories []model.Category
	nextSubID  int
	mu         sync.RWMutex
	subsMu     sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithState seeds the store with existing state instead of the defaults.
func WithState(expenses []model.Expense, categories []model.Category, profile model.Profile) Option {
	return func(s *Store) {
		s.expenses = append([]model.Expense(nil), expenses...)
		s.categories = ensureOthers(append([]model.Category(nil), categories...))
		s.profile = profile.Clone()
	}
}

// New creates a store over the given slot storage, holding the default
// categories and profile until Load is called.
func New(slots service.SlotStorage, opts ...Option) *Store {
	s := &Store{
		slots:      slots,
		logger:     slog.Default(),
		subs:       make(map[int]func(Event)),
		expenses:   []model.Expense{},
		categories: model.DefaultCategories(),
		profile:    model.DefaultProfile(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate runs fn under the write lock, persists the result and then notifies
// subscribers if fn reported a change. Persistence failures are logged.
func (s *Store) mutate(ctx context.Context, fn func() (Event, bool)) {
	s.mu.Lock()
	event, changed := fn()
	if err := s.persistLocked(ctx); err != nil {
		s.logger.Error("failed to persist ledger", "error", err, "event", event.Kind)
	}
	s.mu.Unlock()

	if changed {
		s.publish(event)
	}
}

// ensureOthers appends the catch-all category when it is missing.
func ensureOthers(categories []model.Category) []model.Category {
	for _, c := range categories {
		if c.IsOthers() {
			return categories
		}
	}
	for _, c := range model.DefaultCategories() {
		if c.IsOthers() {
			return append(categories, c)
		}
	}
	return categories
}
