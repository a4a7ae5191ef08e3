package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/purse/internal/model"
)

// Profile returns a copy of the profile.
func (s *Store) Profile() model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// UpdateProfile applies fn to a copy of the profile and stores the result.
// Changing the currency here does not convert amounts; see RewriteAmounts.
func (s *Store) UpdateProfile(ctx context.Context, fn func(*model.Profile)) {
	s.mutate(ctx, func() (Event, bool) {
		p := s.profile.Clone()
		fn(&p)
		p.Currency = model.NormalizeCurrency(p.Currency)
		if p.Currency == "" {
			p.Currency = model.DefaultCurrency
		}
		s.profile = p
		return Event{Kind: EventProfileUpdated}, true
	})
}

// RewriteAmounts applies fn to every expense amount and every set budget limit,
// switches the profile to currency and persists the result with a single slot
// write. fn receives the currency the ledger held when the lock was taken, and
// that currency is returned. When it already equals currency nothing is
// rewritten or written. If the write fails the in-memory ledger is left as it
// was and the error is returned.
func (s *Store) RewriteAmounts(
	ctx context.Context,
	currency string,
	fn func(from string, amount decimal.Decimal) decimal.Decimal,
) (string, error) {
	currency = model.NormalizeCurrency(currency)

	s.mu.Lock()

	from := s.profile.Currency
	if from == currency {
		s.mu.Unlock()
		return from, nil
	}

	prevExpenses := s.expenses
	prevProfile := s.profile

	expenses := make([]model.Expense, len(s.expenses))
	for i, e := range s.expenses {
		e.Amount = fn(from, e.Amount)
		expenses[i] = e
	}

	profile := s.profile.Clone()
	for _, period := range model.ReportingPeriods {
		if limit := profile.Budget.Limit(period); limit != nil {
			converted := fn(from, *limit)
			profile.Budget.SetLimit(period, &converted)
		}
	}
	profile.Currency = currency

	s.expenses = expenses
	s.profile = profile

	if err := s.persistLocked(ctx); err != nil {
		s.expenses = prevExpenses
		s.profile = prevProfile
		s.mu.Unlock()
		return from, fmt.Errorf("failed to persist rewritten amounts: %w", err)
	}
	count := len(expenses)
	s.mu.Unlock()

	s.publish(Event{Kind: EventAmountsRewritten, Count: count})
	return from, nil
}

// ResetToDefault drops every expense and restores the default categories and profile.
func (s *Store) ResetToDefault(ctx context.Context) {
	s.mutate(ctx, func() (Event, bool) {
		s.expenses = []model.Expense{}
		s.categories = model.DefaultCategories()
		s.profile = model.DefaultProfile()
		return Event{Kind: EventReset}, true
	})
}
