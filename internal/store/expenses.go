package store

import (
	"context"

	"github.com/Veraticus/purse/internal/model"
)

// Expenses returns a copy of all expenses in insertion order.
func (s *Store) Expenses() []model.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Expense(nil), s.expenses...)
}

// Expense returns the first expense with the given id.
func (s *Store) Expense(id string) (model.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.expenses {
		if e.ID == id {
			return e, true
		}
	}
	return model.Expense{}, false
}

// AddExpense appends an expense. Ids are not checked for duplicates and the
// category is stored as given.
func (s *Store) AddExpense(ctx context.Context, e model.Expense) {
	s.mutate(ctx, func() (Event, bool) {
		s.expenses = append(s.expenses, e)
		return Event{Kind: EventExpenseAdded, ExpenseID: e.ID, CategoryID: e.Category.ID}, true
	})
}

// DeleteExpense removes the first expense with the given id. Unknown ids are ignored.
func (s *Store) DeleteExpense(ctx context.Context, id string) {
	s.mutate(ctx, func() (Event, bool) {
		for i, e := range s.expenses {
			if e.ID == id {
				s.expenses = append(s.expenses[:i:i], s.expenses[i+1:]...)
				return Event{Kind: EventExpenseDeleted, ExpenseID: id, CategoryID: e.Category.ID}, true
			}
		}
		return Event{Kind: EventExpenseDeleted, ExpenseID: id}, false
	})
}

// UpdateExpense replaces the first expense whose id matches e.ID. Unknown ids are ignored.
func (s *Store) UpdateExpense(ctx context.Context, e model.Expense) {
	s.mutate(ctx, func() (Event, bool) {
		for i := range s.expenses {
			if s.expenses[i].ID == e.ID {
				s.expenses[i] = e
				return Event{Kind: EventExpenseUpdated, ExpenseID: e.ID, CategoryID: e.Category.ID}, true
			}
		}
		return Event{Kind: EventExpenseUpdated, ExpenseID: e.ID}, false
	})
}
