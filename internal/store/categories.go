package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/purse/internal/model"
)

// Categories returns a copy of the category set in order.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Category(nil), s.categories...)
}

// Category returns the category with the given id.
func (s *Store) Category(id string) (model.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoryLocked(id)
}

func (s *Store) categoryLocked(id string) (model.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

// CategoryByName finds a category by case-insensitive name.
func (s *Store) CategoryByName(name string) (model.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name = strings.TrimSpace(name)
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return model.Category{}, false
}

// Others returns the catch-all category.
func (s *Store) Others() model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.othersLocked()
}

func (s *Store) othersLocked() model.Category {
	for _, c := range s.categories {
		if c.IsOthers() {
			return c
		}
	}
	// Unreachable once the set went through ensureOthers.
	return model.Category{Name: model.OthersCategoryName}
}

// AddCategory appends a category.
func (s *Store) AddCategory(ctx context.Context, c model.Category) {
	s.mutate(ctx, func() (Event, bool) {
		s.categories = append(s.categories, c)
		return Event{Kind: EventCategoryAdded, CategoryID: c.ID}, true
	})
}

// DeleteCategory removes the first category with c's id. Expenses referencing
// it keep their snapshot; call ReassignExpenses first or use RemoveCategory.
func (s *Store) DeleteCategory(ctx context.Context, c model.Category) error {
	if s.isProtected(c.ID) {
		return ErrProtectedCategory
	}

	s.mutate(ctx, func() (Event, bool) {
		for i, existing := range s.categories {
			if existing.ID == c.ID {
				s.categories = append(s.categories[:i:i], s.categories[i+1:]...)
				return Event{Kind: EventCategoryDeleted, CategoryID: c.ID}, true
			}
		}
		return Event{Kind: EventCategoryDeleted, CategoryID: c.ID}, false
	})
	return nil
}

func (s *Store) isProtected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing, ok := s.categoryLocked(id)
	return ok && existing.IsOthers()
}

// UpdateCategory replaces the name and emoji of the category with c's id and
// rewrites the snapshot carried by every expense in it. Others keeps its name,
// and no other category may take that name.
func (s *Store) UpdateCategory(ctx context.Context, c model.Category) error {
	c.Name = strings.TrimSpace(c.Name)

	s.mu.RLock()
	existing, ok := s.categoryLocked(c.ID)
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, c.ID)
	}
	if existing.IsOthers() != c.IsOthers() {
		return ErrProtectedCategory
	}

	s.mutate(ctx, func() (Event, bool) {
		touched := 0
		for i := range s.categories {
			if s.categories[i].ID == c.ID {
				s.categories[i] = c
			}
		}
		for i := range s.expenses {
			if s.expenses[i].Category.ID == c.ID {
				s.expenses[i].Category = c
				touched++
			}
		}
		return Event{Kind: EventCategoryUpdated, CategoryID: c.ID, Count: touched}, true
	})
	return nil
}

// ReassignExpenses moves every expense in from to the to snapshot and returns
// how many were moved.
func (s *Store) ReassignExpenses(ctx context.Context, from, to model.Category) int {
	moved := 0
	s.mutate(ctx, func() (Event, bool) {
		for i := range s.expenses {
			if s.expenses[i].Category.ID == from.ID {
				s.expenses[i].Category = to
				moved++
			}
		}
		return Event{Kind: EventExpensesReassigned, CategoryID: to.ID, Count: moved}, moved > 0
	})
	return moved
}

// RemoveCategory moves the category's expenses to Others and then deletes it.
func (s *Store) RemoveCategory(ctx context.Context, c model.Category) (int, error) {
	if s.isProtected(c.ID) {
		return 0, ErrProtectedCategory
	}
	if _, ok := s.Category(c.ID); !ok {
		return 0, fmt.Errorf("%w: %s", ErrCategoryNotFound, c.ID)
	}

	moved := s.ReassignExpenses(ctx, c, s.Others())
	if err := s.DeleteCategory(ctx, c); err != nil {
		return moved, err
	}
	return moved, nil
}
