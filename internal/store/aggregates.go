package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/purse/internal/model"
)

// CategoryTotal is the spend recorded against one category.
type CategoryTotal struct {
	Category model.Category
	Total    decimal.Decimal
	Count    int
}

// BudgetStatus compares the spend of the selected reporting period to its limit.
type BudgetStatus struct {
	Limit  *decimal.Decimal
	Spent  decimal.Decimal
	Period model.ReportingPeriod
}

// HasLimit reports whether a limit is set for the period.
func (b BudgetStatus) HasLimit() bool {
	return b.Limit != nil
}

// Remaining is the limit minus the spend, negative once exceeded. Zero without a limit.
func (b BudgetStatus) Remaining() decimal.Decimal {
	if b.Limit == nil {
		return decimal.Zero
	}
	return b.Limit.Sub(b.Spent)
}

// Exceeded reports whether the spend is strictly above the limit.
func (b BudgetStatus) Exceeded() bool {
	return b.Limit != nil && b.Spent.GreaterThan(*b.Limit)
}

// TotalForCategory sums the amounts of expenses whose category id matches c.
func (s *Store) TotalForCategory(c model.Category) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, e := range s.expenses {
		if e.Category.ID == c.ID {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// TotalExpenses sums every expense amount.
func (s *Store) TotalExpenses() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sum(s.expenses)
}

// ExpensesInPeriod returns the expenses dated in the same period as ref.
func (s *Store) ExpensesInPeriod(period model.ReportingPeriod, ref time.Time) []model.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inPeriodLocked(period, ref)
}

func (s *Store) inPeriodLocked(period model.ReportingPeriod, ref time.Time) []model.Expense {
	var out []model.Expense
	for _, e := range s.expenses {
		if period.Contains(ref, e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// TotalForPeriod sums the expenses dated in the same period as ref.
func (s *Store) TotalForPeriod(period model.ReportingPeriod, ref time.Time) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sum(s.inPeriodLocked(period, ref))
}

// TotalsByCategory returns one entry per category in set order, followed by
// entries for expense categories no longer in the set.
func (s *Store) TotalsByCategory() []CategoryTotal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int, len(s.categories))
	totals := make([]CategoryTotal, 0, len(s.categories))
	for _, c := range s.categories {
		if _, seen := index[c.ID]; seen {
			continue
		}
		index[c.ID] = len(totals)
		totals = append(totals, CategoryTotal{Category: c, Total: decimal.Zero})
	}

	for _, e := range s.expenses {
		i, ok := index[e.Category.ID]
		if !ok {
			i = len(totals)
			index[e.Category.ID] = i
			totals = append(totals, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		totals[i].Total = totals[i].Total.Add(e.Amount)
		totals[i].Count++
	}
	return totals
}

// BudgetStatus reports the active period's spend around ref against its limit.
func (s *Store) BudgetStatus(ref time.Time) BudgetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	period := s.profile.Budget.Period
	status := BudgetStatus{
		Period: period,
		Spent:  sum(s.inPeriodLocked(period, ref)),
	}
	if limit := s.profile.Budget.ActiveLimit(); limit != nil {
		l := *limit
		status.Limit = &l
	}
	return status
}

func sum(expenses []model.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
