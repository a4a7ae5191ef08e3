package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a single recorded spend. The category is embedded by value, so
// renaming or deleting a category requires rewriting the expenses that carry it.
type Expense struct {
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category Category        `json:"category"`
}

// NewExpense creates an expense with a fresh id.
func NewExpense(name string, amount decimal.Decimal, date time.Time, category Category) Expense {
	return Expense{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Amount:   amount,
		Date:     date,
		Category: category,
	}
}

// WithCategory returns a copy of the expense carrying the given category snapshot.
func (e Expense) WithCategory(c Category) Expense {
	e.Category = c
	return e
}
