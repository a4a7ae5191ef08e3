package ofx

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
)

// Ledger is the part of the expense store an import writes to.
type Ledger interface {
	Profile() model.Profile
	Others() model.Category
	Expense(id string) (model.Expense, bool)
	AddExpense(ctx context.Context, e model.Expense)
}

// Converter converts statement amounts into the ledger currency.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) decimal.Decimal
}

// ImportResult counts what an import did.
type ImportResult struct {
	Added   int
	Skipped int
}

// Import records drafts as expenses in the Others category, converted from the
// statement currency to the profile currency. Drafts already imported are
// skipped. progress, if set, is called once per draft.
func Import(ctx context.Context, drafts []Draft, ledger Ledger, conv Converter, progress func()) ImportResult {
	var result ImportResult
	profile := ledger.Profile()
	others := ledger.Others()

	for _, d := range drafts {
		if progress != nil {
			progress()
		}
		if ctx.Err() != nil {
			break
		}

		id := d.ExpenseID()
		if _, exists := ledger.Expense(id); exists {
			result.Skipped++
			continue
		}

		amount := d.Amount
		if d.Currency != "" && conv != nil {
			amount = conv.Convert(amount, d.Currency, profile.Currency)
		}

		name := d.Name
		if name == "" {
			name = d.Type
		}

		e := model.NewExpense(name, amount, d.Date, others)
		e.ID = id
		ledger.AddExpense(ctx, e)
		result.Added++
	}

	common.LogInfo(ctx, "Imported statement", common.Fields{"added": result.Added, "skipped": result.Skipped})
	return result
}
