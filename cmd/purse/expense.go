package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
)

func expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"expenses", "e"},
		Short:   "Record and manage expenses",
		Example: `  # Record a coffee in the Food category
  purse expense add "Morning coffee" 4.50 --category Food

  # List this month's expenses
  purse expense list --period monthly

  # Fix the amount of an expense
  purse expense update 3f2a --amount 5.00`,
	}

	cmd.AddCommand(addExpenseCmd())
	cmd.AddCommand(listExpensesCmd())
	cmd.AddCommand(updateExpenseCmd())
	cmd.AddCommand(deleteExpenseCmd())

	return cmd
}

func addExpenseCmd() *cobra.Command {
	var category, date string

	cmd := &cobra.Command{
		Use:   "add <name> <amount>",
		Short: "Record a new expense",
		Long:  `Record a new expense. Without --category it goes to Others; without --date it is dated today.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			when, err := parseDate(date, time.Now())
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := resolveCategory(a.ledger, category)
			if err != nil {
				return err
			}

			e := model.NewExpense(args[0], amount, when, c)
			if e.Name == "" {
				return common.NewUserError("expense name cannot be empty", common.ErrEmptyName)
			}
			a.ledger.AddExpense(ctx, e)

			profile := a.ledger.Profile()
			fmt.Fprintf(cmd.OutOrStdout(), "%s Recorded %s %s in %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.BoldStyle.Render(e.Name),
				cli.FormatAmount(e.Amount, profile.Currency),
				c.Label())
			fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", cli.SubtleStyle.Render(e.ID))

			status := a.ledger.BudgetStatus(time.Now())
			if status.Exceeded() {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("%s budget exceeded: %s",
					status.Period, cli.FormatBudget(status.Spent, status.Limit, profile.Currency))))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category name (default: Others)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Expense date as YYYY-MM-DD (default: today)")

	return cmd
}

func listExpensesCmd() *cobra.Command {
	var period, category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded expenses",
		Long:  `List expenses newest first, optionally limited to the current day, month or year and to one category.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			expenses := a.ledger.Expenses()
			if period != "" {
				p, err := model.ParseReportingPeriod(period)
				if err != nil {
					return common.NewUserError(err.Error(), err)
				}
				expenses = a.ledger.ExpensesInPeriod(p, time.Now())
			}
			if category != "" {
				c, err := resolveCategory(a.ledger, category)
				if err != nil {
					return err
				}
				filtered := expenses[:0]
				for _, e := range expenses {
					if e.Category.ID == c.ID {
						filtered = append(filtered, e)
					}
				}
				expenses = filtered
			}

			if len(expenses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtitleStyle.Render("No expenses found."))
				return nil
			}

			sort.SliceStable(expenses, func(i, j int) bool {
				return expenses[i].Date.After(expenses[j].Date)
			})

			currency := a.ledger.Profile().Currency
			rows := make([][]string, 0, len(expenses))
			for _, e := range expenses {
				rows = append(rows, []string{
					shortID(e.ID),
					e.Date.Format(dateLayout),
					e.Name,
					e.Category.Label(),
					cli.FormatAmount(e.Amount, currency),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"ID", "DATE", "NAME", "CATEGORY", "AMOUNT"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&period, "period", "p", "", "Only show the current period (daily, monthly, yearly)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only show one category")

	return cmd
}

func updateExpenseCmd() *cobra.Command {
	var name, amount, category, date string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an existing expense",
		Long:  `Change the name, amount, category or date of an expense. The id may be shortened to any unique prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := findExpense(a.ledger, args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				if strings.TrimSpace(name) == "" {
					return common.NewUserError("expense name cannot be empty", common.ErrEmptyName)
				}
				e.Name = strings.TrimSpace(name)
			}
			if flags.Changed("amount") {
				if e.Amount, err = parseAmount(amount); err != nil {
					return err
				}
			}
			if flags.Changed("category") {
				c, err := resolveCategory(a.ledger, category)
				if err != nil {
					return err
				}
				e = e.WithCategory(c)
			}
			if flags.Changed("date") {
				if e.Date, err = parseDate(date, time.Now()); err != nil {
					return err
				}
			}

			a.ledger.UpdateExpense(ctx, e)

			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(shortID(e.ID)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "New amount")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category name")
	cmd.Flags().StringVarP(&date, "date", "d", "", "New date as YYYY-MM-DD")

	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an expense and its receipt",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := findExpense(a.ledger, args[0])
			if err != nil {
				return err
			}

			a.ledger.DeleteExpense(ctx, e.ID)
			if err := a.storage.DeleteReceipt(ctx, e.ID); err != nil {
				return fmt.Errorf("expense deleted but its receipt could not be removed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s (%s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), e.Name, shortID(e.ID))
			return nil
		},
	}
}
