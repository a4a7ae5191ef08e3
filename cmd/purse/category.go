package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/store"
)

func categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories", "c"},
		Short:   "Manage expense categories",
		Long: `Add, rename and delete the categories expenses are filed under.

The Others category always exists. It cannot be renamed or deleted, and
expenses from a deleted category move into it.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(renameCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with their totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			currency := a.ledger.Profile().Currency
			totals := a.ledger.TotalsByCategory()
			rows := make([][]string, 0, len(totals))
			for _, t := range totals {
				rows = append(rows, []string{
					t.Category.Label(),
					strconv.Itoa(t.Count),
					cli.FormatAmount(t.Total, currency),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"CATEGORY", "EXPENSES", "TOTAL"}, rows))
			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var emoji string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			name := strings.TrimSpace(args[0])
			if name == "" {
				return common.NewUserError("category name cannot be empty", common.ErrEmptyName)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, exists := a.ledger.CategoryByName(name); exists {
				return common.NewUserError(fmt.Sprintf("category %q already exists", name), common.ErrDuplicateEntry)
			}

			c := model.NewCategory(name, emoji)
			a.ledger.AddCategory(ctx, c)

			fmt.Fprintf(cmd.OutOrStdout(), "%s Added category %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), cli.BoldStyle.Render(c.Label()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&emoji, "emoji", "e", "", "Emoji shown next to the category")

	return cmd
}

func renameCategoryCmd() *cobra.Command {
	var emoji string

	cmd := &cobra.Command{
		Use:     "rename <name> [new-name]",
		Aliases: []string{"update"},
		Short:   "Rename a category or change its emoji",
		Long: `Rename a category or change its emoji. Every expense filed under the
category is updated to match.`,
		Example: `  purse category rename Food Groceries
  purse category rename Others --emoji 🗃️`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(args) == 1 && !cmd.Flags().Changed("emoji") {
				return common.NewUserError("nothing to change: give a new name or --emoji", common.ErrEmptyName)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			c, ok := a.ledger.CategoryByName(args[0])
			if !ok {
				return common.NewUserError(fmt.Sprintf("unknown category %q", args[0]), common.ErrNotFound)
			}

			updated := c
			if len(args) == 2 {
				updated.Name = strings.TrimSpace(args[1])
				if updated.Name == "" {
					return common.NewUserError("category name cannot be empty", common.ErrEmptyName)
				}
				if other, exists := a.ledger.CategoryByName(updated.Name); exists && other.ID != c.ID {
					return common.NewUserError(fmt.Sprintf("category %q already exists", updated.Name), common.ErrDuplicateEntry)
				}
			}
			if cmd.Flags().Changed("emoji") {
				updated.Emoji = emoji
			}

			if err := a.ledger.UpdateCategory(ctx, updated); err != nil {
				if errors.Is(err, store.ErrProtectedCategory) {
					return common.NewUserError(fmt.Sprintf("the %s category cannot be renamed", model.OthersCategoryName), err)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), c.Label(), cli.BoldStyle.Render(updated.Label()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&emoji, "emoji", "e", "", "New emoji")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a category, moving its expenses to Others",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			c, ok := a.ledger.CategoryByName(args[0])
			if !ok {
				return common.NewUserError(fmt.Sprintf("unknown category %q", args[0]), common.ErrNotFound)
			}

			moved, err := a.ledger.RemoveCategory(ctx, c)
			if err != nil {
				if errors.Is(err, store.ErrProtectedCategory) {
					return common.NewUserError(fmt.Sprintf("the %s category cannot be deleted", model.OthersCategoryName), err)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", cli.SuccessStyle.Render(cli.SuccessIcon), c.Label())
			if moved > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  Moved %d expense(s) to %s\n", moved, a.ledger.Others().Label())
			}
			return nil
		},
	}
}
