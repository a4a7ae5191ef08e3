package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/storage"
)

func receiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Attach receipt images to expenses",
	}

	cmd.AddCommand(attachReceiptCmd())
	cmd.AddCommand(exportReceiptCmd())
	cmd.AddCommand(removeReceiptCmd())

	return cmd
}

func attachReceiptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <expense-id> <image-file>",
		Short: "Attach or replace the receipt of an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			image, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read receipt: %w", err)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := findExpense(a.ledger, args[0])
			if err != nil {
				return err
			}

			if err := a.storage.SaveReceipt(ctx, e.ID, image, ""); err != nil {
				if errors.Is(err, storage.ErrReceiptTooLarge) {
					return common.NewUserError("receipt image is too large", err)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Attached %s receipt to %s\n",
				cli.SuccessStyle.Render(cli.ReceiptIcon),
				formatFileSize(int64(len(image))),
				cli.BoldStyle.Render(e.Name))
			return nil
		},
	}
}

func exportReceiptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <expense-id> <output-file>",
		Short: "Write the receipt of an expense to a file",
		Args:  cobra.ExactArgs(2),
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

			receipt, err := a.storage.LoadReceipt(ctx, e.ID)
			if err != nil {
				if errors.Is(err, storage.ErrReceiptNotFound) {
					return common.NewUserError(fmt.Sprintf("%s has no receipt", e.Name), err)
				}
				return err
			}

			if err := os.WriteFile(args[1], receipt.Image, 0600); err != nil {
				return fmt.Errorf("failed to write receipt: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s (%s, %s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), args[1], receipt.ContentType,
				formatFileSize(int64(len(receipt.Image))))
			return nil
		},
	}
}

func removeReceiptCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <expense-id>",
		Aliases: []string{"rm"},
		Short:   "Remove the receipt of an expense",
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

			if err := a.storage.DeleteReceipt(ctx, e.ID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed receipt from %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), e.Name)
			return nil
		},
	}
}
