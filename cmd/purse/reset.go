package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
)

func resetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase every expense and restore default categories and profile",
		Long: `Erase every expense and restore the default categories and profile.
An automatic backup is taken first, so a reset can be undone with
'purse backup restore'. Receipts are kept until backups are pruned.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !force {
				msg := fmt.Sprintf("%s This deletes %d expense(s) and all custom categories. Continue? (y/N) ",
					cli.WarningStyle.Render(cli.WarningIcon), len(a.ledger.Expenses()))
				if !confirm(cmd.InOrStdin(), out, msg) {
					fmt.Fprintln(out, cli.SubtitleStyle.Render("Reset cancelled."))
					return nil
				}
			}

			manager, err := a.storage.NewBackupManager()
			if err != nil {
				return fmt.Errorf("failed to create backup manager: %w", err)
			}
			info, err := manager.AutoBackup(ctx, "reset")
			if err != nil {
				return fmt.Errorf("refusing to reset without a backup: %w", err)
			}

			a.ledger.ResetToDefault(ctx)

			fmt.Fprintln(out, cli.FormatSuccess("Ledger reset to defaults"))
			fmt.Fprintf(out, "  Backup: %s\n", cli.InfoStyle.Render(info.ID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}
