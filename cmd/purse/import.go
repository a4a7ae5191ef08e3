package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import expenses from bank statements",
	}

	cmd.AddCommand(importOFXCmd())

	return cmd
}

func importOFXCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ofx <file>...",
		Short: "Import debits from OFX/QFX statements",
		Long: `Import every debit in one or more OFX or QFX statements as an expense in
the Others category. Amounts are converted from the statement currency to the
ledger currency. Transactions already imported are skipped, so the same
statement can be imported again safely.`,
		Example: `  purse import ofx ~/Downloads/checking.qfx ~/Downloads/visa.ofx
  purse import ofx statement.ofx --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			parser := ofx.NewParser()

			var drafts []ofx.Draft
			for _, path := range args {
				parsed, err := parseStatement(cmd, parser, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s: %d debit(s)\n", cli.InfoStyle.Render(cli.FolderIcon), path, len(parsed))
				drafts = append(drafts, parsed...)
			}

			if len(drafts) == 0 {
				fmt.Fprintln(out, cli.SubtitleStyle.Render("Nothing to import."))
				return nil
			}

			if dryRun {
				rows := make([][]string, 0, len(drafts))
				for _, d := range drafts {
					rows = append(rows, []string{d.Date.Format(dateLayout), d.Name, cli.FormatAmount(d.Amount, d.Currency)})
				}
				fmt.Fprintln(out, cli.RenderTable([]string{"DATE", "NAME", "AMOUNT"}, rows))
				return nil
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if manager, err := a.storage.NewBackupManager(); err == nil {
				if _, err := manager.AutoBackup(ctx, "import"); err != nil {
					return fmt.Errorf("failed to back up before import: %w", err)
				}
			}
			a.refreshRates(ctx)

			bar := progressbar.NewOptions(len(drafts),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Importing expenses...[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					if _, err := fmt.Fprintln(cmd.ErrOrStderr()); err != nil {
						slog.Warn("Failed to write newline after progress bar", "error", err)
					}
				}),
			)

			result := ofx.Import(ctx, drafts, a.ledger, a.converter, func() {
				if err := bar.Add(1); err != nil {
					slog.Debug("Failed to update progress bar", "error", err)
				}
			})
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("import interrupted after %d expense(s): %w", result.Added, err)
			}

			fmt.Fprintf(out, "%s Imported %d expense(s), skipped %d already imported\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), result.Added, result.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be imported without saving")

	return cmd
}

func parseStatement(cmd *cobra.Command, parser *ofx.Parser, path string) ([]ofx.Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	drafts, err := parser.ParseFile(cmd.Context(), f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return drafts, nil
}
