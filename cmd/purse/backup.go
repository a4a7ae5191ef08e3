package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/storage"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage ledger backups",
		Long: `Create, list, restore, and delete copies of the ledger database.

Automatic backups are also taken before a currency change, an import and a
reset. Only the most recent automatic backups are kept.`,
		Example: `  # Back up before cleaning up categories
  purse backup create --tag before-cleanup

  # List all backups
  purse backup list

  # Restore from a backup
  purse backup restore before-cleanup`,
	}

	cmd.AddCommand(createBackupCmd())
	cmd.AddCommand(listBackupsCmd())
	cmd.AddCommand(restoreBackupCmd())
	cmd.AddCommand(deleteBackupCmd())

	return cmd
}

func openBackupManager(cmd *cobra.Command) (*storage.SQLiteStorage, *storage.BackupManager, error) {
	db, err := initStorage(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	manager, err := db.NewBackupManager()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create backup manager: %w", err)
	}
	return db, manager, nil
}

func createBackupCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, manager, err := openBackupManager(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			info, err := manager.Create(cmd.Context(), tag, description)
			if err != nil {
				if errors.Is(err, storage.ErrBackupExists) {
					return common.NewUserError(fmt.Sprintf("a backup named %q already exists", tag), err)
				}
				return fmt.Errorf("failed to create backup: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created backup %s (%s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.ID),
				formatFileSize(info.FileSize))
			if info.Description != "" {
				fmt.Fprintf(out, "  Description: %s\n", info.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Backup name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the backup")

	return cmd
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, manager, err := openBackupManager(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			backups, err := manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, cli.SubtitleStyle.Render("No backups found."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
			fmt.Fprintln(w, strings.Join([]string{
				headerStyle.Render("NAME"),
				headerStyle.Render("CREATED"),
				headerStyle.Render("SIZE"),
				headerStyle.Render("EXPENSES"),
				headerStyle.Render("TYPE"),
			}, "\t"))

			for _, b := range backups {
				typeLabel := "manual"
				if b.IsAuto {
					typeLabel = "auto"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					cli.InfoStyle.Render(b.ID),
					formatRelativeTime(b.CreatedAt, time.Now()),
					formatFileSize(b.FileSize),
					formatFileSize(int64(b.ExpensesBytes)),
					cli.SubtitleStyle.Render(typeLabel),
				)
			}

			return w.Flush()
		},
	}
}

func restoreBackupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Replace the ledger with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backupID := args[0]

			db, manager, err := openBackupManager(cmd)
			if err != nil {
				return err
			}
			// Restore closes the connection itself; closing twice is harmless.
			defer db.Close()

			info, err := findBackup(cmd, manager, backupID)
			if err != nil {
				return err
			}

			if !force {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s This will replace your current ledger with backup %s.\n",
					cli.WarningStyle.Render(cli.WarningIcon), cli.InfoStyle.Render(backupID))
				fmt.Fprintf(out, "  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
				if info.Description != "" {
					fmt.Fprintf(out, "  Description: %s\n", info.Description)
				}
				if !confirm(cmd.InOrStdin(), out, "\nContinue? (y/N) ") {
					fmt.Fprintln(out, cli.SubtitleStyle.Render("Restore cancelled."))
					return nil
				}
			}

			if err := manager.Restore(cmd.Context(), backupID); err != nil {
				return fmt.Errorf("failed to restore backup: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Restored from backup %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), cli.InfoStyle.Render(backupID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func deleteBackupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backupID := args[0]

			db, manager, err := openBackupManager(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := findBackup(cmd, manager, backupID); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !force && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete backup %s? (y/N) ", backupID)) {
				fmt.Fprintln(out, cli.SubtitleStyle.Render("Delete cancelled."))
				return nil
			}

			if err := manager.Delete(cmd.Context(), backupID); err != nil {
				return fmt.Errorf("failed to delete backup: %w", err)
			}

			fmt.Fprintf(out, "%s Deleted backup %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), cli.InfoStyle.Render(backupID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func findBackup(cmd *cobra.Command, manager *storage.BackupManager, id string) (storage.BackupInfo, error) {
	backups, err := manager.List(cmd.Context())
	if err != nil {
		return storage.BackupInfo{}, fmt.Errorf("failed to list backups: %w", err)
	}
	for _, b := range backups {
		if b.ID == id {
			return b, nil
		}
	}
	return storage.BackupInfo{}, common.NewUserError(
		fmt.Sprintf("no backup named %q (see 'purse backup list')", id), storage.ErrBackupNotFound)
}

// confirm asks a yes/no question; anything but an answer starting with y is no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(response)), "y")
}

func formatRelativeTime(t, now time.Time) string {
	duration := now.Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}
