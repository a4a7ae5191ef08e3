package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the profile and budget limits",
	}

	cmd.AddCommand(showProfileCmd())
	cmd.AddCommand(setProfileCmd())

	return cmd
}

func showProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			p := a.ledger.Profile()

			var b strings.Builder
			fmt.Fprintf(&b, "Name:     %s\n", p.Name)
			fmt.Fprintf(&b, "Currency: %s\n", p.Currency)
			fmt.Fprintf(&b, "Period:   %s\n", p.Budget.Period)
			for _, period := range model.ReportingPeriods {
				marker := " "
				if period == p.Budget.Period {
					marker = "*"
				}
				fmt.Fprintf(&b, "%s %-8s %s\n", marker, period, formatLimit(p.Budget.Limit(period), p.Currency))
			}
			fmt.Fprintf(&b, "Profile image:    %s\n", formatImage(p.ProfileImage))
			fmt.Fprintf(&b, "Background image: %s", formatImage(p.BackgroundImage))

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.PurseIcon+" Profile", b.String()))
			return nil
		},
	}
}

func setProfileCmd() *cobra.Command {
	var (
		name, period                 string
		daily, monthly, yearly       string
		profileImage, backgroundFile string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change profile fields",
		Long: `Change profile fields. Only the flags given are changed.

Budget limits accept an amount in the profile currency, or "none" to clear
the limit. Use 'purse currency set' to change the currency itself.`,
		Example: `  purse profile set --name Alex --period monthly --monthly 1500
  purse profile set --daily none
  purse profile set --profile-image ~/me.png`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			var edits []func(*model.Profile)

			if flags.Changed("name") {
				trimmed := strings.TrimSpace(name)
				if trimmed == "" {
					return common.NewUserError("profile name cannot be empty", common.ErrEmptyName)
				}
				edits = append(edits, func(p *model.Profile) { p.Name = trimmed })
			}
			if flags.Changed("period") {
				parsed, err := model.ParseReportingPeriod(period)
				if err != nil {
					return common.NewUserError(err.Error(), err)
				}
				edits = append(edits, func(p *model.Profile) { p.Budget.Period = parsed })
			}

			limits := map[model.ReportingPeriod]string{
				model.PeriodDaily:   daily,
				model.PeriodMonthly: monthly,
				model.PeriodYearly:  yearly,
			}
			for _, p := range model.ReportingPeriods {
				if !flags.Changed(string(p)) {
					continue
				}
				limit, err := parseOptionalLimit(limits[p])
				if err != nil {
					return err
				}
				target := p
				edits = append(edits, func(pr *model.Profile) { pr.Budget.SetLimit(target, limit) })
			}

			if flags.Changed("profile-image") {
				img, err := readImage(profileImage)
				if err != nil {
					return err
				}
				edits = append(edits, func(p *model.Profile) { p.ProfileImage = img })
			}
			if flags.Changed("background-image") {
				img, err := readImage(backgroundFile)
				if err != nil {
					return err
				}
				edits = append(edits, func(p *model.Profile) { p.BackgroundImage = img })
			}

			if len(edits) == 0 {
				return cmd.Help()
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			a.ledger.UpdateProfile(ctx, func(p *model.Profile) {
				for _, edit := range edits {
					edit(p)
				}
			})

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Profile updated"))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&period, "period", "", "Reporting period (daily, monthly, yearly)")
	cmd.Flags().StringVar(&daily, "daily", "", `Daily limit, or "none"`)
	cmd.Flags().StringVar(&monthly, "monthly", "", `Monthly limit, or "none"`)
	cmd.Flags().StringVar(&yearly, "yearly", "", `Yearly limit, or "none"`)
	cmd.Flags().StringVar(&profileImage, "profile-image", "", `Profile image file, or "" to clear`)
	cmd.Flags().StringVar(&backgroundFile, "background-image", "", `Background image file, or "" to clear`)

	return cmd
}

// readImage reads an image file; an empty path clears the image.
func readImage(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func formatLimit(limit *decimal.Decimal, currency string) string {
	if limit == nil {
		return cli.SubtleStyle.Render("no limit")
	}
	return cli.FormatAmount(*limit, currency)
}

func formatImage(img []byte) string {
	if len(img) == 0 {
		return cli.SubtleStyle.Render("none")
	}
	return formatFileSize(int64(len(img)))
}
