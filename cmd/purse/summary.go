package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/model"
)

func summaryCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spending against the budget",
		Long: `Show totals for each reporting period, how the selected period compares
to its limit, and a breakdown by category.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ref, err := parseDate(at, time.Now())
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			profile := a.ledger.Profile()
			currency := profile.Currency

			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s's spending as of %s", profile.Name, ref.Format(dateLayout))))

			rows := make([][]string, 0, len(model.ReportingPeriods)+1)
			for _, p := range model.ReportingPeriods {
				rows = append(rows, []string{
					string(p),
					cli.FormatBudget(a.ledger.TotalForPeriod(p, ref), profile.Budget.Limit(p), currency),
				})
			}
			rows = append(rows, []string{"all time", cli.FormatAmount(a.ledger.TotalExpenses(), currency)})
			fmt.Fprintln(out, cli.RenderTable([]string{"PERIOD", "SPENT"}, rows))

			status := a.ledger.BudgetStatus(ref)
			switch {
			case !status.HasLimit():
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("No %s limit set", status.Period)))
			case status.Exceeded():
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Over the %s limit by %s",
					status.Period, cli.FormatAmount(status.Remaining().Neg(), currency))))
			default:
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s left this %s",
					cli.FormatAmount(status.Remaining(), currency), periodNoun(status.Period))))
			}
			fmt.Fprintln(out)

			totals := a.ledger.TotalsByCategory()
			catRows := make([][]string, 0, len(totals))
			for _, t := range totals {
				if t.Count == 0 {
					continue
				}
				catRows = append(catRows, []string{
					t.Category.Label(),
					strconv.Itoa(t.Count),
					cli.FormatAmount(t.Total, currency),
				})
			}
			if len(catRows) > 0 {
				fmt.Fprintln(out, cli.StyleTitle(cli.ChartIcon+" By category"))
				fmt.Fprintln(out, cli.RenderTable([]string{"CATEGORY", "EXPENSES", "TOTAL"}, catRows))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Reference date as YYYY-MM-DD (default: today)")

	return cmd
}

func periodNoun(p model.ReportingPeriod) string {
	switch p {
	case model.PeriodDaily:
		return "day"
	case model.PeriodYearly:
		return "year"
	default:
		return "month"
	}
}
