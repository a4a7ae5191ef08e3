package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/currency"
	"github.com/Veraticus/purse/internal/model"
)

func currencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currency",
		Short: "Exchange rates and the ledger currency",
		Long: `Show exchange rates, convert amounts and switch the ledger currency.

Live rates are fetched when currency.api_key is configured. Without a key, or
when the rate service cannot be reached, a built-in table is used instead.`,
	}

	cmd.AddCommand(ratesCmd())
	cmd.AddCommand(convertCmd())
	cmd.AddCommand(setCurrencyCmd())

	return cmd
}

func ratesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Show exchange rates against the base currency",
		Long: `Show exchange rates against the base currency. Live rates are quoted
against currency.base; the built-in table is always quoted against ` + currency.BaseCurrency + `.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rates := currency.FallbackRates()
			source := "built-in table"
			live := a.refreshRates(ctx)
			if live {
				rates = a.converter.Rates()
				source = "live, fetched " + a.converter.LastRefreshed().Format("2006-01-02 15:04")
			}

			codes := make([]string, 0, len(rates))
			for code := range rates {
				codes = append(codes, code)
			}
			slices.Sort(codes)

			current := a.ledger.Profile().Currency
			rows := make([][]string, 0, len(codes))
			for _, code := range codes {
				label := code
				if code == current {
					label = cli.BoldStyle.Render(code + " *")
				}
				rows = append(rows, []string{label, rates[code].String()})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.SubtitleStyle.Render(fmt.Sprintf("1 %s in each currency (%s)", rateTableBase(cfg, live), source)))
			fmt.Fprintln(out, cli.RenderTable([]string{"CURRENCY", "RATE"}, rows))
			return nil
		},
	}
}

// rateTableBase names the currency a rate table is quoted against.
func rateTableBase(conf *config.Config, live bool) string {
	if live && conf != nil && conf.Currency.Base != "" {
		return conf.Currency.Base
	}
	return currency.BaseCurrency
}

func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "convert <amount> <from> <to>",
		Short:   "Convert an amount between currencies",
		Example: `  purse currency convert 100 USD EUR`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			from := model.NormalizeCurrency(args[1])
			to := model.NormalizeCurrency(args[2])

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			a.refreshRates(ctx)
			if err := requireSupported(a.converter, from, to); err != nil {
				return err
			}

			converted := a.converter.Convert(amount, from, to)
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n",
				cli.FormatAmount(amount, from), cli.BoldStyle.Render(cli.FormatAmount(converted, to)))
			return nil
		},
	}
}

func setCurrencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <code>",
		Short: "Switch the ledger currency, converting every amount",
		Long: `Switch the ledger currency. Every expense amount and budget limit is
converted at the current rate. An automatic backup is taken first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			code := model.NormalizeCurrency(args[0])

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			old := a.ledger.Profile().Currency
			if old == code {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Ledger already uses "+code))
				return nil
			}

			a.refreshRates(ctx)
			if err := requireSupported(a.converter, old, code); err != nil {
				return err
			}

			if manager, err := a.storage.NewBackupManager(); err == nil {
				if _, err := manager.AutoBackup(ctx, "currency-change"); err != nil {
					return fmt.Errorf("failed to back up before currency change: %w", err)
				}
			}

			if err := a.converter.ApplyCurrencyChange(ctx, code); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Switched ledger from %s to %s", old, code)))
			return nil
		},
	}
}

// requireSupported rejects codes the converter has no rate for.
func requireSupported(conv *currency.Converter, codes ...string) error {
	supported := conv.SupportedCurrencies()
	for _, code := range codes {
		if _, found := slices.BinarySearch(supported, code); !found {
			return common.NewUserError(
				fmt.Sprintf("unsupported currency %q (see 'purse currency rates')", code), common.ErrInvalidCurrency)
		}
	}
	return nil
}
