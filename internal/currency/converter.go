package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

// Converter errors.
var (
	ErrNoRateSource = errors.New("no rate source configured")
	ErrNoLedger     = errors.New("no ledger attached to converter")
)

// Ledger is the part of the expense store a currency change rewrites.
type Ledger interface {
	RewriteAmounts(ctx context.Context, currency string, fn func(from string, amount decimal.Decimal) decimal.Decimal) (string, error)
}

// Converter caches the latest rate table and converts amounts with it.
type Converter struct {
	fetcher       service.RateFetcher
	ledger        Ledger
	rates         map[string]decimal.Decimal
	lastRefreshed time.Time
	group         singleflight.Group
	mu            sync.RWMutex
}

// NewConverter creates a converter. Either argument may be nil: without a
// fetcher only the fallback table is used, without a ledger currency changes
// are refused.
func NewConverter(fetcher service.RateFetcher, ledger Ledger) *Converter {
	return &Converter{
		fetcher: fetcher,
		ledger:  ledger,
		rates:   map[string]decimal.Decimal{},
	}
}

// FetchLatestRates replaces the cached table with a fresh one. On failure the
// cache is left untouched and the fetch error is returned. Concurrent callers
// share one request, which runs detached from any single caller's
// cancellation and is bounded by the fetcher's own timeout. A caller whose
// ctx ends first returns ctx.Err() while the shared request finishes.
func (c *Converter) FetchLatestRates(ctx context.Context) error {
	if c.fetcher == nil {
		return ErrNoRateSource
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("latest", func() (any, error) {
		rates, err := c.fetcher.FetchRates(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.rates = rates
		c.lastRefreshed = time.Now()
		c.mu.Unlock()
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to fetch latest rates: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			slog.Warn("failed to refresh exchange rates", "error", res.Err)
			return fmt.Errorf("failed to fetch latest rates: %w", res.Err)
		}
		slog.Debug("refreshed exchange rates", "shared", res.Shared)
		return nil
	}
}

// LastRefreshed reports when the cache was last replaced; zero if never.
func (c *Converter) LastRefreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefreshed
}

// Rates returns a copy of the cached live table, empty until a fetch succeeds.
func (c *Converter) Rates() map[string]decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(c.rates))
	for code, rate := range c.rates {
		out[code] = rate
	}
	return out
}

// SupportedCurrencies lists every code known to the cache or the fallback table, sorted.
func (c *Converter) SupportedCurrencies() []string {
	c.mu.RLock()
	seen := make(map[string]struct{}, len(c.rates)+len(fallbackRates))
	for code := range c.rates {
		seen[code] = struct{}{}
	}
	c.mu.RUnlock()
	for code := range fallbackRates {
		seen[code] = struct{}{}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Convert converts amount from one currency to another. Cached rates are used
// when both codes are cached, otherwise the fallback table. When a code is in
// neither the amount is returned unchanged.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	from = model.NormalizeCurrency(from)
	to = model.NormalizeCurrency(to)
	if from == to {
		return amount
	}

	c.mu.RLock()
	fromRate, fromOK := c.rates[from]
	toRate, toOK := c.rates[to]
	c.mu.RUnlock()

	if !fromOK || !toOK {
		fromRate, fromOK = fallbackRates[from]
		toRate, toOK = fallbackRates[to]
		if !fromOK || !toOK {
			slog.Debug("no rate for currency pair, amount unchanged", "from", from, "to", to)
			return amount
		}
	}

	if fromRate.IsZero() {
		return amount
	}
	return amount.Div(fromRate).Mul(toRate)
}

// ApplyCurrencyChange converts every stored amount and budget limit from the
// ledger's currency to newCurrency and switches the profile over, persisting
// once. The source currency is read by the ledger under its own lock, so
// concurrent changes each convert from the currency they actually replace.
// It is a no-op when the currency does not change.
func (c *Converter) ApplyCurrencyChange(ctx context.Context, newCurrency string) error {
	if c.ledger == nil {
		return ErrNoLedger
	}

	newCurrency = model.NormalizeCurrency(newCurrency)
	if newCurrency == "" {
		return fmt.Errorf("%w: empty currency code", common.ErrInvalidCurrency)
	}

	from, err := c.ledger.RewriteAmounts(ctx, newCurrency, func(from string, amount decimal.Decimal) decimal.Decimal {
		return c.Convert(amount, from, newCurrency)
	})
	if err != nil {
		return fmt.Errorf("failed to change currency from %s to %s: %w", from, newCurrency, err)
	}
	if from == newCurrency {
		return nil
	}

	common.LogInfo(ctx, "changed ledger currency", common.Fields{"from": from, "to": newCurrency})
	return nil
}
