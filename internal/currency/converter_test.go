package currency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/testutil"
)

type stubFetcher struct {
	rates map[string]decimal.Decimal
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubFetcher) FetchRates(_ context.Context) (map[string]decimal.Decimal, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.rates, s.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestConverter_ConvertFallback(t *testing.T) {
	c := NewConverter(nil, nil)

	got := c.Convert(dec("100"), "USD", "TWD")
	assert.True(t, dec("3100").Equal(got), "got %s", got)

	got = c.Convert(dec("92"), "eur", "usd")
	assert.True(t, dec("100").Equal(got), "got %s", got)
}

func TestConverter_ConvertSameCurrency(t *testing.T) {
	c := NewConverter(nil, nil)
	for _, code := range []string{"USD", "JPY", "XYZ"} {
		amount := dec("123.45")
		assert.True(t, amount.Equal(c.Convert(amount, code, code)), code)
	}
}

func TestConverter_ConvertUnknownCurrency(t *testing.T) {
	c := NewConverter(nil, nil)
	amount := dec("10")
	assert.True(t, amount.Equal(c.Convert(amount, "USD", "XYZ")))
	assert.True(t, amount.Equal(c.Convert(amount, "XYZ", "EUR")))
}

func TestConverter_PrefersCachedRates(t *testing.T) {
	fetcher := &stubFetcher{rates: map[string]decimal.Decimal{
		"USD": dec("1"),
		"TWD": dec("30"),
		"CHF": dec("0.8"),
	}}
	c := NewConverter(fetcher, nil)
	require.NoError(t, c.FetchLatestRates(context.Background()))
	assert.False(t, c.LastRefreshed().IsZero())

	got := c.Convert(dec("100"), "USD", "TWD")
	assert.True(t, dec("3000").Equal(got), "got %s", got)

	// EUR is only in the fallback table, so the fallback pair is used.
	got = c.Convert(dec("100"), "USD", "EUR")
	assert.True(t, dec("92").Equal(got), "got %s", got)

	assert.Contains(t, c.SupportedCurrencies(), "CHF")
	assert.Contains(t, c.SupportedCurrencies(), "KRW")
}

func TestConverter_FailedFetchKeepsCache(t *testing.T) {
	fetcher := &stubFetcher{rates: map[string]decimal.Decimal{"USD": dec("1"), "TWD": dec("30")}}
	c := NewConverter(fetcher, nil)
	require.NoError(t, c.FetchLatestRates(context.Background()))
	refreshed := c.LastRefreshed()

	fetcher.rates = nil
	fetcher.err = &FetchError{Kind: KindNetwork, StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}

	err := c.FetchLatestRates(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, KindNetwork, fetchErr.Kind)

	assert.Equal(t, refreshed, c.LastRefreshed())
	assert.Equal(t, "30", c.Rates()["TWD"].String())
}

func TestConverter_FetchAgainstServerError(t *testing.T) {
	server, _ := newRateServer(t, http.StatusServiceUnavailable, `down`)
	c := NewConverter(NewClient(server.URL, "key", "USD", time.Second), nil)

	err := c.FetchLatestRates(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Empty(t, c.Rates())
	assert.True(t, c.LastRefreshed().IsZero())
}

func TestConverter_NoFetcher(t *testing.T) {
	assert.ErrorIs(t, NewConverter(nil, nil).FetchLatestRates(context.Background()), ErrNoRateSource)
}

func TestConverter_ConcurrentFetchesShareRequest(t *testing.T) {
	fetcher := &stubFetcher{
		rates: map[string]decimal.Decimal{"USD": dec("1")},
		delay: 100 * time.Millisecond,
	}
	c := NewConverter(fetcher, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.FetchLatestRates(context.Background()))
		}()
	}
	wg.Wait()

	assert.Less(t, fetcher.calls.Load(), int32(5))
}

func TestConverter_ApplyCurrencyChange(t *testing.T) {
	ledger := testutil.SetupLedger(t)
	ctx := context.Background()
	ledger.AddExpense("Lunch", "10", "Food", testutil.Day(2024, 3, 1))
	ledger.AddExpense("Taxi", "20", "Transport", testutil.Day(2024, 3, 2))
	limit := dec("100")
	ledger.Store.UpdateProfile(ctx, func(p *model.Profile) { p.Budget.MonthlyLimit = &limit })
	writes := ledger.Storage.Writes()

	c := NewConverter(nil, ledger.Store)
	require.NoError(t, c.ApplyCurrencyChange(ctx, "twd"))

	profile := ledger.Store.Profile()
	assert.Equal(t, "TWD", profile.Currency)
	require.NotNil(t, profile.Budget.MonthlyLimit)
	assert.True(t, dec("3100").Equal(*profile.Budget.MonthlyLimit))
	assert.True(t, dec("930").Equal(ledger.Store.TotalExpenses()), "got %s", ledger.Store.TotalExpenses())
	assert.Equal(t, writes+1, ledger.Storage.Writes())

	// Same currency is a no-op.
	require.NoError(t, c.ApplyCurrencyChange(ctx, "TWD"))
	assert.Equal(t, writes+1, ledger.Storage.Writes())
}

func TestConverter_ApplyCurrencyChangeErrors(t *testing.T) {
	assert.ErrorIs(t, NewConverter(nil, nil).ApplyCurrencyChange(context.Background(), "EUR"), ErrNoLedger)

	ledger := testutil.SetupLedger(t)
	err := NewConverter(nil, ledger.Store).ApplyCurrencyChange(context.Background(), "  ")
	assert.Error(t, err)
}

type gatedFetcher struct {
	started chan struct{}
	release chan struct{}
	ctxErr  atomic.Value
}

func (g *gatedFetcher) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	close(g.started)
	<-g.release
	g.ctxErr.Store(fmt.Sprint(ctx.Err()))
	return map[string]decimal.Decimal{"USD": dec("1"), "TWD": dec("30")}, nil
}

func TestConverter_CancelledCallerLeavesSharedFetchRunning(t *testing.T) {
	fetcher := &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
	c := NewConverter(fetcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.FetchLatestRates(ctx) }()

	<-fetcher.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(fetcher.release)
	assert.Eventually(t, func() bool { return !c.LastRefreshed().IsZero() }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "<nil>", fetcher.ctxErr.Load())
	assert.Equal(t, "30", c.Rates()["TWD"].String())
}

// heldLedger reports a currency that differs from whatever a caller last saw.
type heldLedger struct {
	held    string
	amounts []decimal.Decimal
	target  string
}

func (l *heldLedger) RewriteAmounts(_ context.Context, currency string, fn func(string, decimal.Decimal) decimal.Decimal) (string, error) {
	from := l.held
	if from == currency {
		return from, nil
	}
	for i, a := range l.amounts {
		l.amounts[i] = fn(from, a)
	}
	l.held = currency
	l.target = currency
	return from, nil
}

func TestConverter_ApplyCurrencyChangeConvertsFromLedgerCurrency(t *testing.T) {
	ledger := &heldLedger{held: "EUR", amounts: []decimal.Decimal{dec("92")}}
	c := NewConverter(nil, ledger)

	require.NoError(t, c.ApplyCurrencyChange(context.Background(), "usd"))

	assert.Equal(t, "USD", ledger.target)
	assert.True(t, dec("100").Equal(ledger.amounts[0]), "got %s", ledger.amounts[0])

	ledger.target = ""
	require.NoError(t, c.ApplyCurrencyChange(context.Background(), "USD"))
	assert.Empty(t, ledger.target)
}

func TestConverter_ConcurrentCurrencyChangesStayConsistent(t *testing.T) {
	ledger := testutil.SetupLedger(t)
	ledger.AddExpense("Lunch", "100", "Food", testutil.Day(2024, 3, 1))
	c := NewConverter(nil, ledger.Store)

	var wg sync.WaitGroup
	for _, code := range []string{"EUR", "TWD", "EUR", "TWD"} {
		code := code
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.ApplyCurrencyChange(context.Background(), code))
		}()
	}
	wg.Wait()

	want := map[string]string{"EUR": "92", "TWD": "3100"}[ledger.Store.Profile().Currency]
	got := ledger.Store.TotalExpenses()
	assert.True(t, dec(want).Sub(got).Abs().LessThan(dec("0.01")), "got %s in %s", got, ledger.Store.Profile().Currency)
}
