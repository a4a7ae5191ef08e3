package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/currency"
	"github.com/Veraticus/purse/internal/testutil"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "12.50", want: "12.5"},
		{input: " 3 ", want: "3"},
		{input: "0", want: "0"},
		{input: "-1", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseOptionalLimit(t *testing.T) {
	limit, err := parseOptionalLimit("none")
	require.NoError(t, err)
	assert.Nil(t, limit)

	limit, err = parseOptionalLimit("NONE")
	require.NoError(t, err)
	assert.Nil(t, limit)

	limit, err = parseOptionalLimit("")
	require.NoError(t, err)
	assert.Nil(t, limit)

	limit, err = parseOptionalLimit("250")
	require.NoError(t, err)
	require.NotNil(t, limit)
	assert.True(t, decimal.NewFromInt(250).Equal(*limit))

	_, err = parseOptionalLimit("-5")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, time.March, 15, 17, 42, 0, 0, time.UTC)

	got, err := parseDate("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDate("2023-12-31", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), got)

	_, err = parseDate("31/12/2023", now)
	assert.ErrorIs(t, err, common.ErrInvalidDate)
}

func TestResolveCategory(t *testing.T) {
	ledger := testutil.SetupLedger(t)

	c, err := resolveCategory(ledger.Store, "")
	require.NoError(t, err)
	assert.True(t, c.IsOthers())

	c, err = resolveCategory(ledger.Store, "food")
	require.NoError(t, err)
	assert.Equal(t, "Food", c.Name)

	_, err = resolveCategory(ledger.Store, "Pets")
	var userErr *common.UserError
	require.True(t, errors.As(err, &userErr))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindExpense(t *testing.T) {
	ledger := testutil.SetupLedger(t)
	coffee := ledger.AddExpense("Coffee", "4", "Food", testutil.Day(2024, 3, 1))
	bus := ledger.AddExpense("Bus", "2", "Transport", testutil.Day(2024, 3, 2))

	t.Run("full id", func(t *testing.T) {
		e, err := findExpense(ledger.Store, coffee.ID)
		require.NoError(t, err)
		assert.Equal(t, "Coffee", e.Name)
	})

	t.Run("unique prefix", func(t *testing.T) {
		prefix := uniquePrefix(coffee.ID, bus.ID)
		e, err := findExpense(ledger.Store, prefix)
		require.NoError(t, err)
		assert.Equal(t, coffee.ID, e.ID)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := findExpense(ledger.Store, "zzzz-not-an-id")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := findExpense(ledger.Store, "  ")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

// uniquePrefix returns the shortest prefix of a that is not a prefix of b.
func uniquePrefix(a, b string) string {
	for i := 1; i <= len(a); i++ {
		if !strings.HasPrefix(b, a[:i]) {
			return a[:i]
		}
	}
	return a
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcdefgh", shortID("abcdefgh-1234"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.0 KB", formatFileSize(1024))
	assert.Equal(t, "1.5 MB", formatFileSize(1536*1024))
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", formatRelativeTime(now.Add(-10*time.Second), now))
	assert.Equal(t, "1 minute ago", formatRelativeTime(now.Add(-time.Minute), now))
	assert.Equal(t, "5 hours ago", formatRelativeTime(now.Add(-5*time.Hour), now))
	assert.Equal(t, "yesterday", formatRelativeTime(now.Add(-30*time.Hour), now))
	assert.Equal(t, "2024-02-01 12:00", formatRelativeTime(time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC), now))
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer

	assert.True(t, confirm(strings.NewReader("y\n"), &out, "ok? "))
	assert.True(t, confirm(strings.NewReader("Yes"), &out, "ok? "))
	assert.False(t, confirm(strings.NewReader("n\n"), &out, "ok? "))
	assert.False(t, confirm(strings.NewReader(""), &out, "ok? "))
	assert.Contains(t, out.String(), "ok? ")
}

func TestRateTableBase(t *testing.T) {
	conf := &config.Config{Currency: config.CurrencyConfig{Base: "EUR"}}

	assert.Equal(t, "EUR", rateTableBase(conf, true))
	assert.Equal(t, currency.BaseCurrency, rateTableBase(conf, false))
	assert.Equal(t, currency.BaseCurrency, rateTableBase(nil, true))
	assert.Equal(t, currency.BaseCurrency, rateTableBase(&config.Config{}, true))
}

func TestErrorMessage(t *testing.T) {
	userErr := common.NewUserError("no expense matches \"abc\"", common.ErrNotFound)
	msg := errorMessage(fmt.Errorf("failed to delete: %w", userErr))
	assert.Contains(t, msg, cli.ErrorIcon)
	assert.Contains(t, msg, `no expense matches "abc"`)
	assert.NotContains(t, msg, "failed to delete")

	msg = errorMessage(errors.New("database is locked"))
	assert.Contains(t, msg, cli.ErrorIcon+" database is locked")
}
