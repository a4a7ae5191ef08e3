package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/store"
)

type cliHarness struct {
	t      *testing.T
	dbPath string
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("PURSE_ALERTS_AMQP_URL", "")
	t.Setenv("PURSE_CURRENCY_API_KEY", "")

	return &cliHarness{t: t, dbPath: filepath.Join(dir, "purse.db")}
}

// run executes one purse invocation against the harness database.
func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	viper.Reset()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--db", h.dbPath, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestExpenseLifecycle(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("expense", "add", "Coffee", "4.50", "--category", "Food", "--date", "2024-03-01")
	assert.Contains(t, out, "Recorded")

	h.mustRun("expense", "add", "Parking", "12", "--date", "2024-03-02")

	out = h.mustRun("expense", "list")
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "4.50 USD")
	assert.Contains(t, out, "Parking")
	assert.Contains(t, out, "Others")

	out = h.mustRun("expense", "list", "--category", "Food")
	assert.Contains(t, out, "Coffee")
	assert.NotContains(t, out, "Parking")

	_, err := h.run("expense", "add", "Bad", "-3")
	assert.Error(t, err)

	_, err = h.run("expense", "add", "Lost", "3", "--category", "Pets")
	assert.Error(t, err)
}

func TestCategoryCommands(t *testing.T) {
	h := newHarness(t)

	h.mustRun("category", "add", "Travel", "--emoji", "✈️")
	_, err := h.run("category", "add", "travel")
	assert.Error(t, err, "names are compared case-insensitively")

	h.mustRun("expense", "add", "Train", "30", "--category", "Travel", "--date", "2024-03-01")

	out := h.mustRun("category", "rename", "Travel", "Trips")
	assert.Contains(t, out, "Trips")

	out = h.mustRun("expense", "list")
	assert.Contains(t, out, "Trips")

	_, err = h.run("category", "rename", "Others", "Misc")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrProtectedCategory)

	_, err = h.run("category", "delete", "Others")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrProtectedCategory)

	out = h.mustRun("category", "delete", "Trips")
	assert.Contains(t, out, "Moved 1 expense(s)")

	out = h.mustRun("category", "list")
	assert.NotContains(t, out, "Trips")
	assert.Contains(t, out, "30.00 USD")
}

func TestProfileAndSummary(t *testing.T) {
	h := newHarness(t)

	h.mustRun("profile", "set", "--name", "Alex", "--period", "monthly", "--monthly", "100")

	out := h.mustRun("profile", "show")
	assert.Contains(t, out, "Alex")
	assert.Contains(t, out, "100.00 USD")

	h.mustRun("expense", "add", "Rent share", "150", "--date", "2024-03-01")

	out = h.mustRun("summary", "--at", "2024-03-15")
	assert.Contains(t, out, "Over the monthly limit by 50.00 USD")

	h.mustRun("profile", "set", "--monthly", "none")
	out = h.mustRun("summary", "--at", "2024-03-15")
	assert.Contains(t, out, "No monthly limit set")
}

func TestCurrencyChangeRewritesAmounts(t *testing.T) {
	h := newHarness(t)

	h.mustRun("profile", "set", "--monthly", "100")
	h.mustRun("expense", "add", "Lunch", "10", "--date", "2024-03-01")

	out := h.mustRun("currency", "convert", "100", "usd", "eur")
	assert.Contains(t, out, "92.00 EUR")

	out = h.mustRun("currency", "set", "EUR")
	assert.Contains(t, out, "Switched ledger from USD to EUR")

	out = h.mustRun("expense", "list")
	assert.Contains(t, out, "9.20 EUR")

	out = h.mustRun("profile", "show")
	assert.Contains(t, out, "92.00 EUR")

	out = h.mustRun("backup", "list")
	assert.Contains(t, out, "auto-currency-change")

	_, err := h.run("currency", "set", "XYZ")
	assert.Error(t, err)
}

func TestBackupRestoreAndReset(t *testing.T) {
	h := newHarness(t)

	h.mustRun("expense", "add", "Books", "20", "--date", "2024-03-01")
	out := h.mustRun("backup", "create", "--tag", "snap", "--description", "before more spending")
	assert.Contains(t, out, "snap")

	_, err := h.run("backup", "create", "--tag", "snap")
	assert.Error(t, err)

	h.mustRun("expense", "add", "Concert", "80", "--date", "2024-03-02")

	h.mustRun("backup", "restore", "snap", "--force")
	out = h.mustRun("expense", "list")
	assert.Contains(t, out, "Books")
	assert.NotContains(t, out, "Concert")

	out = h.mustRun("reset")
	assert.Contains(t, out, "Reset cancelled")

	out = h.mustRun("reset", "--force")
	assert.Contains(t, out, "Ledger reset to defaults")

	out = h.mustRun("expense", "list")
	assert.Contains(t, out, "No expenses found")

	out = h.mustRun("backup", "list")
	assert.Contains(t, out, "auto-reset")

	h.mustRun("backup", "delete", "snap", "--force")
	_, err = h.run("backup", "restore", "snap", "--force")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("version")
	assert.Contains(t, out, "purse dev")
}
