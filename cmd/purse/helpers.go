package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/purse/internal/alerts"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/currency"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
	"github.com/Veraticus/purse/internal/storage"
	"github.com/Veraticus/purse/internal/store"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

const dateLayout = "2006-01-02"

// app bundles everything a command needs. Close releases it.
type app struct {
	storage   *storage.SQLiteStorage
	ledger    *store.Store
	converter *currency.Converter
	publisher *alerts.AMQPPublisher
	stopWatch func()
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = config.ExpandPath(config.DefaultDatabasePath)
	}

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// openApp opens storage, loads the ledger and wires the converter and, when
// configured, the budget alert watcher.
func openApp(ctx context.Context) (*app, error) {
	db, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	ledger := store.New(db)
	report := ledger.Load(ctx)
	for slot, status := range report {
		if status == store.SlotCorrupt {
			slog.Warn("ledger slot was unreadable and has been reset to defaults", "slot", slot)
		}
	}

	var fetcher service.RateFetcher
	if cfg.Currency.APIKey != "" {
		fetcher = currency.NewClient(cfg.Currency.APIURL, cfg.Currency.APIKey, cfg.Currency.Base, cfg.Currency.Timeout)
	}

	a := &app{
		storage:   db,
		ledger:    ledger,
		converter: currency.NewConverter(fetcher, ledger),
	}

	if cfg.Alerts.Enabled() {
		publisher, err := alerts.NewAMQPPublisher(cfg.Alerts.AMQPURL, cfg.Alerts.Exchange)
		if err != nil {
			// Alerts are best effort; the ledger stays usable without a broker.
			slog.Warn("budget alerts disabled", "error", err)
		} else {
			a.publisher = publisher
			a.stopWatch = alerts.NewWatcher(ledger, publisher, cfg.Alerts.RoutingKey).Watch(ctx)
		}
	}

	return a, nil
}

// Close stops the watcher and closes the broker and database connections.
func (a *app) Close() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Debug("failed to close publisher", "error", err)
		}
	}
	if err := a.storage.Close(); err != nil {
		common.LogError(context.Background(), err, "failed to close database", common.Fields{"path": cfg.Database.Path})
	}
}

// refreshRates tries to fetch live rates and reports whether they are in use.
func (a *app) refreshRates(ctx context.Context) bool {
	if cfg.Currency.APIKey == "" {
		slog.Debug("no currency.api_key configured, using fallback rates")
		return false
	}
	if err := a.converter.FetchLatestRates(ctx); err != nil {
		slog.Warn("using fallback exchange rates", "error", err)
		return false
	}
	return true
}

// parseAmount parses a non-negative decimal amount.
func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", common.ErrInvalidAmount, s)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q must not be negative", common.ErrInvalidAmount, s)
	}
	return amount, nil
}

// parseOptionalLimit parses a budget limit; "none" or "" clears it.
func parseOptionalLimit(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	amount, err := parseAmount(s)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

// parseDate parses YYYY-MM-DD in local time; empty means today.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", common.ErrInvalidDate, s)
	}
	return t, nil
}

// resolveCategory finds a category by name; empty means Others.
func resolveCategory(ledger *store.Store, name string) (model.Category, error) {
	if strings.TrimSpace(name) == "" {
		return ledger.Others(), nil
	}
	c, ok := ledger.CategoryByName(name)
	if !ok {
		return model.Category{}, common.NewUserError(
			fmt.Sprintf("unknown category %q (see 'purse category list')", name), common.ErrNotFound)
	}
	return c, nil
}

// findExpense looks an expense up by id or unique id prefix.
func findExpense(ledger *store.Store, ref string) (model.Expense, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Expense{}, common.NewUserError("an expense id is required", common.ErrNotFound)
	}
	if e, ok := ledger.Expense(ref); ok {
		return e, nil
	}

	var match *model.Expense
	for _, e := range ledger.Expenses() {
		if strings.HasPrefix(e.ID, ref) {
			if match != nil {
				return model.Expense{}, common.NewUserError(fmt.Sprintf("expense id %q is ambiguous", ref), common.ErrDuplicateEntry)
			}
			found := e
			match = &found
		}
	}
	if match == nil {
		return model.Expense{}, common.NewUserError(fmt.Sprintf("no expense with id %q", ref), common.ErrNotFound)
	}
	return *match, nil
}

// shortID shortens an id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
