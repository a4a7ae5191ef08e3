package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
	"github.com/Veraticus/purse/internal/store"
)

// Ledger is the part of the expense store the watcher observes.
type Ledger interface {
	Profile() model.Profile
	BudgetStatus(ref time.Time) store.BudgetStatus
	Subscribe(fn func(store.Event)) func()
}

// Watcher publishes a BudgetAlert each time the active budget goes from
// within limit to exceeded.
type Watcher struct {
	ledger     Ledger
	publisher  service.Publisher
	now        func() time.Time
	routingKey string
	exceeded   bool
	mu         sync.Mutex
}

// NewWatcher creates a watcher. The current state of the ledger is the baseline,
// so a budget that is already exceeded does not alert until it recovers and
// is exceeded again.
func NewWatcher(ledger Ledger, publisher service.Publisher, routingKey string) *Watcher {
	w := &Watcher{
		ledger:     ledger,
		publisher:  publisher,
		routingKey: routingKey,
		now:        time.Now,
	}
	w.exceeded = ledger.BudgetStatus(w.now()).Exceeded()
	return w
}

// Watch subscribes to ledger changes until the returned function is called.
// Publishing happens on the mutating goroutine using ctx.
func (w *Watcher) Watch(ctx context.Context) (stop func()) {
	return w.ledger.Subscribe(func(e store.Event) {
		if e.Kind == store.EventLoaded || e.Kind == store.EventReset {
			w.rebase()
			return
		}
		if _, err := w.Check(ctx); err != nil {
			slog.Warn("failed to publish budget alert", "error", err, "event", e.Kind)
		}
	})
}

func (w *Watcher) rebase() {
	status := w.ledger.BudgetStatus(w.now())
	w.mu.Lock()
	w.exceeded = status.Exceeded()
	w.mu.Unlock()
}

// Check evaluates the budget and publishes an alert on a transition to
// exceeded. It reports whether an alert was sent.
func (w *Watcher) Check(ctx context.Context) (bool, error) {
	now := w.now()
	status := w.ledger.BudgetStatus(now)

	w.mu.Lock()
	crossed := status.Exceeded() && !w.exceeded
	w.exceeded = status.Exceeded()
	w.mu.Unlock()

	if !crossed {
		return false, nil
	}

	alert := NewBudgetAlert(w.ledger.Profile(), status, now)
	body, err := alert.ToJSON()
	if err != nil {
		return false, fmt.Errorf("marshal budget alert: %w", err)
	}

	if err := w.publisher.Publish(ctx, w.routingKey, body); err != nil {
		return false, err
	}

	slog.Info("budget exceeded",
		"period", status.Period,
		"limit", alert.Limit.String(),
		"spent", alert.Spent.String())
	return true, nil
}
