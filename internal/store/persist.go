package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
	"github.com/Veraticus/purse/internal/storage"
)

// SlotStatus reports how a slot was resolved during Load.
type SlotStatus string

// Slot statuses.
const (
	SlotLoaded  SlotStatus = "loaded"
	SlotMissing SlotStatus = "missing"
	SlotCorrupt SlotStatus = "corrupt"
)

// LoadReport describes the outcome of Load for each slot.
type LoadReport map[service.Slot]SlotStatus

// Clean reports whether every slot was loaded from storage.
func (r LoadReport) Clean() bool {
	for _, slot := range service.AllSlots {
		if r[slot] != SlotLoaded {
			return false
		}
	}
	return true
}

// Synchronize writes all three slots. Errors are logged, not returned.
func (s *Store) Synchronize(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.persistLocked(ctx); err != nil {
		s.logger.Error("failed to synchronize ledger", "error", err)
	}
}

// persistLocked encodes the current state and writes it in one batch. The
// caller must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	payloads, err := s.encodeLocked()
	if err != nil {
		return err
	}
	if err := s.slots.WriteSlots(ctx, payloads); err != nil {
		return fmt.Errorf("failed to write slots: %w", err)
	}
	return nil
}

func (s *Store) encodeLocked() (map[service.Slot][]byte, error) {
	expenses, err := json.Marshal(s.expenses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode expenses: %w", err)
	}
	categories, err := json.Marshal(s.categories)
	if err != nil {
		return nil, fmt.Errorf("failed to encode categories: %w", err)
	}
	profile, err := json.Marshal(s.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}

	return map[service.Slot][]byte{
		service.SlotExpenses:   expenses,
		service.SlotCategories: categories,
		service.SlotProfile:    profile,
	}, nil
}

// Load replaces the in-memory state with what storage holds. Each slot is
// decoded on its own: a missing or undecodable slot falls back to its default
// and the outcome is recorded in the report. A categories slot that decodes to
// an empty list is kept as is, apart from restoring Others. Load never fails.
func (s *Store) Load(ctx context.Context) LoadReport {
	report := make(LoadReport, len(service.AllSlots))

	expenses := []model.Expense{}
	report[service.SlotExpenses] = s.loadSlot(ctx, service.SlotExpenses, &expenses)
	if report[service.SlotExpenses] != SlotLoaded || expenses == nil {
		expenses = []model.Expense{}
	}

	var categories []model.Category
	report[service.SlotCategories] = s.loadSlot(ctx, service.SlotCategories, &categories)
	if report[service.SlotCategories] != SlotLoaded {
		categories = model.DefaultCategories()
	}
	categories = ensureOthers(categories)

	profile := model.DefaultProfile()
	report[service.SlotProfile] = s.loadSlot(ctx, service.SlotProfile, &profile)
	if report[service.SlotProfile] != SlotLoaded {
		profile = model.DefaultProfile()
	}
	profile = sanitizeProfile(profile)

	s.mu.Lock()
	s.expenses = expenses
	s.categories = categories
	s.profile = profile
	s.mu.Unlock()

	s.logger.Debug("loaded ledger",
		"expenses", len(expenses),
		"categories", len(categories),
		"report", report)

	s.publish(Event{Kind: EventLoaded, Count: len(expenses)})
	return report
}

func (s *Store) loadSlot(ctx context.Context, slot service.Slot, dst any) SlotStatus {
	payload, err := s.slots.ReadSlot(ctx, slot)
	if err != nil {
		if !errors.Is(err, storage.ErrSlotNotFound) {
			s.logger.Error("failed to read slot, using defaults", "slot", slot, "error", err)
		}
		return SlotMissing
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		s.logger.Warn("slot is corrupt, using defaults", "slot", slot, "error", err)
		return SlotCorrupt
	}
	return SlotLoaded
}

func sanitizeProfile(p model.Profile) model.Profile {
	p.Currency = model.NormalizeCurrency(p.Currency)
	if p.Currency == "" {
		p.Currency = model.DefaultCurrency
	}
	if _, err := model.ParseReportingPeriod(string(p.Budget.Period)); err != nil {
		p.Budget.Period = model.PeriodMonthly
	}
	return p
}
