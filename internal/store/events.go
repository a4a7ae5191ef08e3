package store

// EventKind identifies the mutation that produced an Event.
type EventKind string

// Event kinds.
const (
	EventExpenseAdded       EventKind = "expense_added"
	EventExpenseUpdated     EventKind = "expense_updated"
	EventExpenseDeleted     EventKind = "expense_deleted"
	EventCategoryAdded      EventKind = "category_added"
	EventCategoryUpdated    EventKind = "category_updated"
	EventCategoryDeleted    EventKind = "category_deleted"
	EventExpensesReassigned EventKind = "expenses_reassigned"
	EventProfileUpdated     EventKind = "profile_updated"
	EventAmountsRewritten   EventKind = "amounts_rewritten"
	EventReset              EventKind = "reset"
	EventLoaded             EventKind = "loaded"
)

// Event describes a committed change to the ledger.
type Event struct {
	Kind       EventKind
	ExpenseID  string
	CategoryID string
	// Count is the number of expenses touched by bulk operations.
	Count int
}

// Subscribe registers fn to be called after every committed change. Handlers
// run synchronously on the mutating goroutine, outside the store's lock, so
// they may read from the store. The returned function removes the handler.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) publish(event Event) {
	s.subsMu.Lock()
	handlers := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
}
