package listing

import (
	"context"

	"github.com/rsilvagit/go-jobs/internal/filter"
)

type EventType int

const (
	CriteriaChanged EventType = iota
	FetchStarted
	FetchSucceeded
	FetchFailed
	// FetchDiscarded means a response arrived after a newer fetch was issued.
	FetchDiscarded
	MutationStarted
	MutationSucceeded
	MutationFailed
)

func (t EventType) String() string {
	switch t {
	case CriteriaChanged:
		return "criteria_changed"
	case FetchStarted:
		return "fetch_started"
	case FetchSucceeded:
		return "fetch_succeeded"
	case FetchFailed:
		return "fetch_failed"
	case FetchDiscarded:
		return "fetch_discarded"
	case MutationStarted:
		return "mutation_started"
	case MutationSucceeded:
		return "mutation_succeeded"
	case MutationFailed:
		return "mutation_failed"
	default:
		return "unknown"
	}
}

// Event describes a state transition of the Store. Fields that do not apply
// to Type are zero.
type Event struct {
	Type       EventType
	Generation uint64
	Criteria   filter.Criteria
	Count      int
	Mutation   MutationKind
	JobID      int
	Err        error
}

// Handler observes store events. Handlers run synchronously on the goroutine
// that caused the event and must not block.
type Handler func(ctx context.Context, ev Event)

// Subscribe registers h for every subsequent event.
func (s *Store) Subscribe(h Handler) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.handlers = append(s.handlers, h)
}

func (s *Store) publish(ctx context.Context, ev Event) {
	s.subMu.RLock()
	handlers := append([]Handler(nil), s.handlers...)
	s.subMu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	s.react(ctx, ev)
}

// react holds the store's own responses to its events.
func (s *Store) react(ctx context.Context, ev Event) {
	if ev.Type == MutationSucceeded {
		// Re-derive the list from the server with whatever criteria are
		// current now; the list is never patched locally.
		_ = s.Refresh(ctx)
	}
}
