package listing

import (
	"context"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/rsilvagit/go-jobs/internal/api"
	"github.com/rsilvagit/go-jobs/internal/filter"
	"github.com/rsilvagit/go-jobs/internal/model"
)

const fetchFailedMessage = "Failed to load jobs. Please try again."

// State is a point-in-time copy of everything the listing view renders.
type State struct {
	Criteria filter.Criteria
	Jobs     []model.Job
	Loading  bool
	// Loaded is false until the first fetch has succeeded.
	Loaded bool
	// Error is the single user-visible message, empty when there is none.
	Error     string
	Form      *EditContext
	Mutations map[MutationKind]MutationState
	// Generation identifies the fetch that produced Jobs.
	Generation uint64
}

// Store owns the listing state: the current criteria, the displayed jobs,
// loading and error flags, and the edit context. All reads go through
// Snapshot; all writes go through its methods.
type Store struct {
	orch *Orchestrator
	svc  api.JobService
	log  *slog.Logger

	// latest is the generation of the most recently issued fetch. It is
	// bumped under mu and read without it once a fetch returns.
	latest atomic.Uint64

	mu        sync.Mutex
	criteria  filter.Criteria
	jobs      []model.Job
	loading   bool
	loaded    bool
	errMsg    string
	form      *EditContext
	mutations map[MutationKind]MutationState
	shownGen  uint64

	subMu    sync.RWMutex
	handlers []Handler
}

// NewStore returns a store with default criteria and an empty list. Nothing
// is fetched until Refresh is called.
func NewStore(svc api.JobService, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		orch:      NewOrchestrator(svc),
		svc:       svc,
		log:       logger.With("component", "listing"),
		criteria:  filter.Default(),
		jobs:      []model.Job{},
		mutations: make(map[MutationKind]MutationState),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutations := make(map[MutationKind]MutationState, len(s.mutations))
	for k, v := range s.mutations {
		mutations[k] = v
	}
	var form *EditContext
	if s.form != nil {
		f := s.form.clone()
		form = &f
	}
	return State{
		Criteria:   s.criteria,
		Jobs:       append([]model.Job{}, s.jobs...),
		Loading:    s.loading,
		Loaded:     s.loaded,
		Error:      s.errMsg,
		Form:       form,
		Mutations:  mutations,
		Generation: s.shownGen,
	}
}

// Criteria returns the current filter criteria.
func (s *Store) Criteria() filter.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Job looks id up in the displayed list.
func (s *Store) Job(id int) (model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return model.Job{}, false
}

// SetCriteria replaces the whole criteria object. It does not fetch.
func (s *Store) SetCriteria(ctx context.Context, c filter.Criteria) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.criteria = c
	s.mu.Unlock()

	s.publish(ctx, Event{Type: CriteriaChanged, Criteria: c})
	return nil
}

// ApplyCriteria replaces the criteria and fetches with them.
func (s *Store) ApplyCriteria(ctx context.Context, c filter.Criteria) error {
	if err := s.SetCriteria(ctx, c); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Search fetches with the current criteria.
func (s *Store) Search(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Reset restores the default criteria in one replace and fetches once.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.SetCriteria(ctx, filter.Default()); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// DismissError clears the user-visible error.
func (s *Store) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

// Refresh fetches with the current criteria. Only the response to the most
// recently issued fetch is applied; older ones are dropped whether they
// succeeded or failed. On failure the displayed list is left as it was.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	criteria := s.criteria
	gen := s.latest.Inc()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	s.publish(ctx, Event{Type: FetchStarted, Generation: gen, Criteria: criteria})

	jobs, err := s.orch.Fetch(ctx, criteria)

	// latest only grows, so a superseded fetch can be dropped without the lock.
	if latest := s.latest.Load(); gen != latest {
		return s.discard(ctx, gen, latest, criteria, err)
	}

	s.mu.Lock()
	if latest := s.latest.Load(); gen != latest {
		s.mu.Unlock()
		return s.discard(ctx, gen, latest, criteria, err)
	}

	s.loading = false
	if err != nil {
		s.errMsg = fetchFailedMessage
		s.mu.Unlock()
		s.log.Warn("fetch failed", "generation", gen, "err", err)
		s.publish(ctx, Event{Type: FetchFailed, Generation: gen, Criteria: criteria, Err: err})
		return err
	}

	s.jobs = jobs
	s.loaded = true
	s.shownGen = gen
	s.mu.Unlock()

	s.publish(ctx, Event{Type: FetchSucceeded, Generation: gen, Criteria: criteria, Count: len(jobs)})
	return nil
}

func (s *Store) discard(ctx context.Context, gen, latest uint64, criteria filter.Criteria, err error) error {
	s.log.Debug("discarding stale fetch", "generation", gen, "latest", latest)
	s.publish(ctx, Event{Type: FetchDiscarded, Generation: gen, Criteria: criteria, Err: err})
	return nil
}
