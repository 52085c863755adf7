package listing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsilvagit/go-jobs/internal/api"
	"github.com/rsilvagit/go-jobs/internal/apitest"
	"github.com/rsilvagit/go-jobs/internal/filter"
	"github.com/rsilvagit/go-jobs/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubService is a JobService whose behaviour is set per test.
type stubService struct {
	mu      sync.Mutex
	lists   []filter.Criteria
	creates int

	listFn   func(ctx context.Context, c filter.Criteria) (*api.ListResult, error)
	createFn func(ctx context.Context, in model.JobInput) (*model.Job, error)
}

func (s *stubService) ListJobs(ctx context.Context, c filter.Criteria) (*api.ListResult, error) {
	s.mu.Lock()
	s.lists = append(s.lists, c)
	s.mu.Unlock()
	if s.listFn == nil {
		return &api.ListResult{Jobs: []model.Job{}}, nil
	}
	return s.listFn(ctx, c)
}

func (s *stubService) GetJob(context.Context, int) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

func (s *stubService) CreateJob(ctx context.Context, in model.JobInput) (*model.Job, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	if s.createFn == nil {
		return &model.Job{ID: 1, Title: in.Title}, nil
	}
	return s.createFn(ctx, in)
}

func (s *stubService) UpdateJob(_ context.Context, id int, in model.JobInput) (*model.Job, error) {
	return &model.Job{ID: id, Title: in.Title}, nil
}

func (s *stubService) DeleteJob(context.Context, int) error { return nil }

func (s *stubService) HealthCheck(context.Context) (*api.Health, error) {
	return &api.Health{Status: "healthy"}, nil
}

func (s *stubService) listCalls() []filter.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]filter.Criteria(nil), s.lists...)
}

func newFakeStore(t *testing.T) (*Store, *apitest.Server) {
	t.Helper()
	fake := apitest.New()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, srv.Client(), discardLogger())
	return NewStore(client, discardLogger()), fake
}

func validInput(title string) model.JobInput {
	return model.NewJobInput(title, "Acme", "Remote", model.JobTypeContract, "go, sql", "2024-03-01")
}

func requestLines(fake *apitest.Server) []string {
	var lines []string
	for _, r := range fake.Requests() {
		lines = append(lines, r.String())
	}
	return lines
}

func TestRefreshAppliesServerResultAndSearch(t *testing.T) {
	store, fake := newFakeStore(t)
	fake.Seed(
		model.Job{Title: "Senior Engineer", Company: "Acme", Location: "Remote", PostingDate: mustDay("2024-01-03")},
		model.Job{Title: "Designer", Company: "EngineerCo", Location: "Berlin", PostingDate: mustDay("2024-01-02")},
		model.Job{Title: "Manager", Company: "Other", Location: "Paris", PostingDate: mustDay("2024-01-01")},
	)
	ctx := context.Background()

	c := filter.Default()
	c.Search = "engineer"
	require.NoError(t, store.ApplyCriteria(ctx, c))

	state := store.Snapshot()
	require.Len(t, state.Jobs, 2)
	assert.Equal(t, "Senior Engineer", state.Jobs[0].Title)
	assert.Equal(t, "Designer", state.Jobs[1].Title)
	assert.False(t, state.Loading)
	assert.True(t, state.Loaded)
	assert.Empty(t, state.Error)
	assert.Equal(t, []string{"GET /jobs"}, requestLines(fake))
}

func TestSearchWithNoMatchesIsEmptyNotError(t *testing.T) {
	store, fake := newFakeStore(t)
	fake.Seed(model.Job{Title: "Go Dev", Company: "Acme", Location: "Remote"})

	c := filter.Default()
	c.Search = "haskell"
	require.NoError(t, store.ApplyCriteria(context.Background(), c))

	state := store.Snapshot()
	assert.NotNil(t, state.Jobs)
	assert.Empty(t, state.Jobs)
	assert.Empty(t, state.Error)
}

func TestResetRestoresDefaultsWithOneRefetch(t *testing.T) {
	store, fake := newFakeStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetCriteria(ctx, filter.Criteria{
		Search: "go", JobType: "Contract", Location: "Remote", Company: "Acme", Tag: "sql", Sort: filter.SortTitleAsc,
	}))
	require.NoError(t, store.Reset(ctx))

	assert.Equal(t, filter.Default(), store.Criteria())
	assert.Equal(t, []string{"GET /jobs"}, requestLines(fake))
}

func TestSetCriteriaRejectsUnknownValues(t *testing.T) {
	store := NewStore(&stubService{}, discardLogger())
	ctx := context.Background()

	assert.Error(t, store.SetCriteria(ctx, filter.Criteria{JobType: "Gig"}))
	assert.Error(t, store.SetCriteria(ctx, filter.Criteria{Sort: "salary_desc"}))
	assert.Equal(t, filter.Default(), store.Criteria())
}

func TestFetchFailureKeepsPreviousList(t *testing.T) {
	store, fake := newFakeStore(t)
	fake.Seed(model.Job{Title: "Go Dev", Company: "Acme", Location: "Remote"})
	ctx := context.Background()

	require.NoError(t, store.Refresh(ctx))
	fake.FailNext(http.MethodGet, "/jobs", http.StatusInternalServerError, "")

	err := store.Refresh(ctx)
	require.ErrorIs(t, err, api.ErrServer)

	state := store.Snapshot()
	assert.Len(t, state.Jobs, 1)
	assert.Equal(t, "Failed to load jobs. Please try again.", state.Error)
	assert.False(t, state.Loading)

	store.DismissError()
	assert.Empty(t, store.Snapshot().Error)
}

func TestStaleResponseNeverWins(t *testing.T) {
	tests := []struct {
		name  string
		stale error
	}{
		{name: "stale success", stale: nil},
		{name: "stale failure", stale: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			svc := &stubService{
				listFn: func(_ context.Context, c filter.Criteria) (*api.ListResult, error) {
					if c.JobType == string(model.JobTypeContract) {
						<-release
						if tt.stale != nil {
							return nil, tt.stale
						}
						return &api.ListResult{Jobs: []model.Job{{ID: 1, Title: "A"}}}, nil
					}
					return &api.ListResult{Jobs: []model.Job{{ID: 2, Title: "B"}}}, nil
				},
			}
			store := NewStore(svc, discardLogger())
			ctx := context.Background()

			started := make(chan struct{}, 1)
			var mu sync.Mutex
			var discarded []uint64
			store.Subscribe(func(_ context.Context, ev Event) {
				switch {
				case ev.Type == FetchStarted && ev.Criteria.JobType == string(model.JobTypeContract):
					started <- struct{}{}
				case ev.Type == FetchDiscarded:
					mu.Lock()
					discarded = append(discarded, ev.Generation)
					mu.Unlock()
				}
			})

			a := filter.Default()
			a.JobType = string(model.JobTypeContract)
			require.NoError(t, store.SetCriteria(ctx, a))

			errA := make(chan error, 1)
			go func() { errA <- store.Refresh(ctx) }()
			<-started

			require.NoError(t, store.ApplyCriteria(ctx, filter.Default()))
			close(release)
			require.NoError(t, <-errA)

			state := store.Snapshot()
			require.Len(t, state.Jobs, 1)
			assert.Equal(t, "B", state.Jobs[0].Title)
			assert.Empty(t, state.Error)
			assert.False(t, state.Loading)
			assert.Equal(t, uint64(2), state.Generation)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []uint64{1}, discarded)
		})
	}
}

func TestRefetchAfterMutationSupersedesInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	svc := &stubService{}
	svc.listFn = func(context.Context, filter.Criteria) (*api.ListResult, error) {
		if len(svc.listCalls()) == 1 {
			<-release
			return &api.ListResult{Jobs: []model.Job{{ID: 1, Title: "before create"}}}, nil
		}
		return &api.ListResult{Jobs: []model.Job{{ID: 1, Title: "before create"}, {ID: 2, Title: "Go Dev"}}}, nil
	}
	store := NewStore(svc, discardLogger())
	ctx := context.Background()

	started := make(chan struct{}, 1)
	var mu sync.Mutex
	var discarded []uint64
	store.Subscribe(func(_ context.Context, ev Event) {
		switch ev.Type {
		case FetchStarted:
			if ev.Generation == 1 {
				started <- struct{}{}
			}
		case FetchDiscarded:
			mu.Lock()
			discarded = append(discarded, ev.Generation)
			mu.Unlock()
		}
	})

	errA := make(chan error, 1)
	go func() { errA <- store.Refresh(ctx) }()
	<-started

	_, err := store.Create(ctx, validInput("Go Dev"))
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-errA)

	state := store.Snapshot()
	require.Len(t, state.Jobs, 2)
	assert.Equal(t, "Go Dev", state.Jobs[1].Title)
	assert.Equal(t, uint64(2), state.Generation)
	assert.False(t, state.Loading)
	assert.Len(t, svc.listCalls(), 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1}, discarded)
}

func TestEventsArePublishedInOrder(t *testing.T) {
	store := NewStore(&stubService{}, discardLogger())
	var got []EventType
	store.Subscribe(func(_ context.Context, ev Event) { got = append(got, ev.Type) })

	require.NoError(t, store.ApplyCriteria(context.Background(), filter.Default()))
	assert.Equal(t, []EventType{CriteriaChanged, FetchStarted, FetchSucceeded}, got)
	assert.Equal(t, "fetch_succeeded", FetchSucceeded.String())
}

func TestSnapshotIsACopy(t *testing.T) {
	svc := &stubService{
		listFn: func(context.Context, filter.Criteria) (*api.ListResult, error) {
			return &api.ListResult{Jobs: []model.Job{{ID: 3, Title: "Go Dev", Tags: []string{"go"}}}}, nil
		},
	}
	store := NewStore(svc, discardLogger())
	require.NoError(t, store.Refresh(context.Background()))

	state := store.Snapshot()
	state.Jobs[0].Title = "changed"

	job, ok := store.Job(3)
	require.True(t, ok)
	assert.Equal(t, "Go Dev", job.Title)

	_, ok = store.Job(4)
	assert.False(t, ok)
}

func mustDay(s string) model.Timestamp {
	ts, err := model.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}
