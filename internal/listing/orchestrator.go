package listing

import (
	"context"

	"github.com/rsilvagit/go-jobs/internal/api"
	"github.com/rsilvagit/go-jobs/internal/filter"
	"github.com/rsilvagit/go-jobs/internal/model"
)

// Lister is the list half of api.JobService.
type Lister interface {
	ListJobs(ctx context.Context, c filter.Criteria) (*api.ListResult, error)
}

// Orchestrator turns filter criteria into the final ordered job list: the
// server filters and sorts, then free-text search narrows the result locally.
type Orchestrator struct {
	svc Lister
}

func NewOrchestrator(svc Lister) *Orchestrator {
	return &Orchestrator{svc: svc}
}

// Fetch issues exactly one list call. The result keeps the server's order and
// is empty, never nil, when nothing matches.
func (o *Orchestrator) Fetch(ctx context.Context, c filter.Criteria) ([]model.Job, error) {
	result, err := o.svc.ListJobs(ctx, c.ServerSide())
	if err != nil {
		return nil, err
	}
	return filter.ApplySearch(result.Jobs, c.Search), nil
}
