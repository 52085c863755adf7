package listing

import (
	"context"
	"errors"
	"strings"

	"github.com/rsilvagit/go-jobs/internal/api"
	"github.com/rsilvagit/go-jobs/internal/model"
)

var (
	// ErrMutationPending is returned when a mutation of the same kind is
	// still in flight.
	ErrMutationPending = errors.New("listing: mutation already pending")
	// ErrNoEditContext is returned by Submit when no form is open.
	ErrNoEditContext = errors.New("listing: no job form open")
	// ErrJobNotDisplayed is returned when an id is not in the displayed list.
	ErrJobNotDisplayed = errors.New("listing: job not in the displayed list")
)

type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

func (k MutationKind) fallback() string {
	return "Failed to " + string(k) + " job. Please try again."
}

type MutationState int

const (
	MutationIdle MutationState = iota
	MutationPending
	MutationStateSucceeded
	MutationStateFailed
)

func (s MutationState) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationStateSucceeded:
		return "succeeded"
	case MutationStateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// EditContext is the open job form. A nil Job means the form creates a new
// job; otherwise it edits Job.
type EditContext struct {
	Job *model.Job
}

// Editing reports whether the form targets an existing job.
func (e EditContext) Editing() bool { return e.Job != nil }

// Prefill returns the values the form starts with.
func (e EditContext) Prefill() model.JobInput {
	if e.Job == nil {
		return model.NewJobInput("", "", "", "", "", "")
	}
	return model.InputFromJob(*e.Job)
}

func (e EditContext) clone() EditContext {
	if e.Job == nil {
		return EditContext{}
	}
	j := *e.Job
	j.Tags = append([]string(nil), e.Job.Tags...)
	return EditContext{Job: &j}
}

// ConfirmFunc asks the user to confirm deleting job.
type ConfirmFunc func(job model.Job) bool

// OpenCreate opens an empty form.
func (s *Store) OpenCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = &EditContext{}
}

// OpenEdit opens the form prefilled with job.
func (s *Store) OpenEdit(job model.Job) {
	form := EditContext{Job: &job}.clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = &form
}

// OpenEditByID opens the form for a job in the displayed list.
func (s *Store) OpenEditByID(id int) (model.Job, error) {
	job, ok := s.Job(id)
	if !ok {
		return model.Job{}, ErrJobNotDisplayed
	}
	s.OpenEdit(job)
	return job, nil
}

// CloseForm discards the edit context.
func (s *Store) CloseForm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = nil
}

// Submit creates or updates depending on the open form.
func (s *Store) Submit(ctx context.Context, in model.JobInput) (*model.Job, error) {
	s.mu.Lock()
	form := s.form
	s.mu.Unlock()

	if form == nil {
		return nil, ErrNoEditContext
	}
	if form.Job != nil {
		return s.Update(ctx, form.Job.ID, in)
	}
	return s.Create(ctx, in)
}

// Create posts a new job. On success the list is refetched.
func (s *Store) Create(ctx context.Context, in model.JobInput) (*model.Job, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}
	if err := s.beginMutation(ctx, MutationCreate, 0); err != nil {
		return nil, err
	}
	job, err := s.svc.CreateJob(ctx, in)
	id := 0
	if job != nil {
		id = job.ID
	}
	s.finishMutation(ctx, MutationCreate, id, err)
	return job, err
}

// Update replaces job id with in. On success the list is refetched.
func (s *Store) Update(ctx context.Context, id int, in model.JobInput) (*model.Job, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}
	if err := s.beginMutation(ctx, MutationUpdate, id); err != nil {
		return nil, err
	}
	job, err := s.svc.UpdateJob(ctx, id, in)
	s.finishMutation(ctx, MutationUpdate, id, err)
	return job, err
}

// Delete removes job after confirm approves it. It reports whether a delete
// request was issued; a nil or declining confirm issues none.
func (s *Store) Delete(ctx context.Context, job model.Job, confirm ConfirmFunc) (bool, error) {
	if confirm == nil || !confirm(job) {
		return false, nil
	}
	if err := s.beginMutation(ctx, MutationDelete, job.ID); err != nil {
		return false, err
	}
	err := s.svc.DeleteJob(ctx, job.ID)
	s.finishMutation(ctx, MutationDelete, job.ID, err)
	return true, err
}

func (s *Store) checkInput(in model.JobInput) error {
	err := in.Validate()
	if err == nil {
		return nil
	}
	s.mu.Lock()
	s.errMsg = strings.ReplaceAll(err.Error(), "\n", "; ")
	s.mu.Unlock()
	return err
}

func (s *Store) beginMutation(ctx context.Context, kind MutationKind, id int) error {
	s.mu.Lock()
	if s.mutations[kind] == MutationPending {
		s.mu.Unlock()
		return ErrMutationPending
	}
	s.mutations[kind] = MutationPending
	s.mu.Unlock()

	s.publish(ctx, Event{Type: MutationStarted, Mutation: kind, JobID: id})
	return nil
}

func (s *Store) finishMutation(ctx context.Context, kind MutationKind, id int, err error) {
	s.mu.Lock()
	if err != nil {
		s.mutations[kind] = MutationStateFailed
		s.errMsg = api.UserMessage(err, kind.fallback())
		s.mu.Unlock()

		s.log.Warn("mutation failed", "kind", kind, "job_id", id, "err", err)
		s.publish(ctx, Event{Type: MutationFailed, Mutation: kind, JobID: id, Err: err})
		return
	}
	s.mutations[kind] = MutationStateSucceeded
	s.errMsg = ""
	s.form = nil
	s.mu.Unlock()

	s.log.Info("mutation succeeded", "kind", kind, "job_id", id)
	s.publish(ctx, Event{Type: MutationSucceeded, Mutation: kind, JobID: id})
}
