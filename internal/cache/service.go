package cache

import (
	"context"
	"log/slog"

	"github.com/rsilvagit/go-jobs/internal/api"
	"github.com/rsilvagit/go-jobs/internal/filter"
	"github.com/rsilvagit/go-jobs/internal/model"
)

// ListCache is the part of Cache the service decorator needs.
type ListCache interface {
	Key(ctx context.Context, criteria filter.Criteria) (string, error)
	Load(ctx context.Context, key string) (*api.ListResult, bool)
	Store(ctx context.Context, key string, result *api.ListResult) error
	Invalidate(ctx context.Context) error
}

// CachedService serves list calls from a ListCache and invalidates it after
// every successful create, update or delete. Everything else passes through.
type CachedService struct {
	api.JobService
	cache ListCache
	log   *slog.Logger
}

var _ api.JobService = (*CachedService)(nil)

func NewCachedService(svc api.JobService, cache ListCache, logger *slog.Logger) *CachedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedService{JobService: svc, cache: cache, log: logger.With("component", "cache")}
}

// ListJobs resolves the cache key before calling the server. A response that
// overlaps an invalidation is stored under the superseded generation and is
// never served.
func (s *CachedService) ListJobs(ctx context.Context, criteria filter.Criteria) (*api.ListResult, error) {
	key, err := s.cache.Key(ctx, criteria)
	if err != nil {
		s.log.Warn("list cache unavailable", "err", err)
		return s.JobService.ListJobs(ctx, criteria)
	}
	if cached, ok := s.cache.Load(ctx, key); ok {
		s.log.Debug("list cache hit", "query", criteria.Query().Encode())
		return cached, nil
	}

	result, err := s.JobService.ListJobs(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Store(ctx, key, result); err != nil {
		s.log.Warn("list cache write failed", "err", err)
	}
	return result, nil
}

func (s *CachedService) CreateJob(ctx context.Context, in model.JobInput) (*model.Job, error) {
	job, err := s.JobService.CreateJob(ctx, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return job, nil
}

func (s *CachedService) UpdateJob(ctx context.Context, id int, in model.JobInput) (*model.Job, error) {
	job, err := s.JobService.UpdateJob(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return job, nil
}

func (s *CachedService) DeleteJob(ctx context.Context, id int) error {
	if err := s.JobService.DeleteJob(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("list cache invalidation failed", "err", err)
	}
}
