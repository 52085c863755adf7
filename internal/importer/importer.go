package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rsilvagit/go-jobs/internal/model"
)

const defaultConcurrency = 4

// Creator is the create half of api.JobService.
type Creator interface {
	CreateJob(ctx context.Context, in model.JobInput) (*model.Job, error)
}

// Failure is one scraped job the API did not accept.
type Failure struct {
	Input model.JobInput
	Err   error
}

// Report summarizes one import run.
type Report struct {
	Source string
	// Found counts the cards scraped, duplicates included.
	Found int
	// Skipped holds cards dropped before posting: duplicates and inputs
	// missing required fields.
	Skipped int
	Posted  []model.Job
	Failed  []Failure
}

// Importer posts scraped jobs to the jobs API.
type Importer struct {
	creator     Creator
	concurrency int
	log         *slog.Logger
}

// New returns an importer posting through creator. A concurrency below one
// uses the default.
func New(creator Creator, concurrency int, logger *slog.Logger) *Importer {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		creator:     creator,
		concurrency: concurrency,
		log:         logger.With("component", "importer"),
	}
}

// Run scrapes pageURL with s and posts every distinct valid card. A card the
// API rejects is recorded in the report and does not stop the others.
func (im *Importer) Run(ctx context.Context, s Scraper, pageURL string) (*Report, error) {
	im.log.Info("scraping", "source", s.Name(), "url", pageURL)
	inputs, err := s.Scrape(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("importer: scraping %s: %w", s.Name(), err)
	}

	report := &Report{Source: s.Name(), Found: len(inputs)}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(im.concurrency)

	seen := make(map[string]bool)
	for _, in := range inputs {
		key := model.Job{Title: in.Title, Company: in.Company, Location: in.Location}.Key()
		if seen[key] {
			report.Skipped++
			continue
		}
		seen[key] = true

		if err := in.Validate(); err != nil {
			im.log.Warn("skipping card", "title", in.Title, "reason", strings.ReplaceAll(err.Error(), "\n", "; "))
			report.Skipped++
			continue
		}

		in := in
		g.Go(func() error {
			job, err := im.creator.CreateJob(ctx, in)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				im.log.Warn("failed to post", "title", in.Title, "err", err)
				report.Failed = append(report.Failed, Failure{Input: in, Err: err})
				return nil
			}
			im.log.Info("posted", "title", job.Title, "id", job.ID)
			report.Posted = append(report.Posted, *job)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Posted, func(i, k int) bool { return report.Posted[i].ID < report.Posted[k].ID })
	sort.Slice(report.Failed, func(i, k int) bool { return report.Failed[i].Input.Title < report.Failed[k].Input.Title })

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("importer: %w", err)
	}
	return report, nil
}
