// Package importer fills the jobs API from public job boards: a Scraper turns
// a board page into job inputs and the Importer posts them.
package importer

import (
	"context"
	"net/http"
	"strings"

	"github.com/rsilvagit/go-jobs/internal/model"
)

// Doer sends HTTP requests. *httpclient.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Scraper defines the contract every job board scraper must satisfy.
type Scraper interface {
	// Name returns a human-readable identifier for this scraper.
	Name() string

	// Scrape fetches pageURL and returns one input per job card.
	Scrape(ctx context.Context, pageURL string) ([]model.JobInput, error)
}

// Registry returns all available scrapers using the shared HTTP client.
func Registry(client Doer) []Scraper {
	return []Scraper{
		NewActuaryList(client),
	}
}

// ForURL picks the registered scraper whose host appears in pageURL, or the
// first one when none matches.
func ForURL(scrapers []Scraper, pageURL string) Scraper {
	if len(scrapers) == 0 {
		return nil
	}
	lower := strings.ToLower(pageURL)
	for _, s := range scrapers {
		if h, ok := s.(interface{ Host() string }); ok && strings.Contains(lower, h.Host()) {
			return s
		}
	}
	return scrapers[0]
}
