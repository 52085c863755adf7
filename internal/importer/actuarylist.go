package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rsilvagit/go-jobs/internal/model"
)

const (
	cardSelector     = "div.Job_job-card__YgDAV"
	titleSelector    = "p.Job_job-card__position__ic1rc"
	companySelector  = "p.Job_job-card__company__7T9qY"
	locationSelector = "a.Job_job-card__location__bq7jX"
	postedSelector   = "p.Job_job-card__posted-on__NCZaJ"
	tagSelector      = "div.Job_job-card__tags__zfriA a"

	postedLayout = "2006-01-02T15:04:05"
)

var relativeAge = regexp.MustCompile(`(\d+)\s*([hmd])\s+ago`)

type ActuaryList struct {
	client Doer
	now    func() time.Time
}

func NewActuaryList(client Doer) *ActuaryList {
	if client == nil {
		client = http.DefaultClient
	}
	return &ActuaryList{
		client: client,
		now:    time.Now,
	}
}

func (a *ActuaryList) Name() string {
	return "ActuaryList"
}

func (a *ActuaryList) Host() string {
	return "actuarylist.com"
}

func (a *ActuaryList) Scrape(ctx context.Context, pageURL string) ([]model.JobInput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("actuarylist: building request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actuarylist: executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("actuarylist: unexpected status %d", resp.StatusCode)
	}

	return ParseActuaryList(resp.Body, a.now())
}

// ParseActuaryList extracts one input per job card. Relative posting ages are
// resolved against now. Cards without a title are skipped.
func ParseActuaryList(r io.Reader, now time.Time) ([]model.JobInput, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("actuarylist: parsing HTML: %w", err)
	}

	jobs := []model.JobInput{}
	doc.Find(cardSelector).Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(titleSelector).First().Text())
		if title == "" {
			return
		}

		var locations []string
		s.Find(locationSelector).Each(func(_ int, l *goquery.Selection) {
			if loc := strings.TrimSpace(l.Text()); loc != "" {
				locations = append(locations, loc)
			}
		})
		tags := []string{}
		s.Find(tagSelector).Each(func(_ int, t *goquery.Selection) {
			if tag := strings.TrimSpace(t.Text()); tag != "" {
				tags = append(tags, tag)
			}
		})

		jobs = append(jobs, model.JobInput{
			Title:       title,
			Company:     strings.TrimSpace(s.Find(companySelector).First().Text()),
			Location:    strings.Join(locations, ", "),
			JobType:     MapJobType(tags),
			Tags:        tags,
			PostingDate: ParsePostedAge(s.Find(postedSelector).First().Text(), now),
		})
	})

	return jobs, nil
}

// MapJobType derives the job type from the first tag that names one.
// Boards without such a tag default to full-time.
func MapJobType(tags []string) model.JobType {
	for _, tag := range tags {
		t := strings.ToLower(tag)
		switch {
		case strings.Contains(t, "full"):
			return model.JobTypeFullTime
		case strings.Contains(t, "part"):
			return model.JobTypePartTime
		case strings.Contains(t, "contract"):
			return model.JobTypeContract
		case strings.Contains(t, "intern"):
			return model.JobTypeInternship
		case strings.Contains(t, "freelance"):
			return model.JobTypeFreelance
		}
	}
	return model.JobTypeFullTime
}

// ParsePostedAge turns "3h ago", "15m ago" or "2d ago" into a UTC timestamp
// relative to now. Anything else yields now.
func ParsePostedAge(text string, now time.Time) string {
	now = now.UTC()
	m := relativeAge.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if m == nil {
		return now.Format(postedLayout)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return now.Format(postedLayout)
	}

	var age time.Duration
	switch m[2] {
	case "h":
		age = time.Duration(n) * time.Hour
	case "m":
		age = time.Duration(n) * time.Minute
	case "d":
		age = time.Duration(n) * 24 * time.Hour
	}
	return now.Add(-age).Format(postedLayout)
}
