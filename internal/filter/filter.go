package filter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rsilvagit/go-jobs/internal/model"
)

// AllJobTypes is the job_type sentinel meaning "no constraint".
const AllJobTypes = "all"

// Sort is one of the orderings the jobs API understands, as {field}_{direction}.
type Sort string

const (
	SortPostingDateDesc Sort = "posting_date_desc"
	SortPostingDateAsc  Sort = "posting_date_asc"
	SortTitleAsc        Sort = "title_asc"
	SortTitleDesc       Sort = "title_desc"
	SortCompanyAsc      Sort = "company_asc"
	SortCompanyDesc     Sort = "company_desc"

	DefaultSort = SortPostingDateDesc
)

// Sorts lists every accepted sort value with its label.
var Sorts = []struct {
	Value Sort
	Label string
}{
	{SortPostingDateDesc, "Date Posted: Newest First"},
	{SortPostingDateAsc, "Date Posted: Oldest First"},
	{SortTitleAsc, "Title: A-Z"},
	{SortTitleDesc, "Title: Z-A"},
	{SortCompanyAsc, "Company: A-Z"},
	{SortCompanyDesc, "Company: Z-A"},
}

// ParseSort accepts exactly one of the Sorts values.
func ParseSort(s string) (Sort, error) {
	for _, known := range Sorts {
		if string(known.Value) == s {
			return known.Value, nil
		}
	}
	return "", fmt.Errorf("filter: unknown sort %q", s)
}

// Criteria holds all filter criteria. Empty fields, "all" and the default
// sort mean "no constraint".
type Criteria struct {
	Search   string // matched client-side against title and company
	JobType  string // exact match, or AllJobTypes
	Location string // substring, server-side
	Company  string // substring, server-side
	Tag      string // tag match, server-side
	Sort     Sort
}

// Default returns the criteria a fresh or reset listing starts with.
func Default() Criteria {
	return Criteria{JobType: AllJobTypes, Sort: DefaultSort}
}

// Query returns the server-bound subset of c as query parameters. Search is
// never included, and neither is any field at its unconstrained value.
func (c Criteria) Query() url.Values {
	params := url.Values{}
	if jt := strings.TrimSpace(c.JobType); jt != "" && jt != AllJobTypes {
		params.Set("job_type", jt)
	}
	if v := strings.TrimSpace(c.Location); v != "" {
		params.Set("location", v)
	}
	if v := strings.TrimSpace(c.Company); v != "" {
		params.Set("company", v)
	}
	if v := strings.TrimSpace(c.Tag); v != "" {
		params.Set("tag", v)
	}
	if c.Sort != "" && c.Sort != DefaultSort {
		params.Set("sort", string(c.Sort))
	}
	return params
}

// ServerSide returns c without the client-side search term.
func (c Criteria) ServerSide() Criteria {
	c.Search = ""
	return c
}

// IsDefault reports whether c places no constraint at all.
func (c Criteria) IsDefault() bool {
	return c.Search == "" && len(c.Query()) == 0
}

// Validate rejects job types and sorts the API would not understand.
func (c Criteria) Validate() error {
	if c.JobType != "" && c.JobType != AllJobTypes && !model.JobType(c.JobType).Valid() {
		return fmt.Errorf("filter: unknown job type %q", c.JobType)
	}
	if c.Sort != "" {
		if _, err := ParseSort(string(c.Sort)); err != nil {
			return err
		}
	}
	return nil
}

// ApplySearch keeps only jobs whose title or company contains term,
// case-insensitively, preserving order. An empty term returns jobs unchanged.
// The result is never nil.
func ApplySearch(jobs []model.Job, term string) []model.Job {
	term = strings.ToLower(term)
	if term == "" {
		if jobs == nil {
			return []model.Job{}
		}
		return jobs
	}

	result := []model.Job{}
	for _, j := range jobs {
		if matchJob(j, term) {
			result = append(result, j)
		}
	}
	return result
}

func matchJob(j model.Job, term string) bool {
	title, company := j.SearchText()
	return strings.Contains(title, term) || strings.Contains(company, term)
}
