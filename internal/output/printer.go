package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rsilvagit/go-jobs/internal/filter"
	"github.com/rsilvagit/go-jobs/internal/listing"
	"github.com/rsilvagit/go-jobs/internal/model"
)

const noJobsMessage = "No jobs found matching your criteria."

// ResultWriter defines where a job list is sent.
type ResultWriter interface {
	WriteJobs(ctx context.Context, jobs []model.Job) error
}

// ConsolePrinter renders the listing view as a formatted table.
type ConsolePrinter struct {
	out io.Writer
}

// NewConsolePrinter writes to out, or to stdout when out is nil.
func NewConsolePrinter(out io.Writer) *ConsolePrinter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsolePrinter{out: out}
}

func (cp *ConsolePrinter) WriteJobs(_ context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		fmt.Fprintln(cp.out, noJobsMessage)
		return nil
	}

	fmt.Fprintf(cp.out, "Found %d job(s)\n", len(jobs))
	w := tabwriter.NewWriter(cp.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCOMPANY\tLOCATION\tTYPE\tTAGS\tPOSTED")
	fmt.Fprintln(w, "--\t-----\t-------\t--------\t----\t----\t------")
	for _, j := range jobs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.Title, j.Company, j.Location, j.JobType, strings.Join(j.Tags, ", "), j.PostingDate.Date())
	}
	return w.Flush()
}

// Render prints the whole listing view: error banner, active filters, and
// either the loading notice or the job table.
func (cp *ConsolePrinter) Render(ctx context.Context, state listing.State) error {
	if state.Error != "" {
		fmt.Fprintf(cp.out, "! %s  (type \"dismiss\" to hide)\n", state.Error)
	}
	if !state.Criteria.IsDefault() {
		fmt.Fprintf(cp.out, "Filters: %s\n", DescribeCriteria(state.Criteria))
	}
	if state.Loading && !state.Loaded {
		fmt.Fprintln(cp.out, "Loading jobs...")
		return nil
	}
	return cp.WriteJobs(ctx, state.Jobs)
}

// PrintJob prints every field of one job.
func (cp *ConsolePrinter) PrintJob(j model.Job) error {
	w := tabwriter.NewWriter(cp.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", j.ID)
	fmt.Fprintf(w, "Title:\t%s\n", j.Title)
	fmt.Fprintf(w, "Company:\t%s\n", j.Company)
	fmt.Fprintf(w, "Location:\t%s\n", j.Location)
	fmt.Fprintf(w, "Type:\t%s\n", j.JobType)
	fmt.Fprintf(w, "Tags:\t%s\n", strings.Join(j.Tags, ", "))
	fmt.Fprintf(w, "Posted:\t%s\n", j.PostingDate.Date())
	if !j.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:\t%s\n", j.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// DescribeCriteria summarizes the constrained fields of c.
func DescribeCriteria(c filter.Criteria) string {
	var parts []string
	if c.Search != "" {
		parts = append(parts, fmt.Sprintf("search=%q", c.Search))
	}
	if c.JobType != "" && c.JobType != filter.AllJobTypes {
		parts = append(parts, "type="+c.JobType)
	}
	if c.Location != "" {
		parts = append(parts, fmt.Sprintf("location=%q", c.Location))
	}
	if c.Company != "" {
		parts = append(parts, fmt.Sprintf("company=%q", c.Company))
	}
	if c.Tag != "" {
		parts = append(parts, fmt.Sprintf("tag=%q", c.Tag))
	}
	if c.Sort != "" && c.Sort != filter.DefaultSort {
		parts = append(parts, "sort="+string(c.Sort))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
