package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rsilvagit/go-jobs/internal/api"
	"github.com/rsilvagit/go-jobs/internal/filter"
	"github.com/rsilvagit/go-jobs/internal/importer"
	"github.com/rsilvagit/go-jobs/internal/listing"
	"github.com/rsilvagit/go-jobs/internal/model"
	"github.com/rsilvagit/go-jobs/internal/output"
)

var errQuit = errors.New("quit")

const helpText = `Commands:
  list                     fetch and show jobs with the current filters
  search <text>            set the title/company search term
  type <job type|all>      set the job type filter
  location <text>          set the location filter
  company <text>           set the company filter
  tag <text>               set the tag filter
  sort <sort>              set the sort order
  apply                    fetch with the filters set so far
  reset                    restore default filters and fetch
  show <id>                show one job
  add                      create a job
  edit <id>                edit a displayed job
  delete <id>              delete a displayed job
  dismiss                  hide the error message
  health                   check the API
  share                    send the displayed jobs to the configured chats
  import [url]             import jobs from a job board page
  help                     show this help
  quit                     exit`

// shell is the interactive front end over a listing.Store.
type shell struct {
	store     *listing.Store
	svc       api.JobService
	printer   *output.ConsolePrinter
	writers   []output.ResultWriter
	importer  *importer.Importer
	scrapers  []importer.Scraper
	importURL string
	in        *bufio.Scanner
	out       io.Writer
	log       *slog.Logger
}

// Run reads commands until quit or end of input.
func (sh *shell) Run(ctx context.Context) error {
	fmt.Fprintln(sh.out, `go-jobs: type "help" for commands`)
	if err := sh.Exec(ctx, "list"); err != nil && !errors.Is(err, errQuit) {
		sh.log.Debug("initial fetch failed", "err", err)
	}

	for {
		fmt.Fprint(sh.out, "> ")
		if !sh.in.Scan() {
			fmt.Fprintln(sh.out)
			return sh.in.Err()
		}
		err := sh.Exec(ctx, sh.in.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Exec runs one command line. Errors are already reported to the user; the
// return value only tells callers whether the command succeeded.
func (sh *shell) Exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "list":
		err = sh.fetch(ctx, sh.store.Search)
	case "apply":
		err = sh.fetch(ctx, sh.store.Search)
	case "reset":
		err = sh.fetch(ctx, sh.store.Reset)
	case "search", "type", "location", "company", "tag", "sort":
		err = sh.setFilter(ctx, strings.ToLower(cmd), arg)
	case "show":
		err = sh.show(ctx, arg)
	case "add":
		sh.store.OpenCreate()
		err = sh.submitForm(ctx)
	case "edit":
		err = sh.edit(ctx, arg)
	case "delete":
		err = sh.delete(ctx, arg)
	case "dismiss":
		sh.store.DismissError()
	case "health":
		err = sh.health(ctx)
	case "share":
		err = sh.share(ctx)
	case "import":
		err = sh.runImport(ctx, arg)
	case "help":
		fmt.Fprintln(sh.out, helpText)
	case "quit", "exit":
		return errQuit
	default:
		err = fmt.Errorf("unknown command %q", cmd)
		fmt.Fprintf(sh.out, "Unknown command %q. Type \"help\" for the list.\n", cmd)
	}
	return err
}

func (sh *shell) fetch(ctx context.Context, run func(context.Context) error) error {
	err := run(ctx)
	if rerr := sh.printer.Render(ctx, sh.store.Snapshot()); rerr != nil {
		return rerr
	}
	return err
}

func (sh *shell) setFilter(ctx context.Context, field, value string) error {
	c := sh.store.Criteria()
	switch field {
	case "search":
		c.Search = value
	case "type":
		if value == "" || strings.EqualFold(value, filter.AllJobTypes) {
			c.JobType = filter.AllJobTypes
			break
		}
		jt, err := model.ParseJobType(value)
		if err != nil {
			fmt.Fprintf(sh.out, "Job type must be \"all\" or one of: %s\n", jobTypeNames())
			return err
		}
		c.JobType = string(jt)
	case "location":
		c.Location = value
	case "company":
		c.Company = value
	case "tag":
		c.Tag = value
	case "sort":
		if value == "" {
			c.Sort = filter.DefaultSort
			break
		}
		s, err := filter.ParseSort(value)
		if err != nil {
			fmt.Fprintln(sh.out, "Sort must be one of:")
			for _, known := range filter.Sorts {
				fmt.Fprintf(sh.out, "  %-18s %s\n", known.Value, known.Label)
			}
			return err
		}
		c.Sort = s
	}

	if err := sh.store.SetCriteria(ctx, c); err != nil {
		fmt.Fprintln(sh.out, err)
		return err
	}
	fmt.Fprintf(sh.out, "Filters: %s (type \"apply\" to fetch)\n", output.DescribeCriteria(c))
	return nil
}

func (sh *shell) show(ctx context.Context, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return err
	}
	job, ok := sh.store.Job(id)
	if !ok {
		fetched, err := sh.svc.GetJob(ctx, id)
		if err != nil {
			fmt.Fprintln(sh.out, api.UserMessage(err, "Failed to load job. Please try again."))
			return err
		}
		job = *fetched
	}
	return sh.printer.PrintJob(job)
}

func (sh *shell) edit(ctx context.Context, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return err
	}
	if _, err := sh.store.OpenEditByID(id); err != nil {
		fmt.Fprintf(sh.out, "Job %d is not in the displayed list.\n", id)
		return err
	}
	return sh.submitForm(ctx)
}

// submitForm prompts for every field of the open form and submits it. A
// rejected submission keeps the form and offers to try again with the
// entered values.
func (sh *shell) submitForm(ctx context.Context) error {
	form := sh.store.Snapshot().Form
	if form == nil {
		return listing.ErrNoEditContext
	}
	in := form.Prefill()
	if form.Editing() {
		fmt.Fprintf(sh.out, "Editing job %d. Press enter to keep a value, %s to clear the tags.\n", form.Job.ID, clearTags)
	} else {
		fmt.Fprintln(sh.out, "New job. Press enter to accept a default.")
	}

	for {
		next, ok := sh.promptInput(in)
		if !ok {
			sh.store.CloseForm()
			return io.EOF
		}
		in = next

		job, err := sh.store.Submit(ctx, in)
		if err == nil {
			fmt.Fprintf(sh.out, "Saved job %d: %s\n", job.ID, job.Title)
			return sh.printer.Render(ctx, sh.store.Snapshot())
		}
		if errors.Is(err, listing.ErrMutationPending) {
			fmt.Fprintln(sh.out, "A save is already in progress.")
			return err
		}

		fmt.Fprintf(sh.out, "! %s\n", sh.store.Snapshot().Error)
		if !sh.confirm("Try again?") {
			sh.store.CloseForm()
			return err
		}
	}
}

// clearTags answers the tags prompt with an empty list, since an empty answer
// keeps the current value.
const clearTags = "-"

func (sh *shell) promptInput(in model.JobInput) (model.JobInput, bool) {
	fields := []struct {
		label string
		value *string
	}{
		{"Title", &in.Title},
		{"Company", &in.Company},
		{"Location", &in.Location},
	}
	for _, f := range fields {
		v, ok := sh.prompt(f.label, *f.value)
		if !ok {
			return in, false
		}
		*f.value = v
	}

	jobType, ok := sh.prompt("Job type ("+jobTypeNames()+")", string(in.JobType))
	if !ok {
		return in, false
	}
	if jt, err := model.ParseJobType(jobType); err == nil {
		in.JobType = jt
	} else {
		in.JobType = model.JobType(jobType)
	}

	tags, ok := sh.prompt("Tags (comma separated, "+clearTags+" for none)", in.TagString())
	if !ok {
		return in, false
	}
	if tags == clearTags {
		tags = ""
	}
	in.Tags = model.ParseTags(tags)

	date, ok := sh.prompt("Posting date (YYYY-MM-DD)", in.PostingDate)
	if !ok {
		return in, false
	}
	in.PostingDate = date
	return in, true
}

func (sh *shell) delete(ctx context.Context, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return err
	}
	job, ok := sh.store.Job(id)
	if !ok {
		fmt.Fprintf(sh.out, "Job %d is not in the displayed list.\n", id)
		return listing.ErrJobNotDisplayed
	}

	issued, err := sh.store.Delete(ctx, job, func(j model.Job) bool {
		return sh.confirm(fmt.Sprintf("Delete %q at %s?", j.Title, j.Company))
	})
	switch {
	case !issued:
		fmt.Fprintln(sh.out, "Cancelled.")
		return nil
	case err != nil:
		fmt.Fprintf(sh.out, "! %s\n", sh.store.Snapshot().Error)
		return err
	}
	fmt.Fprintf(sh.out, "Deleted job %d.\n", id)
	return sh.printer.Render(ctx, sh.store.Snapshot())
}

func (sh *shell) health(ctx context.Context) error {
	h, err := sh.svc.HealthCheck(ctx)
	if err != nil {
		fmt.Fprintln(sh.out, api.UserMessage(err, "API is unreachable."))
		return err
	}
	fmt.Fprintf(sh.out, "%s: %s\n", h.Status, h.Message)
	return nil
}

func (sh *shell) share(ctx context.Context) error {
	if len(sh.writers) == 0 {
		fmt.Fprintln(sh.out, "No share target configured (set TELEGRAM_TOKEN/TELEGRAM_CHAT_ID or DISCORD_WEBHOOK_URL).")
		return nil
	}
	jobs := sh.store.Snapshot().Jobs
	var errs []error
	for _, w := range sh.writers {
		if err := w.WriteJobs(ctx, jobs); err != nil {
			fmt.Fprintf(sh.out, "Share failed: %v\n", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		fmt.Fprintf(sh.out, "Shared %d job(s).\n", len(jobs))
	}
	return errors.Join(errs...)
}

func (sh *shell) runImport(ctx context.Context, pageURL string) error {
	if pageURL == "" {
		pageURL = sh.importURL
	}
	s := importer.ForURL(sh.scrapers, pageURL)
	if s == nil || sh.importer == nil {
		fmt.Fprintln(sh.out, "Import is not available.")
		return nil
	}

	report, err := sh.importer.Run(ctx, s, pageURL)
	if err != nil && report == nil {
		fmt.Fprintf(sh.out, "Import failed: %v\n", err)
		return err
	}
	fmt.Fprintf(sh.out, "Imported %d of %d job(s) from %s (%d skipped, %d failed).\n",
		len(report.Posted), report.Found, report.Source, report.Skipped, len(report.Failed))
	for _, f := range report.Failed {
		fmt.Fprintf(sh.out, "  %s: %s\n", f.Input.Title, api.UserMessage(f.Err, "Failed to create job. Please try again."))
	}
	if ferr := sh.fetch(ctx, sh.store.Search); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func (sh *shell) prompt(label, def string) (string, bool) {
	if def != "" {
		fmt.Fprintf(sh.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(sh.out, "%s: ", label)
	}
	if !sh.in.Scan() {
		return "", false
	}
	v := strings.TrimSpace(sh.in.Text())
	if v == "" {
		return def, true
	}
	return v, true
}

func (sh *shell) confirm(question string) bool {
	fmt.Fprintf(sh.out, "%s [y/N]: ", question)
	if !sh.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sh.in.Text()))
	return answer == "y" || answer == "yes"
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("expected a job id, got %q", arg)
	}
	return id, nil
}

func jobTypeNames() string {
	names := make([]string, len(model.JobTypes))
	for i, t := range model.JobTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
