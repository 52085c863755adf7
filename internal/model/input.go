package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobInput is the body sent to create or fully replace a job.
type JobInput struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	JobType     JobType  `json:"job_type"`
	Tags        []string `json:"tags"`
	PostingDate string   `json:"posting_date"`
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Message
}

// ParseTags splits a comma-separated tag string, trimming each entry and
// dropping empty ones. It never returns nil.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// NewJobInput builds an input from form values. tags is the comma-separated
// form text; an empty postingDate defaults to today.
func NewJobInput(title, company, location string, jobType JobType, tags, postingDate string) JobInput {
	return NewJobInputAt(time.Now(), title, company, location, jobType, tags, postingDate)
}

// NewJobInputAt is NewJobInput with an explicit "today".
func NewJobInputAt(now time.Time, title, company, location string, jobType JobType, tags, postingDate string) JobInput {
	postingDate = strings.TrimSpace(postingDate)
	if postingDate == "" {
		postingDate = now.Format(DateLayout)
	}
	if jobType == "" {
		jobType = JobTypeFullTime
	}
	return JobInput{
		Title:       strings.TrimSpace(title),
		Company:     strings.TrimSpace(company),
		Location:    strings.TrimSpace(location),
		JobType:     jobType,
		Tags:        ParseTags(tags),
		PostingDate: postingDate,
	}
}

// InputFromJob prefills an edit form from an existing job.
func InputFromJob(j Job) JobInput {
	in := JobInput{
		Title:    j.Title,
		Company:  j.Company,
		Location: j.Location,
		JobType:  j.JobType,
		Tags:     append([]string{}, j.Tags...),
	}
	if in.JobType == "" {
		in.JobType = JobTypeFullTime
	}
	if !j.PostingDate.IsZero() {
		in.PostingDate = j.PostingDate.Format(DateLayout)
	}
	return in
}

// TagString joins the tags the way the edit form displays them.
func (in JobInput) TagString() string {
	return strings.Join(in.Tags, ", ")
}

// Validate checks the fields the jobs API requires. All problems are
// returned joined.
func (in JobInput) Validate() error {
	var errs []error
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "Title is required"})
	}
	if strings.TrimSpace(in.Company) == "" {
		errs = append(errs, FieldError{Field: "company", Message: "Company is required"})
	}
	if strings.TrimSpace(in.Location) == "" {
		errs = append(errs, FieldError{Field: "location", Message: "Location is required"})
	}
	switch {
	case in.JobType == "":
		errs = append(errs, FieldError{Field: "job_type", Message: "Job type is required"})
	case !in.JobType.Valid():
		errs = append(errs, FieldError{Field: "job_type", Message: fmt.Sprintf("Job type must be one of: %s", joinJobTypes())})
	}
	if in.PostingDate != "" {
		if _, err := ParseTimestamp(in.PostingDate); err != nil {
			errs = append(errs, FieldError{Field: "posting_date", Message: "Posting date must be a date (YYYY-MM-DD)"})
		}
	}
	return errors.Join(errs...)
}

func joinJobTypes() string {
	names := make([]string, len(JobTypes))
	for i, t := range JobTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
