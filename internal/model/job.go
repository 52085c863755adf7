package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobType is one of the fixed employment types accepted by the jobs API.
type JobType string

const (
	JobTypeFullTime   JobType = "Full-time"
	JobTypePartTime   JobType = "Part-time"
	JobTypeContract   JobType = "Contract"
	JobTypeInternship JobType = "Internship"
	JobTypeFreelance  JobType = "Freelance"
)

// JobTypes lists the accepted job types in display order.
var JobTypes = []JobType{
	JobTypeFullTime,
	JobTypePartTime,
	JobTypeContract,
	JobTypeInternship,
	JobTypeFreelance,
}

// Valid reports whether t is one of JobTypes.
func (t JobType) Valid() bool {
	for _, known := range JobTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseJobType matches s against JobTypes ignoring case and surrounding space.
func ParseJobType(s string) (JobType, error) {
	s = strings.TrimSpace(s)
	for _, known := range JobTypes {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

// Job is a single posting as returned by the jobs API.
type Job struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	JobType     JobType   `json:"job_type"`
	Tags        []string  `json:"tags"`
	PostingDate Timestamp `json:"posting_date"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// SearchText returns the fields matched by free-text search, in lowercase.
func (j Job) SearchText() (title, company string) {
	return strings.ToLower(j.Title), strings.ToLower(j.Company)
}

// Key returns a deduplication key for this job.
func (j Job) Key() string {
	return strings.ToLower(strings.TrimSpace(j.Title) + "|" + strings.TrimSpace(j.Company) + "|" + strings.TrimSpace(j.Location))
}

// Timestamp decodes the date formats the jobs API emits: ISO-8601 with or
// without a zone, or a bare date. JSON null leaves it zero.
type Timestamp struct {
	time.Time
}

const wireLayout = "2006-01-02T15:04:05.999999"

var timestampLayouts = []string{
	time.RFC3339Nano,
	wireLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// DateLayout is the wire format of JobInput.PostingDate.
const DateLayout = "2006-01-02"

// ParseTimestamp parses s using any layout the API is known to emit.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON writes the instant in UTC without a zone suffix, the form the
// API emits and ParseTimestamp reads back as UTC.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(wireLayout))
}

// Date formats the timestamp as YYYY-MM-DD, or "N/A" when unset.
func (t Timestamp) Date() string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(DateLayout)
}
