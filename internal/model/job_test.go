package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"mixed spacing and empties", "a, b ,, c", []string{"a", "b", "c"}},
		{"empty", "", []string{}},
		{"only commas", " , ,", []string{}},
		{"single", "go", []string{"go"}},
		{"keeps order", "react,  go,python ", []string{"react", "go", "python"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.raw))
		})
	}
}

func TestNewJobInputDefaults(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

	in := NewJobInputAt(now, " Backend Engineer ", "Acme", "Remote", "", "a, b ,, c", "")

	assert.Equal(t, "Backend Engineer", in.Title)
	assert.Equal(t, JobTypeFullTime, in.JobType)
	assert.Equal(t, []string{"a", "b", "c"}, in.Tags)
	assert.Equal(t, "2024-03-09", in.PostingDate)
}

func TestJobInputValidate(t *testing.T) {
	valid := JobInput{Title: "t", Company: "c", Location: "l", JobType: JobTypeContract, PostingDate: "2024-01-02"}
	require.NoError(t, valid.Validate())

	err := JobInput{JobType: "Gig", PostingDate: "yesterday"}.Validate()
	require.Error(t, err)

	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var fe FieldError
		require.True(t, errors.As(e, &fe))
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"title", "company", "location", "job_type", "posting_date"}, fields)
}

func TestParseJobType(t *testing.T) {
	got, err := ParseJobType(" part-time ")
	require.NoError(t, err)
	assert.Equal(t, JobTypePartTime, got)

	_, err = ParseJobType("seasonal")
	assert.Error(t, err)
}

func TestJobDecodesServerDates(t *testing.T) {
	body := `{"id":3,"title":"Actuary","company":"Acme","location":"NYC","job_type":"Full-time",
		"tags":["life"],"posting_date":"2024-05-01T10:30:00","created_at":null,"updated_at":"2024-05-02T08:00:00+00:00"}`

	var j Job
	require.NoError(t, json.Unmarshal([]byte(body), &j))

	assert.Equal(t, 3, j.ID)
	assert.Equal(t, "2024-05-01", j.PostingDate.Date())
	assert.True(t, j.CreatedAt.IsZero())
	assert.Equal(t, "N/A", j.CreatedAt.Date())
	assert.Equal(t, 2024, j.UpdatedAt.Year())
}

func TestInputFromJob(t *testing.T) {
	ts, err := ParseTimestamp("2024-05-01T10:30:00")
	require.NoError(t, err)
	j := Job{ID: 1, Title: "T", Company: "C", Location: "L", JobType: JobTypeFreelance, Tags: []string{"x", "y"}, PostingDate: ts}

	in := InputFromJob(j)

	assert.Equal(t, "2024-05-01", in.PostingDate)
	assert.Equal(t, "x, y", in.TagString())
	in.Tags[0] = "changed"
	assert.Equal(t, "x", j.Tags[0])
}

func TestTimestampRoundTripKeepsTheInstant(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"offset", "2024-05-01T10:30:00+02:00", `"2024-05-01T08:30:00"`},
		{"utc with micros", "2024-05-01T10:30:00.123456Z", `"2024-05-01T10:30:00.123456"`},
		{"naive", "2024-05-01T10:30:00", `"2024-05-01T10:30:00"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)

			data, err := json.Marshal(ts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			var back Timestamp
			require.NoError(t, json.Unmarshal(data, &back))
			assert.True(t, ts.Equal(back.Time), "got %s, want %s", back.Time, ts.Time)
		})
	}

	data, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
