package filter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsilvagit/go-jobs/internal/model"
)

func TestDefaultCriteriaSendsNoQuery(t *testing.T) {
	assert.Empty(t, Default().Query())
	assert.True(t, Default().IsDefault())

	// Zero value and explicit sentinels are equally unconstrained.
	assert.Empty(t, Criteria{}.Query())
	assert.Empty(t, Criteria{JobType: AllJobTypes, Sort: DefaultSort, Search: "ignored server-side"}.Query())
}

func TestQueryIncludesOnlyConstrainedFields(t *testing.T) {
	c := Criteria{
		Search:   "engineer",
		JobType:  "Contract",
		Location: "Remote",
		Company:  "",
		Tag:      "go",
		Sort:     SortTitleAsc,
	}

	want := url.Values{
		"job_type": {"Contract"},
		"location": {"Remote"},
		"tag":      {"go"},
		"sort":     {"title_asc"},
	}
	assert.Equal(t, want, c.Query())
	assert.False(t, c.IsDefault())
}

func TestParseSort(t *testing.T) {
	for _, s := range Sorts {
		got, err := ParseSort(string(s.Value))
		require.NoError(t, err)
		assert.Equal(t, s.Value, got)
	}

	_, err := ParseSort("salary_desc")
	assert.Error(t, err)
	_, err = ParseSort("Title_Asc")
	assert.Error(t, err)
}

func TestCriteriaValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.NoError(t, Criteria{JobType: "Internship", Sort: SortCompanyDesc}.Validate())
	assert.Error(t, Criteria{JobType: "full-time"}.Validate())
	assert.Error(t, Criteria{Sort: "newest"}.Validate())
}

func TestApplySearchMatchesTitleOrCompany(t *testing.T) {
	jobs := []model.Job{
		{ID: 1, Title: "Backend Engineer", Company: "Acme"},
		{ID: 2, Title: "Designer", Company: "EngineerCo"},
		{ID: 3, Title: "Accountant", Company: "Ledger Ltd"},
	}

	got := ApplySearch(jobs, "engineer")

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 2, got[1].ID)
}

func TestApplySearchPreservesServerOrder(t *testing.T) {
	jobs := []model.Job{
		{ID: 9, Title: "Zeta Go Dev", Company: "A"},
		{ID: 4, Title: "Other", Company: "B"},
		{ID: 7, Title: "alpha go dev", Company: "C"},
		{ID: 1, Title: "Nothing", Company: "GoCorp"},
	}

	got := ApplySearch(jobs, "GO")

	ids := make([]int, len(got))
	for i, j := range got {
		ids[i] = j.ID
	}
	assert.Equal(t, []int{9, 7, 1}, ids)
}

func TestApplySearchNoMatchIsEmptyNotNil(t *testing.T) {
	got := ApplySearch([]model.Job{{Title: "Designer", Company: "Acme"}}, "pilot")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.NotNil(t, ApplySearch(nil, ""))
}
