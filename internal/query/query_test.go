package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/trackdash/internal/types"
)

func TestBuilderJQL(t *testing.T) {
	since := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		builder Builder
		want    string
	}{
		{
			name:    "project only",
			builder: Builder{ProjectKey: "PROJ"},
			want:    `project = "PROJ"`,
		},
		{
			name:    "numeric version",
			builder: Builder{ProjectKey: "PROJ", VersionID: "10001"},
			want:    `project = "PROJ" AND fixVersion = 10001`,
		},
		{
			name:    "named version is quoted",
			builder: Builder{ProjectKey: "PROJ", VersionID: `v1.0"beta`},
			want:    `project = "PROJ" AND fixVersion = "v1.0\"beta"`,
		},
		{
			name:    "epic children",
			builder: Builder{ProjectKey: "PROJ", EpicKey: "PROJ-7"},
			want:    `project = "PROJ" AND ("Epic Link" = "PROJ-7" OR parent = "PROJ-7")`,
		},
		{
			name:    "updated since with order",
			builder: Builder{ProjectKey: "PROJ", UpdatedSince: since, OrderBy: OrderUpdatedDesc},
			want:    `project = "PROJ" AND updated >= "2025-01-15 10:30" ORDER BY updated DESC`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.builder.JQL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuilderRendersSinceInLocation(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	since := time.Date(2025, 6, 1, 22, 15, 0, 0, time.UTC)

	got, err := Builder{ProjectKey: "PROJ", UpdatedSince: since, Location: berlin}.JQL()
	require.NoError(t, err)
	assert.Equal(t, `project = "PROJ" AND updated >= "2025-06-02 00:15"`, got)

	got, err = Builder{ProjectKey: "PROJ", UpdatedSince: since}.JQL()
	require.NoError(t, err)
	assert.Equal(t, `project = "PROJ" AND updated >= "2025-06-01 22:15"`, got)
}

func TestBuilderRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		builder Builder
	}{
		{"empty key", Builder{}},
		{"whitespace key", Builder{ProjectKey: "MY PROJ"}},
		{"injection attempt", Builder{ProjectKey: `PROJ" OR project = "X`}},
		{"leading digit", Builder{ProjectKey: "1PROJ"}},
		{"whitespace version", Builder{ProjectKey: "PROJ", VersionID: "10 01"}},
		{"bad epic", Builder{ProjectKey: "PROJ", EpicKey: "PROJ 7"}},
		{"bad order", Builder{ProjectKey: "PROJ", OrderBy: "updated; DROP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.JQL()
			require.Error(t, err)
			assert.True(t, types.IsValidation(err), "want ValidationError, got %T", err)
		})
	}
}

func TestScopeHelpers(t *testing.T) {
	jql, err := ProjectJQL("ABC")
	require.NoError(t, err)
	assert.Equal(t, `project = "ABC"`, jql)

	jql, err = VersionJQL("ABC", "42")
	require.NoError(t, err)
	assert.Equal(t, `project = "ABC" AND fixVersion = 42`, jql)

	_, err = VersionJQL("ABC", "")
	assert.True(t, types.IsValidation(err))

	jql, err = EpicJQL("ABC", "ABC-1")
	require.NoError(t, err)
	assert.Equal(t, `project = "ABC" AND ("Epic Link" = "ABC-1" OR parent = "ABC-1")`, jql)

	_, err = EpicJQL("ABC", "")
	assert.True(t, types.IsValidation(err))
}

func TestValidateIssueKey(t *testing.T) {
	valid := []string{"PROJ-1", "ab_c-1234", "X-0"}
	for _, k := range valid {
		assert.NoError(t, ValidateIssueKey(k), k)
	}
	invalid := []string{"", "PROJ 1", "PROJ-", "-1", "PROJ-1a", "PROJ-1\n", " PROJ-1"}
	for _, k := range invalid {
		assert.Error(t, ValidateIssueKey(k), "%q", k)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"plain"`, Quote("plain"))
	assert.Equal(t, `"a\"b"`, Quote(`a"b`))
	assert.Equal(t, `"a\\b"`, Quote(`a\b`))
}

func TestSearchPaging(t *testing.T) {
	req := NewSearch(`project = "PROJ"`, TaskFields).WithLimit(250)

	page, ok := req.Page(0)
	require.True(t, ok)
	assert.Equal(t, 0, page.StartAt)
	assert.Equal(t, 100, page.MaxResults)
	assert.Equal(t, TaskFields, page.Fields)

	page, ok = req.Page(200)
	require.True(t, ok)
	assert.Equal(t, 50, page.MaxResults)

	_, ok = req.Page(250)
	assert.False(t, ok)
}

func TestSearchDefaults(t *testing.T) {
	var req SearchRequest
	page, ok := req.Page(0)
	require.True(t, ok)
	assert.Equal(t, DefaultPageSize, page.MaxResults)

	_, ok = req.Page(DefaultLimit)
	assert.False(t, ok)
}

func TestDetailFieldsExtendTaskFields(t *testing.T) {
	assert.Subset(t, DetailFields, TaskFields)
	assert.Contains(t, DetailFields, "parent")
	assert.Len(t, TaskFields, 9, "DetailFields must not alias TaskFields")
}
