package query

const (
	// DefaultLimit caps the number of issues a single search may return.
	DefaultLimit = 1000
	// DefaultPageSize is the page size requested per search call.
	DefaultPageSize = 100
)

// TaskFields is the projection used for roll-ups and flattened issue lists.
var TaskFields = []string{
	"summary", "status", "issuetype", "priority", "assignee",
	"created", "updated", "fixVersions", "versions",
}

// DetailFields extends TaskFields with the issue graph and body.
var DetailFields = append(append([]string(nil), TaskFields...),
	"description", "labels", "project", "parent", "subtasks", "issuelinks",
)

// SearchRequest is a bounded, paginated issue search.
type SearchRequest struct {
	JQL      string
	Fields   []string
	Limit    int // total cap; DefaultLimit when zero
	PageSize int // per-call size; DefaultPageSize when zero
}

// PageRequest is the JSON body of one search call.
type PageRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
}

// NewSearch returns a request with the default bounds.
func NewSearch(jql string, fields []string) SearchRequest {
	return SearchRequest{JQL: jql, Fields: fields, Limit: DefaultLimit, PageSize: DefaultPageSize}
}

// WithLimit returns a copy with a different total cap.
func (r SearchRequest) WithLimit(limit int) SearchRequest {
	r.Limit = limit
	return r
}

func (r SearchRequest) limit() int {
	if r.Limit <= 0 {
		return DefaultLimit
	}
	return r.Limit
}

func (r SearchRequest) pageSize() int {
	if r.PageSize <= 0 {
		return DefaultPageSize
	}
	return r.PageSize
}

// Page returns the request body for the page starting at startAt. It reports
// false once startAt has reached the limit.
func (r SearchRequest) Page(startAt int) (PageRequest, bool) {
	limit := r.limit()
	if startAt >= limit {
		return PageRequest{}, false
	}
	return PageRequest{
		JQL:        r.JQL,
		Fields:     r.Fields,
		StartAt:    startAt,
		MaxResults: min(r.pageSize(), limit-startAt),
	}, true
}
