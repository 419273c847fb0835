// Package types defines the normalized data structures trackdash derives from
// the upstream issue tracker. Values are rebuilt on every request and never
// persisted.
package types

import (
	"sort"
	"strings"
	"time"
)

// Well-known status buckets used by health and release derivations.
// Lookups against these names are case-insensitive.
const (
	StatusBlocked = "Blocked"
	StatusDone    = "Done"
	StatusFixed   = "Fixed"
	StatusUnknown = "Unknown"
)

// Project is a tracker project as listed upstream.
type Project struct {
	ID   string  `json:"id"`
	Key  string  `json:"key"`
	Name string  `json:"name"`
	Lead *string `json:"lead"` // display name, nil when the project has no lead
}

// User is an assignable project member.
type User struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

// Issue is the flattened view of a tracker issue.
type Issue struct {
	Key      string    `json:"key"`
	Summary  string    `json:"summary"`
	Status   string    `json:"status"`
	Type     string    `json:"type"`
	Priority string    `json:"priority"`
	Assignee *string   `json:"assignee"`
	Created  time.Time `json:"created,omitzero"`
	Updated  time.Time `json:"updated,omitzero"`

	// Version ids the issue is scheduled for (fixVersions) or reported
	// against (affected versions). Used for per-version counts only.
	FixVersions      []string `json:"-"`
	AffectedVersions []string `json:"-"`
}

// IssueRef is a lightweight pointer to a related issue.
type IssueRef struct {
	Key     string `json:"key"`
	Summary string `json:"summary,omitempty"`
	Status  string `json:"status,omitempty"`
	Type    string `json:"type,omitempty"`
}

// IssueLink is a typed link between two issues.
type IssueLink struct {
	Type      string   `json:"type"`
	Direction string   `json:"direction"` // "inward" or "outward"
	Issue     IssueRef `json:"issue"`
}

// IssueDetail is a single issue with its graph neighbours.
type IssueDetail struct {
	Issue
	URL         string      `json:"url,omitempty"` // browse link upstream
	Description string      `json:"description,omitempty"`
	Labels      []string    `json:"labels,omitempty"`
	Parent      *IssueRef   `json:"parent,omitempty"`
	Children    []IssueRef  `json:"children"`
	Links       []IssueLink `json:"links"`
}

// SearchResult is the outcome of a bounded issue search.
type SearchResult struct {
	Issues []Issue
	// Total is the number of matches reported upstream, which may exceed
	// len(Issues) when the search limit was reached.
	Total int
}

// Truncated reports whether upstream had more matches than were fetched.
func (r SearchResult) Truncated() bool {
	return r.Total > len(r.Issues)
}

// VersionStatus is the derived lifecycle state of a release.
type VersionStatus string

const (
	VersionReleased   VersionStatus = "Released"
	VersionArchived   VersionStatus = "Archived"
	VersionUnreleased VersionStatus = "Unreleased"
)

// IssueCounts summarizes the issues attached to a version.
type IssueCounts struct {
	// Total counts issues that carry the version as a fix or affected version.
	Total int `json:"total"`
	// FixedCount counts issues scheduled for the version (fixVersion).
	FixedCount int `json:"fixedCount"`
	// Done counts FixedCount issues already in a Done or Fixed status.
	Done int `json:"done"`
}

// Version is a project release.
type Version struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      VersionStatus `json:"status"`
	StartDate   string        `json:"startDate,omitempty"`   // YYYY-MM-DD
	ReleaseDate string        `json:"releaseDate,omitempty"` // YYYY-MM-DD
	IssueCounts IssueCounts   `json:"issueCounts"`
}

// TaskCounts groups a project's issues by status name.
// Total always equals the sum of Counts when both come from the same issue set.
type TaskCounts struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// EmptyTaskCounts is the degraded default used when an issue search fails.
func EmptyTaskCounts() TaskCounts {
	return TaskCounts{Counts: map[string]int{}}
}

// Bucket returns the count of the single status bucket matching name
// case-insensitively. An exact match wins; otherwise the first matching key in
// sorted order is used. Absent buckets count as zero.
func (tc TaskCounts) Bucket(name string) int {
	if n, ok := tc.Counts[name]; ok {
		return n
	}
	keys := make([]string, 0, len(tc.Counts))
	for k := range tc.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return tc.Counts[k]
		}
	}
	return 0
}

// IsDoneStatus reports whether a status name counts as finished work.
func IsDoneStatus(status string) bool {
	status = strings.TrimSpace(status)
	return strings.EqualFold(status, StatusDone) || strings.EqualFold(status, StatusFixed)
}

// HealthStatus is the three-level project classification.
type HealthStatus string

const (
	Healthy  HealthStatus = "Healthy"
	AtRisk   HealthStatus = "At Risk"
	Critical HealthStatus = "Critical"
)

// ProjectHealth is derived on every request and never stored.
type ProjectHealth struct {
	Status             HealthStatus `json:"status"`
	Progress           int          `json:"progress"`
	TotalProjectIssues int          `json:"totalProjectIssues"`
	Blocked            int          `json:"blocked"`
	VersionFixed       int          `json:"versionFixed"`
	VersionTotal       int          `json:"versionTotal"`
}

// ProjectRecord is the merged output of one project aggregation.
type ProjectRecord struct {
	Project    Project    `json:"project"`
	TaskCounts TaskCounts `json:"taskCounts"`
	Versions   []Version  `json:"versions"`
	Members    int        `json:"members"`
	// Issues backs per-version counting; it is not part of the wire format.
	Issues []Issue `json:"-"`
	// Truncated is set when the issue search hit its result cap.
	Truncated bool `json:"truncated,omitempty"`
	// Degraded lists the sub-fetches that failed and were replaced by defaults.
	Degraded []string `json:"degraded,omitempty"`
}
