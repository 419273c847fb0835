// Package jira is the upstream client for Jira REST v3: wire types, the
// endpoints trackdash reads, and the normalization boundary that turns
// upstream JSON into internal/types values.
package jira

import "encoding/json"

// Issue represents a Jira issue from the REST API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the fields of a Jira issue. Every field is optional
// upstream; which ones are present depends on the search projection.
type IssueFields struct {
	Summary     string           `json:"summary"`
	Description json.RawMessage  `json:"description"` // ADF (Atlassian Document Format) or plain text
	Status      *StatusField     `json:"status"`
	Priority    *PriorityField   `json:"priority"`
	IssueType   *IssueTypeField  `json:"issuetype"`
	Project     *ProjectField    `json:"project"`
	Assignee    *UserField       `json:"assignee"`
	Labels      []string         `json:"labels"`
	Created     string           `json:"created"`
	Updated     string           `json:"updated"`
	FixVersions []VersionRef     `json:"fixVersions"`
	Versions    []VersionRef     `json:"versions"` // affected versions
	Parent      *IssueStub       `json:"parent"`
	Subtasks    []IssueStub      `json:"subtasks"`
	IssueLinks  []IssueLinkField `json:"issuelinks"`
}

// StatusField represents a Jira issue status.
type StatusField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PriorityField represents a Jira issue priority.
type PriorityField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IssueTypeField represents a Jira issue type.
type IssueTypeField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectField represents the project an issue belongs to.
type ProjectField struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// UserField represents a Jira user.
type UserField struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Active       *bool  `json:"active"`
}

// VersionRef is a version reference embedded in an issue.
type VersionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IssueStub is the abbreviated issue Jira embeds for parents, subtasks and links.
type IssueStub struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary   string          `json:"summary"`
		Status    *StatusField    `json:"status"`
		IssueType *IssueTypeField `json:"issuetype"`
	} `json:"fields"`
}

// IssueLinkField is one entry of fields.issuelinks.
type IssueLinkField struct {
	ID   string `json:"id"`
	Type struct {
		Name    string `json:"name"`
		Inward  string `json:"inward"`
		Outward string `json:"outward"`
	} `json:"type"`
	InwardIssue  *IssueStub `json:"inwardIssue"`
	OutwardIssue *IssueStub `json:"outwardIssue"`
}

// SearchResult represents a Jira JQL search response page.
type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Project is a project as returned by /project/{key} and /project/search.
type Project struct {
	ID   string     `json:"id"`
	Key  string     `json:"key"`
	Name string     `json:"name"`
	Lead *UserField `json:"lead"`
}

// ProjectPage is one page of /project/search.
type ProjectPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	IsLast     bool      `json:"isLast"`
	Values     []Project `json:"values"`
}

// Version represents a Jira project version (release).
type Version struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Archived    bool   `json:"archived"`
	Released    bool   `json:"released"`
	StartDate   string `json:"startDate"`
	ReleaseDate string `json:"releaseDate"`
	ProjectID   int64  `json:"projectId"`
}
