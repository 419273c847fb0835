package jira

import (
	"encoding/json"
	"strings"

	"github.com/steveyegge/trackdash/internal/types"
)

// parseProject normalizes a project payload. A project without a key is
// structurally invalid.
func parseProject(p Project) (types.Project, error) {
	key := strings.TrimSpace(p.Key)
	if key == "" {
		return types.Project{}, types.InvalidUpstream("project", p.ID, "missing key")
	}
	out := types.Project{ID: p.ID, Key: key, Name: p.Name}
	if p.Lead != nil && strings.TrimSpace(p.Lead.DisplayName) != "" {
		lead := strings.TrimSpace(p.Lead.DisplayName)
		out.Lead = &lead
	}
	return out, nil
}

// parseIssue flattens an issue. Missing status becomes "Unknown", a missing
// assignee stays nil, and unparseable timestamps are left zero.
func parseIssue(i Issue) (types.Issue, error) {
	key := strings.TrimSpace(i.Key)
	if key == "" {
		return types.Issue{}, types.InvalidUpstream("issue", i.ID, "missing key")
	}
	f := i.Fields
	out := types.Issue{
		Key:     key,
		Summary: f.Summary,
		Status:  statusName(f.Status),
	}
	if f.IssueType != nil {
		out.Type = strings.TrimSpace(f.IssueType.Name)
	}
	if f.Priority != nil {
		out.Priority = strings.TrimSpace(f.Priority.Name)
	}
	if f.Assignee != nil && strings.TrimSpace(f.Assignee.DisplayName) != "" {
		name := strings.TrimSpace(f.Assignee.DisplayName)
		out.Assignee = &name
	}
	if t, err := ParseTimestamp(f.Created); err == nil {
		out.Created = t
	}
	if t, err := ParseTimestamp(f.Updated); err == nil {
		out.Updated = t
	}
	out.FixVersions = versionIDs(f.FixVersions)
	out.AffectedVersions = versionIDs(f.Versions)
	return out, nil
}

// parseIssueDetail extends parseIssue with body, labels and the issue graph.
// Links whose target is absent are dropped.
func parseIssueDetail(i Issue) (types.IssueDetail, error) {
	issue, err := parseIssue(i)
	if err != nil {
		return types.IssueDetail{}, err
	}
	f := i.Fields
	out := types.IssueDetail{
		Issue:       issue,
		Description: DescriptionToPlainText(f.Description),
		Labels:      f.Labels,
		Children:    []types.IssueRef{},
		Links:       []types.IssueLink{},
	}
	if f.Parent != nil && strings.TrimSpace(f.Parent.Key) != "" {
		ref := issueRef(*f.Parent)
		out.Parent = &ref
	}
	for _, st := range f.Subtasks {
		if strings.TrimSpace(st.Key) == "" {
			continue
		}
		out.Children = append(out.Children, issueRef(st))
	}
	for _, l := range f.IssueLinks {
		switch {
		case l.OutwardIssue != nil && l.OutwardIssue.Key != "":
			out.Links = append(out.Links, types.IssueLink{
				Type:      linkLabel(l.Type.Outward, l.Type.Name),
				Direction: "outward",
				Issue:     issueRef(*l.OutwardIssue),
			})
		case l.InwardIssue != nil && l.InwardIssue.Key != "":
			out.Links = append(out.Links, types.IssueLink{
				Type:      linkLabel(l.Type.Inward, l.Type.Name),
				Direction: "inward",
				Issue:     issueRef(*l.InwardIssue),
			})
		}
	}
	return out, nil
}

// parseVersion derives the single lifecycle status from Jira's boolean pair:
// Archived wins over Released, anything else is Unreleased.
func parseVersion(v Version) (types.Version, error) {
	id := strings.TrimSpace(v.ID)
	if id == "" {
		return types.Version{}, types.InvalidUpstream("version", v.Name, "missing id")
	}
	out := types.Version{ID: id, Name: v.Name, Status: types.VersionUnreleased}
	switch {
	case v.Archived:
		out.Status = types.VersionArchived
	case v.Released:
		out.Status = types.VersionReleased
	}
	var err error
	if out.StartDate, err = ParseDate(v.StartDate); err != nil {
		return types.Version{}, types.InvalidUpstream("version start date", v.StartDate, err.Error())
	}
	if out.ReleaseDate, err = ParseDate(v.ReleaseDate); err != nil {
		return types.Version{}, types.InvalidUpstream("version release date", v.ReleaseDate, err.Error())
	}
	return out, nil
}

func parseUser(u UserField) (types.User, error) {
	if strings.TrimSpace(u.AccountID) == "" {
		return types.User{}, types.InvalidUpstream("user", u.DisplayName, "missing accountId")
	}
	return types.User{AccountID: u.AccountID, DisplayName: u.DisplayName}, nil
}

func statusName(s *StatusField) string {
	if s == nil {
		return types.StatusUnknown
	}
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return types.StatusUnknown
}

func issueRef(s IssueStub) types.IssueRef {
	ref := types.IssueRef{
		Key:     strings.TrimSpace(s.Key),
		Summary: s.Fields.Summary,
		Status:  statusName(s.Fields.Status),
	}
	if s.Fields.IssueType != nil {
		ref.Type = s.Fields.IssueType.Name
	}
	return ref
}

func linkLabel(directional, name string) string {
	if directional != "" {
		return directional
	}
	return name
}

func versionIDs(refs []VersionRef) []string {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// DescriptionToPlainText extracts plain text from Jira's ADF (Atlassian Document Format).
// Jira v3 API returns descriptions as ADF JSON, not plain text.
func DescriptionToPlainText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Type != "doc" {
		// Not ADF - treat as plain text string
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}

	var parts []string
	for _, block := range doc.Content {
		if line := block.text(); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n")
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// text concatenates the text leaves under n. Nested blocks (list items,
// quotes) are joined with newlines.
func (n adfNode) text() string {
	if n.Type == "text" {
		return n.Text
	}
	if n.Type == "hardBreak" {
		return "\n"
	}
	var b strings.Builder
	for i, c := range n.Content {
		if i > 0 && isBlock(c.Type) {
			b.WriteString("\n")
		}
		b.WriteString(c.text())
	}
	return b.String()
}

func isBlock(t string) bool {
	switch t {
	case "paragraph", "listItem", "bulletList", "orderedList", "heading", "blockquote", "codeBlock":
		return true
	}
	return false
}
