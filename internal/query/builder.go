package query

import (
	"regexp"
	"time"

	"github.com/steveyegge/trackdash/internal/types"
)

// OrderUpdatedDesc sorts most recently updated issues first.
const OrderUpdatedDesc = "updated DESC"

// updatedLayout is the JQL date-time literal format.
const updatedLayout = "2006-01-02 15:04"

var orderByRe = regexp.MustCompile(`^[A-Za-z]+( (ASC|DESC))?$`)

// Builder scopes an issue search to one project, optionally narrowed to a
// version, an epic's children, or recently updated issues.
//
// JQL date-times carry no zone; Jira reads them in the searching user's
// profile timezone. UpdatedSince is rendered in Location, which should match
// that profile. A nil Location renders the time in its own location.
type Builder struct {
	ProjectKey   string
	VersionID    string    // fixVersion scope
	EpicKey      string    // children of this epic ("Epic Link" or parent)
	UpdatedSince time.Time // zero means no lower bound
	OrderBy      string    // e.g. OrderUpdatedDesc
	Location     *time.Location
}

// Node validates the scope and returns the filter expression tree.
func (b Builder) Node() (Node, error) {
	if err := ValidateProjectKey(b.ProjectKey); err != nil {
		return nil, err
	}
	and := &And{Terms: []Node{
		&Clause{Field: "project", Op: OpEquals, Value: b.ProjectKey},
	}}

	if b.VersionID != "" {
		if err := ValidateVersionID(b.VersionID); err != nil {
			return nil, err
		}
		and.Terms = append(and.Terms, &Clause{
			Field: "fixVersion", Op: OpEquals, Value: b.VersionID, Bare: isNumeric(b.VersionID),
		})
	}

	if b.EpicKey != "" {
		if err := ValidateIssueKey(b.EpicKey); err != nil {
			return nil, err
		}
		and.Terms = append(and.Terms, &Or{Terms: []Node{
			&Clause{Field: "Epic Link", Op: OpEquals, Value: b.EpicKey},
			&Clause{Field: "parent", Op: OpEquals, Value: b.EpicKey},
		}})
	}

	if !b.UpdatedSince.IsZero() {
		since := b.UpdatedSince
		if b.Location != nil {
			since = since.In(b.Location)
		}
		and.Terms = append(and.Terms, &Clause{
			Field: "updated", Op: OpGreaterEq, Value: since.Format(updatedLayout),
		})
	}

	return and, nil
}

// JQL renders the filter expression including any ORDER BY suffix.
func (b Builder) JQL() (string, error) {
	n, err := b.Node()
	if err != nil {
		return "", err
	}
	jql := n.String()
	if b.OrderBy != "" {
		if !orderByRe.MatchString(b.OrderBy) {
			return "", types.Invalid("order by", b.OrderBy, "must be a field name optionally followed by ASC or DESC")
		}
		jql += " ORDER BY " + b.OrderBy
	}
	return jql, nil
}

// ProjectJQL is `project = "<key>"`.
func ProjectJQL(projectKey string) (string, error) {
	return Builder{ProjectKey: projectKey}.JQL()
}

// VersionJQL is `project = "<key>" AND fixVersion = <id>`.
func VersionJQL(projectKey, versionID string) (string, error) {
	if err := ValidateVersionID(versionID); err != nil {
		return "", err
	}
	return Builder{ProjectKey: projectKey, VersionID: versionID}.JQL()
}

// EpicJQL is `project = "<key>" AND ("Epic Link" = <epic> OR parent = <epic>)`.
func EpicJQL(projectKey, epicKey string) (string, error) {
	if err := ValidateIssueKey(epicKey); err != nil {
		return "", err
	}
	return Builder{ProjectKey: projectKey, EpicKey: epicKey}.JQL()
}
