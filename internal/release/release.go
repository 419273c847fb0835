// Package release resolves a project's current version and counts the issues
// attached to each version.
package release

import (
	"slices"
	"sort"

	"github.com/steveyegge/trackdash/internal/types"
)

// Candidates returns the non-archived versions in ascending release order.
// The input slice is not modified.
//
// Ordering: when both versions carry a date (release date, else start date)
// they compare by date; when neither does they compare by name; otherwise the
// dated version sorts after the undated one.
func Candidates(versions []types.Version) []types.Version {
	out := make([]types.Version, 0, len(versions))
	for _, v := range versions {
		if v.Status != types.VersionArchived {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

// ResolveLatest returns the last candidate, or nil when there is none.
func ResolveLatest(versions []types.Version) *types.Version {
	c := Candidates(versions)
	if len(c) == 0 {
		return nil
	}
	latest := c[len(c)-1]
	return &latest
}

func less(a, b types.Version) bool {
	da, db := sortDate(a), sortDate(b)
	switch {
	case da != "" && db != "":
		return da < db
	case da == "" && db == "":
		return a.Name < b.Name
	default:
		return da == ""
	}
}

// sortDate is YYYY-MM-DD, so lexical order is chronological.
func sortDate(v types.Version) string {
	if v.ReleaseDate != "" {
		return v.ReleaseDate
	}
	return v.StartDate
}

// CountIssues returns a copy of versions with IssueCounts filled from the
// project's issues.
func CountIssues(versions []types.Version, issues []types.Issue) []types.Version {
	type tally struct{ total, fixed, done int }
	byID := make(map[string]*tally, len(versions))
	for _, v := range versions {
		byID[v.ID] = &tally{}
	}

	for _, issue := range issues {
		done := types.IsDoneStatus(issue.Status)
		for _, id := range uniq(issue.FixVersions) {
			if t, ok := byID[id]; ok {
				t.fixed++
				t.total++
				if done {
					t.done++
				}
			}
		}
		for _, id := range uniq(issue.AffectedVersions) {
			if slices.Contains(issue.FixVersions, id) {
				continue
			}
			if t, ok := byID[id]; ok {
				t.total++
			}
		}
	}

	out := make([]types.Version, len(versions))
	for i, v := range versions {
		t := byID[v.ID]
		v.IssueCounts = types.IssueCounts{Total: t.total, FixedCount: t.fixed, Done: t.done}
		out[i] = v
	}
	return out
}

func uniq(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
