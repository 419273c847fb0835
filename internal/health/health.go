// Package health derives the three-level project classification and release
// progress from status counts and the resolved latest version.
package health

import (
	"github.com/steveyegge/trackdash/internal/types"
)

// Classification thresholds. Rules are evaluated in order; the first match wins.
const (
	CriticalProgress = 40
	CriticalBlocked  = 5
	AtRiskProgress   = 70
	AtRiskBlocked    = 2
)

// Compute derives ProjectHealth. latest may be nil.
//
// VersionFixed counts the project-wide Done and Fixed buckets rather than the
// latest version's own issues, while VersionTotal is the latest version's
// fixVersion issue count.
func Compute(tc types.TaskCounts, latest *types.Version) types.ProjectHealth {
	h := types.ProjectHealth{
		TotalProjectIssues: tc.Total,
		Blocked:            tc.Bucket(types.StatusBlocked),
		VersionFixed:       tc.Bucket(types.StatusDone) + tc.Bucket(types.StatusFixed),
	}
	if latest != nil {
		h.VersionTotal = latest.IssueCounts.FixedCount
	}
	h.Progress = Progress(h.VersionFixed, h.VersionTotal)
	h.Status = Classify(h.Progress, h.Blocked)
	return h
}

// Progress is round(fixed/total*100) with halves rounded up, clamped to
// [0, 100]. A non-positive total yields 0.
func Progress(fixed, total int) int {
	if total <= 0 || fixed <= 0 {
		return 0
	}
	p := (fixed*200 + total) / (total * 2)
	return min(p, 100)
}

// Classify maps progress and the blocked count to a status.
func Classify(progress, blocked int) types.HealthStatus {
	switch {
	case progress < CriticalProgress || blocked >= CriticalBlocked:
		return types.Critical
	case progress < AtRiskProgress || blocked >= AtRiskBlocked:
		return types.AtRisk
	default:
		return types.Healthy
	}
}
