// Package aggregate fans out the upstream calls for one project and merges
// them into a types.ProjectRecord, substituting typed defaults for any
// sub-fetch that fails.
package aggregate

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/trackdash/internal/query"
	"github.com/steveyegge/trackdash/internal/types"
)

// Sub-fetch names reported in ProjectRecord.Degraded.
const (
	SourceProject  = "project"
	SourceIssues   = "issues"
	SourceVersions = "versions"
	SourceUsers    = "users"
)

// Source is the slice of the upstream client the aggregator needs.
type Source interface {
	GetProject(ctx context.Context, key string) (types.Project, error)
	SearchIssues(ctx context.Context, req query.SearchRequest) (types.SearchResult, error)
	GetVersions(ctx context.Context, projectKey string) ([]types.Version, error)
	GetAssignableUsers(ctx context.Context, projectKey string) ([]types.User, error)
}

// Aggregator builds per-project records. It holds no per-call state and may
// be shared across goroutines.
type Aggregator struct {
	Source Source
	Logger *slog.Logger
	// SearchLimit caps the project issue search; zero uses the source default.
	SearchLimit int
}

// New returns an Aggregator over src.
func New(src Source, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{Source: src, Logger: logger}
}

// Aggregate fetches project metadata, issues, versions and assignable users
// for key concurrently. Only a malformed key or missing configuration is
// returned as an error; every other failure degrades the record.
func (a *Aggregator) Aggregate(ctx context.Context, key string) (types.ProjectRecord, error) {
	if err := query.ValidateProjectKey(key); err != nil {
		return types.ProjectRecord{}, err
	}
	var g errgroup.Group
	project := Spawn(ctx, &g, func(ctx context.Context) (types.Project, error) {
		return a.Source.GetProject(ctx, key)
	})
	return a.gather(ctx, &g, key, project)
}

// AggregateProject is Aggregate for a project whose metadata is already known,
// as when iterating a project listing.
func (a *Aggregator) AggregateProject(ctx context.Context, p types.Project) (types.ProjectRecord, error) {
	if err := query.ValidateProjectKey(p.Key); err != nil {
		return types.ProjectRecord{}, err
	}
	var g errgroup.Group
	return a.gather(ctx, &g, p.Key, &Result[types.Project]{Value: p})
}

func (a *Aggregator) gather(ctx context.Context, g *errgroup.Group, key string, project *Result[types.Project]) (types.ProjectRecord, error) {
	jql, err := query.ProjectJQL(key)
	if err != nil {
		return types.ProjectRecord{}, err
	}
	search := query.NewSearch(jql, query.TaskFields)
	search.Limit = a.SearchLimit

	issues := Spawn(ctx, g, func(ctx context.Context) (types.SearchResult, error) {
		return a.Source.SearchIssues(ctx, search)
	})
	versions := Spawn(ctx, g, func(ctx context.Context) ([]types.Version, error) {
		return a.Source.GetVersions(ctx, key)
	})
	users := Spawn(ctx, g, func(ctx context.Context) ([]types.User, error) {
		return a.Source.GetAssignableUsers(ctx, key)
	})
	_ = g.Wait()

	// Misconfiguration affects every sub-fetch alike; surface it instead of
	// returning a fully degraded record.
	for _, err := range []error{project.Err, issues.Err, versions.Err, users.Err} {
		if types.IsConfiguration(err) {
			return types.ProjectRecord{}, err
		}
	}

	rec := types.ProjectRecord{
		Project:    project.Or(types.Project{Key: key}),
		TaskCounts: types.EmptyTaskCounts(),
		Versions:   versions.Or([]types.Version{}),
		Issues:     []types.Issue{},
	}
	if rec.Versions == nil {
		rec.Versions = []types.Version{}
	}
	if issues.Ok() {
		rec.Issues = issues.Value.Issues
		rec.TaskCounts = CountByStatus(rec.Issues)
		rec.Truncated = issues.Value.Truncated()
	}
	rec.Members = len(users.Or(nil))

	a.degrade(ctx, &rec, SourceProject, project.Err)
	a.degrade(ctx, &rec, SourceIssues, issues.Err)
	a.degrade(ctx, &rec, SourceVersions, versions.Err)
	a.degrade(ctx, &rec, SourceUsers, users.Err)
	return rec, nil
}

func (a *Aggregator) degrade(ctx context.Context, rec *types.ProjectRecord, source string, err error) {
	if err == nil {
		return
	}
	rec.Degraded = append(rec.Degraded, source)
	a.Logger.WarnContext(ctx, "sub-fetch failed, using default",
		"project", rec.Project.Key, "source", source, "error", err)
}

// CountByStatus groups issues by trimmed status name. Case is preserved;
// an empty status counts as "Unknown". Total always equals the sum of Counts.
func CountByStatus(issues []types.Issue) types.TaskCounts {
	tc := types.EmptyTaskCounts()
	for _, issue := range issues {
		status := strings.TrimSpace(issue.Status)
		if status == "" {
			status = types.StatusUnknown
		}
		tc.Counts[status]++
		tc.Total++
	}
	return tc
}
