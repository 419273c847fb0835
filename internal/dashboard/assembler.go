// Package dashboard assembles the cross-project dashboard and serves the
// single-purpose per-project views.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/trackdash/internal/health"
	"github.com/steveyegge/trackdash/internal/release"
	"github.com/steveyegge/trackdash/internal/types"
)

// DefaultConcurrency bounds the number of projects aggregated at once.
const DefaultConcurrency = 8

// Entry is one dashboard row: either a summary or a per-project error.
type Entry struct {
	ID            string               `json:"id,omitempty"`
	Key           string               `json:"key"`
	Name          string               `json:"name,omitempty"`
	Lead          *string              `json:"lead"`
	TaskCounts    types.TaskCounts     `json:"taskCounts"`
	Members       int                  `json:"members"`
	LatestVersion *types.Version       `json:"latestVersion"`
	Health        *types.ProjectHealth `json:"health,omitempty"`
	Truncated     bool                 `json:"truncated,omitempty"`
	Degraded      []string             `json:"degraded,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// Failed reports whether the entry carries an error instead of a summary.
func (e Entry) Failed() bool { return e.Error != "" }

// ProjectAggregator is implemented by *aggregate.Aggregator.
type ProjectAggregator interface {
	Aggregate(ctx context.Context, key string) (types.ProjectRecord, error)
	AggregateProject(ctx context.Context, p types.Project) (types.ProjectRecord, error)
}

// ProjectLister lists the projects visible upstream.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]types.Project, error)
}

// Assembler runs one aggregation per project with bounded concurrency.
type Assembler struct {
	Aggregator  ProjectAggregator
	Projects    ProjectLister
	Concurrency int
	// Allow restricts Dashboard to these project keys (case-insensitive).
	// Empty means every listed project.
	Allow  []string
	Logger *slog.Logger
}

// AssembleAll aggregates and summarizes each key. A failing project yields an
// Entry with Error set; it never fails the others. Entries are in input order.
func (a *Assembler) AssembleAll(ctx context.Context, keys []string) []Entry {
	return a.assemble(ctx, len(keys),
		func(i int) string { return keys[i] },
		func(ctx context.Context, i int) (types.ProjectRecord, error) {
			return a.Aggregator.Aggregate(ctx, keys[i])
		})
}

// Dashboard lists projects, filters them by Allow, and assembles the rest.
// Only a failure of the listing itself is returned as an error.
func (a *Assembler) Dashboard(ctx context.Context) ([]Entry, error) {
	projects, err := a.Projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	projects = a.filter(projects)
	return a.assemble(ctx, len(projects),
		func(i int) string { return projects[i].Key },
		func(ctx context.Context, i int) (types.ProjectRecord, error) {
			return a.Aggregator.AggregateProject(ctx, projects[i])
		}), nil
}

func (a *Assembler) assemble(ctx context.Context, n int, keyOf func(int) string,
	aggregate func(context.Context, int) (types.ProjectRecord, error)) []Entry {
	entries := make([]Entry, n)
	var g errgroup.Group
	g.SetLimit(a.concurrency())
	for i := range n {
		g.Go(func() error {
			entries[i] = a.entry(ctx, keyOf(i), func(ctx context.Context) (types.ProjectRecord, error) {
				return aggregate(ctx, i)
			})
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

func (a *Assembler) entry(ctx context.Context, key string, aggregate func(context.Context) (types.ProjectRecord, error)) (e Entry) {
	defer func() {
		if p := recover(); p != nil {
			e = Entry{Key: key, TaskCounts: types.EmptyTaskCounts(), Error: fmt.Sprintf("panic: %v", p)}
		}
	}()
	rec, err := aggregate(ctx)
	if err != nil {
		a.logger().WarnContext(ctx, "project aggregation failed", "project", key, "error", err)
		return Entry{Key: key, TaskCounts: types.EmptyTaskCounts(), Error: err.Error()}
	}
	return Summarize(rec)
}

func (a *Assembler) filter(projects []types.Project) []types.Project {
	if len(a.Allow) == 0 {
		return projects
	}
	allowed := make(map[string]bool, len(a.Allow))
	for _, k := range a.Allow {
		allowed[strings.ToUpper(strings.TrimSpace(k))] = true
	}
	out := make([]types.Project, 0, len(projects))
	for _, p := range projects {
		if allowed[strings.ToUpper(p.Key)] {
			out = append(out, p)
		}
	}
	return out
}

func (a *Assembler) concurrency() int {
	if a.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return a.Concurrency
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}

// Summarize counts version issues, resolves the latest version and computes
// health for one aggregated record.
func Summarize(rec types.ProjectRecord) Entry {
	versions := release.CountIssues(rec.Versions, rec.Issues)
	latest := release.ResolveLatest(versions)
	h := health.Compute(rec.TaskCounts, latest)
	return Entry{
		ID:            rec.Project.ID,
		Key:           rec.Project.Key,
		Name:          rec.Project.Name,
		Lead:          rec.Project.Lead,
		TaskCounts:    rec.TaskCounts,
		Members:       rec.Members,
		LatestVersion: latest,
		Health:        &h,
		Truncated:     rec.Truncated,
		Degraded:      rec.Degraded,
	}
}
