package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/trackdash/internal/aggregate"
	"github.com/steveyegge/trackdash/internal/query"
	"github.com/steveyegge/trackdash/internal/release"
	"github.com/steveyegge/trackdash/internal/types"
)

// Source is the upstream surface the single-purpose views read from.
type Source interface {
	aggregate.Source
	GetVersion(ctx context.Context, id string) (types.Version, error)
	GetIssue(ctx context.Context, key string) (types.IssueDetail, error)
}

// TasksView is the status roll-up of a project's issues.
type TasksView struct {
	Total     int            `json:"total"`
	Counts    map[string]int `json:"counts"`
	Issues    []types.Issue  `json:"issues"`
	Truncated bool           `json:"truncated,omitempty"`
}

// VersionView is one version with the issues scheduled for it.
type VersionView struct {
	Version types.Version `json:"version"`
	Issues  []types.Issue `json:"issues"`
}

// Service implements the single-purpose views. Unlike the dashboard, upstream
// failures propagate to the caller; the only exception is the child search of
// Issue.
type Service struct {
	Source      Source
	Logger      *slog.Logger
	SearchLimit int
	// Location is the zone JQL date-times are rendered in; nil keeps the
	// caller's.
	Location *time.Location
}

// NewService returns a Service over src.
func NewService(src Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{Source: src, Logger: logger}
}

// Tasks returns the project's issues grouped by status.
func (s *Service) Tasks(ctx context.Context, projectKey string) (TasksView, error) {
	jql, err := query.ProjectJQL(projectKey)
	if err != nil {
		return TasksView{}, err
	}
	res, err := s.search(ctx, jql)
	if err != nil {
		return TasksView{}, fmt.Errorf("tasks of %s: %w", projectKey, err)
	}
	tc := aggregate.CountByStatus(res.Issues)
	return TasksView{Total: tc.Total, Counts: tc.Counts, Issues: res.Issues, Truncated: res.Truncated()}, nil
}

// Versions returns the project's versions with issue counts filled in.
func (s *Service) Versions(ctx context.Context, projectKey string) ([]types.Version, error) {
	jql, err := query.ProjectJQL(projectKey)
	if err != nil {
		return nil, err
	}

	var (
		versions []types.Version
		issues   types.SearchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		versions, err = s.Source.GetVersions(gctx, projectKey)
		return err
	})
	g.Go(func() error {
		var err error
		issues, err = s.search(gctx, jql)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("versions of %s: %w", projectKey, err)
	}
	return release.CountIssues(versions, issues.Issues), nil
}

// VersionDetail returns one version and the issues whose fix version it is.
// Counts here cover fix-version issues only.
func (s *Service) VersionDetail(ctx context.Context, projectKey, versionID string) (VersionView, error) {
	jql, err := query.VersionJQL(projectKey, versionID)
	if err != nil {
		return VersionView{}, err
	}

	var (
		version types.Version
		issues  types.SearchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		version, err = s.Source.GetVersion(gctx, versionID)
		return err
	})
	g.Go(func() error {
		var err error
		issues, err = s.search(gctx, jql)
		return err
	})
	if err := g.Wait(); err != nil {
		return VersionView{}, fmt.Errorf("version %s of %s: %w", versionID, projectKey, err)
	}
	counted := release.CountIssues([]types.Version{version}, issues.Issues)
	return VersionView{Version: counted[0], Issues: issues.Issues}, nil
}

// Users returns the project's assignable users.
func (s *Service) Users(ctx context.Context, projectKey string) ([]types.User, error) {
	if err := query.ValidateProjectKey(projectKey); err != nil {
		return nil, err
	}
	users, err := s.Source.GetAssignableUsers(ctx, projectKey)
	if err != nil {
		return nil, fmt.Errorf("users of %s: %w", projectKey, err)
	}
	if users == nil {
		users = []types.User{}
	}
	return users, nil
}

// AllIssues returns the project's issues, most recently updated first.
// A non-zero since restricts the list to issues updated at or after it.
func (s *Service) AllIssues(ctx context.Context, projectKey string, since time.Time) ([]types.Issue, error) {
	jql, err := query.Builder{
		ProjectKey:   projectKey,
		UpdatedSince: since,
		OrderBy:      query.OrderUpdatedDesc,
		Location:     s.Location,
	}.JQL()
	if err != nil {
		return nil, err
	}
	res, err := s.search(ctx, jql)
	if err != nil {
		return nil, fmt.Errorf("issues of %s: %w", projectKey, err)
	}
	return res.Issues, nil
}

// Issue returns one issue with its parent, children and links. Children are
// the issue's subtasks plus any issue naming it as epic or parent; when that
// search fails only the subtasks are listed.
func (s *Service) Issue(ctx context.Context, projectKey, issueKey string) (types.IssueDetail, error) {
	if err := query.ValidateIssueKey(issueKey); err != nil {
		return types.IssueDetail{}, err
	}
	jql, err := query.EpicJQL(projectKey, issueKey)
	if err != nil {
		return types.IssueDetail{}, err
	}

	// The issue itself must resolve; the children search is best effort.
	// Jira rejects "Epic Link" clauses for non-epics and on instances
	// without the field.
	var g errgroup.Group
	issue := aggregate.Spawn(ctx, &g, func(ctx context.Context) (types.IssueDetail, error) {
		return s.Source.GetIssue(ctx, issueKey)
	})
	children := aggregate.Spawn(ctx, &g, func(ctx context.Context) (types.SearchResult, error) {
		return s.search(ctx, jql)
	})
	_ = g.Wait()
	if issue.Err != nil {
		return types.IssueDetail{}, fmt.Errorf("issue %s: %w", issueKey, issue.Err)
	}
	detail := issue.Value
	if children.Err != nil {
		s.Logger.WarnContext(ctx, "child issue search failed, using subtasks only",
			"issue", issueKey, "error", children.Err)
	}

	seen := make(map[string]bool, len(detail.Children))
	for _, c := range detail.Children {
		seen[c.Key] = true
	}
	for _, c := range children.Value.Issues {
		if seen[c.Key] || c.Key == detail.Key {
			continue
		}
		seen[c.Key] = true
		detail.Children = append(detail.Children, types.IssueRef{
			Key: c.Key, Summary: c.Summary, Status: c.Status, Type: c.Type,
		})
	}
	if detail.Children == nil {
		detail.Children = []types.IssueRef{}
	}
	if detail.Links == nil {
		detail.Links = []types.IssueLink{}
	}
	return detail, nil
}

func (s *Service) search(ctx context.Context, jql string) (types.SearchResult, error) {
	req := query.NewSearch(jql, query.TaskFields)
	req.Limit = s.SearchLimit
	res, err := s.Source.SearchIssues(ctx, req)
	if err != nil {
		return types.SearchResult{}, err
	}
	if res.Issues == nil {
		res.Issues = []types.Issue{}
	}
	return res, nil
}
