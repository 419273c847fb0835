package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/steveyegge/trackdash/internal/fetch"
	"github.com/steveyegge/trackdash/internal/query"
	"github.com/steveyegge/trackdash/internal/types"
)

const (
	apiPrefix = "/rest/api/3"

	projectPageSize = 50
	maxAssignable   = 1000
)

// Doer performs one logical upstream call. *fetch.Fetcher satisfies it; the
// telemetry package wraps it with spans.
type Doer interface {
	Fetch(ctx context.Context, url string, opts fetch.Options) (*fetch.Response, error)
}

// Client provides read-only access to a Jira instance. Every method returns
// normalized values from internal/types.
type Client struct {
	URL      string
	Username string
	APIToken string
	Doer     Doer
	Logger   *slog.Logger

	// SearchLimit caps the issues fetched by one search (query.DefaultLimit when zero).
	SearchLimit int
	// PageSize is the per-call search page size (query.DefaultPageSize when zero).
	PageSize int
}

// NewClient creates a new Jira client backed by doer.
func NewClient(baseURL, username, apiToken string, doer Doer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		URL:      strings.TrimSuffix(baseURL, "/"),
		Username: username,
		APIToken: apiToken,
		Doer:     doer,
		Logger:   logger,
	}
}

// ListProjects pages through /project/search and returns every visible project.
func (c *Client) ListProjects(ctx context.Context) ([]types.Project, error) {
	projects := []types.Project{}
	startAt := 0
	for {
		params := url.Values{
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(projectPageSize)},
			"expand":     {"lead"},
		}
		var page ProjectPage
		if err := c.get(ctx, "/project/search", params, &page); err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		for _, raw := range page.Values {
			p, err := parseProject(raw)
			if err != nil {
				return nil, fmt.Errorf("list projects: %w", err)
			}
			projects = append(projects, p)
		}
		startAt += len(page.Values)
		if page.IsLast || len(page.Values) == 0 || (page.Total > 0 && startAt >= page.Total) {
			break
		}
	}
	return projects, nil
}

// GetProject fetches a single project by key.
func (c *Client) GetProject(ctx context.Context, key string) (types.Project, error) {
	if err := query.ValidateProjectKey(key); err != nil {
		return types.Project{}, err
	}
	var raw Project
	if err := c.get(ctx, "/project/"+url.PathEscape(key), nil, &raw); err != nil {
		return types.Project{}, notFound("project "+key, err)
	}
	return parseProject(raw)
}

// SearchIssues runs a bounded, paginated JQL search via POST /search.
// The request's Limit and PageSize default to the client's settings.
func (c *Client) SearchIssues(ctx context.Context, req query.SearchRequest) (types.SearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = c.SearchLimit
	}
	if req.PageSize <= 0 {
		req.PageSize = c.PageSize
	}

	result := types.SearchResult{Issues: []types.Issue{}}
	startAt := 0
	for {
		page, ok := req.Page(startAt)
		if !ok {
			break
		}
		var resp SearchResult
		if err := c.post(ctx, "/search", page, &resp); err != nil {
			return types.SearchResult{}, fmt.Errorf("search issues: %w", err)
		}
		for _, raw := range resp.Issues {
			issue, err := parseIssue(raw)
			if err != nil {
				return types.SearchResult{}, fmt.Errorf("search issues: %w", err)
			}
			result.Issues = append(result.Issues, issue)
		}
		result.Total = resp.Total
		startAt += len(resp.Issues)
		if len(resp.Issues) == 0 || startAt >= resp.Total {
			break
		}
	}
	if result.Total < len(result.Issues) {
		result.Total = len(result.Issues)
	}
	if result.Truncated() {
		c.Logger.Warn("issue search truncated",
			"jql", req.JQL, "fetched", len(result.Issues), "total", result.Total)
	}
	return result, nil
}

// GetVersions lists a project's versions.
func (c *Client) GetVersions(ctx context.Context, projectKey string) ([]types.Version, error) {
	if err := query.ValidateProjectKey(projectKey); err != nil {
		return nil, err
	}
	var raw []Version
	if err := c.get(ctx, "/project/"+url.PathEscape(projectKey)+"/versions", nil, &raw); err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", projectKey, err)
	}
	versions := make([]types.Version, 0, len(raw))
	for _, rv := range raw {
		v, err := parseVersion(rv)
		if err != nil {
			return nil, fmt.Errorf("list versions of %s: %w", projectKey, err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// GetVersion fetches a single version by id.
func (c *Client) GetVersion(ctx context.Context, id string) (types.Version, error) {
	if err := query.ValidateVersionID(id); err != nil {
		return types.Version{}, err
	}
	var raw Version
	if err := c.get(ctx, "/version/"+url.PathEscape(id), nil, &raw); err != nil {
		return types.Version{}, notFound("version "+id, err)
	}
	return parseVersion(raw)
}

// GetAssignableUsers lists the users that can be assigned issues in a project.
func (c *Client) GetAssignableUsers(ctx context.Context, projectKey string) ([]types.User, error) {
	if err := query.ValidateProjectKey(projectKey); err != nil {
		return nil, err
	}
	params := url.Values{
		"project":    {projectKey},
		"maxResults": {strconv.Itoa(maxAssignable)},
	}
	var raw []UserField
	if err := c.get(ctx, "/user/assignable/search", params, &raw); err != nil {
		return nil, fmt.Errorf("list assignable users of %s: %w", projectKey, err)
	}
	users := make([]types.User, 0, len(raw))
	for _, ru := range raw {
		u, err := parseUser(ru)
		if err != nil {
			return nil, fmt.Errorf("list assignable users of %s: %w", projectKey, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// GetIssue fetches a single issue with its parent, subtasks and links.
func (c *Client) GetIssue(ctx context.Context, key string) (types.IssueDetail, error) {
	if err := query.ValidateIssueKey(key); err != nil {
		return types.IssueDetail{}, err
	}
	params := url.Values{"fields": {strings.Join(query.DetailFields, ",")}}
	var raw Issue
	if err := c.get(ctx, "/issue/"+url.PathEscape(key), params, &raw); err != nil {
		return types.IssueDetail{}, notFound("issue "+key, err)
	}
	detail, err := parseIssueDetail(raw)
	if err != nil {
		return types.IssueDetail{}, err
	}
	detail.URL = BrowseURL(c.URL, detail.Key)
	return detail, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, v)
}

func (c *Client) post(ctx context.Context, path string, body, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, data, v)
}

// do issues one call through the Doer and decodes the JSON response into v.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte, v any) error {
	if err := c.checkConfig(); err != nil {
		return err
	}

	apiURL := c.URL + apiPrefix + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	header := http.Header{}
	c.setAuth(header)
	header.Set("User-Agent", "trackdash/1.0")

	resp, err := c.Doer.Fetch(ctx, apiURL, fetch.Options{Method: method, Header: header, Body: body})
	if err != nil {
		return err
	}
	if err := resp.JSON(v); err != nil {
		return types.InvalidUpstream("response", path, err.Error())
	}
	return nil
}

func (c *Client) checkConfig() error {
	if c.URL == "" {
		return &types.ConfigurationError{Key: "jira.url", Reason: "not configured"}
	}
	if c.APIToken == "" {
		return &types.ConfigurationError{Key: "jira.api_token", Reason: "not configured"}
	}
	if c.Doer == nil {
		return &types.ConfigurationError{Key: "jira", Reason: "no fetcher configured"}
	}
	return nil
}

// setAuth uses Basic auth when a username is configured (Jira Cloud) and a
// bearer personal access token otherwise (Jira Server/Data Center).
func (c *Client) setAuth(h http.Header) {
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
		h.Set("Authorization", "Basic "+auth)
	} else {
		h.Set("Authorization", "Bearer "+c.APIToken)
	}
}

// notFound marks upstream 404s on single-entity fetches with types.ErrNotFound.
func notFound(what string, err error) error {
	if fetch.IsNotFound(err) {
		return fmt.Errorf("%s: %w: %w", what, types.ErrNotFound, err)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
