// Package api serves the dashboard views as JSON over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/steveyegge/trackdash/internal/dashboard"
	"github.com/steveyegge/trackdash/internal/timeparsing"
	"github.com/steveyegge/trackdash/internal/types"
)

// Backend is everything the handlers read. dashboard.Views implements it.
type Backend interface {
	Dashboard(ctx context.Context) ([]dashboard.Entry, error)
	Tasks(ctx context.Context, projectKey string) (dashboard.TasksView, error)
	Versions(ctx context.Context, projectKey string) ([]types.Version, error)
	VersionDetail(ctx context.Context, projectKey, versionID string) (dashboard.VersionView, error)
	Users(ctx context.Context, projectKey string) ([]types.User, error)
	AllIssues(ctx context.Context, projectKey string, since time.Time) ([]types.Issue, error)
	Issue(ctx context.Context, projectKey, issueKey string) (types.IssueDetail, error)
}

type backendHolder struct{ Backend }

// Handler serves the project endpoints. The backend can be swapped while
// requests are in flight; each request uses the backend current at its start.
type Handler struct {
	backend atomic.Pointer[backendHolder]
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler returns a Handler serving b.
func NewHandler(b Backend, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{logger: logger, now: time.Now}
	h.Swap(b)
	return h
}

// Swap replaces the backend for subsequent requests.
func (h *Handler) Swap(b Backend) {
	h.backend.Store(&backendHolder{b})
}

func (h *Handler) current() Backend {
	return h.backend.Load().Backend
}

// ListProjects handles GET /projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	entries, err := h.current().Dashboard(r.Context())
	if err != nil {
		SendError(w, r, h.logger, err)
		return
	}
	SendJSON(w, http.StatusOK, entries)
}

// Tasks handles GET /projects/{key}/tasks.
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	view, err := h.current().Tasks(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		SendError(w, r, h.logger, err)
		return
	}
	SendJSON(w, http.StatusOK, view)
}

// Versions handles GET /projects/{key}/versions.
func (h *Handler) Versions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.current().Versions(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		SendError(w, r, h.logger, err)
		return
	}
	SendJSON(w, http.StatusOK, versions)
}

// VersionDetail handles GET /projects/{key}/versions/{id}.
func (h *Handler) VersionDetail(w http.ResponseWriter, r *http.Request) {
	view, err := h.current().VersionDetail(r.Context(), chi.URLParam(r, "key"), chi.URLParam(r, "id"))
	if err != nil {
		SendError(w, r, h.logger, err)
		return
	}
	SendJSON(w, http.StatusOK, view)
}

// Users handles GET /projects/{key}/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.current().Users(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		SendError(w, r, h.logger, err)
		return
	}
	SendJSON(w, http.StatusOK, users)
}

// AllIssues handles GET /projects/{key}/all-issues[?since=].
func (h *Handler) AllIssues(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		var err error
		if since, err = timeparsing.ParseSince(s, h.now()); err != nil {
			SendError(w, r, h.logger, err)
			return
		}
	}
	issues, err := h.current().AllIssues(r.Context(), chi.URLParam(r, "key"), since)
	if err != nil {
		SendError(w, r, h.logger, err)
		return
	}
	SendJSON(w, http.StatusOK, issues)
}

// Issue handles GET /projects/{key}/issues/{issueKey}.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	detail, err := h.current().Issue(r.Context(), chi.URLParam(r, "key"), chi.URLParam(r, "issueKey"))
	if err != nil {
		SendError(w, r, h.logger, err)
		return
	}
	SendJSON(w, http.StatusOK, detail)
}
