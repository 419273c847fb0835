package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// TransportError is a network or deadline failure of a single attempt.
type TransportError struct {
	URL     string
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (attempt %d) for %s: %v", e.Attempt, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// statusError is a non-2xx response from a single attempt.
type statusError struct {
	StatusCode int
	Message    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// UpstreamError is returned once a fetch has failed for good: either every
// attempt failed or the caller's context ended.
type UpstreamError struct {
	URL        string
	StatusCode int // 0 when the last attempt never got a response
	Message    string
	Attempts   int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream request %s failed after %d attempt(s): status %d: %s",
			e.URL, e.Attempts, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream request %s failed after %d attempt(s): %s", e.URL, e.Attempts, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NotFound classifies the failure as a missing entity, either by status code
// or by the upstream message text.
func (e *UpstreamError) NotFound() bool {
	if e.StatusCode == http.StatusNotFound {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}

// IsNotFound reports whether err is an UpstreamError classified as not found.
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.NotFound()
}

// truncate keeps upstream error bodies readable in logs and responses. The
// cut falls on a rune boundary so multi-byte text stays valid UTF-8.
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
