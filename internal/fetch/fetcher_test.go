package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTimer fires immediately and remembers every requested delay.
type recordingTimer struct {
	mu     *sync.Mutex
	delays *[]time.Duration
	c      chan time.Time
}

func (t *recordingTimer) Start(d time.Duration) {
	t.mu.Lock()
	*t.delays = append(*t.delays, d)
	t.mu.Unlock()
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time { return t.c }

func newTestFetcher(delays *[]time.Duration) *Fetcher {
	f := New(slog.New(slog.DiscardHandler))
	mu := &sync.Mutex{}
	f.NewTimer = func() backoff.Timer {
		return &recordingTimer{mu: mu, delays: delays}
	}
	return f
}

func TestFetchSucceedsFirstAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Basic abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	var delays []time.Duration
	f := newTestFetcher(&delays)

	resp, err := f.Fetch(context.Background(), server.URL, Options{
		Header: http.Header{"Authorization": {"Basic abc"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, resp.JSON(&body))
	assert.True(t, body.OK)
	assert.Empty(t, delays)
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": "busy"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	var delays []time.Duration
	f := newTestFetcher(&delays)

	resp, err := f.Fetch(context.Background(), server.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"success": true}`, string(resp.Body))
	assert.Equal(t, int32(3), attempts.Load())

	require.Len(t, delays, 2)
	assert.Equal(t, 1000*time.Millisecond, delays[0])
	assert.Equal(t, 2000*time.Millisecond, delays[1])
}

func TestFetchExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	var delays []time.Duration
	f := newTestFetcher(&delays)

	_, err := f.Fetch(context.Background(), server.URL, Options{})
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue), "want *UpstreamError, got %T", err)
	assert.Equal(t, http.StatusBadGateway, ue.StatusCode)
	assert.Equal(t, "bad gateway", ue.Message)
	assert.Equal(t, 4, ue.Attempts)
	assert.Equal(t, int32(4), attempts.Load(), "no attempts beyond the retry ceiling")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestFetchCustomPolicy(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var delays []time.Duration
	f := newTestFetcher(&delays).WithPolicy(1, 250*time.Millisecond)

	_, err := f.Fetch(context.Background(), server.URL, Options{})
	require.Error(t, err)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, delays)
}

func TestFetchZeroRetriesMeansSingleAttempt(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var delays []time.Duration
	f := newTestFetcher(&delays).WithPolicy(0, time.Second)

	_, err := f.Fetch(context.Background(), server.URL, Options{})
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Empty(t, delays)
}

func TestFetchAttemptDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	var delays []time.Duration
	f := newTestFetcher(&delays).WithPolicy(1, time.Millisecond)
	f.AttemptTimeout = 20 * time.Millisecond

	_, err := f.Fetch(context.Background(), server.URL, Options{})
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 2, ue.Attempts)
	assert.Zero(t, ue.StatusCode)

	var te *TransportError
	assert.True(t, errors.As(err, &te), "last cause should be a transport error")
}

func TestFetchCanceledContextStops(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(nil)
	_, err := f.Fetch(ctx, server.URL, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.LessOrEqual(t, attempts.Load(), int32(1))
}

func TestFetchSendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := New(nil)
	_, err := f.Fetch(context.Background(), server.URL, Options{Method: http.MethodPost, Body: []byte(`{"jql":"x"}`)})
	require.NoError(t, err)
}

type panickingObserver struct{}

func (panickingObserver) ObserveAttempt(context.Context, Attempt)              { panic("boom") }
func (panickingObserver) ObserveRetry(context.Context, Attempt, time.Duration) { panic("boom") }
func (panickingObserver) ObserveFailure(context.Context, *UpstreamError)       { panic("boom") }

func TestObserverPanicsDoNotFailFetch(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var delays []time.Duration
	f := newTestFetcher(&delays)
	f.Observer = panickingObserver{}

	_, err := f.Fetch(context.Background(), server.URL, Options{})
	require.NoError(t, err)
}

func TestUpstreamErrorNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  *UpstreamError
		want bool
	}{
		{"status 404", &UpstreamError{StatusCode: 404}, true},
		{"other client error", &UpstreamError{StatusCode: 400, Message: `{"errorMessages":["Issue does not exist or you do not have permission"]}`}, false},
		{"404 in message", &UpstreamError{Message: "upstream said 404"}, true},
		{"not found text", &UpstreamError{StatusCode: 500, Message: "Project Not Found"}, true},
		{"server error", &UpstreamError{StatusCode: 500, Message: "boom"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.NotFound())
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("  short  ", 10))

	body := strings.Repeat("é", 10) // 2 bytes each
	got := truncate(body, 8)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "éé...", got)

	long := strings.Repeat("ok ", 300) + "ünïcödé"
	got = truncate(long, maxErrorBody)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxErrorBody)
}

func TestFetchErrorMessageIsValidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(strings.Repeat("ж", maxErrorBody)))
	}))
	t.Cleanup(srv.Close)

	_, err := New(slog.New(slog.DiscardHandler)).WithPolicy(0, 0).Fetch(context.Background(), srv.URL, Options{})
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.True(t, utf8.ValidString(ue.Message))
	assert.True(t, strings.HasSuffix(ue.Message, "..."))
}
