package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/trackdash/internal/types"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "trackdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, time.Second, cfg.Fetch.InitialDelay)
	assert.Equal(t, 15*time.Second, cfg.Fetch.AttemptTimeout)
	assert.Equal(t, 1000, cfg.Search.MaxResults)
	assert.Equal(t, 100, cfg.Search.PageSize)
	assert.Equal(t, 8, cfg.Dashboard.Concurrency)
	assert.Empty(t, cfg.Dashboard.Projects)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.File)

	err = cfg.CheckCredentials()
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
jira:
  url: https://example.atlassian.net/
  username: me@example.com
  api_token: secret
fetch:
  max_retries: 5
  initial_delay: 250ms
dashboard:
  projects: [ALPHA, BETA]
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.atlassian.net", cfg.Jira.URL)
	assert.Equal(t, "secret", cfg.Jira.APIToken)
	assert.Equal(t, 5, cfg.Fetch.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.InitialDelay)
	assert.Equal(t, []string{"ALPHA", "BETA"}, cfg.Dashboard.Projects)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, path, cfg.File)
	assert.NoError(t, cfg.CheckCredentials())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("JIRA_URL", "https://jira.example.com")
	t.Setenv("JIRA_API_TOKEN", "pat")
	t.Setenv("TRACKDASH_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("TRACKDASH_FETCH_MAX_RETRIES", "1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.com", cfg.Jira.URL)
	assert.Equal(t, "pat", cfg.Jira.APIToken)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 1, cfg.Fetch.MaxRetries)
}

func TestPrefixedEnvWinsOverAlias(t *testing.T) {
	t.Setenv("JIRA_URL", "https://alias.example.com")
	t.Setenv("TRACKDASH_JIRA_URL", "https://prefixed.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://prefixed.example.com", cfg.Jira.URL)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
jira:
  url: ftp://nope
fetch:
  max_retries: -1
dashboard:
  concurrency: 0
log:
  level: loud
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
	for _, key := range []string{"jira.url", "fetch.max_retries", "dashboard.concurrency", "log.level"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestJiraTimezone(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
jira:
  timezone: Europe/Berlin
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	var empty Config
	loc, err = empty.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	path = writeConfig(t, t.TempDir(), `
jira:
  timezone: Mars/Olympus
`)
	_, err = Load(path)
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
	assert.Contains(t, err.Error(), "jira.timezone")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "server:\n  addr: \":1111\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var latest atomic.Pointer[Config]
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, slog.New(slog.DiscardHandler), func(c *Config) { latest.Store(c) })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":2222\"\n"), 0o600))

	require.Eventually(t, func() bool {
		c := latest.Load()
		return c != nil && c.Server.Addr == ":2222"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchSkipsInvalidEdits(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = Watch(ctx, path, slog.New(slog.DiscardHandler), func(*Config) { calls.Add(1) })
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	time.Sleep(600 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
