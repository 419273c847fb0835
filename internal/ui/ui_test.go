package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/trackdash/internal/dashboard"
	"github.com/steveyegge/trackdash/internal/types"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		cliColor      string
		cliColorForce string
		want          bool
	}{
		{name: "NO_COLOR disables color", noColor: "1", want: false},
		{name: "CLICOLOR=0 disables color", cliColor: "0", want: false},
		{name: "CLICOLOR_FORCE enables color even in non-TTY", cliColorForce: "1", want: true},
		{name: "NO_COLOR takes precedence over CLICOLOR_FORCE", noColor: "1", cliColorForce: "1", want: false},
		{name: "no TTY in tests", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("NO_COLOR")
			t.Setenv("CLICOLOR", tt.cliColor)
			t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)
			if tt.noColor != "" {
				t.Setenv("NO_COLOR", tt.noColor)
			}
			assert.Equal(t, tt.want, ShouldUseColor())
		})
	}
}

func TestConfigureColorNoColor(t *testing.T) {
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.Ascii) })
	t.Setenv("CLICOLOR_FORCE", "1")
	ConfigureColor(true)
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())
	assert.Equal(t, "x", PassStyle.Render("x"))
}

func TestHealthIcons(t *testing.T) {
	assert.Equal(t, IconPass, HealthIcon(types.Healthy))
	assert.Equal(t, IconWarn, HealthIcon(types.AtRisk))
	assert.Equal(t, IconFail, HealthIcon(types.Critical))
	assert.Equal(t, IconSkip, HealthIcon(""))
	assert.Equal(t, "⚠ At Risk", RenderHealth(types.AtRisk))
}

func TestRenderDashboard(t *testing.T) {
	lead := "Ada Lovelace"
	entries := []dashboard.Entry{
		{
			Key: "ALPHA", Name: "Alpha Platform", Lead: &lead,
			TaskCounts:    types.TaskCounts{Total: 10, Counts: map[string]int{"Done": 6, "Blocked": 1}},
			Members:       4,
			LatestVersion: &types.Version{ID: "1", Name: "v2.0"},
			Health:        &types.ProjectHealth{Status: types.Healthy, Progress: 80, Blocked: 1},
		},
		{
			Key: "BETA", Name: "Beta", TaskCounts: types.EmptyTaskCounts(),
			Health:    &types.ProjectHealth{Status: types.Critical},
			Degraded:  []string{"issues"},
			Truncated: true,
		},
		{Key: "bad key", Error: "invalid project key"},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderDashboard(&buf, entries))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)

	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.Contains(t, lines[0], "HEALTH")
	assert.Contains(t, lines[1], "Ada Lovelace")
	assert.Contains(t, lines[1], "v2.0")
	assert.Contains(t, lines[1], "80%")
	assert.Contains(t, lines[1], "✓ Healthy")
	assert.Contains(t, lines[2], "0+")
	assert.Contains(t, lines[2], "(partial: issues)")
	assert.Contains(t, lines[3], "✗ invalid project key")
	assert.Equal(t, "3 projects, 1 failed, 1 partial", lines[5])

	// Columns line up: HEALTH starts at the same offset in header and first row.
	assert.Equal(t, strings.Index(lines[0], "HEALTH"), strings.Index(lines[1], "✓"))
}

func TestRenderDashboardEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderDashboard(&buf, nil))
	assert.Contains(t, buf.String(), "0 projects")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
