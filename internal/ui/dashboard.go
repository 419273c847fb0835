package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/trackdash/internal/dashboard"
)

var dashboardColumns = []string{"key", "name", "lead", "tasks", "blocked", "members", "latest", "progress", "health"}

// RenderDashboard writes the snapshot table for entries, one row per project
// in the given order. Failed projects show their error in place of a summary.
func RenderDashboard(w io.Writer, entries []dashboard.Entry) error {
	rows := make([][]string, 0, len(entries)+1)
	header := make([]string, len(dashboardColumns))
	for i, c := range dashboardColumns {
		header[i] = RenderHeader(c)
	}
	rows = append(rows, header)

	var failed, degraded int
	for _, e := range entries {
		if e.Failed() {
			failed++
		}
		if len(e.Degraded) > 0 {
			degraded++
		}
		rows = append(rows, entryRow(e))
	}

	widths := make([]int, len(dashboardColumns))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(RenderSeparator())
	b.WriteString("\n")
	b.WriteString(summaryLine(len(entries), failed, degraded))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func entryRow(e dashboard.Entry) []string {
	if e.Failed() {
		row := make([]string, len(dashboardColumns))
		row[0] = e.Key
		for i := 1; i < len(row)-1; i++ {
			row[i] = RenderMuted(IconSkip)
		}
		row[len(row)-1] = FailStyle.Render(IconFail + " " + e.Error)
		return row
	}

	lead := RenderMuted(IconSkip)
	if e.Lead != nil {
		lead = *e.Lead
	}
	latest := RenderMuted(IconSkip)
	if e.LatestVersion != nil {
		latest = e.LatestVersion.Name
	}
	blocked, progress, health := "0", RenderMuted(IconSkip), RenderMuted(IconSkip)
	if e.Health != nil {
		blocked = strconv.Itoa(e.Health.Blocked)
		progress = fmt.Sprintf("%d%%", e.Health.Progress)
		health = RenderHealth(e.Health.Status)
	}
	tasks := strconv.Itoa(e.TaskCounts.Total)
	if e.Truncated {
		tasks += "+"
	}
	if len(e.Degraded) > 0 {
		health += " " + WarnStyle.Render("(partial: "+strings.Join(e.Degraded, ",")+")")
	}
	return []string{
		RenderAccent(e.Key),
		truncate(e.Name, 32),
		truncate(lead, 24),
		tasks,
		blocked,
		strconv.Itoa(e.Members),
		latest,
		progress,
		health,
	}
}

func summaryLine(total, failed, degraded int) string {
	parts := []string{fmt.Sprintf("%d projects", total)}
	if failed > 0 {
		parts = append(parts, FailStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if degraded > 0 {
		parts = append(parts, WarnStyle.Render(fmt.Sprintf("%d partial", degraded)))
	}
	return strings.Join(parts, ", ")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
