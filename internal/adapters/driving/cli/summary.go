package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/github-backup/internal/core/domain"
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, styles.Label.Render(label), value)
}

// renderReport writes the end-of-run summary.
func renderReport(w io.Writer, r *domain.RunReport) {
	status := styles.Success.Render(string(r.Status))
	if r.Status != domain.RunSucceeded {
		status = styles.Error.Render(string(r.Status))
	}

	failed := fmt.Sprint(r.Failed)
	if r.Failed > 0 {
		failed = styles.Warning.Render(failed)
	}

	lines := []string{
		styles.Title.Render("Backup " + r.Account),
		row("Status", status),
		row("Cloned", fmt.Sprint(r.Cloned)),
		row("Updated", fmt.Sprint(r.Updated)),
		row("Skipped", fmt.Sprint(r.Skipped)),
		row("Failed", failed),
		row("Duration", r.Duration().Round(time.Second).String()),
		row("Run", r.RunID),
	}
	for _, err := range r.Failures {
		lines = append(lines, styles.Error.Render("✗ ")+err.Error())
	}
	fmt.Fprintln(w, styles.Box.Render(strings.Join(lines, "\n")))
}

// renderRateLimits writes the quota of each category.
func renderRateLimits(w io.Writer, limits *domain.RateLimits, now time.Time) {
	lines := []string{styles.Title.Render("API rate limits")}
	for _, c := range []struct {
		name string
		rate domain.Rate
	}{
		{domain.CategoryCore, limits.Core},
		{domain.CategorySearch, limits.Search},
		{domain.CategoryGraphQL, limits.GraphQL},
	} {
		remaining := fmt.Sprintf("%d/%d", c.rate.Remaining, c.rate.Limit)
		if c.rate.Exhausted() {
			remaining = styles.Error.Render(remaining)
		}
		reset := ""
		if !c.rate.Reset.IsZero() {
			reset = "  resets " + humanize.RelTime(c.rate.Reset, now, "ago", "from now")
		}
		lines = append(lines, row(c.name, remaining+reset))
	}
	fmt.Fprintln(w, styles.Box.Render(strings.Join(lines, "\n")))
}
