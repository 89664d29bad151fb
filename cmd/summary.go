package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielolaszy/bzmigrate/internal/migrate"
)

var (
	colorOK = lipgloss.AdaptiveColor{
		Light: "#6cbf43",
		Dark:  "#aad94c",
	}
	colorPartial = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	colorFailed = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f26d78",
	}
	colorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK)
	partialStyle = lipgloss.NewStyle().Foreground(colorPartial)
	failedStyle  = lipgloss.NewStyle().Foreground(colorFailed)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)

	bugColumn      = lipgloss.NewStyle().Width(10)
	statusColumn   = lipgloss.NewStyle().Width(12)
	commentsColumn = lipgloss.NewStyle().Width(10)
	closedColumn   = lipgloss.NewStyle().Width(8)
)

const (
	statusMigrated = "migrated"
	statusDryRun   = "dry run"
	statusPartial  = "partial"
	statusFailed   = "failed"
)

func statusOf(o outcome) string {
	switch {
	case o.Err == nil && o.Result != nil && o.Result.DryRun:
		return statusDryRun
	case o.Err == nil:
		return statusMigrated
	case o.partial():
		return statusPartial
	default:
		return statusFailed
	}
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case statusPartial:
		return partialStyle
	case statusFailed:
		return failedStyle
	default:
		return okStyle
	}
}

// renderSummary renders one row per bug followed by the totals.
func renderSummary(outcomes []outcome) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(
		bugColumn.Render("BUG") +
			statusColumn.Render("STATUS") +
			commentsColumn.Render("COMMENTS") +
			closedColumn.Render("CLOSED") +
			"ISSUE"))
	b.WriteString("\n")

	counts := make(map[string]int)
	for _, o := range outcomes {
		status := statusOf(o)
		counts[status]++

		comments, closed, issue := "-", "-", ""
		if o.Result != nil {
			comments = strconv.Itoa(len(o.Result.Comments))
			closed = strconv.FormatBool(o.Result.Closed)
			issue = issueLabel(o.Result)
		}

		var p *migrate.PartialMigrationError
		if errors.As(o.Err, &p) {
			comments = strconv.Itoa(p.CommentsPosted)
		}

		detail := mutedStyle.Render(issue)
		if o.Err != nil {
			detail = failedStyle.Render(strings.TrimSpace(issue + " " + o.Err.Error()))
		}

		b.WriteString(bugColumn.Render(o.BugID))
		b.WriteString(statusColumn.Render(statusStyle(status).Render(status)))
		b.WriteString(commentsColumn.Render(comments))
		b.WriteString(closedColumn.Render(closed))
		b.WriteString(detail)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d bugs: %s, %s, %s",
		len(outcomes),
		okStyle.Render(fmt.Sprintf("%d migrated", counts[statusMigrated]+counts[statusDryRun])),
		partialStyle.Render(fmt.Sprintf("%d partial", counts[statusPartial])),
		failedStyle.Render(fmt.Sprintf("%d failed", counts[statusFailed]))))
	b.WriteString("\n")

	return b.String()
}

func issueLabel(r *migrate.Result) string {
	if r.DryRun {
		return "(not created)"
	}
	if r.Issue.WebURL != "" {
		return r.Issue.WebURL
	}
	return "#" + strconv.Itoa(r.Issue.ID)
}
