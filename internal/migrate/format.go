package migrate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// displayLayout renders timestamps as "Mon DD, YYYY HH:MM".
const displayLayout = "Jan 02, 2006 15:04"

// Bugzilla has exported timestamps with and without seconds and zones.
var bugzillaLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04 -0700",
	"2006-01-02 15:04 MST",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

var newlineRuns = regexp.MustCompile(`\n+`)

const tableHeader = "| | |\n|---|---|\n"

func tableRow(key, value string) string {
	return fmt.Sprintf("| %s | %s |\n", key, value)
}

// formatTimestamp reformats a Bugzilla timestamp for display, keeping the
// wall clock time of the zone Bugzilla reported.
func formatTimestamp(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range bugzillaLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(displayLayout), nil
		}
	}
	return "", &ParseError{What: "timestamp", Text: raw}
}

// rewrap turns every run of line breaks into a paragraph break.
func rewrap(text string) string {
	return newlineRuns.ReplaceAllString(text, "\n\n")
}
