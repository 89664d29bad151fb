// Package journal records the outcome of every migrated bug to an
// append-only file, so partially migrated bugs can be found and fixed by hand.
package journal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Entry is the outcome of one migration unit.
type Entry struct {
	BugID    string
	IssueID  int
	IssueURL string
	Comments int
	Closed   bool
	DryRun   bool
	Partial  bool
	Err      error
}

// Journal writes entries as JSON lines.
type Journal struct {
	logger *slog.Logger
	closer io.Closer
	path   string
}

// Open creates the journal file for today under ~/.<appName>/logs.
func Open(appName string) (*Journal, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return OpenDir(filepath.Join(homeDir, "."+appName, "logs"), appName)
}

// OpenDir creates (or appends to) the journal file for today inside dir.
func OpenDir(dir, appName string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s.jsonl", appName, time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, fileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	j := New(f)
	j.closer = f
	j.path = path
	return j, nil
}

// New returns a journal writing to w.
func New(w io.Writer) *Journal {
	return &Journal{logger: slog.New(slog.NewJSONHandler(w, nil))}
}

// Path returns the journal file path, or "" for writer-backed journals.
func (j *Journal) Path() string {
	return j.path
}

// Record appends one entry.
func (j *Journal) Record(e Entry) {
	attrs := []any{
		"bug_id", e.BugID,
		"issue_id", e.IssueID,
		"comments", e.Comments,
		"closed", e.Closed,
		"dry_run", e.DryRun,
	}
	if e.IssueURL != "" {
		attrs = append(attrs, "issue_url", e.IssueURL)
	}

	switch {
	case e.Err == nil:
		j.logger.Info("migrated", attrs...)
	case e.Partial:
		j.logger.Error("partially migrated", append(attrs, "error", e.Err.Error())...)
	default:
		j.logger.Error("not migrated", append(attrs, "error", e.Err.Error())...)
	}
}

// Close closes the underlying file, if the journal owns one.
func (j *Journal) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}
