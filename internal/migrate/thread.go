package migrate

import (
	"context"
	"fmt"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// dryRunIssueID stands in for the tracker-assigned ID during a dry run.
const dryRunIssueID = -1

// Result describes what was (or, in a dry run, would have been) written
// for one bug.
type Result struct {
	BugID    string
	Issue    *models.Issue
	Comments []*models.Comment
	Closed   bool
	DryRun   bool
}

// Migrator migrates one bug at a time: the issue first, then its comments
// in chronological order, then the close transition.
type Migrator struct {
	mappings *config.Mappings
	tracker  Tracker
	issues   *IssueBuilder
	comments *CommentBuilder
	dryRun   bool
}

// NewMigrator wires the builders around source and tracker. Both may be nil
// when opts.DryRun is set.
func NewMigrator(m *config.Mappings, source Source, tracker Tracker, opts Options) *Migrator {
	resolver := NewAttachmentResolver(source, tracker, opts.DryRun)
	return &Migrator{
		mappings: m,
		tracker:  tracker,
		issues:   NewIssueBuilder(m, resolver, opts.BugzillaURL),
		comments: NewCommentBuilder(m, resolver, opts.AttributeAuthors),
		dryRun:   opts.DryRun,
	}
}

// Migrate writes record to the tracker. Errors raised before the issue
// exists are *UnitError; later ones are *PartialMigrationError, returned
// together with the partial Result.
func (m *Migrator) Migrate(ctx context.Context, record *models.RawBugRecord) (*Result, error) {
	issue, remaining, err := m.issues.Build(ctx, record)
	if err != nil {
		return nil, &UnitError{BugID: record.BugID, Err: err}
	}

	result := &Result{BugID: record.BugID, Issue: issue, DryRun: m.dryRun}

	partial := func(err error) (*Result, error) {
		posted := len(result.Comments)
		if m.dryRun {
			posted = 0
		}
		return result, &PartialMigrationError{
			BugID:          record.BugID,
			IssueID:        issue.ID,
			CommentsPosted: posted,
			Err:            err,
		}
	}

	if m.dryRun {
		issue.ID = dryRunIssueID
		logging.Info("dry run: would create issue",
			"bug_id", record.BugID,
			"title", issue.Title,
			"labels", issue.LabelString())
	} else {
		if err := m.tracker.CreateIssue(ctx, issue); err != nil {
			err = &TransportError{Op: "create issue", Err: err}
			// A tracker that assigned an ID has created the issue even though
			// a follow-up step failed.
			if issue.ID != 0 {
				return partial(err)
			}
			return nil, &UnitError{BugID: record.BugID, Err: err}
		}
		logging.Info("created issue",
			"bug_id", record.BugID,
			"issue_id", issue.ID,
			"url", issue.WebURL)
	}

	for _, raw := range remaining {
		if raw.Text == "" {
			continue
		}

		comment, err := m.comments.Build(ctx, raw)
		if err != nil {
			return partial(err)
		}
		comment.IssueID = issue.ID
		if err := comment.Validate(); err != nil {
			return partial(&ValidationError{Err: err})
		}

		if !m.dryRun {
			if err := m.tracker.CreateComment(ctx, comment); err != nil {
				return partial(&TransportError{Op: fmt.Sprintf("create comment %s", raw.CommentID), Err: err})
			}
		}
		result.Comments = append(result.Comments, comment)
	}

	if m.mappings.IsClosed(issue.Status) {
		if !m.dryRun {
			if err := m.tracker.CloseIssue(ctx, issue); err != nil {
				return partial(&TransportError{Op: "close issue", Err: err})
			}
		}
		result.Closed = true
	}

	logging.Info("migrated bug",
		"bug_id", record.BugID,
		"issue_id", issue.ID,
		"comments", len(result.Comments),
		"closed", result.Closed,
		"dry_run", m.dryRun)

	return result, nil
}
