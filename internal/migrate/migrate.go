// Package migrate turns Bugzilla bug records into target tracker issues and
// comments and writes them, in order, through a Tracker.
package migrate

import (
	"context"

	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// Source fetches attachment payloads from Bugzilla.
type Source interface {
	FetchAttachment(ctx context.Context, id string) ([]byte, error)
}

// Tracker persists migrated entities in the target tracker.
type Tracker interface {
	// CreateIssue creates the issue acting as issue.Owner and sets
	// issue.ID (and issue.WebURL when known).
	CreateIssue(ctx context.Context, issue *models.Issue) error

	// CreateComment adds a comment to comment.IssueID acting as comment.Owner.
	CreateComment(ctx context.Context, comment *models.Comment) error

	// UploadFile stores an attachment and returns a reference that can be
	// embedded in issue descriptions and comments.
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)

	// CloseIssue moves the issue to its closed state.
	CloseIssue(ctx context.Context, issue *models.Issue) error

	// Impersonates reports whether Owner identities are honoured.
	Impersonates() bool
}

// Options control a Migrator.
type Options struct {
	// BugzillaURL is the Bugzilla root used for back links, ending in "/".
	BugzillaURL string

	// DryRun runs every transformation but never calls Source or Tracker.
	DryRun bool

	// AttributeAuthors prefixes every comment with its Bugzilla author. It is
	// needed for trackers that cannot impersonate users.
	AttributeAuthors bool
}
