// Package models defines data structures shared across the application.
package models

import (
	"fmt"
	"strings"
)

// RawComment is a single long_desc entry of a Bugzilla bug.
type RawComment struct {
	// CommentID is Bugzilla's own comment identifier
	CommentID string

	// Who is the Bugzilla login of the comment author
	Who string

	// When is the raw bug_when timestamp
	When string

	// Text is the comment body (thetext)
	Text string

	// AttachID is set when the comment announces a new attachment
	AttachID string

	// IsPrivate mirrors the isprivate attribute of long_desc
	IsPrivate bool
}

// HasAttachment reports whether the comment carries an attachment marker.
func (c RawComment) HasAttachment() bool {
	return c.AttachID != ""
}

// RawAttachment is the metadata Bugzilla exports for an attachment.
type RawAttachment struct {
	ID          string
	Filename    string
	Description string
	MimeType    string
	Size        string
}

// RawBugRecord is a Bugzilla bug as exported by show_bug.cgi?ctype=xml.
// Builders treat it as read-only input.
type RawBugRecord struct {
	// BugID is the Bugzilla bug number
	BugID string

	// Fields holds every scalar child element of <bug>, keyed by tag name
	Fields map[string]string

	// Comments are the long_desc entries in chronological order
	Comments []RawComment

	// Attachments are the attachment entries in export order
	Attachments []RawAttachment

	// Watchers are the cc entries
	Watchers []string
}

// Field returns the named scalar field, or "" when absent.
func (r *RawBugRecord) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Reporter returns the Bugzilla login of the reporter.
func (r *RawBugRecord) Reporter() string { return r.Field("reporter") }

// AssignedTo returns the Bugzilla login of the assignee.
func (r *RawBugRecord) AssignedTo() string { return r.Field("assigned_to") }

// Issue is the target tracker's issue, built from a RawBugRecord.
type Issue struct {
	// ID is assigned by the tracker on creation; zero beforehand
	ID int

	// WebURL is the tracker's browser link, when it reports one
	WebURL string

	// Owner is the identity the tracker records as the issue author
	Owner string

	Title       string
	Description string
	Status      string

	// Assignee is the target identity of the assignee, if any
	Assignee string

	// Milestone is the target milestone identifier, if any
	Milestone string

	Labels []string
}

// LabelString returns the labels comma-joined, as trackers expect them.
func (i *Issue) LabelString() string {
	return strings.Join(i.Labels, ",")
}

// Validate checks that every required field is set.
func (i *Issue) Validate() error {
	var missing []string
	if i.Owner == "" {
		missing = append(missing, "owner")
	}
	if i.Title == "" {
		missing = append(missing, "title")
	}
	if i.Description == "" {
		missing = append(missing, "description")
	}
	if i.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Entity: "issue", Fields: missing}
	}
	return nil
}

// Comment is a note on a target issue.
type Comment struct {
	// Owner is the identity the tracker records as the comment author
	Owner string

	Body string

	// IssueID is bound only once the parent issue exists
	IssueID int
}

// Validate checks that every required field is set, including the parent issue.
func (c *Comment) Validate() error {
	var missing []string
	if c.Owner == "" {
		missing = append(missing, "owner")
	}
	if c.Body == "" {
		missing = append(missing, "body")
	}
	if c.IssueID == 0 {
		missing = append(missing, "issue_id")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Entity: "comment", Fields: missing}
	}
	return nil
}

// AttachmentRef identifies one attachment for the duration of a single upload.
type AttachmentRef struct {
	SourceID string
	Filename string
}

// MissingFieldsError lists the required fields an entity is missing.
type MissingFieldsError struct {
	Entity string
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s is missing required fields: %s", e.Entity, strings.Join(e.Fields, ", "))
}
