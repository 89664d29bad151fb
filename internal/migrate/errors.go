package migrate

import (
	"fmt"
)

// ParseError reports source text that could not be interpreted, such as an
// attachment comment without a filename ("Created attachment 3") or an
// unreadable timestamp.
type ParseError struct {
	What string
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from %q", e.What, e.Text)
}

// ConfigurationError reports a Bugzilla user missing from the mapping tables.
// It is fixed by editing the mappings file, never by retrying.
type ConfigurationError struct {
	Login string

	// Stage is "users" when the login has no canonical name and
	// "target_users" when the canonical name has no target identity.
	Stage     string
	Canonical string
}

func (e *ConfigurationError) Error() string {
	if e.Stage == stageTarget {
		return fmt.Sprintf("unmapped user %q: canonical name %q has no entry in target_users", e.Login, e.Canonical)
	}
	return fmt.Sprintf("unmapped user %q: no entry in users", e.Login)
}

// ValidationError reports an issue or comment missing required fields. No
// request is made for an entity that fails validation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TransportError reports a failed call to Bugzilla or the target tracker.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnitError attaches the Bugzilla bug ID to a failure that happened before
// anything was written to the target tracker.
type UnitError struct {
	BugID string
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("bug %s: %v", e.BugID, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// PartialMigrationError reports a failure after the issue was created. The
// issue and the comments already posted stay in the target tracker; running
// the bug again creates a duplicate issue.
type PartialMigrationError struct {
	BugID          string
	IssueID        int
	CommentsPosted int
	Err            error
}

func (e *PartialMigrationError) Error() string {
	return fmt.Sprintf("bug %s partially migrated to issue %d (%d comments posted): %v",
		e.BugID, e.IssueID, e.CommentsPosted, e.Err)
}

func (e *PartialMigrationError) Unwrap() error { return e.Err }
