package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/bzmigrate/pkg/models"
)

func newTestMigrator(source *fakeSource, tracker *fakeTracker, dryRun bool) *Migrator {
	opts := Options{BugzillaURL: testBugzillaURL, DryRun: dryRun}
	if dryRun {
		return NewMigrator(testMappings(), nil, nil, opts)
	}
	return NewMigrator(testMappings(), source, tracker, opts)
}

// threadRecord has a narrative, a reporter attachment and two follow-ups.
func threadRecord() *models.RawBugRecord {
	record := sampleRecord()
	record.Comments = append(record.Comments,
		models.RawComment{CommentID: "2", Who: "bob@example.com", When: "2010-05-13 08:00:00 -0700", Text: "Can you attach a log?"},
		attachmentComment("5", "alice@example.com", "trace.txt"),
		models.RawComment{CommentID: "4", Who: "bob@example.com", When: "2010-05-14 08:00:00 -0700", Text: ""},
		models.RawComment{CommentID: "5", Who: "old@example.com", When: "2010-05-15 08:00:00 -0700", Text: "Fixed in trunk"},
	)
	return record
}

func TestMigrateResolvedBugWithoutFollowUps(t *testing.T) {
	tracker := &fakeTracker{}
	m := newTestMigrator(&fakeSource{}, tracker, false)

	result, err := m.Migrate(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, []string{"create_issue", "close_issue"}, tracker.calls)
	assert.Empty(t, result.Comments)
	assert.True(t, result.Closed)
	assert.Contains(t, result.Issue.Description, "| Resolution | FIXED |")
	assert.Contains(t, result.Issue.Description, "## Extended Description \nFull repro steps here")
	assert.Equal(t, []int{result.Issue.ID}, tracker.closed)
}

func TestMigrateOrdering(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{"5": []byte("trace")}}
	tracker := &fakeTracker{}
	m := newTestMigrator(source, tracker, false)

	result, err := m.Migrate(context.Background(), threadRecord())
	require.NoError(t, err)

	// Attachment upload happens while building the issue; the empty comment is skipped
	assert.Equal(t, []string{"upload", "create_issue", "create_comment", "create_comment", "close_issue"}, tracker.calls)

	require.Len(t, tracker.comments, 2)
	for _, c := range tracker.comments {
		assert.Equal(t, result.Issue.ID, c.IssueID)
	}
	assert.Equal(t, "May 13, 2010 08:00\n\nCan you attach a log?", tracker.comments[0].Body)
	assert.Equal(t, "By old@example.com on May 15, 2010 08:00\n\nFixed in trunk", tracker.comments[1].Body)
	assert.Equal(t, "99", tracker.comments[1].Owner)

	// Absorbed comments never reach the tracker
	for _, c := range tracker.comments {
		assert.NotContains(t, c.Body, "Full repro steps here")
		assert.NotContains(t, c.Body, "trace.txt")
	}
	assert.Contains(t, result.Issue.Description, "| Attachments | ![trace.txt](/uploads/5/trace.txt) |")
	assert.Len(t, result.Comments, 2)
}

func TestMigrateOpenBugIsNotClosed(t *testing.T) {
	record := sampleRecord()
	record.Fields["bug_status"] = "NEW"
	record.Fields["resolution"] = ""

	tracker := &fakeTracker{}
	result, err := newTestMigrator(&fakeSource{}, tracker, false).Migrate(context.Background(), record)
	require.NoError(t, err)
	assert.False(t, result.Closed)
	assert.Equal(t, []string{"create_issue"}, tracker.calls)
}

func TestMigrateDryRun(t *testing.T) {
	result, err := newTestMigrator(nil, nil, true).Migrate(context.Background(), threadRecord())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.True(t, result.Closed)
	assert.Equal(t, dryRunIssueID, result.Issue.ID)
	assert.NoError(t, result.Issue.Validate())
	assert.Contains(t, result.Issue.Description, "| Attachments | [attachment](trace.txt) |")

	require.Len(t, result.Comments, 2)
	for _, c := range result.Comments {
		assert.NoError(t, c.Validate())
		assert.Equal(t, dryRunIssueID, c.IssueID)
	}
}

func TestMigrateValidationPreventsWrites(t *testing.T) {
	record := threadRecord()
	record.Fields["short_desc"] = ""

	source := &fakeSource{files: map[string][]byte{"5": []byte("trace")}}
	tracker := &fakeTracker{}
	result, err := newTestMigrator(source, tracker, false).Migrate(context.Background(), record)

	assert.Nil(t, result)
	var unitErr *UnitError
	require.True(t, errors.As(err, &unitErr))
	assert.Equal(t, "42", unitErr.BugID)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Empty(t, tracker.calls)
	assert.Empty(t, source.fetches)
}

func TestMigrateCreateIssueFailure(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{"5": []byte("trace")}}
	tracker := &fakeTracker{createIssueErr: errors.New("403 Forbidden")}
	result, err := newTestMigrator(source, tracker, false).Migrate(context.Background(), threadRecord())

	assert.Nil(t, result)
	var unitErr *UnitError
	require.True(t, errors.As(err, &unitErr))
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "create issue", transportErr.Op)
	assert.Equal(t, []string{"upload", "create_issue"}, tracker.calls)
}

func TestMigrateCreatedIssueFollowUpFailure(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{"5": []byte("trace")}}
	tracker := &fakeTracker{createdIssueErr: errors.New("failed to attach trace.txt: 400 Bad Request")}
	result, err := newTestMigrator(source, tracker, false).Migrate(context.Background(), threadRecord())

	var partial *PartialMigrationError
	require.True(t, errors.As(err, &partial))
	var unitErr *UnitError
	assert.False(t, errors.As(err, &unitErr))
	assert.Equal(t, 101, partial.IssueID)
	assert.Equal(t, 0, partial.CommentsPosted)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "create issue", transportErr.Op)

	require.NotNil(t, result)
	assert.Equal(t, 101, result.Issue.ID)
	assert.Equal(t, []string{"upload", "create_issue"}, tracker.calls)
}

func TestMigratePartialFailure(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{"5": []byte("trace")}}
	tracker := &fakeTracker{failCommentAt: 2}
	result, err := newTestMigrator(source, tracker, false).Migrate(context.Background(), threadRecord())

	var partial *PartialMigrationError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "42", partial.BugID)
	assert.Equal(t, result.Issue.ID, partial.IssueID)
	assert.Equal(t, 1, partial.CommentsPosted)
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))

	// Nothing is rolled back and the close transition is never issued
	require.NotNil(t, result)
	assert.Len(t, tracker.issues, 1)
	assert.Len(t, tracker.comments, 1)
	assert.NotContains(t, tracker.calls, "close_issue")
	assert.False(t, result.Closed)
}

func TestMigrateUnmappedCommentAuthor(t *testing.T) {
	record := sampleRecord()
	record.Comments = append(record.Comments,
		models.RawComment{CommentID: "2", Who: "stranger@example.com", When: "2010-05-13 08:00:00 -0700", Text: "hello"})

	tracker := &fakeTracker{}
	_, err := newTestMigrator(&fakeSource{}, tracker, false).Migrate(context.Background(), record)

	var partial *PartialMigrationError
	require.True(t, errors.As(err, &partial))
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0, partial.CommentsPosted)
	assert.Equal(t, []string{"create_issue"}, tracker.calls)
}

func TestMigrateCloseFailure(t *testing.T) {
	tracker := &fakeTracker{closeErr: errors.New("409 Conflict")}
	result, err := newTestMigrator(&fakeSource{}, tracker, false).Migrate(context.Background(), sampleRecord())

	var partial *PartialMigrationError
	require.True(t, errors.As(err, &partial))
	assert.Contains(t, err.Error(), "close issue")
	assert.False(t, result.Closed)
}
