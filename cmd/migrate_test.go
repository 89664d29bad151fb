package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/internal/journal"
	"github.com/danielolaszy/bzmigrate/internal/migrate"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// fakeSource serves bugs from memory.
type fakeSource struct {
	bugs map[string]*models.RawBugRecord
}

func (s *fakeSource) GetBug(_ context.Context, id string) (*models.RawBugRecord, error) {
	record, ok := s.bugs[id]
	if !ok {
		return nil, fmt.Errorf("show_bug.cgi returned status 404")
	}
	return record, nil
}

func (s *fakeSource) FetchAttachment(_ context.Context, id string) ([]byte, error) {
	return nil, fmt.Errorf("attachment %s not found", id)
}

// fakeTracker numbers issues from 1 and can reject comments.
type fakeTracker struct {
	issues      int
	comments    int
	rejectNotes bool
}

func (f *fakeTracker) CreateIssue(_ context.Context, issue *models.Issue) error {
	f.issues++
	issue.ID = f.issues
	issue.WebURL = fmt.Sprintf("https://gitlab.example.com/g/p/-/issues/%d", issue.ID)
	return nil
}

func (f *fakeTracker) CreateComment(_ context.Context, _ *models.Comment) error {
	if f.rejectNotes {
		return errors.New("403 Forbidden")
	}
	f.comments++
	return nil
}

func (f *fakeTracker) UploadFile(_ context.Context, filename string, _ []byte) (string, error) {
	return "[" + filename + "](/uploads/" + filename + ")", nil
}

func (f *fakeTracker) CloseIssue(_ context.Context, _ *models.Issue) error { return nil }

func (f *fakeTracker) Impersonates() bool { return true }

func runnerMappings() *config.Mappings {
	m := config.DefaultMappings()
	m.Users = map[string]string{"alice@example.com": "alice", "bob@example.com": "bob"}
	m.TargetUsers = map[string]string{"alice": "11", "bob": "12"}
	return m
}

func bug(id, status string, extraComments ...models.RawComment) *models.RawBugRecord {
	return &models.RawBugRecord{
		BugID: id,
		Fields: map[string]string{
			"bug_id":      id,
			"reporter":    "alice@example.com",
			"short_desc":  "Bug " + id,
			"bug_status":  status,
			"creation_ts": "2012-03-04 05:06:07 +0000",
			"op_sys":      "Linux",
		},
		Comments: append([]models.RawComment{
			{CommentID: id + "0", Who: "alice@example.com", When: "2012-03-04 05:06:07 +0000", Text: "steps"},
		}, extraComments...),
	}
}

func newTestRunner(source bugSource, tracker migrate.Tracker, m *config.Mappings, continueOnError bool, out *bytes.Buffer) *runner {
	return &runner{
		source: source,
		migrator: migrate.NewMigrator(m, source, tracker, migrate.Options{
			BugzillaURL: "https://bugs.example.com/",
		}),
		journal:         journal.New(out),
		continueOnError: continueOnError,
	}
}

func TestRunMigratesInOrder(t *testing.T) {
	reply := models.RawComment{CommentID: "x", Who: "bob@example.com", When: "2012-03-05 05:06:07 +0000", Text: "confirmed"}
	source := &fakeSource{bugs: map[string]*models.RawBugRecord{
		"1": bug("1", "NEW", reply),
		"2": bug("2", "RESOLVED"),
	}}
	tracker := &fakeTracker{}
	var journalOut bytes.Buffer

	outcomes, err := newTestRunner(source, tracker, runnerMappings(), false, &journalOut).run(context.Background(), []string{"1", "2"})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.Equal(t, "1", outcomes[0].BugID)
	assert.Equal(t, 1, outcomes[0].Result.Issue.ID)
	assert.Len(t, outcomes[0].Result.Comments, 1)
	assert.False(t, outcomes[0].Result.Closed)
	assert.True(t, outcomes[1].Result.Closed)

	assert.Equal(t, 2, tracker.issues)
	assert.Equal(t, 1, tracker.comments)
	assert.Equal(t, 2, strings.Count(journalOut.String(), `"msg":"migrated"`))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	source := &fakeSource{bugs: map[string]*models.RawBugRecord{
		"2": bug("2", "NEW"),
	}}
	tracker := &fakeTracker{}
	var journalOut bytes.Buffer

	outcomes, err := newTestRunner(source, tracker, runnerMappings(), false, &journalOut).run(context.Background(), []string{"1", "2"})
	require.Error(t, err)

	var unitErr *migrate.UnitError
	require.True(t, errors.As(err, &unitErr))
	assert.Equal(t, "1", unitErr.BugID)

	var transportErr *migrate.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "fetch bug", transportErr.Op)

	assert.Len(t, outcomes, 1)
	assert.Equal(t, 0, tracker.issues)
	assert.Contains(t, journalOut.String(), `"msg":"not migrated"`)
}

func TestRunContinueOnError(t *testing.T) {
	unmapped := bug("1", "NEW")
	unmapped.Fields["reporter"] = "mallory@example.com"
	source := &fakeSource{bugs: map[string]*models.RawBugRecord{
		"1": unmapped,
		"2": bug("2", "NEW"),
	}}
	tracker := &fakeTracker{}
	var journalOut bytes.Buffer

	outcomes, err := newTestRunner(source, tracker, runnerMappings(), true, &journalOut).run(context.Background(), []string{"1", "2"})
	require.Error(t, err)
	assert.Equal(t, "1 of 2 bugs failed", err.Error())

	require.Len(t, outcomes, 2)
	var cfgErr *migrate.ConfigurationError
	assert.True(t, errors.As(outcomes[0].Err, &cfgErr))
	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, 1, tracker.issues)
}

func TestRunRecordsPartialMigration(t *testing.T) {
	reply := models.RawComment{CommentID: "x", Who: "bob@example.com", When: "2012-03-05 05:06:07 +0000", Text: "confirmed"}
	source := &fakeSource{bugs: map[string]*models.RawBugRecord{"1": bug("1", "NEW", reply)}}
	tracker := &fakeTracker{rejectNotes: true}
	var journalOut bytes.Buffer

	outcomes, err := newTestRunner(source, tracker, runnerMappings(), false, &journalOut).run(context.Background(), []string{"1"})
	require.Error(t, err)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].partial())

	entry := journalEntry(outcomes[0])
	assert.True(t, entry.Partial)
	assert.Equal(t, 1, entry.IssueID)
	assert.Equal(t, 0, entry.Comments)
	assert.Contains(t, journalOut.String(), `"msg":"partially migrated"`)
}

func TestRunHonoursCancellation(t *testing.T) {
	source := &fakeSource{bugs: map[string]*models.RawBugRecord{"1": bug("1", "NEW")}}
	tracker := &fakeTracker{}
	var journalOut bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := newTestRunner(source, tracker, runnerMappings(), true, &journalOut).run(ctx, []string{"1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
	assert.Equal(t, 0, tracker.issues)
}

func TestRenderSummary(t *testing.T) {
	migrated := &migrate.Result{
		BugID:    "1",
		Issue:    &models.Issue{ID: 7, WebURL: "https://gitlab.example.com/g/p/-/issues/7"},
		Comments: []*models.Comment{{}, {}},
		Closed:   true,
	}
	partial := &migrate.Result{BugID: "2", Issue: &models.Issue{ID: 8}}

	outcomes := []outcome{
		{BugID: "1", Result: migrated},
		{BugID: "2", Result: partial, Err: &migrate.PartialMigrationError{BugID: "2", IssueID: 8, CommentsPosted: 1, Err: errors.New("boom")}},
		{BugID: "3", Err: &migrate.UnitError{BugID: "3", Err: errors.New("unmapped")}},
	}

	summary := renderSummary(outcomes)
	lines := strings.Split(strings.TrimSpace(summary), "\n")

	assert.Contains(t, lines[0], "BUG")
	assert.Contains(t, lines[0], "ISSUE")
	assert.Contains(t, lines[1], "migrated")
	assert.Contains(t, lines[1], "https://gitlab.example.com/g/p/-/issues/7")
	assert.Contains(t, lines[2], "partial")
	assert.Contains(t, lines[2], "#8")
	assert.Contains(t, lines[3], "failed")
	assert.Contains(t, lines[3], "unmapped")
	assert.Contains(t, summary, "3 bugs:")
	assert.Contains(t, summary, "1 migrated")
	assert.Contains(t, summary, "1 partial")
	assert.Contains(t, summary, "1 failed")
}

func TestStatusOfDryRun(t *testing.T) {
	o := outcome{BugID: "1", Result: &migrate.Result{DryRun: true, Issue: &models.Issue{ID: -1}}}
	assert.Equal(t, statusDryRun, statusOf(o))
	assert.Equal(t, "(not created)", issueLabel(o.Result))
}
