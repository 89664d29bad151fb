package migrate

import (
	"context"
	"fmt"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

const testBugzillaURL = "https://bugs.example.com/"

// fakeSource serves attachment payloads from memory and counts fetches.
type fakeSource struct {
	files   map[string][]byte
	fetches []string
	err     error
}

func (s *fakeSource) FetchAttachment(_ context.Context, id string) ([]byte, error) {
	s.fetches = append(s.fetches, id)
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found", id)
	}
	return data, nil
}

// fakeTracker records every call in order.
type fakeTracker struct {
	calls    []string
	issues   []*models.Issue
	comments []models.Comment
	closed   []int
	uploads  []string

	nextID int

	createIssueErr  error
	// createdIssueErr is returned after the issue got its ID
	createdIssueErr error
	closeErr        error
	// failCommentAt makes the n-th CreateComment call (1-based) fail
	failCommentAt int
}

func (f *fakeTracker) CreateIssue(_ context.Context, issue *models.Issue) error {
	f.calls = append(f.calls, "create_issue")
	if f.createIssueErr != nil {
		return f.createIssueErr
	}
	f.nextID++
	issue.ID = 100 + f.nextID
	issue.WebURL = fmt.Sprintf("https://gitlab.example.com/g/p/-/issues/%d", issue.ID)
	f.issues = append(f.issues, issue)
	return f.createdIssueErr
}

func (f *fakeTracker) CreateComment(_ context.Context, comment *models.Comment) error {
	f.calls = append(f.calls, "create_comment")
	if f.failCommentAt > 0 && len(f.comments)+1 == f.failCommentAt {
		return fmt.Errorf("500 Internal Server Error")
	}
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeTracker) UploadFile(_ context.Context, filename string, data []byte) (string, error) {
	f.calls = append(f.calls, "upload")
	f.uploads = append(f.uploads, filename)
	return fmt.Sprintf("![%s](/uploads/%d/%s)", filename, len(data), filename), nil
}

func (f *fakeTracker) CloseIssue(_ context.Context, issue *models.Issue) error {
	f.calls = append(f.calls, "close_issue")
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed = append(f.closed, issue.ID)
	return nil
}

func (f *fakeTracker) Impersonates() bool { return true }

func testMappings() *config.Mappings {
	m := config.DefaultMappings()
	m.Users = map[string]string{
		"alice@example.com":   "alice",
		"bob@example.com":     "bob",
		"old@example.com":     "ghost",
		"webform@example.com": "ghost",
		"carol@example.com":   "carol",
	}
	m.TargetUsers = map[string]string{
		"alice": "11",
		"bob":   "12",
		"ghost": "99",
	}
	m.Components = map[string]string{"Core": "core", "Kernel": "Linux"}
	m.Milestones = map[string]string{"2.0": "7"}
	m.AnonymousReporter = "webform@example.com"
	return m
}

// sampleRecord is a resolved bug with a single narrative comment by the reporter.
func sampleRecord() *models.RawBugRecord {
	return &models.RawBugRecord{
		BugID: "42",
		Fields: map[string]string{
			"bug_id":       "42",
			"reporter":     "alice@example.com",
			"assigned_to":  "bob@example.com",
			"short_desc":   "Crash on load",
			"bug_status":   "RESOLVED",
			"resolution":   "FIXED",
			"creation_ts":  "2010-05-12 10:20:30 -0700",
			"delta_ts":     "2010-06-01 08:05:00 -0700",
			"version":      "1.0",
			"op_sys":       "Linux",
			"rep_platform": "x86_64",
			"component":    "Core",
		},
		Comments: []models.RawComment{
			{CommentID: "1", Who: "alice@example.com", When: "2010-05-12 10:20:30 -0700", Text: "Full repro steps here"},
		},
	}
}

func attachmentComment(id, who, filename string) models.RawComment {
	return models.RawComment{
		CommentID: "c" + id,
		Who:       who,
		When:      "2010-05-13 09:00:00 -0700",
		Text:      fmt.Sprintf("Created attachment %s %s", id, filename),
		AttachID:  id,
	}
}
