// Package jira writes migrated issues into a Jira project.
package jira

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// accountIDPattern matches Jira Cloud account ids; anything else is treated
// as a Jira Server username.
var accountIDPattern = regexp.MustCompile(`^([0-9a-f]{24}|\d+:[0-9a-f-]+)$`)

// Client handles interactions with the JIRA API.
//
// Jira attaches files to existing issues only, so UploadFile queues the
// payload and returns a wiki reference; the queue is handed to the issue
// when it is created or before the next comment is posted. A queue is
// consumed whether or not posting it succeeds, so it never reaches the
// issue of another bug.
type Client struct {
	client          *jira.Client
	baseURL         string
	project         string
	issueType       string
	closeTransition string

	pending []pendingAttachment
}

type pendingAttachment struct {
	name string
	data []byte
}

// NewClient creates a JIRA client authenticated with basic auth.
func NewClient(cfg config.JiraConfig, timeout time.Duration) (*Client, error) {
	if err := config.ValidateJiraConfig(&config.Config{Jira: cfg}); err != nil {
		return nil, err
	}

	logging.Info("jira configuration",
		"url", cfg.URL,
		"project", cfg.Project,
		"issue_type", cfg.IssueType,
		"username", cfg.Username,
		"token", logging.MaskSensitive(cfg.Token))

	tp := jira.BasicAuthTransport{
		Username: cfg.Username,
		Password: cfg.Token,
	}
	httpClient := tp.Client()
	httpClient.Timeout = timeout

	client, err := jira.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &Client{
		client:          client,
		baseURL:         strings.TrimSuffix(cfg.URL, "/"),
		project:         cfg.Project,
		issueType:       cfg.IssueType,
		closeTransition: cfg.CloseTransition,
	}, nil
}

// Verify checks the credentials by fetching the authenticated user.
func (c *Client) Verify(ctx context.Context) (string, error) {
	user, resp, err := c.client.User.GetSelfWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("error testing jira credentials: %w (status: %d)", err, statusCode(resp))
	}
	if user.Name != "" {
		return user.Name, nil
	}
	return user.DisplayName, nil
}

// Impersonates reports false: issues are created as the API user.
func (c *Client) Impersonates() bool { return false }

// CreateIssue creates the issue, uploads queued attachments onto it and
// records its numeric id and browse URL.
func (c *Client) CreateIssue(ctx context.Context, issue *models.Issue) error {
	queued := c.takePending()

	fields := &jira.IssueFields{
		Project:     jira.Project{Key: c.project},
		Type:        jira.IssueType{Name: c.issueType},
		Summary:     issue.Title,
		Description: issue.Description,
		Labels:      labels(issue.Labels),
	}
	if issue.Assignee != "" {
		fields.Assignee = user(issue.Assignee)
	}
	if issue.Milestone != "" {
		fields.FixVersions = []*jira.FixVersion{{Name: issue.Milestone}}
	}

	created, resp, err := c.client.Issue.CreateWithContext(ctx, &jira.Issue{Fields: fields})
	if err != nil {
		return fmt.Errorf("failed to create jira issue: %w (status: %d)", err, statusCode(resp))
	}

	id, err := strconv.Atoi(created.ID)
	if err != nil {
		return fmt.Errorf("unexpected jira issue id %q for %s", created.ID, created.Key)
	}
	issue.ID = id
	issue.WebURL = fmt.Sprintf("%s/browse/%s", c.baseURL, created.Key)
	logging.Debug("created jira issue", "key", created.Key, "id", id)

	return c.attach(ctx, created.ID, queued)
}

// CreateComment attaches queued files to the issue and adds the comment.
func (c *Client) CreateComment(ctx context.Context, comment *models.Comment) error {
	issueID := strconv.Itoa(comment.IssueID)
	if err := c.attach(ctx, issueID, c.takePending()); err != nil {
		return err
	}

	_, resp, err := c.client.Issue.AddCommentWithContext(ctx, issueID, &jira.Comment{Body: comment.Body})
	if err != nil {
		return fmt.Errorf("failed to comment on jira issue %s: %w (status: %d)", issueID, err, statusCode(resp))
	}
	return nil
}

// UploadFile queues an attachment and returns its wiki reference.
func (c *Client) UploadFile(_ context.Context, filename string, data []byte) (string, error) {
	c.pending = append(c.pending, pendingAttachment{name: filename, data: data})
	return fmt.Sprintf("[^%s]", filename), nil
}

// CloseIssue applies the configured close transition.
func (c *Client) CloseIssue(ctx context.Context, issue *models.Issue) error {
	issueID := strconv.Itoa(issue.ID)

	transitions, resp, err := c.client.Issue.GetTransitionsWithContext(ctx, issueID)
	if err != nil {
		return fmt.Errorf("failed to get transitions for jira issue %s: %w (status: %d)", issueID, err, statusCode(resp))
	}

	for _, t := range transitions {
		if strings.EqualFold(t.Name, c.closeTransition) {
			resp, err := c.client.Issue.DoTransitionWithContext(ctx, issueID, t.ID)
			if err != nil {
				return fmt.Errorf("failed to transition jira issue %s: %w (status: %d)", issueID, err, statusCode(resp))
			}
			return nil
		}
	}

	return fmt.Errorf("transition %q not available for jira issue %s", c.closeTransition, issueID)
}

func (c *Client) takePending() []pendingAttachment {
	queued := c.pending
	c.pending = nil
	return queued
}

func (c *Client) attach(ctx context.Context, issueID string, queued []pendingAttachment) error {
	for _, a := range queued {
		_, resp, err := c.client.Issue.PostAttachmentWithContext(ctx, issueID, bytes.NewReader(a.data), a.name)
		if err != nil {
			return fmt.Errorf("failed to attach %s to jira issue %s: %w (status: %d)", a.name, issueID, err, statusCode(resp))
		}
	}
	return nil
}

// labels replaces spaces, which Jira rejects in labels.
func labels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		out = append(out, strings.ReplaceAll(l, " ", "_"))
	}
	return out
}

func user(identity string) *jira.User {
	if accountIDPattern.MatchString(identity) {
		return &jira.User{AccountID: identity}
	}
	return &jira.User{Name: identity}
}

func statusCode(resp *jira.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
