// Package gitlab writes migrated issues into a GitLab project.
package gitlab

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gitlab "github.com/xanzy/go-gitlab"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// Client handles interactions with the GitLab API. Issues and notes are
// created with the Sudo header so they are attributed to their owners,
// which requires an administrator token.
type Client struct {
	client  *gitlab.Client
	project string

	// userIDs caches username lookups for assignees
	userIDs map[string]int
}

// NewClient creates a GitLab client for the configured project. Retries are
// disabled: a failed write aborts the bug instead of risking duplicates.
func NewClient(cfg config.GitLabConfig, timeout time.Duration) (*Client, error) {
	if err := config.ValidateGitLabConfig(&config.Config{GitLab: cfg}); err != nil {
		return nil, err
	}

	logging.Info("gitlab configuration",
		"url", cfg.URL,
		"project", cfg.Project,
		"token", logging.MaskSensitive(cfg.Token))

	client, err := gitlab.NewClient(cfg.Token,
		gitlab.WithBaseURL(cfg.URL),
		gitlab.WithHTTPClient(&http.Client{Timeout: timeout}),
		gitlab.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}

	return &Client{
		client:  client,
		project: cfg.Project,
		userIDs: make(map[string]int),
	}, nil
}

// Verify checks the token by fetching the current user. Sudo needs an
// administrator, so a regular user is reported as an error.
func (c *Client) Verify(ctx context.Context) (string, error) {
	user, resp, err := c.client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error testing gitlab token: %w (status: %d)", err, statusCode(resp))
	}
	if !user.IsAdmin {
		return user.Username, fmt.Errorf("gitlab user %s is not an administrator and cannot use sudo", user.Username)
	}
	return user.Username, nil
}

// Impersonates reports that owners are honoured through Sudo.
func (c *Client) Impersonates() bool { return true }

// CreateIssue creates the issue as issue.Owner and records its IID and URL.
func (c *Client) CreateIssue(ctx context.Context, issue *models.Issue) error {
	labels := gitlab.LabelOptions(issue.Labels)
	opts := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(issue.Title),
		Description: gitlab.Ptr(issue.Description),
		Labels:      &labels,
	}

	if issue.Assignee != "" {
		id, err := c.userID(ctx, issue.Assignee)
		if err != nil {
			return err
		}
		opts.AssigneeIDs = &[]int{id}
	}

	if issue.Milestone != "" {
		id, err := strconv.Atoi(issue.Milestone)
		if err != nil {
			return fmt.Errorf("invalid gitlab milestone id %q: %w", issue.Milestone, err)
		}
		opts.MilestoneID = gitlab.Ptr(id)
	}

	created, resp, err := c.client.Issues.CreateIssue(c.project, opts,
		gitlab.WithContext(ctx), gitlab.WithSudo(issue.Owner))
	if err != nil {
		return fmt.Errorf("failed to create gitlab issue: %w (status: %d)", err, statusCode(resp))
	}

	issue.ID = created.IID
	issue.WebURL = created.WebURL
	logging.Debug("created gitlab issue", "iid", created.IID, "sudo", issue.Owner)
	return nil
}

// CreateComment adds a note to comment.IssueID as comment.Owner.
func (c *Client) CreateComment(ctx context.Context, comment *models.Comment) error {
	opts := &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(comment.Body),
	}

	_, resp, err := c.client.Notes.CreateIssueNote(c.project, comment.IssueID, opts,
		gitlab.WithContext(ctx), gitlab.WithSudo(comment.Owner))
	if err != nil {
		return fmt.Errorf("failed to create note on gitlab issue %d: %w (status: %d)", comment.IssueID, err, statusCode(resp))
	}
	return nil
}

// UploadFile uploads an attachment to the project and returns its markdown.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	file, resp, err := c.client.Projects.UploadFile(c.project, bytes.NewReader(data), filename,
		gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to gitlab: %w (status: %d)", filename, err, statusCode(resp))
	}
	return file.Markdown, nil
}

// CloseIssue closes the issue as its owner.
func (c *Client) CloseIssue(ctx context.Context, issue *models.Issue) error {
	opts := &gitlab.UpdateIssueOptions{
		StateEvent: gitlab.Ptr("close"),
	}

	_, resp, err := c.client.Issues.UpdateIssue(c.project, issue.ID, opts,
		gitlab.WithContext(ctx), gitlab.WithSudo(issue.Owner))
	if err != nil {
		return fmt.Errorf("failed to close gitlab issue %d: %w (status: %d)", issue.ID, err, statusCode(resp))
	}
	return nil
}

// userID returns the numeric id of a target identity, which is either an id
// already or a username.
func (c *Client) userID(ctx context.Context, identity string) (int, error) {
	if id, err := strconv.Atoi(identity); err == nil {
		return id, nil
	}
	if id, ok := c.userIDs[identity]; ok {
		return id, nil
	}

	users, resp, err := c.client.Users.ListUsers(&gitlab.ListUsersOptions{
		Username: gitlab.Ptr(identity),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to look up gitlab user %s: %w (status: %d)", identity, err, statusCode(resp))
	}
	if len(users) == 0 {
		return 0, fmt.Errorf("gitlab user %s not found", identity)
	}

	c.userIDs[identity] = users[0].ID
	return users[0].ID, nil
}

func statusCode(resp *gitlab.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
