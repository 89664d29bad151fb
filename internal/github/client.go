// Package github provides functionality for writing migrated issues into a
// GitHub repository.
package github

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v41/github"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// Client encapsulates the GitHub API client and the target repository.
type Client struct {
	client *github.Client
	owner  string
	repo   string

	attachmentBranch string
	attachmentPath   string
}

// NewClient creates a new GitHub API client for the configured repository.
// GitHub has no attachment API for issues, so attachments are committed to
// AttachmentPath on AttachmentBranch and linked from the issue.
func NewClient(cfg config.GitHubConfig, timeout time.Duration) (*Client, error) {
	if err := config.ValidateGitHubConfig(&config.Config{GitHub: cfg}); err != nil {
		return nil, err
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "github.com"
	}
	api := apiURL(domain)

	logging.Info("github configuration",
		"domain", domain,
		"api_url", api,
		"repository", cfg.Repository,
		"token", logging.MaskSensitive(cfg.Token))

	return newClient(cfg, api, timeout)
}

func newClient(cfg config.GitHubConfig, api string, timeout time.Duration) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = timeout

	client := github.NewClient(tc)

	parsedURL, err := url.Parse(api)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url: %w", err)
	}
	client.BaseURL = parsedURL
	client.UploadURL = parsedURL

	parts := strings.Split(cfg.Repository, "/")
	return &Client{
		client:           client,
		owner:            parts[0],
		repo:             parts[1],
		attachmentBranch: cfg.AttachmentBranch,
		attachmentPath:   cfg.AttachmentPath,
	}, nil
}

// apiURL returns the REST endpoint for github.com or a GitHub Enterprise domain.
func apiURL(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// Verify checks the token by fetching the authenticated user.
func (c *Client) Verify(ctx context.Context) (string, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("error testing github token: %w (status: %d)", err, statusCode(resp))
	}
	return user.GetLogin(), nil
}

// Impersonates reports false: everything is written as the token owner.
func (c *Client) Impersonates() bool { return false }

// CreateIssue opens the issue and records its number and URL.
func (c *Client) CreateIssue(ctx context.Context, issue *models.Issue) error {
	req := &github.IssueRequest{
		Title: github.String(issue.Title),
		Body:  github.String(issue.Description),
	}
	if len(issue.Labels) > 0 {
		labels := append([]string(nil), issue.Labels...)
		req.Labels = &labels
	}
	if issue.Assignee != "" {
		req.Assignee = github.String(issue.Assignee)
	}
	if issue.Milestone != "" {
		number, err := strconv.Atoi(issue.Milestone)
		if err != nil {
			return fmt.Errorf("invalid github milestone number %q: %w", issue.Milestone, err)
		}
		req.Milestone = github.Int(number)
	}

	created, resp, err := c.client.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil {
		return fmt.Errorf("failed to create github issue: %w (status: %d)", err, statusCode(resp))
	}

	issue.ID = created.GetNumber()
	issue.WebURL = created.GetHTMLURL()
	logging.Debug("created github issue", "repository", c.owner+"/"+c.repo, "issue_number", issue.ID)
	return nil
}

// CreateComment adds a comment to the issue.
func (c *Client) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, resp, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, comment.IssueID,
		&github.IssueComment{Body: github.String(comment.Body)})
	if err != nil {
		return fmt.Errorf("failed to comment on %s#%d: %w (status: %d)", c.repo, comment.IssueID, err, statusCode(resp))
	}
	return nil
}

// UploadFile commits the attachment under a unique directory and returns a
// markdown link to it.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	name := strings.ReplaceAll(filename, " ", "_")
	filePath := path.Join(c.attachmentPath, uuid.NewString(), name)

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("Add Bugzilla attachment %s", filename)),
		Content: data,
	}
	if c.attachmentBranch != "" {
		opts.Branch = github.String(c.attachmentBranch)
	}

	created, resp, err := c.client.Repositories.CreateFile(ctx, c.owner, c.repo, filePath, opts)
	if err != nil {
		return "", fmt.Errorf("failed to commit %s to %s/%s: %w (status: %d)", filePath, c.owner, c.repo, err, statusCode(resp))
	}

	return fmt.Sprintf("[%s](%s)", filename, created.GetContent().GetHTMLURL()), nil
}

// CloseIssue sets the issue state to closed.
func (c *Client) CloseIssue(ctx context.Context, issue *models.Issue) error {
	_, resp, err := c.client.Issues.Edit(ctx, c.owner, c.repo, issue.ID,
		&github.IssueRequest{State: github.String("closed")})
	if err != nil {
		return fmt.Errorf("failed to close %s#%d: %w (status: %d)", c.repo, issue.ID, err, statusCode(resp))
	}
	return nil
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
