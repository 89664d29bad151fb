// Package bugzilla reads bugs and attachments from a Bugzilla installation.
package bugzilla

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// maxErrorBody bounds how much of an error response ends up in an error message.
const maxErrorBody = 4096

// Client fetches bug XML and attachment payloads over Bugzilla's CGI endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Bugzilla client. cfg.URL must end in "/".
func NewClient(cfg config.BugzillaConfig, timeout time.Duration) *Client {
	logging.Debug("bugzilla configuration",
		"url", cfg.URL,
		"api_key", logging.MaskSensitive(cfg.APIKey))

	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BugURL returns the browser link of a bug.
func (c *Client) BugURL(id string) string {
	return fmt.Sprintf("%sshow_bug.cgi?id=%s", c.baseURL, url.QueryEscape(id))
}

// GetBug fetches and decodes one bug.
func (c *Client) GetBug(ctx context.Context, id string) (*models.RawBugRecord, error) {
	query := url.Values{}
	query.Set("ctype", "xml")
	query.Set("id", id)

	data, err := c.get(ctx, "show_bug.cgi", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bug %s: %w", id, err)
	}

	record, err := ParseBugXML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bug %s: %w", id, err)
	}

	logging.Debug("fetched bug",
		"bug_id", record.BugID,
		"comments", len(record.Comments),
		"attachments", len(record.Attachments))
	return record, nil
}

// FetchAttachment downloads the raw payload of an attachment.
func (c *Client) FetchAttachment(ctx context.Context, id string) ([]byte, error) {
	query := url.Values{}
	query.Set("id", id)

	data, err := c.get(ctx, "attachment.cgi", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment %s: %w", id, err)
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, cgi string, query url.Values) ([]byte, error) {
	if c.apiKey != "" {
		query.Set("Bugzilla_api_key", c.apiKey)
	}
	reqURL := c.baseURL + cgi + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%s returned status %d: %s", cgi, resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
