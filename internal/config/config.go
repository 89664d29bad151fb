// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported migration targets.
const (
	TargetGitLab = "gitlab"
	TargetJira   = "jira"
	TargetGitHub = "github"
)

// Config holds all configuration parameters for the application.
type Config struct {
	Bugzilla BugzillaConfig
	GitLab   GitLabConfig
	Jira     JiraConfig
	GitHub   GitHubConfig

	// Target selects the tracker bugs are migrated into
	Target string

	// MappingsFile is the YAML file holding user, component and status mappings
	MappingsFile string

	// HTTPTimeout bounds every request made to Bugzilla and the target tracker
	HTTPTimeout time.Duration
}

// BugzillaConfig holds Bugzilla specific configuration.
type BugzillaConfig struct {
	// URL is the Bugzilla root, always ending in "/"
	URL    string
	APIKey string
}

// GitLabConfig holds GitLab specific configuration.
type GitLabConfig struct {
	URL     string
	Token   string
	Project string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL             string
	Username        string
	Token           string
	Project         string
	IssueType       string
	CloseTransition string
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token      string
	Domain     string
	Repository string

	// AttachmentBranch and AttachmentPath locate the files committed for attachments
	AttachmentBranch string
	AttachmentPath   string
}

// LoadConfig initializes and loads configuration from environment variables
// and, when configFile is non-empty, from that file. Environment variables win.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("target", TargetGitLab)
	v.SetDefault("mappings.file", "mappings.yaml")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("gitlab.url", "https://gitlab.com")
	v.SetDefault("jira.issue_type", "Bug")
	v.SetDefault("jira.close_transition", "Done")
	v.SetDefault("github.domain", "github.com")
	v.SetDefault("github.attachment_branch", "main")
	v.SetDefault("github.attachment_path", "bugzilla-attachments")

	// Map specific environment variables
	v.BindEnv("target", "TARGET")
	v.BindEnv("mappings.file", "MAPPINGS_FILE")
	v.BindEnv("http.timeout", "HTTP_TIMEOUT")
	v.BindEnv("bugzilla.url", "BUGZILLA_URL")
	v.BindEnv("bugzilla.api_key", "BUGZILLA_API_KEY")
	v.BindEnv("gitlab.url", "GITLAB_URL")
	v.BindEnv("gitlab.token", "GITLAB_TOKEN")
	v.BindEnv("gitlab.project", "GITLAB_PROJECT")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("jira.project", "JIRA_PROJECT")
	v.BindEnv("jira.issue_type", "JIRA_ISSUE_TYPE")
	v.BindEnv("jira.close_transition", "JIRA_CLOSE_TRANSITION")
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("github.repository", "GITHUB_REPOSITORY")
	v.BindEnv("github.attachment_branch", "GITHUB_ATTACHMENT_BRANCH")
	v.BindEnv("github.attachment_path", "GITHUB_ATTACHMENT_PATH")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	config := &Config{
		Bugzilla: BugzillaConfig{
			URL:    normalizeBaseURL(v.GetString("bugzilla.url")),
			APIKey: v.GetString("bugzilla.api_key"),
		},
		GitLab: GitLabConfig{
			URL:     v.GetString("gitlab.url"),
			Token:   v.GetString("gitlab.token"),
			Project: v.GetString("gitlab.project"),
		},
		Jira: JiraConfig{
			URL:             v.GetString("jira.url"),
			Username:        v.GetString("jira.username"),
			Token:           v.GetString("jira.token"),
			Project:         v.GetString("jira.project"),
			IssueType:       v.GetString("jira.issue_type"),
			CloseTransition: v.GetString("jira.close_transition"),
		},
		GitHub: GitHubConfig{
			Token:            v.GetString("github.token"),
			Domain:           v.GetString("github.domain"),
			Repository:       v.GetString("github.repository"),
			AttachmentBranch: v.GetString("github.attachment_branch"),
			AttachmentPath:   v.GetString("github.attachment_path"),
		},
		Target:       strings.ToLower(v.GetString("target")),
		MappingsFile: v.GetString("mappings.file"),
		HTTPTimeout:  v.GetDuration("http.timeout"),
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// normalizeBaseURL makes sure the URL ends in a slash so CGI names can be appended.
func normalizeBaseURL(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

// validateConfig ensures that all required configuration values are provided.
func validateConfig(config *Config) error {
	var missingVars []string

	if config.Bugzilla.URL == "" {
		missingVars = append(missingVars, "BUGZILLA_URL")
	}
	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	if config.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid http timeout %s: must be greater than zero", config.HTTPTimeout)
	}

	switch config.Target {
	case TargetGitLab, TargetJira, TargetGitHub:
	default:
		return fmt.Errorf("unsupported target %q: must be one of %s, %s, %s",
			config.Target, TargetGitLab, TargetJira, TargetGitHub)
	}

	return nil
}

// ValidateTargetConfig validates the configuration of the selected target.
func ValidateTargetConfig(config *Config) error {
	switch config.Target {
	case TargetJira:
		return ValidateJiraConfig(config)
	case TargetGitHub:
		return ValidateGitHubConfig(config)
	default:
		return ValidateGitLabConfig(config)
	}
}

// ValidateGitLabConfig validates GitLab-specific configuration.
func ValidateGitLabConfig(config *Config) error {
	var missingVars []string

	if config.GitLab.URL == "" {
		missingVars = append(missingVars, "GITLAB_URL")
	}
	if config.GitLab.Token == "" {
		missingVars = append(missingVars, "GITLAB_TOKEN")
	}
	if config.GitLab.Project == "" {
		missingVars = append(missingVars, "GITLAB_PROJECT")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	// JIRA validation
	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}
	if config.Jira.Project == "" {
		missingVars = append(missingVars, "JIRA_PROJECT")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}
	if config.GitHub.Repository == "" {
		missingVars = append(missingVars, "GITHUB_REPOSITORY")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	if parts := strings.Split(config.GitHub.Repository, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid repository format: %s, expected format: owner/repo", config.GitHub.Repository)
	}

	return nil
}
