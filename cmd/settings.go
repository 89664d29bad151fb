package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/internal/github"
	"github.com/danielolaszy/bzmigrate/internal/gitlab"
	"github.com/danielolaszy/bzmigrate/internal/jira"
	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/internal/migrate"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// tracker is a migration target whose credentials can be checked up front.
type tracker interface {
	migrate.Tracker
	Verify(ctx context.Context) (string, error)
}

// bugSource reads bugs and their attachments from Bugzilla.
type bugSource interface {
	migrate.Source
	GetBug(ctx context.Context, id string) (*models.RawBugRecord, error)
}

// loadSettings reads the configuration, applies the --target override and
// loads the mappings file.
func loadSettings(cmd *cobra.Command) (*config.Config, *config.Mappings, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return nil, nil, err
	}
	if target != "" {
		target = strings.ToLower(target)
		switch target {
		case config.TargetGitLab, config.TargetJira, config.TargetGitHub:
			cfg.Target = target
		default:
			return nil, nil, fmt.Errorf("unsupported target %q: must be one of %s, %s, %s",
				target, config.TargetGitLab, config.TargetJira, config.TargetGitHub)
		}
	}

	mappings, err := config.LoadMappings(cfg.MappingsFile)
	if err != nil {
		return nil, nil, err
	}

	logging.Debug("loaded settings",
		"target", cfg.Target,
		"bugzilla_url", cfg.Bugzilla.URL,
		"mappings_file", cfg.MappingsFile,
		"users", len(mappings.Users))

	return cfg, mappings, nil
}

// newTracker creates the client for cfg.Target.
func newTracker(cfg *config.Config) (tracker, error) {
	if err := config.ValidateTargetConfig(cfg); err != nil {
		return nil, err
	}

	switch cfg.Target {
	case config.TargetJira:
		return jira.NewClient(cfg.Jira, cfg.HTTPTimeout)
	case config.TargetGitHub:
		return github.NewClient(cfg.GitHub, cfg.HTTPTimeout)
	default:
		return gitlab.NewClient(cfg.GitLab, cfg.HTTPTimeout)
	}
}

// bugIDs merges ids given as arguments with those listed in --bugs-file,
// keeping the first occurrence of each.
func bugIDs(cmd *cobra.Command, args []string) ([]string, error) {
	ids := append([]string(nil), args...)

	bugsFile, err := cmd.Flags().GetString("bugs-file")
	if err != nil {
		return nil, err
	}
	if bugsFile != "" {
		f, err := os.Open(bugsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open bugs file: %w", err)
		}
		defer f.Close()

		fromFile, err := readBugIDs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read bugs file %s: %w", bugsFile, err)
		}
		ids = append(ids, fromFile...)
	}

	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no bug ids given: pass them as arguments or with --bugs-file")
	}
	return ids, nil
}

// readBugIDs reads one id per line, skipping blank lines and # comments.
func readBugIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, strings.Fields(line)[0])
	}
	return ids, scanner.Err()
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
