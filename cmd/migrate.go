package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/bzmigrate/internal/bugzilla"
	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/internal/journal"
	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/internal/migrate"
)

const appName = "bzmigrate"

// migrateCmd migrates bugs one at a time: each bug becomes an issue, its
// comments follow in order and closed bugs are closed last.
var migrateCmd = &cobra.Command{
	Use:   "migrate [bug ids...]",
	Short: "Migrate Bugzilla bugs into the target tracker",
	Long: `Migrate Bugzilla bugs into the target tracker.

Each bug is fetched from Bugzilla and written as one issue followed by its
comments. Attachments are uploaded to the target and linked where they were
announced. Bugs whose status is listed in closed_statuses are closed.

By default the run stops at the first failing bug. A bug that fails after its
issue was created is reported as partially migrated; running it again creates
a duplicate issue. Every outcome is appended to the journal in
~/.bzmigrate/logs.

Example:
  bzmigrate migrate 1001 1002
  bzmigrate migrate --bugs-file bugs.txt --continue-on-error
  bzmigrate migrate --dry-run -t jira 1001`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}
		continueOnError, err := cmd.Flags().GetBool("continue-on-error")
		if err != nil {
			return err
		}

		ids, err := bugIDs(cmd, args)
		if err != nil {
			return err
		}

		cfg, mappings, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		logging.WithRun(logging.NewRunID())
		logging.Info("starting migration",
			"target", cfg.Target,
			"bugs", len(ids),
			"dry_run", dryRun,
			"continue_on_error", continueOnError)

		var target migrate.Tracker
		attributeAuthors := cfg.Target != config.TargetGitLab
		if !dryRun {
			t, err := newTracker(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize %s client: %w", cfg.Target, err)
			}
			target = t
			attributeAuthors = !t.Impersonates()
		}

		j, err := journal.Open(appName)
		if err != nil {
			return err
		}
		defer j.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source := bugzilla.NewClient(cfg.Bugzilla, cfg.HTTPTimeout)
		r := &runner{
			source: source,
			migrator: migrate.NewMigrator(mappings, source, target, migrate.Options{
				BugzillaURL:      cfg.Bugzilla.URL,
				DryRun:           dryRun,
				AttributeAuthors: attributeAuthors,
			}),
			journal:         j,
			continueOnError: continueOnError,
		}

		outcomes, runErr := r.run(ctx, ids)
		fmt.Fprint(cmd.OutOrStdout(), renderSummary(outcomes))
		fmt.Fprintf(cmd.OutOrStdout(), "journal: %s\n", j.Path())

		return runErr
	},
}

func init() {
	migrateCmd.Flags().Bool("dry-run", false, "Build issues and comments without writing to the target")
	migrateCmd.Flags().Bool("continue-on-error", false, "Keep going after a bug fails")
}

// outcome is the result of one bug.
type outcome struct {
	BugID  string
	Result *migrate.Result
	Err    error
}

// partial reports whether the bug failed after its issue was created.
func (o outcome) partial() bool {
	var p *migrate.PartialMigrationError
	return errors.As(o.Err, &p)
}

type runner struct {
	source          bugSource
	migrator        *migrate.Migrator
	journal         *journal.Journal
	continueOnError bool
}

// run migrates ids in order and returns one outcome per attempted bug.
func (r *runner) run(ctx context.Context, ids []string) ([]outcome, error) {
	var outcomes []outcome
	failed := 0

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("migration interrupted after %d of %d bugs: %w", len(outcomes), len(ids), err)
		}

		o := r.migrateOne(ctx, id)
		outcomes = append(outcomes, o)
		r.journal.Record(journalEntry(o))

		if o.Err == nil {
			continue
		}

		failed++
		logging.Error("bug failed", "bug_id", id, "partial", o.partial(), "error", o.Err)
		if !r.continueOnError {
			return outcomes, o.Err
		}
	}

	if failed > 0 {
		return outcomes, fmt.Errorf("%d of %d bugs failed", failed, len(ids))
	}
	return outcomes, nil
}

func (r *runner) migrateOne(ctx context.Context, id string) outcome {
	record, err := r.source.GetBug(ctx, id)
	if err != nil {
		return outcome{BugID: id, Err: &migrate.UnitError{
			BugID: id,
			Err:   &migrate.TransportError{Op: "fetch bug", Err: err},
		}}
	}

	result, err := r.migrator.Migrate(ctx, record)
	return outcome{BugID: id, Result: result, Err: err}
}

func journalEntry(o outcome) journal.Entry {
	e := journal.Entry{BugID: o.BugID, Err: o.Err}

	if o.Result != nil {
		e.IssueID = o.Result.Issue.ID
		e.IssueURL = o.Result.Issue.WebURL
		e.Comments = len(o.Result.Comments)
		e.Closed = o.Result.Closed
		e.DryRun = o.Result.DryRun
	}

	var p *migrate.PartialMigrationError
	if errors.As(o.Err, &p) {
		e.Partial = true
		e.IssueID = p.IssueID
		e.Comments = p.CommentsPosted
	}
	return e
}
