package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/bzmigrate/internal/bugzilla"
	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/internal/migrate"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// checkCmd is a preflight for migrate. It never writes to the target.
var checkCmd = &cobra.Command{
	Use:   "check [bug ids...]",
	Short: "Check mappings and credentials before migrating",
	Long: `Fetch the given bugs from Bugzilla and report every user, component and
milestone that has no entry in the mappings file. Unless --skip-target is set,
the target credentials are verified as well.

The command fails when a bug references an unmapped user, since migrating
that bug would fail.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		skipTarget, err := cmd.Flags().GetBool("skip-target")
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

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if !skipTarget {
			t, err := newTracker(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize %s client: %w", cfg.Target, err)
			}
			login, err := t.Verify(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s as %s\n", okStyle.Render("target"), cfg.Target, login)
		}

		records, err := fetchBugs(ctx, bugzilla.NewClient(cfg.Bugzilla, cfg.HTTPTimeout), ids)
		if err != nil {
			return err
		}

		findings := migrate.Audit(mappings, records)
		printFindings(out, findings)

		if !findings.OK() {
			return fmt.Errorf("%d unmapped users in %s", len(findings.Users), cfg.MappingsFile)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().Bool("skip-target", false, "Do not verify target credentials")
}

func fetchBugs(ctx context.Context, source bugSource, ids []string) ([]*models.RawBugRecord, error) {
	records := make([]*models.RawBugRecord, 0, len(ids))
	for _, id := range ids {
		record, err := source.GetBug(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch bug %s: %w", id, err)
		}
		logging.Debug("fetched bug", "bug_id", id, "comments", len(record.Comments))
		records = append(records, record)
	}
	return records, nil
}

func printFindings(w io.Writer, f *migrate.Findings) {
	fmt.Fprintf(w, "%s %d bugs checked\n", headerStyle.Render("bugzilla"), f.Bugs)

	if f.OK() {
		fmt.Fprintln(w, okStyle.Render("all users are mapped"))
	} else {
		fmt.Fprintln(w, failedStyle.Render("unmapped users:"))
		for _, u := range f.Users {
			if u.Canonical != "" {
				fmt.Fprintf(w, "  %s -> %s (missing in %s)\n", u.Login, u.Canonical, u.Stage)
			} else {
				fmt.Fprintf(w, "  %s (missing in %s)\n", u.Login, u.Stage)
			}
		}
	}

	if len(f.Components) > 0 {
		fmt.Fprintln(w, partialStyle.Render("components without a label:"))
		for _, c := range f.Components {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	if len(f.Milestones) > 0 {
		fmt.Fprintln(w, partialStyle.Render("milestones without a mapping:"))
		for _, m := range f.Milestones {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
}
