// Package cmd provides the command-line interface for bzmigrate.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bzmigrate",
	Short: "bzmigrate moves Bugzilla bugs into GitLab, Jira or GitHub issues",
	Long: `bzmigrate is a CLI tool that migrates Bugzilla bugs, with their comments and
attachments, into issues of a GitLab project, a Jira project or a GitHub
repository.

Bugzilla users are mapped to target users through a YAML mappings file.
Settings are read from environment variables and an optional config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add persistent flags that will be available to all commands
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringP("target", "t", "", "Target tracker: gitlab, jira or github (overrides TARGET)")
	rootCmd.PersistentFlags().String("bugs-file", "", "File with one Bugzilla bug id per line")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(checkCmd)
}
