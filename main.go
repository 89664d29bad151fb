// Package main is the entry point for the bzmigrate CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/bzmigrate/cmd"
	"github.com/danielolaszy/bzmigrate/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// main executes the root command and exits non-zero if it fails.
func main() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logging.Debug("starting bzmigrate", "version", version, "log_level", logLevel)

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
