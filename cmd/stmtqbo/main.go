package main

import (
	"os"

	"github.com/cleared-dev/stmtqbo/internal/commands"
)

var (
	// Version will be set via ldflags during build.
	Version = "dev"
	// Commit will be set via ldflags during build.
	Commit = "none"
	// Date will be set via ldflags during build.
	Date = "unknown"
)

func main() {
	rootCmd := commands.NewRootCommand(commands.BuildInfo{Version: Version, Commit: Commit, Date: Date})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
