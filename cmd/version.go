package cmd

import "fmt"

// Version information set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionString() string {
	return fmt.Sprintf("tokenoptimizer %s (commit: %s, built: %s)", version, commit, date)
}
