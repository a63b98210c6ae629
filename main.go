package main

import (
	"os"

	"github.com/bimmerbailey/tokenoptimizer/cmd"
	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(apperr.ExitCode(err))
	}
}
