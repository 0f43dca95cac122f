// Package main is the entry point for the mailglue CLI.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/mailglue/cmd"
	"github.com/danielolaszy/mailglue/internal/logging"
)

// main executes the root command and exits non-zero on failure.
func main() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logging.Debug("starting mailglue", "version", "1.0.0", "log_level", logLevel)

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
