package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/mailglue/internal/config"
	"github.com/danielolaszy/mailglue/internal/directive"
	"github.com/danielolaszy/mailglue/internal/duration"
	"github.com/danielolaszy/mailglue/internal/quote"
)

// loadConfig reads configuration from the environment and the --config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := ""
	if f := cmd.Flag("config"); f != nil {
		path = f.Value.String()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newParser builds a directive parser using the configured working calendar.
func newParser(cfg *config.Config, priorities directive.PriorityResolver) *directive.Parser {
	calendar := duration.Calendar{
		HoursPerDay: cfg.Calendar.HoursPerDay,
		DaysPerWeek: cfg.Calendar.DaysPerWeek,
	}
	return directive.NewParser(
		directive.WithPriorities(priorities),
		directive.WithDurations(calendar),
	)
}

// newStripper builds a quote stripper, loading the separator file if one is configured.
func newStripper(cfg *config.Config) (*quote.Stripper, error) {
	if cfg.Handler.Separators == "" {
		return quote.New(), nil
	}
	separators, err := quote.ReadSeparatorFile(cfg.Handler.Separators)
	if err != nil {
		return nil, err
	}
	return quote.New(quote.WithSeparators(separators)), nil
}

// openInput opens the file named by args[0], or stdin when there is none.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	return f, nil
}
