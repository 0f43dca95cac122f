package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/mailglue/internal/github"
	"github.com/danielolaszy/mailglue/internal/logging"
)

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Initialize GitHub repository",
	Long: `Initialize a GitHub repository with the labels the github backend applies.

This command creates the labels mailglue uses for fields GitHub has no place for:
- issue types: 'bug', 'new feature', 'task', 'improvement', 'sub-task'
- priorities: 'priority: trivial' through 'priority: blocker'

Component labels ('component: <name>') are created by GitHub on first use.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		githubClient, err := github.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize GitHub client: %w", err)
		}

		ctx := cmd.Context()
		if _, err := githubClient.Authenticate(ctx); err != nil {
			return err
		}

		created, err := githubClient.EnsureLabels(ctx, github.LabelScheme())
		if err != nil {
			return err
		}

		if len(created) == 0 {
			logging.Info("all labels already exist", "repository", cfg.GitHub.Repository)
		}
		for _, label := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "created label %q\n", label)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(githubCmd)
}
