// Package cmd provides the command-line interface for mailglue.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/danielolaszy/mailglue/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "mailglue",
	Short: "Mailglue turns e-mail into issue tracker updates",
	Long: `Mailglue is a CLI tool that reads e-mail and files it in an issue tracker.

Directive tags in the subject line (#BUG, #MAJOR, #COMPONENT=Web, ...) set
the fields of new issues. Mail whose subject names an existing issue becomes
a comment on it, optionally with quoted text removed.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		if level != "" {
			logging.SetLevel(logging.LogLevel(level))
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add persistent flags that will be available to all commands
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (yaml or toml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error (default from LOG_LEVEL)")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newStripCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newTagsCmd())
	rootCmd.AddCommand(newHandleCmd())
}
