package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/mailglue/internal/capture"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render --pattern PATTERN [--template TEMPLATE] [subject...]",
		Short: "Render a capture template for every match in a subject",
		Long: `Find every match of a regular expression in a subject and print the
template rendered for each match, one per line. $0 is the whole match and
$1..$n are capture groups.

Example:
  mailglue render --pattern '(\d+)-(\d+)' --template '$2/$1' 'due 12-07'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := cmd.Flags().GetString("pattern")
			if err != nil {
				return err
			}
			template, err := cmd.Flags().GetString("template")
			if err != nil {
				return err
			}

			engine, err := capture.New(pattern, template)
			if err != nil {
				return err
			}

			subjects := []string{strings.Join(args, " ")}
			if len(args) == 0 {
				subjects, err = readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, subject := range subjects {
				for fragment := range engine.Render(subject) {
					fmt.Fprintln(out, fragment)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("pattern", "p", "", "regular expression to match")
	cmd.Flags().StringP("template", "t", capture.DefaultTemplate, "template with $n group placeholders")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}
