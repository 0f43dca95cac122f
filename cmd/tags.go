package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/mailglue/internal/directive"
)

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the directive tags understood in subject lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, tag := range directive.Tags() {
				fmt.Fprintf(w, "%s\t%s\n", tag.Marker, tag.Description)
			}
			return w.Flush()
		},
	}
}
