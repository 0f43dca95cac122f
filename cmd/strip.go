package cmd

import (
	"github.com/spf13/cobra"
)

func newStripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip [file]",
		Short: "Remove quoted text from a message body",
		Long: `Copy a plain text message body to stdout without the quoted parts.

Lines starting with '>' or '|' are dropped, along with the attribution line
("On Monday, Ford wrote:") that introduces them. Everything after an Outlook
style separator such as "-----Original Message-----" is dropped as well.
Reads stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			stripper, err := newStripper(cfg)
			if err != nil {
				return err
			}

			in, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			return stripper.Copy(cmd.OutOrStdout(), in)
		},
	}
}
