package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgmirror/conda-mirror/internal/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Save(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "conda-mirror.json", "Where to write the config file")

	return cmd
}
