package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pkgmirror/conda-mirror/internal/config"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "conda-mirror",
		Short: "Mirror conda packages into local, S3 or prefix.dev repositories",
		Long: `Conda-mirror copies conda packages from build outputs into conda
channel layouts with per-platform repodata.json indexes.

Supported sources:
  - Local package files and download URLs
  - ZIP archives and gzip/xz tarballs (local or remote)
  - GitHub Actions artifacts
  - Azure DevOps build artifacts

Supported targets:
  - Local directory channels
  - S3 / MinIO buckets
  - prefix.dev channels
  - The local package cache`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewMirrorCmd())
	rootCmd.AddCommand(NewInfoCmd())
	rootCmd.AddCommand(NewInitCmd())

	return rootCmd
}

// loadConfig reads the config file when given, otherwise falls back to
// defaults with token environment fallbacks applied.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
