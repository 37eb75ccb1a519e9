package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pkgmirror/conda-mirror/internal/azure"
	"github.com/pkgmirror/conda-mirror/internal/config"
	"github.com/pkgmirror/conda-mirror/internal/github"
	"github.com/pkgmirror/conda-mirror/internal/render"
)

type infoOptions struct {
	githubRepo        string
	azureSource       string
	buildID           uint64
	nameFilter        string
	descriptionFilter string
	encode            string
	excludeExpired    bool
	configPath        string
}

// NewInfoCmd creates the info command
func NewInfoCmd() *cobra.Command {
	var opts infoOptions

	cmd := &cobra.Command{
		Use:   "info",
		Short: "List CI artifacts available for mirroring",
		Long: `Queries GitHub Actions or Azure DevOps for build artifacts and
prints them as YAML, JSON or a table. For Azure DevOps, omitting the
build ID lists the project's builds instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.githubRepo == "") == (opts.azureSource == "") {
				return invalidInput("exactly one of --github or --azure is required")
			}

			format, err := render.ParseFormat(opts.encode)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}

			var out string
			if opts.githubRepo != "" {
				out, err = githubInfo(cmd, &opts, cfg, format)
			} else {
				out, err = azureInfo(cmd, &opts, cfg, format)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.githubRepo, "github", "", "GitHub repository (owner/repo or URL)")
	cmd.Flags().StringVar(&opts.azureSource, "azure", "", "Azure DevOps source (org/project[#build] or URL)")
	cmd.Flags().Uint64Var(&opts.buildID, "build-id", 0, "Azure DevOps build ID to list artifacts for")
	cmd.Flags().StringVar(&opts.nameFilter, "name-filter", "", "Regex filter on artifact names")
	cmd.Flags().StringVar(&opts.descriptionFilter, "description-filter", "", "Regex filter on Azure build pipeline names")
	cmd.Flags().StringVar(&opts.encode, "encode", "yaml", "Output format: yaml, json or table")
	cmd.Flags().BoolVar(&opts.excludeExpired, "exclude-expired", false, "Hide expired GitHub artifacts")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config file")

	return cmd
}

func githubInfo(cmd *cobra.Command, opts *infoOptions, cfg *config.Config, format render.Format) (string, error) {
	owner, repo, err := github.ParseRepository(opts.githubRepo)
	if err != nil {
		return "", err
	}

	artifacts, err := github.NewClient(cfg).ListArtifacts(cmd.Context(), owner, repo)
	if err != nil {
		return "", err
	}

	if opts.nameFilter != "" {
		artifacts = github.FilterByName(artifacts, opts.nameFilter)
	}
	if opts.excludeExpired {
		artifacts = github.FilterNonExpired(artifacts)
	}

	return render.GitHubArtifacts(artifacts, format)
}

func azureInfo(cmd *cobra.Command, opts *infoOptions, cfg *config.Config, format render.Format) (string, error) {
	organization, project, buildID, hasBuild, err := azure.ParseSource(opts.azureSource)
	if err != nil {
		return "", err
	}
	if opts.buildID != 0 {
		buildID = opts.buildID
		hasBuild = true
	}

	client := azure.NewClient(cfg)

	if !hasBuild {
		if opts.nameFilter != "" {
			logrus.Warn("--name-filter only applies to artifact listings, ignoring")
		}
		builds, err := client.ListBuilds(cmd.Context(), organization, project)
		if err != nil {
			return "", err
		}
		if opts.descriptionFilter != "" {
			builds, err = azure.FilterBuildsByDescription(builds, opts.descriptionFilter)
			if err != nil {
				return "", err
			}
		}
		return render.AzureBuilds(builds, format)
	}

	artifacts, err := client.ListArtifacts(cmd.Context(), organization, project, buildID)
	if err != nil {
		return "", err
	}
	if opts.nameFilter != "" {
		artifacts = azure.FilterArtifactsByName(artifacts, opts.nameFilter)
	}
	return render.AzureArtifacts(artifacts, format)
}
