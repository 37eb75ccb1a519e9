package cli

import (
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pkgmirror/conda-mirror/internal/azure"
	"github.com/pkgmirror/conda-mirror/internal/github"
	"github.com/pkgmirror/conda-mirror/internal/mirror"
	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/repository"
)

type mirrorOptions struct {
	srcType    string
	src        string
	srcPath    string
	tgtType    string
	tgt        string
	configPath string
}

// NewMirrorCmd creates the mirror command
func NewMirrorCmd() *cobra.Command {
	var opts mirrorOptions

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirror packages from a source into a target repository",
		Long: `Fetches conda packages from the given source, resolves each
package's platform, and uploads them into the target repository with
regenerated repodata.json indexes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcType, kind, err := validateMirrorOptions(&opts)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}

			target := opts.tgt
			if kind == repository.KindCache {
				target, err = repository.DefaultCacheDir()
				if err != nil {
					return err
				}
			}

			repo, err := repository.New(kind, target, cfg)
			if err != nil {
				return err
			}

			logrus.Infof("Mirroring %s -> %s (%s)", opts.src, target, kind)
			return mirror.New(repo, cfg).Run(cmd.Context(), srcType, opts.src, opts.srcPath)
		},
	}

	cmd.Flags().StringVar(&opts.srcType, "src-type", "", "Source type: zip, zip-url, local, url, tgz, tgz-url, github, azure")
	cmd.Flags().StringVar(&opts.src, "src", "", "Source location (path, URL, owner/repo or org/project)")
	cmd.Flags().StringVar(&opts.srcPath, "src-path", "", "Regex selecting archive entries or artifact names")
	cmd.Flags().StringVar(&opts.tgtType, "tgt-type", "cache", "Target type: cache, local, s3, prefix-dev")
	cmd.Flags().StringVar(&opts.tgt, "tgt", "", "Target location (directory, s3:// URL or channel URL)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config file")

	cmd.MarkFlagRequired("src-type")
	cmd.MarkFlagRequired("src")

	return cmd
}

func validateMirrorOptions(opts *mirrorOptions) (mirror.SourceType, repository.Kind, error) {
	srcType, err := mirror.ParseSourceType(opts.srcType)
	if err != nil {
		return 0, 0, err
	}

	kind, err := repository.ParseKind(opts.tgtType)
	if err != nil {
		return 0, 0, err
	}

	switch srcType {
	case mirror.SourceZip, mirror.SourceZipURL:
		if opts.srcPath == "" {
			return 0, 0, invalidInput("--src-path is required for %s sources", srcType)
		}
	case mirror.SourceGitHub:
		if _, _, err := github.ParseRepository(opts.src); err != nil {
			return 0, 0, err
		}
	case mirror.SourceAzure:
		if _, _, _, _, err := azure.ParseSource(opts.src); err != nil {
			return 0, 0, err
		}
	}

	if opts.srcPath != "" {
		if _, err := regexp.Compile(opts.srcPath); err != nil {
			return 0, 0, invalidInput("invalid --src-path pattern %q: %v", opts.srcPath, err)
		}
	}

	if kind == repository.KindCache {
		if opts.tgt != "" {
			return 0, 0, invalidInput("--tgt must not be set for cache targets")
		}
	} else if opts.tgt == "" {
		return 0, 0, invalidInput("--tgt is required for %s targets", kind)
	}

	return srcType, kind, nil
}

func invalidInput(format string, args ...any) error {
	return &models.MirrorError{
		Type: models.ErrInvalidInput,
		Err:  fmt.Errorf(format, args...),
	}
}
