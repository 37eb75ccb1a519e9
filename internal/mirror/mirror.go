package mirror

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/azure"
	"github.com/pkgmirror/conda-mirror/internal/config"
	"github.com/pkgmirror/conda-mirror/internal/fetch"
	"github.com/pkgmirror/conda-mirror/internal/github"
	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/repository"
)

// SourceType identifies where packages are mirrored from.
type SourceType int

const (
	SourceZip SourceType = iota
	SourceZipURL
	SourceLocal
	SourceURL
	SourceTgz
	SourceTgzURL
	SourceGitHub
	SourceAzure
)

var sourceTypeNames = map[SourceType]string{
	SourceZip:    "zip",
	SourceZipURL: "zip-url",
	SourceLocal:  "local",
	SourceURL:    "url",
	SourceTgz:    "tgz",
	SourceTgzURL: "tgz-url",
	SourceGitHub: "github",
	SourceAzure:  "azure",
}

func (t SourceType) String() string {
	if name, ok := sourceTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseSourceType parses a --src-type flag value.
func ParseSourceType(s string) (SourceType, error) {
	for t, name := range sourceTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, &models.MirrorError{
		Type: models.ErrInvalidInput,
		Err:  fmt.Errorf("unknown source type %q, expected one of: zip, zip-url, local, url, tgz, tgz-url, github, azure", s),
	}
}

// Mirror runs source adapters against a target repository.
type Mirror struct {
	repo *repository.Repository
	cfg  *config.Config
}

func New(repo *repository.Repository, cfg *config.Config) *Mirror {
	return &Mirror{repo: repo, cfg: cfg}
}

// Run mirrors packages from the given source into the repository.
func (m *Mirror) Run(ctx context.Context, srcType SourceType, src, pathPattern string) error {
	logrus.Infof("Mirroring from %s source: %s", srcType, src)

	switch srcType {
	case SourceLocal:
		content, err := fetch.ReadLocal(src)
		if err != nil {
			return err
		}
		return m.mirrorSingle(ctx, filepath.Base(strings.TrimPrefix(src, "file://")), content)

	case SourceURL:
		content, err := fetch.Download(ctx, fetch.NewClient(m.cfg), src, m.cfg)
		if err != nil {
			return err
		}
		return m.mirrorSingle(ctx, packageNameFromURL(src), content)

	case SourceZip:
		content, err := fetch.ReadLocal(src)
		if err != nil {
			return err
		}
		return m.mirrorZip(ctx, content, pathPattern)

	case SourceZipURL:
		content, err := fetch.Download(ctx, fetch.NewClient(m.cfg), src, m.cfg)
		if err != nil {
			return err
		}
		return m.mirrorZip(ctx, content, pathPattern)

	case SourceTgz:
		content, err := fetch.ReadLocal(src)
		if err != nil {
			return err
		}
		return m.mirrorTarball(ctx, content, src)

	case SourceTgzURL:
		content, err := fetch.Download(ctx, fetch.NewClient(m.cfg), src, m.cfg)
		if err != nil {
			return err
		}
		return m.mirrorTarball(ctx, content, src)

	case SourceGitHub:
		return m.mirrorGitHub(ctx, src, pathPattern)

	case SourceAzure:
		return m.mirrorAzure(ctx, src, pathPattern)

	default:
		return &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("unhandled source type %q", srcType),
		}
	}
}

// mirrorSingle uploads one package and finalizes the repository.
func (m *Mirror) mirrorSingle(ctx context.Context, filename string, content []byte) error {
	if err := m.repo.Upload(ctx, filename, content); err != nil {
		return err
	}
	return m.repo.Finalize(ctx)
}

// sortByCreatedDesc orders artifacts newest first. The created_at
// timestamps are RFC 3339, so lexicographic order is chronological.
func sortByCreatedDesc(artifacts []github.Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt > artifacts[j].CreatedAt
	})
}

// packageNameFromURL extracts the package filename from a download
// URL, ignoring any query string.
func packageNameFromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	trimmed, _, _ := strings.Cut(rawURL, "?")
	return path.Base(trimmed)
}

func (m *Mirror) mirrorGitHub(ctx context.Context, src, namePattern string) error {
	_, idText, hasID := strings.Cut(src, "#")
	owner, repo, err := github.ParseRepository(src)
	if err != nil {
		return err
	}

	client := github.NewClient(m.cfg)

	var artifacts []github.Artifact
	if hasID {
		id, err := github.ParseArtifactID(idText)
		if err != nil {
			return err
		}
		artifact, err := client.GetArtifact(ctx, owner, repo, id)
		if err != nil {
			return err
		}
		artifacts = []github.Artifact{*artifact}
	} else {
		artifacts, err = client.ListArtifacts(ctx, owner, repo)
		if err != nil {
			return err
		}
		if namePattern != "" {
			artifacts = github.FilterByName(artifacts, namePattern)
		}
		artifacts = github.FilterNonExpired(artifacts)
		if namePattern == "" && len(artifacts) > 1 {
			// Without a filter only the latest artifact is mirrored
			sortByCreatedDesc(artifacts)
			logrus.Infof("Multiple artifacts found, using most recent: %s", artifacts[0].Name)
			artifacts = artifacts[:1]
		}
	}

	if len(artifacts) == 0 {
		return &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("no usable artifacts found for %s/%s", owner, repo),
		}
	}

	for _, artifact := range artifacts {
		logrus.Infof("Mirroring artifact %q (id %d)", artifact.Name, artifact.ID)
		content, err := client.DownloadArtifact(ctx, owner, repo, artifact.ID)
		if err != nil {
			return err
		}
		if err := m.mirrorZip(ctx, content, ""); err != nil {
			return fmt.Errorf("artifact %q: %w", artifact.Name, err)
		}
	}
	return nil
}

func (m *Mirror) mirrorAzure(ctx context.Context, src, namePattern string) error {
	organization, project, buildID, hasBuild, err := azure.ParseSource(src)
	if err != nil {
		return err
	}

	client := azure.NewClient(m.cfg)

	if !hasBuild {
		builds, err := client.ListBuilds(ctx, organization, project)
		if err != nil {
			return err
		}
		buildID = 0
		for _, b := range builds {
			if strings.EqualFold(b.Result, "succeeded") {
				buildID = b.ID
				logrus.Infof("Using most recent succeeded build %d (%s)", b.ID, b.BuildNumber)
				break
			}
		}
		if buildID == 0 {
			return &models.MirrorError{
				Type: models.ErrInvalidInput,
				Err:  fmt.Errorf("no succeeded builds found for %s/%s", organization, project),
			}
		}
	}

	artifacts, err := client.ListArtifacts(ctx, organization, project, buildID)
	if err != nil {
		return err
	}
	if namePattern != "" {
		artifacts = azure.FilterArtifactsByName(artifacts, namePattern)
	}

	var downloadable []azure.Artifact
	for _, a := range artifacts {
		if azure.Downloadable(a) {
			downloadable = append(downloadable, a)
		} else {
			logrus.Warnf("Skipping artifact %q with non-downloadable resource type %q", a.Name, a.Resource.Type)
		}
	}
	if len(downloadable) == 0 {
		return &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("no downloadable artifacts found for build %d in %s/%s", buildID, organization, project),
		}
	}

	for _, artifact := range downloadable {
		logrus.Infof("Mirroring artifact %q (id %d)", artifact.Name, artifact.ID)
		content, err := client.DownloadArtifact(ctx, organization, project, buildID, artifact.Name)
		if err != nil {
			return err
		}
		if err := m.mirrorZip(ctx, content, ""); err != nil {
			return fmt.Errorf("artifact %q: %w", artifact.Name, err)
		}
	}
	return nil
}
