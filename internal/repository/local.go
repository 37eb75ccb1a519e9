package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
)

// LocalBackend writes a conda channel layout under a directory root:
// one subdirectory per platform, each with its packages and a
// repodata.json index.
type LocalBackend struct {
	root string
}

// NewLocalBackend creates a backend rooted at the given directory.
func NewLocalBackend(root string) *LocalBackend {
	return &LocalBackend{root: root}
}

func (b *LocalBackend) Put(ctx context.Context, pkg *models.ProcessedPackage, platformPackages []*models.ProcessedPackage) error {
	logrus.Infof("Uploading %s to local repository at %s (platform: %s)",
		pkg.Filename, b.root, pkg.Platform)

	platformDir := filepath.Join(b.root, pkg.Platform.String())
	if err := os.MkdirAll(platformDir, 0755); err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}

	filePath := filepath.Join(platformDir, pkg.Filename)
	if err := os.WriteFile(filePath, pkg.Content, 0644); err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}

	if err := b.writeRepoData(ctx, pkg.Platform, platformPackages); err != nil {
		return err
	}

	logrus.Infof("Successfully uploaded %s to local repository under %s/",
		pkg.Filename, pkg.Platform)
	return nil
}

// Finalize rewrites every platform's repodata.json from the full
// package set.
func (b *LocalBackend) Finalize(ctx context.Context, organized map[platform.Platform][]*models.ProcessedPackage) error {
	for p, packages := range organized {
		if len(packages) == 0 {
			continue
		}
		if err := b.writeRepoData(ctx, p, packages); err != nil {
			return err
		}
	}
	return nil
}

// writeRepoData regenerates one platform's index. A file lock guards
// the rewrite so that independent mirror invocations sharing a
// repository root do not interleave writes.
func (b *LocalBackend) writeRepoData(ctx context.Context, p platform.Platform, packages []*models.ProcessedPackage) error {
	platformDir := filepath.Join(b.root, p.String())
	if err := os.MkdirAll(platformDir, 0755); err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Err: err}
	}

	repodata, err := BuildRepoData(p, packages).Marshal()
	if err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Err: err}
	}

	lock := flock.New(filepath.Join(platformDir, ".repodata.json.lock"))
	lockCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, 250*time.Millisecond)
	if err != nil {
		return &models.MirrorError{
			Type: models.ErrStorage,
			Err:  fmt.Errorf("locking repodata for %s: %w", p, err),
		}
	}
	if !locked {
		return &models.MirrorError{
			Type: models.ErrStorage,
			Err:  fmt.Errorf("could not lock repodata for %s", p),
		}
	}
	defer lock.Unlock()

	repodataPath := filepath.Join(platformDir, "repodata.json")
	if err := os.WriteFile(repodataPath, repodata, 0644); err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Err: err}
	}

	logrus.Infof("Updated %s with %d packages", repodataPath, len(packages))
	return nil
}
