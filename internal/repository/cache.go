package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
)

// CacheBackend stores packages flat under a cache root, with no
// platform subdirectories and no repodata. It exists for package
// reuse (feeding a local package cache), not for serving a channel.
type CacheBackend struct {
	root string
}

// NewCacheBackend creates a backend rooted at the given directory.
func NewCacheBackend(root string) *CacheBackend {
	return &CacheBackend{root: root}
}

// DefaultCacheDir returns the default package cache location under the
// user cache directory.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", &models.MirrorError{
			Type: models.ErrStorage,
			Err:  err,
		}
	}
	return filepath.Join(base, "conda-mirror", "pkgs"), nil
}

func (b *CacheBackend) Put(ctx context.Context, pkg *models.ProcessedPackage, platformPackages []*models.ProcessedPackage) error {
	if err := os.MkdirAll(b.root, 0755); err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}

	path := filepath.Join(b.root, pkg.Filename)
	if err := os.WriteFile(path, pkg.Content, 0644); err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}

	logrus.Infof("Cached %s at %s", pkg.Filename, path)
	return nil
}

// Finalize is a no-op; the cache carries no index.
func (b *CacheBackend) Finalize(ctx context.Context, organized map[platform.Platform][]*models.ProcessedPackage) error {
	return nil
}
