package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/config"
	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
)

// PrefixDevBackend uploads packages to a prefix.dev channel with one
// HTTP PUT per package. Repodata generation is handled by the remote
// service, never locally.
type PrefixDevBackend struct {
	baseURL string
	client  *http.Client
}

// NewPrefixDevBackend creates a backend for the given channel base URL.
func NewPrefixDevBackend(baseURL string, cfg *config.Config) *PrefixDevBackend {
	return &PrefixDevBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

func (b *PrefixDevBackend) Put(ctx context.Context, pkg *models.ProcessedPackage, platformPackages []*models.ProcessedPackage) error {
	logrus.Infof("Uploading %s to prefix.dev at %s (platform: %s)",
		pkg.Filename, b.baseURL, pkg.Platform)

	url := fmt.Sprintf("%s/%s/%s", b.baseURL, pkg.Platform, pkg.Filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(pkg.Content))
	if err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}
	req.Header.Set("Content-Type", packageContentType)

	resp, err := b.client.Do(req)
	if err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &models.MirrorError{
			Type:    models.ErrStorage,
			Package: pkg.Filename,
			Err:     fmt.Errorf("failed to upload to prefix.dev: %s - %s", resp.Status, body),
		}
	}

	logrus.Infof("Successfully uploaded %s to prefix.dev under %s/", pkg.Filename, pkg.Platform)
	return nil
}

// Finalize is a no-op; prefix.dev generates repodata server-side.
func (b *PrefixDevBackend) Finalize(ctx context.Context, organized map[platform.Platform][]*models.ProcessedPackage) error {
	logrus.Info("prefix.dev handles repodata generation automatically")
	return nil
}
