package repository

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/config"
	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
)

const (
	packageContentType  = "application/x-conda-package"
	repodataContentType = "application/json"
)

// S3Backend stores packages in an S3-compatible bucket under
// <prefix>/<platform>/<filename> keys, with one repodata.json object
// per platform prefix.
type S3Backend struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Backend parses an s3://bucket[/prefix] path and builds a client
// from the configured endpoint and region. Credentials come from the
// usual AWS environment variables.
func NewS3Backend(path string, cfg *config.Config) (*S3Backend, error) {
	trimmed := strings.TrimPrefix(path, "s3://")
	bucket, prefix, _ := strings.Cut(trimmed, "/")
	if bucket == "" {
		return nil, &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("invalid S3 path (no bucket): %s", path),
		}
	}

	endpoint := cfg.S3Endpoint
	secure := true
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = rest
		secure = false
	} else {
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewEnvAWS(),
		Secure: secure,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, &models.MirrorError{
			Type: models.ErrStorage,
			Err:  fmt.Errorf("creating S3 client: %w", err),
		}
	}

	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (b *S3Backend) key(parts ...string) string {
	if b.prefix != "" {
		parts = append([]string{b.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

func (b *S3Backend) Put(ctx context.Context, pkg *models.ProcessedPackage, platformPackages []*models.ProcessedPackage) error {
	logrus.Infof("Uploading %s to S3 bucket %s (platform: %s)",
		pkg.Filename, b.bucket, pkg.Platform)

	key := b.key(pkg.Platform.String(), pkg.Filename)
	if err := b.putObject(ctx, key, pkg.Content, packageContentType); err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}

	repodata, err := BuildRepoData(pkg.Platform, platformPackages).Marshal()
	if err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}

	repodataKey := b.key(pkg.Platform.String(), "repodata.json")
	if err := b.putObject(ctx, repodataKey, repodata, repodataContentType); err != nil {
		return &models.MirrorError{Type: models.ErrStorage, Package: pkg.Filename, Err: err}
	}

	logrus.Infof("Successfully uploaded %s to S3 under %s/", pkg.Filename, pkg.Platform)
	return nil
}

// Finalize is a no-op: every put rebuilds the platform's repodata from
// the full package set, so the index is already current.
func (b *S3Backend) Finalize(ctx context.Context, organized map[platform.Platform][]*models.ProcessedPackage) error {
	logrus.Info("S3 repositories update repodata per upload")
	return nil
}

func (b *S3Backend) putObject(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", b.bucket, key, err)
	}
	return nil
}
