package repository

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/config"
	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
	"github.com/pkgmirror/conda-mirror/internal/processor"
)

// Kind selects a storage backend.
type Kind int

const (
	KindLocal Kind = iota
	KindS3
	KindPrefixDev
	KindCache
)

// String returns the canonical target-type name.
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindS3:
		return "s3"
	case KindPrefixDev:
		return "prefix-dev"
	case KindCache:
		return "cache"
	default:
		return "unknown"
	}
}

// ParseKind maps a target-type string (with aliases) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "prefix-dev", "prefix":
		return KindPrefixDev, nil
	case "s3", "minio":
		return KindS3, nil
	case "local", "file":
		return KindLocal, nil
	case "cache":
		return KindCache, nil
	default:
		return 0, &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("unknown repository type: %s", s),
		}
	}
}

// Backend stores processed packages. Put receives the full set of
// packages currently known for the package's platform so index-writing
// backends can rebuild repodata.json from scratch on every upload.
type Backend interface {
	Put(ctx context.Context, pkg *models.ProcessedPackage, platformPackages []*models.ProcessedPackage) error

	// Finalize rewrites any per-platform indexes from the complete
	// grouped package set. Backends whose indexes are already current
	// (or externally managed) treat this as a no-op.
	Finalize(ctx context.Context, organized map[platform.Platform][]*models.ProcessedPackage) error
}

// Repository dispatches processed packages to a storage backend and
// maintains the per-platform repodata indexes.
type Repository struct {
	backend Backend
	proc    *processor.Processor
}

// New creates a repository for the given target.
func New(kind Kind, path string, cfg *config.Config) (*Repository, error) {
	var backend Backend
	var err error

	switch kind {
	case KindLocal:
		backend = NewLocalBackend(path)
	case KindS3:
		backend, err = NewS3Backend(path, cfg)
	case KindPrefixDev:
		backend = NewPrefixDevBackend(path, cfg)
	case KindCache:
		backend = NewCacheBackend(path)
	default:
		err = &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("unknown repository kind: %d", kind),
		}
	}
	if err != nil {
		return nil, err
	}

	return &Repository{backend: backend, proc: processor.New()}, nil
}

// NewWithBackend creates a repository over an explicit backend.
func NewWithBackend(backend Backend) *Repository {
	return &Repository{backend: backend, proc: processor.New()}
}

// Upload processes a package and stores it under its resolved
// platform directory.
func (r *Repository) Upload(ctx context.Context, filename string, content []byte) error {
	pkg, err := r.proc.Process(content, filename)
	if err != nil {
		return err
	}

	if err := Validate(pkg); err != nil {
		return err
	}

	return r.backend.Put(ctx, pkg, r.proc.Store().ByPlatform(pkg.Platform))
}

// Finalize rebuilds all per-platform indexes and prints aggregate
// statistics.
func (r *Repository) Finalize(ctx context.Context) error {
	logrus.Info("Finalizing repository structure")

	if err := r.backend.Finalize(ctx, r.proc.Store().Organize()); err != nil {
		return err
	}

	printStats(r.proc.Store().Stats())
	return nil
}

// Stats returns aggregate statistics over the processed packages.
func (r *Repository) Stats() models.PackageStats {
	return r.proc.Store().Stats()
}

// Validate checks a processed package before any backend dispatch:
// non-empty identity and content, and checksums that match a fresh
// recomputation.
func Validate(pkg *models.ProcessedPackage) error {
	fail := func(msg string) error {
		return &models.MirrorError{
			Type:    models.ErrValidation,
			Package: pkg.Filename,
			Err:     fmt.Errorf("%s", msg),
		}
	}

	if pkg.Filename == "" {
		return &models.MirrorError{
			Type: models.ErrValidation,
			Err:  fmt.Errorf("package filename is empty"),
		}
	}
	if pkg.Identity.Name == "" {
		return fail("package name is empty")
	}
	if pkg.Identity.Version == "" {
		return fail("package version is empty")
	}
	if len(pkg.Content) == 0 {
		return fail("package content is empty")
	}

	md5Sum := md5.Sum(pkg.Content)
	if hex.EncodeToString(md5Sum[:]) != pkg.MD5 {
		return fail("MD5 checksum mismatch")
	}
	sha256Sum := sha256.Sum256(pkg.Content)
	if hex.EncodeToString(sha256Sum[:]) != pkg.SHA256 {
		return fail("SHA256 checksum mismatch")
	}

	logrus.Debugf("Package validation passed for: %s", pkg.Filename)
	return nil
}

func printStats(stats models.PackageStats) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Package Statistics:\n")
	fmt.Fprintf(&b, "  Total packages: %d\n", stats.TotalPackages)
	fmt.Fprintf(&b, "  Total size: %s\n", humanize.Bytes(stats.TotalSize))
	fmt.Fprintf(&b, "  Packages by platform:\n")
	for _, p := range platform.All {
		if n, ok := stats.ByPlatform[p]; ok {
			fmt.Fprintf(&b, "    %s: %d\n", p, n)
		}
	}
	fmt.Print(b.String())
}
