package processor

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
)

// Processor extracts metadata from conda packages, resolves their
// platform and checksums their content. Processed packages are kept
// in an explicit Store rather than ambient state.
type Processor struct {
	store *Store
}

// New creates a processor with an empty store.
func New() *Processor {
	return &Processor{store: NewStore()}
}

// Store returns the processor's package store.
func (p *Processor) Store() *Store {
	return p.store
}

// Process validates, extracts and checksums one package. The package
// is cached in the store keyed by filename, overwriting any prior
// entry with the same name.
func (p *Processor) Process(content []byte, filename string) (*models.ProcessedPackage, error) {
	logrus.Infof("Processing conda package: %s", filename)

	if !platform.IsPackageFilename(filename) {
		return nil, &models.MirrorError{
			Type:    models.ErrUnsupportedFormat,
			Package: filename,
			Err:     fmt.Errorf("file is not a conda package (.conda or .tar.bz2)"),
		}
	}

	identity := p.extractIdentity(content, filename)

	resolved := platform.Resolve(platform.Hint{
		Subdir:   identity.SubdirHint,
		Platform: identity.PlatformHint,
		Arch:     identity.ArchHint,
		Name:     identity.Name,
	})

	md5sum, sha256sum := checksums(content)

	pkg := &models.ProcessedPackage{
		Content:  content,
		Identity: identity,
		Filename: filename,
		Platform: resolved,
		Size:     uint64(len(content)),
		MD5:      md5sum,
		SHA256:   sha256sum,
	}
	p.store.Put(pkg)

	logrus.Infof("Successfully processed package: %s (platform: %s, size: %d bytes)",
		filename, resolved, pkg.Size)
	return pkg, nil
}

// extractIdentity tries the manifest first and falls back to filename
// heuristics. Parse failures are recovered here, never surfaced.
func (p *Processor) extractIdentity(content []byte, filename string) models.PackageIdentity {
	if extract, ok := extractorFor(filename); ok {
		identity, err := extract(content)
		if err == nil {
			logrus.Infof("Extracted manifest metadata from %s", filename)
			if !identity.TimestampKnown {
				identity.Timestamp = time.Now().UTC()
			}
			return identity
		}
		logrus.Warnf("Manifest extraction failed for %s, falling back to filename heuristics: %v",
			filename, err)
	}

	info := platform.ParseFilename(filename)
	return models.PackageIdentity{
		Name:         info.Name,
		Version:      info.Version,
		Build:        info.Build,
		BuildNumber:  info.BuildNumber,
		Depends:      []string{},
		PlatformHint: info.PlatformHint,
		Timestamp:    time.Now().UTC(),
	}
}

// checksums computes the MD5 and SHA-256 hex digests in a single pass.
func checksums(content []byte) (string, string) {
	md5Hash := md5.New()
	sha256Hash := sha256.New()

	w := io.MultiWriter(md5Hash, sha256Hash)
	w.Write(content)

	return hex.EncodeToString(md5Hash.Sum(nil)), hex.EncodeToString(sha256Hash.Sum(nil))
}
