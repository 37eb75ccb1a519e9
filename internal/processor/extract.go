package processor

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/pkgmirror/conda-mirror/internal/models"
)

// manifestExtractor recovers a package identity from the raw archive
// bytes of one conda package format. Extractors are interchangeable
// per extension so that a .conda handler can be added without touching
// the resolver or the organizer.
type manifestExtractor func(content []byte) (models.PackageIdentity, error)

var manifestExtractors = map[string]manifestExtractor{
	".tar.bz2": extractTarBz2Manifest,
	".conda":   extractCondaManifest,
}

// extractorFor returns the manifest extractor for a package filename.
func extractorFor(filename string) (manifestExtractor, bool) {
	for ext, fn := range manifestExtractors {
		if strings.HasSuffix(filename, ext) {
			return fn, true
		}
	}
	return nil, false
}

// indexJSON mirrors the fields of conda's info/index.json manifest.
type indexJSON struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build"`
	BuildNumber uint64   `json:"build_number"`
	Depends     []string `json:"depends"`
	License     string   `json:"license"`
	Platform    string   `json:"platform"`
	Arch        string   `json:"arch"`
	Subdir      string   `json:"subdir"`
	// Timestamp is epoch milliseconds, conda convention.
	Timestamp int64 `json:"timestamp"`
}

// extractTarBz2Manifest scans a legacy-format package for
// info/index.json and parses it into a package identity.
func extractTarBz2Manifest(content []byte) (models.PackageIdentity, error) {
	tr := tar.NewReader(bzip2.NewReader(bytes.NewReader(content)))

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.PackageIdentity{}, &models.MirrorError{
				Type: models.ErrParse,
				Err:  fmt.Errorf("reading archive: %w", err),
			}
		}

		if path.Clean(header.Name) != "info/index.json" {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return models.PackageIdentity{}, &models.MirrorError{
				Type: models.ErrParse,
				Err:  fmt.Errorf("reading info/index.json: %w", err),
			}
		}
		return parseIndexJSON(data)
	}

	return models.PackageIdentity{}, &models.MirrorError{
		Type: models.ErrParse,
		Err:  fmt.Errorf("info/index.json not found in package"),
	}
}

// extractCondaManifest handles the modern zip-of-tarballs format. The
// manifest lives inside a zstd-compressed inner tarball which is not
// decoded here; callers fall back to filename heuristics.
func extractCondaManifest(content []byte) (models.PackageIdentity, error) {
	return models.PackageIdentity{}, &models.MirrorError{
		Type: models.ErrParse,
		Err:  fmt.Errorf(".conda manifest extraction not implemented (inner zstd tarball)"),
	}
}

func parseIndexJSON(data []byte) (models.PackageIdentity, error) {
	var idx indexJSON
	if err := json.Unmarshal(data, &idx); err != nil {
		return models.PackageIdentity{}, &models.MirrorError{
			Type: models.ErrParse,
			Err:  fmt.Errorf("decoding info/index.json: %w", err),
		}
	}

	identity := models.PackageIdentity{
		Name:         idx.Name,
		Version:      idx.Version,
		Build:        idx.Build,
		BuildNumber:  idx.BuildNumber,
		Depends:      idx.Depends,
		License:      idx.License,
		PlatformHint: idx.Platform,
		SubdirHint:   idx.Subdir,
		ArchHint:     idx.Arch,
	}
	if identity.Depends == nil {
		identity.Depends = []string{}
	}
	if idx.Timestamp > 0 {
		identity.Timestamp = time.UnixMilli(idx.Timestamp).UTC()
		identity.TimestampKnown = true
	}
	return identity, nil
}
