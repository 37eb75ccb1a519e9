package mirror

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"

	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
)

// defaultEntryPattern selects conda package entries when no explicit
// path pattern is given.
var defaultEntryPattern = regexp.MustCompile(`.*\.conda$|.*\.tar\.bz2$`)

// mirrorZip scans a ZIP archive for conda packages and uploads the
// matches. An entry matches only when the pattern accepts its path AND
// it has a conda package extension. An explicit pattern selects a
// single entry: only the first match is processed. Without a pattern
// every conda package entry is mirrored.
func (m *Mirror) mirrorZip(ctx context.Context, content []byte, pattern string) error {
	matcher := defaultEntryPattern
	firstOnly := false
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return &models.MirrorError{
				Type: models.ErrInvalidInput,
				Err:  fmt.Errorf("invalid path pattern %q: %w", pattern, err),
			}
		}
		matcher = re
		firstOnly = true
	}

	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return &models.MirrorError{
			Type: models.ErrParse,
			Err:  fmt.Errorf("failed to open ZIP archive: %w", err),
		}
	}

	var entries []string
	succeeded, failed := 0, 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, entry.Name)
		if !matcher.MatchString(entry.Name) || !platform.IsPackageFilename(path.Base(entry.Name)) {
			continue
		}

		data, err := readZipEntry(entry)
		if err != nil {
			logrus.Warnf("Failed to read ZIP entry %q: %v", entry.Name, err)
			failed++
		} else if err := m.repo.Upload(ctx, path.Base(entry.Name), data); err != nil {
			logrus.Warnf("Failed to mirror %q: %v", entry.Name, err)
			failed++
		} else {
			succeeded++
		}

		if firstOnly {
			break
		}
	}

	return m.commit(ctx, succeeded, failed, entries, "ZIP archive")
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// mirrorTarball scans a gzip or xz compressed tarball for conda
// packages and uploads every match.
func (m *Mirror) mirrorTarball(ctx context.Context, content []byte, name string) error {
	decompressed, err := tarballReader(content, name)
	if err != nil {
		return err
	}

	var entries []string
	succeeded, failed := 0, 0
	reader := tar.NewReader(decompressed)
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &models.MirrorError{
				Type: models.ErrParse,
				Err:  fmt.Errorf("failed to read tarball: %w", err),
			}
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		entries = append(entries, header.Name)
		if !defaultEntryPattern.MatchString(header.Name) {
			continue
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			logrus.Warnf("Failed to read tarball entry %q: %v", header.Name, err)
			failed++
		} else if err := m.repo.Upload(ctx, path.Base(header.Name), data); err != nil {
			logrus.Warnf("Failed to mirror %q: %v", header.Name, err)
			failed++
		} else {
			succeeded++
		}
	}

	return m.commit(ctx, succeeded, failed, entries, "tarball")
}

// tarballReader picks the outer decompressor by magic bytes, falling
// back to the file extension.
func tarballReader(content []byte, name string) (io.Reader, error) {
	switch {
	case len(content) >= 2 && content[0] == 0x1f && content[1] == 0x8b:
		return gzipReader(content)
	case len(content) >= 6 && bytes.Equal(content[:6], []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return xzReader(content)
	case strings.HasSuffix(name, ".tar.xz") || strings.HasSuffix(name, ".txz"):
		return xzReader(content)
	default:
		return gzipReader(content)
	}
}

func gzipReader(content []byte) (io.Reader, error) {
	r, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, &models.MirrorError{
			Type: models.ErrParse,
			Err:  fmt.Errorf("failed to open gzip stream: %w", err),
		}
	}
	return r, nil
}

func xzReader(content []byte) (io.Reader, error) {
	r, err := xz.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, &models.MirrorError{
			Type: models.ErrParse,
			Err:  fmt.Errorf("failed to open xz stream: %w", err),
		}
	}
	return r, nil
}

// commit finalizes the repository after an archive scan and converts
// the success and failure counts into the adapter's result.
func (m *Mirror) commit(ctx context.Context, succeeded, failed int, entries []string, kind string) error {
	if succeeded > 0 {
		if err := m.repo.Finalize(ctx); err != nil {
			return err
		}
	}

	if succeeded == 0 && failed == 0 {
		listing := "  (empty archive)"
		if len(entries) > 0 {
			listing = "  " + strings.Join(entries, "\n  ")
		}
		return &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err: fmt.Errorf("no matching packages found in %s; entries:\n%s\nhint: adjust --src-path to match a .conda or .tar.bz2 entry",
				kind, listing),
		}
	}
	if failed > 0 {
		return &models.MirrorError{
			Type: models.ErrStorage,
			Err:  fmt.Errorf("%d of %d packages failed to mirror", failed, succeeded+failed),
		}
	}

	logrus.Infof("Mirrored %d packages from %s", succeeded, kind)
	return nil
}
