package models

import (
	"time"

	"github.com/pkgmirror/conda-mirror/internal/platform"
)

// PackageIdentity is the canonical identity of a conda package,
// recovered from its embedded info/index.json manifest or, failing
// that, from filename heuristics. Immutable once computed.
type PackageIdentity struct {
	Name        string
	Version     string
	Build       string
	BuildNumber uint64
	Depends     []string
	License     string

	// Resolution hints recovered alongside the identity. Consumed by
	// the platform resolver, empty when the source carried none.
	PlatformHint string
	SubdirHint   string
	ArchHint     string

	// Timestamp is the package's build timestamp when the manifest
	// records one, otherwise the time of processing.
	Timestamp time.Time

	// TimestampKnown distinguishes a manifest-supplied timestamp from
	// the processing-time default; repodata only records known ones.
	TimestampKnown bool
}

// ProcessedPackage is a conda package after metadata extraction,
// platform resolution and checksumming. Immutable after creation.
type ProcessedPackage struct {
	Content  []byte
	Identity PackageIdentity
	Filename string
	Platform platform.Platform
	Size     uint64
	MD5      string
	SHA256   string
}

// PackageStats aggregates counts over a set of processed packages.
type PackageStats struct {
	TotalPackages int
	TotalSize     uint64
	ByPlatform    map[platform.Platform]int
}
