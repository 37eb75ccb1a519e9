package platform

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// FilenameInfo holds the identity fields recovered from a conda
// package filename when no manifest is available.
type FilenameInfo struct {
	Name        string
	Version     string
	Build       string
	BuildNumber uint64
	// PlatformHint is the canonical platform string found in the
	// filename, or empty when the filename carries none.
	PlatformHint string
}

// StripExtension removes the conda package suffix from a filename.
// The second return value is false when the filename has neither
// supported extension.
func StripExtension(filename string) (string, bool) {
	if s, ok := strings.CutSuffix(filename, ".conda"); ok {
		return s, true
	}
	if s, ok := strings.CutSuffix(filename, ".tar.bz2"); ok {
		return s, true
	}
	return filename, false
}

// IsPackageFilename reports whether the filename has a conda package
// extension.
func IsPackageFilename(filename string) bool {
	_, ok := StripExtension(filename)
	return ok
}

// ParseFilename extracts package identity from a conda filename of the
// form name-version-build[-platform].{conda,tar.bz2}. Hyphenated names
// (okd-install, coreos-installer) are supported: the version is the
// first hyphen-delimited token after the name's first token that
// either starts with an ASCII digit or contains a dot. The platform
// is the first token, scanning from the second token onward, that is a
// canonical platform string on its own or joined with the following
// token (the "linux", "64" split). ParseFilename never fails; a
// filename with fewer than two tokens yields name "unknown" and
// version "0.0.0".
func ParseFilename(filename string) FilenameInfo {
	stem, _ := StripExtension(filename)
	parts := strings.Split(stem, "-")

	if len(parts) < 2 {
		logrus.Warnf("Cannot parse filename %s, using defaults", filename)
		return FilenameInfo{Name: "unknown", Version: "0.0.0", Build: "unknown"}
	}

	// Locate the platform token, if any. Everything at and after it
	// belongs to the platform, not the build string.
	platformIdx := len(parts)
	hint := ""
	for i := 1; i < len(parts); i++ {
		if IsSubdir(parts[i]) {
			platformIdx = i
			hint = parts[i]
			break
		}
		if i+1 < len(parts) {
			if joined := parts[i] + "-" + parts[i+1]; IsSubdir(joined) {
				platformIdx = i
				hint = joined
				break
			}
		}
	}

	// Locate the version token among the pre-platform tokens.
	versionIdx := -1
	for i := 1; i < platformIdx; i++ {
		if looksLikeVersion(parts[i]) {
			versionIdx = i
			break
		}
	}

	info := FilenameInfo{PlatformHint: hint}
	switch {
	case versionIdx > 0:
		info.Name = strings.Join(parts[:versionIdx], "-")
		info.Version = parts[versionIdx]
		if versionIdx+1 < platformIdx {
			info.Build = strings.Join(parts[versionIdx+1:platformIdx], "-")
		}
	case platformIdx >= 2:
		// No recognizable version; fall back to positional split.
		info.Name = parts[0]
		info.Version = parts[1]
		if platformIdx > 2 {
			info.Build = strings.Join(parts[2:platformIdx], "-")
		}
	default:
		info.Name = parts[0]
		info.Version = "0.0.0"
	}

	if info.Build == "" {
		info.Build = "0"
	}
	info.BuildNumber = parseBuildNumber(info.Build)

	return info
}

func looksLikeVersion(token string) bool {
	if token == "" {
		return false
	}
	if c := token[0]; c >= '0' && c <= '9' {
		return true
	}
	return strings.Contains(token, ".")
}

// parseBuildNumber returns the integer suffix after the last '_' of a
// build string, or 0 when there is none.
func parseBuildNumber(build string) uint64 {
	idx := strings.LastIndex(build, "_")
	if idx < 0 || idx+1 >= len(build) {
		return 0
	}
	n, err := strconv.ParseUint(build[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
