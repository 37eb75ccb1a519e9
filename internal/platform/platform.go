package platform

import (
	"github.com/sirupsen/logrus"
)

// Platform represents a conda repository subdir
type Platform int

const (
	Linux64 Platform = iota
	Linux32
	LinuxAarch64
	LinuxArmv6l
	LinuxArmv7l
	LinuxPpc64le
	LinuxS390x
	Osx64
	OsxArm64
	Win32
	Win64
	NoArch
)

// String returns the conda subdir name for the platform
func (p Platform) String() string {
	switch p {
	case Linux64:
		return "linux-64"
	case Linux32:
		return "linux-32"
	case LinuxAarch64:
		return "linux-aarch64"
	case LinuxArmv6l:
		return "linux-armv6l"
	case LinuxArmv7l:
		return "linux-armv7l"
	case LinuxPpc64le:
		return "linux-ppc64le"
	case LinuxS390x:
		return "linux-s390x"
	case Osx64:
		return "osx-64"
	case OsxArm64:
		return "osx-arm64"
	case Win32:
		return "win-32"
	case Win64:
		return "win-64"
	default:
		return "noarch"
	}
}

// All lists every platform in subdir order.
var All = []Platform{
	Linux64, Linux32, LinuxAarch64, LinuxArmv6l, LinuxArmv7l,
	LinuxPpc64le, LinuxS390x, Osx64, OsxArm64, Win32, Win64, NoArch,
}

// subdirs maps canonical subdir strings to platforms. This is the one
// authoritative "is this a platform string" table; the legacy bare "64"
// match is intentionally absent (hyphen-split platforms are handled by
// token joining in the filename scanner).
var subdirs = map[string]Platform{
	"linux-64":      Linux64,
	"linux-32":      Linux32,
	"linux-aarch64": LinuxAarch64,
	"linux-armv6l":  LinuxArmv6l,
	"linux-armv7l":  LinuxArmv7l,
	"linux-ppc64le": LinuxPpc64le,
	"linux-s390x":   LinuxS390x,
	"osx-64":        Osx64,
	"osx-arm64":     OsxArm64,
	"win-32":        Win32,
	"win-64":        Win64,
	"noarch":        NoArch,
}

// ParseSubdir maps a canonical subdir string to its platform.
func ParseSubdir(s string) (Platform, bool) {
	p, ok := subdirs[s]
	return p, ok
}

// IsSubdir reports whether s is one of the canonical subdir strings.
func IsSubdir(s string) bool {
	_, ok := subdirs[s]
	return ok
}

// platformArch maps (platform, arch) manifest field pairs to subdirs.
var platformArch = map[[2]string]Platform{
	{"linux", "x86_64"}:  Linux64,
	{"linux", "amd64"}:   Linux64,
	{"linux", "x86"}:     Linux32,
	{"linux", "i686"}:    Linux32,
	{"linux", "aarch64"}: LinuxAarch64,
	{"linux", "arm64"}:   LinuxAarch64,
	{"linux", "armv6l"}:  LinuxArmv6l,
	{"linux", "armv7l"}:  LinuxArmv7l,
	{"linux", "ppc64le"}: LinuxPpc64le,
	{"linux", "s390x"}:   LinuxS390x,
	{"osx", "x86_64"}:    Osx64,
	{"osx", "arm64"}:     OsxArm64,
	{"win", "x86_64"}:    Win64,
	{"win", "amd64"}:     Win64,
	{"win", "x86"}:       Win32,
}

// binaryTools is a table of known platform-specific binary packages
// that carry no platform marker in their filename or manifest. These
// are all published for linux-64 only.
var binaryTools = map[string]bool{
	"coreos-installer":  true,
	"okd-install":       true,
	"okd-client":        true,
	"butane":            true,
	"ignition-validate": true,
	"kubectl":           true,
	"oc":                true,
	"helm":              true,
	"kustomize":         true,
	"k9s":               true,
	"kind":              true,
	"minikube":          true,
	"podman":            true,
	"buildah":           true,
	"skopeo":            true,
	"crictl":            true,
	"dive":              true,
	"virtctl":           true,
	"apptainer":         true,
	"micromamba":        true,
	"pixi":              true,
}

// noarchPrefixes marks interpreter-hosted package families that are
// always noarch.
var noarchPrefixes = []string{"rb-", "python-", "nodejs-"}

// Hint carries the platform signals recovered from a package manifest
// or from filename heuristics. All fields are optional.
type Hint struct {
	Subdir   string
	Platform string
	Arch     string
	Name     string
}

type strategy struct {
	name    string
	resolve func(Hint) (Platform, bool)
}

// Strategies run in priority order; the first match wins and there is
// no backtracking.
var strategies = []strategy{
	{"subdir", bySubdir},
	{"platform-arch", byPlatformArch},
	{"platform", byPlatformOnly},
	{"name", byName},
}

// Resolve determines the platform for a package from its hints. It
// never fails: if no strategy matches, the package is filed under
// noarch.
func Resolve(h Hint) Platform {
	for _, s := range strategies {
		if p, ok := s.resolve(h); ok {
			logrus.Debugf("Resolved platform %s for %q via %s", p, h.Name, s.name)
			return p
		}
	}
	logrus.Warnf("Could not determine platform for %q, defaulting to noarch", h.Name)
	return NoArch
}

func bySubdir(h Hint) (Platform, bool) {
	if h.Subdir == "" {
		return 0, false
	}
	p, ok := subdirs[h.Subdir]
	if !ok {
		logrus.Warnf("Unrecognized subdir %q, trying other signals", h.Subdir)
		return 0, false
	}
	return p, true
}

func byPlatformArch(h Hint) (Platform, bool) {
	if h.Platform == "" || h.Arch == "" {
		return 0, false
	}
	p, ok := platformArch[[2]string{h.Platform, h.Arch}]
	return p, ok
}

func byPlatformOnly(h Hint) (Platform, bool) {
	if h.Platform == "" {
		return 0, false
	}
	p, ok := subdirs[h.Platform]
	return p, ok
}

func byName(h Hint) (Platform, bool) {
	if h.Name == "" {
		return 0, false
	}
	if binaryTools[h.Name] {
		return Linux64, true
	}
	for _, prefix := range noarchPrefixes {
		if len(h.Name) > len(prefix) && h.Name[:len(prefix)] == prefix {
			return NoArch, true
		}
	}
	return 0, false
}
