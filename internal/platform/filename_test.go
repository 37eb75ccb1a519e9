package platform

import (
	"testing"
)

func TestIsPackageFilename(t *testing.T) {
	cases := map[string]bool{
		"numpy-1.21.0-py39_0.conda":   true,
		"numpy-1.21.0-py39_0.tar.bz2": true,
		"numpy-1.21.0-py39_0.tar.gz":  false,
		"README.md":                   false,
		"archive.zip":                 false,
	}

	for filename, want := range cases {
		if got := IsPackageFilename(filename); got != want {
			t.Errorf("IsPackageFilename(%q) = %v, want %v", filename, got, want)
		}
	}
}

func TestParseFilenameWithPlatform(t *testing.T) {
	info := ParseFilename("numpy-1.21.0-py39h06a4308_0-linux-64.conda")

	if info.Name != "numpy" {
		t.Errorf("Name = %q, want numpy", info.Name)
	}
	if info.Version != "1.21.0" {
		t.Errorf("Version = %q, want 1.21.0", info.Version)
	}
	if info.Build != "py39h06a4308_0" {
		t.Errorf("Build = %q, want py39h06a4308_0", info.Build)
	}
	if info.BuildNumber != 0 {
		t.Errorf("BuildNumber = %d, want 0", info.BuildNumber)
	}
	if info.PlatformHint != "linux-64" {
		t.Errorf("PlatformHint = %q, want linux-64", info.PlatformHint)
	}
}

func TestParseFilenameHyphenatedName(t *testing.T) {
	// The version is the first token that looks like one, so hyphenated
	// package names survive
	info := ParseFilename("okd-install-4.12.0-0-linux-64.tar.bz2")

	if info.Name != "okd-install" {
		t.Errorf("Name = %q, want okd-install", info.Name)
	}
	if info.Version != "4.12.0" {
		t.Errorf("Version = %q, want 4.12.0", info.Version)
	}
	if info.Build != "0" {
		t.Errorf("Build = %q, want 0", info.Build)
	}
	if info.PlatformHint != "linux-64" {
		t.Errorf("PlatformHint = %q, want linux-64", info.PlatformHint)
	}
}

func TestParseFilenameBuildNumber(t *testing.T) {
	info := ParseFilename("requests-2.28.1-pyhd8ed1ab_3.conda")

	if info.Build != "pyhd8ed1ab_3" {
		t.Errorf("Build = %q, want pyhd8ed1ab_3", info.Build)
	}
	if info.BuildNumber != 3 {
		t.Errorf("BuildNumber = %d, want 3", info.BuildNumber)
	}
	if info.PlatformHint != "" {
		t.Errorf("PlatformHint = %q, want empty", info.PlatformHint)
	}
}

func TestParseFilenameNoVersion(t *testing.T) {
	// A name-platform filename without a version: the platform token is
	// recognized and the version defaults
	info := ParseFilename("somepackage-noarch.tar.bz2")

	if info.Name != "somepackage" {
		t.Errorf("Name = %q, want somepackage", info.Name)
	}
	if info.Version != "0.0.0" {
		t.Errorf("Version = %q, want 0.0.0", info.Version)
	}
	if info.Build != "0" {
		t.Errorf("Build = %q, want 0", info.Build)
	}
	if info.PlatformHint != "noarch" {
		t.Errorf("PlatformHint = %q, want noarch", info.PlatformHint)
	}
}

func TestParseFilenameTooShort(t *testing.T) {
	info := ParseFilename("pkg.conda")

	if info.Name != "unknown" {
		t.Errorf("Name = %q, want unknown", info.Name)
	}
	if info.Version != "0.0.0" {
		t.Errorf("Version = %q, want 0.0.0", info.Version)
	}
	if info.Build != "unknown" {
		t.Errorf("Build = %q, want unknown", info.Build)
	}
}
