package repository

import (
	"encoding/json"

	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
)

// RepoData is a conda channel's per-platform package index
// (repodata.json).
type RepoData struct {
	Info     RepoDataInfo             `json:"info"`
	Packages map[string]PackageRecord `json:"packages"`
}

// RepoDataInfo identifies the platform directory the index describes.
type RepoDataInfo struct {
	Subdir string `json:"subdir"`
}

// PackageRecord is one package entry in repodata.json.
type PackageRecord struct {
	Build       string   `json:"build"`
	BuildNumber uint64   `json:"build_number"`
	Depends     []string `json:"depends"`
	License     string   `json:"license"`
	MD5         string   `json:"md5"`
	SHA256      string   `json:"sha256"`
	Size        uint64   `json:"size"`
	Subdir      string   `json:"subdir"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	// Timestamp is epoch milliseconds; omitted when the package
	// manifest carried no timestamp.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// BuildRepoData assembles the index for one platform from the given
// packages. The index is rebuilt from scratch, not patched.
func BuildRepoData(p platform.Platform, packages []*models.ProcessedPackage) *RepoData {
	repodata := &RepoData{
		Info:     RepoDataInfo{Subdir: p.String()},
		Packages: make(map[string]PackageRecord),
	}

	for _, pkg := range packages {
		record := PackageRecord{
			Build:       pkg.Identity.Build,
			BuildNumber: pkg.Identity.BuildNumber,
			Depends:     pkg.Identity.Depends,
			License:     pkg.Identity.License,
			MD5:         pkg.MD5,
			SHA256:      pkg.SHA256,
			Size:        pkg.Size,
			Subdir:      p.String(),
			Name:        pkg.Identity.Name,
			Version:     pkg.Identity.Version,
		}
		if record.Depends == nil {
			record.Depends = []string{}
		}
		if pkg.Identity.TimestampKnown {
			record.Timestamp = pkg.Identity.Timestamp.UnixMilli()
		}
		repodata.Packages[pkg.Filename] = record
	}

	return repodata
}

// Marshal renders the index as indented JSON.
func (r *RepoData) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
