package processor

import (
	"github.com/pkgmirror/conda-mirror/internal/models"
	"github.com/pkgmirror/conda-mirror/internal/platform"
)

// Store holds processed packages keyed by filename. Entries are
// appended or overwritten, never deleted short of Clear. The mirror
// pipeline is sequential, so the store is unsynchronized; concurrent
// ingestion would need a lock or a single-writer goroutine owning it.
type Store struct {
	packages map[string]*models.ProcessedPackage
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{packages: make(map[string]*models.ProcessedPackage)}
}

// Put inserts a package, replacing any prior entry with the same
// filename (last write wins; there is no dedup by content hash).
func (s *Store) Put(pkg *models.ProcessedPackage) {
	s.packages[pkg.Filename] = pkg
}

// Get returns the package stored under filename.
func (s *Store) Get(filename string) (*models.ProcessedPackage, bool) {
	pkg, ok := s.packages[filename]
	return pkg, ok
}

// Len returns the number of stored packages.
func (s *Store) Len() int {
	return len(s.packages)
}

// ByPlatform returns every stored package resolved to the given
// platform.
func (s *Store) ByPlatform(p platform.Platform) []*models.ProcessedPackage {
	var out []*models.ProcessedPackage
	for _, pkg := range s.packages {
		if pkg.Platform == p {
			out = append(out, pkg)
		}
	}
	return out
}

// Organize groups all stored packages by resolved platform.
func (s *Store) Organize() map[platform.Platform][]*models.ProcessedPackage {
	organized := make(map[platform.Platform][]*models.ProcessedPackage)
	for _, pkg := range s.packages {
		organized[pkg.Platform] = append(organized[pkg.Platform], pkg)
	}
	return organized
}

// Stats aggregates counts and sizes over the stored packages.
func (s *Store) Stats() models.PackageStats {
	stats := models.PackageStats{ByPlatform: make(map[platform.Platform]int)}
	for _, pkg := range s.packages {
		stats.TotalPackages++
		stats.TotalSize += pkg.Size
		stats.ByPlatform[pkg.Platform]++
	}
	return stats
}

// Clear removes every stored package.
func (s *Store) Clear() {
	s.packages = make(map[string]*models.ProcessedPackage)
}
