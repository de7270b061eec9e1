// Package cache manages the shared on-disk package cache: entry layout,
// validation of cached state against expected package records, and healing of
// stale or corrupted entries.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/git-pkgs/pkgcache/internal/record"
)

// Cache is one cache root directory. Each package occupies a directory named
// name-version-build containing the unpacked payload and the metadata
// document, with the downloaded artifact stored alongside at the root.
type Cache struct {
	root   string
	logger *slog.Logger
}

// New opens a cache rooted at dir, creating it if necessary.
func New(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root: %w", err)
	}
	return &Cache{root: dir, logger: logger}, nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// EntryDir returns the cache entry directory for a record.
func (c *Cache) EntryDir(rec *record.Record) string {
	return filepath.Join(c.root, rec.EntryKey())
}

// ArtifactPath returns where the record's downloaded artifact lives.
func (c *Cache) ArtifactPath(rec *record.Record) string {
	return filepath.Join(c.root, rec.Filename)
}

// Invalidate removes a cache entry outright. There is no partial repair: the
// entry is re-acquired from the artifact, so nothing is lost.
func (c *Cache) Invalidate(rec *record.Record, status Status) error {
	dir := c.EntryDir(rec)
	c.logger.Info("invalidating cache entry",
		"package", rec.EntryKey(),
		"status", status.String(),
		"dir", dir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing cache entry %s: %w", dir, err)
	}
	return nil
}

// RemoveArtifact deletes a cached artifact file that failed validation.
func (c *Cache) RemoveArtifact(rec *record.Record) error {
	path := c.ArtifactPath(rec)
	c.logger.Info("removing invalid artifact", "package", rec.EntryKey(), "path", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing artifact %s: %w", path, err)
	}
	return nil
}
