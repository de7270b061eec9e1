// Package merge combines a package record with the artifact's embedded build
// manifest into the authoritative on-disk metadata document.
package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestPath is the location of the build manifest inside an extracted
// package tree.
const ManifestPath = "info/index.json"

// Manifest is the build-time metadata embedded in a package artifact. It is
// written once at build time and never patched. Pointer fields distinguish
// keys absent from the document from keys present with a zero value.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Build       string `json:"build"`
	BuildNumber *int64 `json:"build_number"`

	License       *string   `json:"license"`
	Timestamp     *int64    `json:"timestamp"`
	TrackFeatures *string   `json:"track_features"`
	Size          *int64    `json:"size"`
	MD5           *string   `json:"md5"`
	SHA256        *string   `json:"sha256"`
	Depends       *[]string `json:"depends"`
	Constrains    *[]string `json:"constrains"`

	Noarch           *string `json:"noarch"`
	SitePackagesPath *string `json:"python_site_packages_path"`
}

// ReadManifest reads the build manifest from an extracted package directory.
func ReadManifest(extractedDir string) (*Manifest, error) {
	path := filepath.Join(extractedDir, filepath.FromSlash(ManifestPath))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}
