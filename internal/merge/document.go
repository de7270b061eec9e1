package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DocumentPath is the location of the merged metadata document inside a cache
// entry, relative to the entry root.
const DocumentPath = "info/repodata_record.json"

// Document is the merged, normalized on-disk metadata record for one cached
// package. Dependency and constraint fields are always present as lists, the
// feature-tag field is omitted when empty, and size plus at least one content
// hash are always populated.
type Document struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Build       string `json:"build"`
	BuildNumber int64  `json:"build_number"`
	Channel     string `json:"channel"`
	URL         string `json:"url"`
	Subdir      string `json:"subdir"`
	Filename    string `json:"fn"`
	License     string `json:"license"`
	Timestamp   int64  `json:"timestamp"`
	Size        int64  `json:"size"`
	MD5         string `json:"md5,omitempty"`
	SHA256      string `json:"sha256,omitempty"`

	TrackFeatures    string   `json:"track_features,omitempty"`
	Noarch           string   `json:"noarch,omitempty"`
	SitePackagesPath string   `json:"python_site_packages_path,omitempty"`
	Depends          []string `json:"depends"`
	Constrains       []string `json:"constrains"`
}

// Write serializes the document to its fixed path under the cache entry
// directory. Writing it is the final step of extraction: its presence marks
// the entry as finalized.
func (d *Document) Write(entryDir string) error {
	path := filepath.Join(entryDir, filepath.FromSlash(DocumentPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating info dir: %w", err)
	}
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata document: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing metadata document: %w", err)
	}
	return nil
}

// ReadDocument reads a previously written metadata document from a cache
// entry directory.
func ReadDocument(entryDir string) (*Document, error) {
	path := filepath.Join(entryDir, filepath.FromSlash(DocumentPath))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata document: %w", err)
	}
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parsing metadata document %s: %w", path, err)
	}
	return &d, nil
}
