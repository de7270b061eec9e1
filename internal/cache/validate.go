package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/git-pkgs/pkgcache/internal/merge"
	"github.com/git-pkgs/pkgcache/internal/record"
)

// Status classifies a cache entry against an expected record. Entries start
// Unchecked and are re-evaluated on every lookup; no result is remembered.
type Status int

const (
	Unchecked Status = iota

	// Valid: the entry matches the expected record and its metadata is sane.
	Valid

	// InvalidStale: identity mismatch (size, hash or source), or the entry's
	// metadata document is missing or unreadable. Includes half-written
	// entries left by another process.
	InvalidStale

	// InvalidCorrupted: the metadata document carries the signature of the
	// historical corruption defect (timestamp zero and license empty at the
	// same time). Detected even when the content hash matches, because the
	// defect produced syntactically valid documents.
	InvalidCorrupted
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case InvalidStale:
		return "invalid-stale"
	case InvalidCorrupted:
		return "invalid-corrupted"
	default:
		return "unchecked"
	}
}

// documentProbe reads the identity and corruption-signature fields of a
// metadata document. Pointers distinguish absent keys from zero values: a
// document missing timestamp or license is not treated as corrupted.
type documentProbe struct {
	Timestamp *int64  `json:"timestamp"`
	License   *string `json:"license"`
	Size      int64   `json:"size"`
	MD5       string  `json:"md5"`
	SHA256    string  `json:"sha256"`
	URL       string  `json:"url"`
	Channel   string  `json:"channel"`
}

// Validate checks the cache entry for a record. Any identity mismatch is
// InvalidStale; the corruption signature is checked independently of the
// hash comparison.
func (c *Cache) Validate(rec *record.Record) Status {
	path := filepath.Join(c.EntryDir(rec), filepath.FromSlash(merge.DocumentPath))
	raw, err := os.ReadFile(path)
	if err != nil {
		return InvalidStale
	}

	var probe documentProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return InvalidStale
	}

	if rec.Size > 0 && probe.Size != rec.Size {
		return InvalidStale
	}
	if rec.SHA256 != "" && !strings.EqualFold(probe.SHA256, rec.SHA256) {
		return InvalidStale
	}
	if rec.MD5 != "" && !strings.EqualFold(probe.MD5, rec.MD5) {
		return InvalidStale
	}
	if rec.URL != "" && probe.URL != rec.URL {
		return InvalidStale
	}
	if rec.Channel != "" && probe.Channel != rec.Channel {
		return InvalidStale
	}

	if isCorrupted(probe) {
		return InvalidCorrupted
	}

	return Valid
}

// isCorrupted matches the signature of the historical metadata-corruption
// defect. The false-positive risk for a genuine package with both a zero
// timestamp and no license is accepted: the only cost is re-extraction.
func isCorrupted(probe documentProbe) bool {
	return probe.Timestamp != nil && probe.License != nil &&
		*probe.Timestamp == 0 && *probe.License == ""
}

// ValidateArtifact checks a downloaded artifact file against the record's
// expected size and content hash. Artifacts with no expected hash at all are
// accepted on size alone.
func (c *Cache) ValidateArtifact(rec *record.Record) Status {
	path := c.ArtifactPath(rec)
	info, err := os.Stat(path)
	if err != nil {
		return InvalidStale
	}
	if rec.Size > 0 && info.Size() != rec.Size {
		return InvalidStale
	}

	algorithm, expected := rec.StrongHash()
	if algorithm == "" {
		return Valid
	}

	actual, err := hashFile(path, algorithm)
	if err != nil || !strings.EqualFold(actual, expected) {
		return InvalidStale
	}
	return Valid
}

func hashFile(path, algorithm string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	if algorithm == "md5" {
		sum := md5.New()
		if _, err := io.Copy(sum, f); err != nil {
			return "", err
		}
		return hex.EncodeToString(sum.Sum(nil)), nil
	}

	digester := digest.SHA256.Digester()
	if _, err := io.Copy(digester.Hash(), f); err != nil {
		return "", err
	}
	return digester.Digest().Encoded(), nil
}
