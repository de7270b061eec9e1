package merge

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/git-pkgs/pkgcache/internal/record"
)

// Merge combines a package record with the artifact's build manifest into the
// on-disk metadata document.
//
// Fields the record's provenance marks as stubs are taken from the manifest;
// every other field comes from the record even when the manifest disagrees,
// which is what preserves channel-side corrections such as an intentionally
// empty dependency list. The artifact path is consulted only to backfill size
// and content hashes neither source supplies.
//
// Merge is deterministic given identical inputs and idempotent: re-running it
// against the same record and manifest produces an equivalent document.
func Merge(rec *record.Record, man *Manifest, artifactPath string) (*Document, error) {
	if !rec.Provenance.Initialized() {
		return nil, fmt.Errorf("merging %s: %w", rec.EntryKey(), record.ErrUninitializedProvenance)
	}
	if man == nil {
		man = &Manifest{}
	}

	doc := &Document{
		Name:     rec.Name,
		Version:  rec.Version,
		Build:    rec.Build,
		Channel:  rec.Channel,
		URL:      rec.URL,
		Subdir:   rec.Subdir,
		Filename: rec.Filename,
	}
	if doc.Name == "" {
		doc.Name = man.Name
	}
	if doc.Version == "" {
		doc.Version = man.Version
	}
	if doc.Build == "" {
		doc.Build = man.Build
	}

	stub := rec.Provenance.IsStub

	if stub(record.FieldBuildNumber) {
		if man.BuildNumber != nil {
			doc.BuildNumber = *man.BuildNumber
		}
	} else {
		doc.BuildNumber = rec.BuildNumber
	}

	if stub(record.FieldLicense) {
		if man.License != nil {
			doc.License = *man.License
		}
	} else {
		doc.License = rec.License
	}

	if stub(record.FieldTimestamp) {
		if man.Timestamp != nil {
			doc.Timestamp = *man.Timestamp
		}
	} else {
		doc.Timestamp = rec.Timestamp
	}

	if stub(record.FieldTrackFeatures) {
		if man.TrackFeatures != nil {
			doc.TrackFeatures = *man.TrackFeatures
		}
	} else {
		doc.TrackFeatures = rec.TrackFeatures
	}

	if stub(record.FieldNoarch) {
		if man.Noarch != nil {
			doc.Noarch = *man.Noarch
		}
	} else {
		doc.Noarch = rec.Noarch
	}

	if stub(record.FieldSitePackagesPath) {
		if man.SitePackagesPath != nil {
			doc.SitePackagesPath = *man.SitePackagesPath
		}
	} else {
		doc.SitePackagesPath = rec.SitePackagesPath
	}

	if stub(record.FieldDepends) {
		if man.Depends != nil {
			doc.Depends = append([]string(nil), *man.Depends...)
		}
	} else {
		doc.Depends = append([]string(nil), rec.Depends...)
	}

	if stub(record.FieldConstrains) {
		if man.Constrains != nil {
			doc.Constrains = append([]string(nil), *man.Constrains...)
		}
	} else {
		doc.Constrains = append([]string(nil), rec.Constrains...)
	}

	if stub(record.FieldSize) {
		if man.Size != nil {
			doc.Size = *man.Size
		}
	} else {
		doc.Size = rec.Size
	}

	// Record hashes are identity fields, never stubs: a hash pinned in a URL
	// fragment wins over the manifest.
	doc.MD5 = rec.MD5
	doc.SHA256 = rec.SHA256
	if doc.MD5 == "" && doc.SHA256 == "" {
		if man.MD5 != nil {
			doc.MD5 = *man.MD5
		}
		if man.SHA256 != nil {
			doc.SHA256 = *man.SHA256
		}
	}

	if err := normalize(doc, artifactPath); err != nil {
		return nil, err
	}
	return doc, nil
}

// normalize enforces the document invariants that hold regardless of
// provenance: dependency and constraint fields are lists, size is positive,
// and at least one content hash is populated.
func normalize(doc *Document, artifactPath string) error {
	if doc.Depends == nil {
		doc.Depends = []string{}
	}
	if doc.Constrains == nil {
		doc.Constrains = []string{}
	}

	if doc.Size <= 0 {
		info, err := os.Stat(artifactPath)
		if err != nil {
			return fmt.Errorf("sizing artifact: %w", err)
		}
		doc.Size = info.Size()
	}

	if doc.MD5 == "" && doc.SHA256 == "" {
		md5hex, sha256hex, err := hashArtifact(artifactPath)
		if err != nil {
			return fmt.Errorf("hashing artifact: %w", err)
		}
		doc.MD5 = md5hex
		doc.SHA256 = sha256hex
	}

	return nil
}

func hashArtifact(path string) (md5hex, sha256hex string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = f.Close() }()

	sum := md5.New()
	digester := digest.SHA256.Digester()
	if _, err := io.Copy(io.MultiWriter(sum, digester.Hash()), f); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(sum.Sum(nil)), digester.Digest().Encoded(), nil
}
