// Package record defines the package record model carried through the
// acquisition pipeline, together with its provenance classification.
//
// A Record is created by exactly one producer (URL parser, resolver
// integration, lockfile parser) and consumed by the merge engine when the
// package is extracted. Provenance is a pipeline-internal annotation and is
// never written to disk.
package record

import (
	"errors"
	"sort"
)

// ErrUninitializedProvenance reports a record whose producer never classified
// its fields. Reaching the merge engine with it is a programming error, not a
// runtime condition to recover from.
var ErrUninitializedProvenance = errors.New("record provenance not initialized")

// FieldID identifies one mergeable field of a Record.
type FieldID string

const (
	FieldBuildNumber      FieldID = "build_number"
	FieldLicense          FieldID = "license"
	FieldTimestamp        FieldID = "timestamp"
	FieldTrackFeatures    FieldID = "track_features"
	FieldSize             FieldID = "size"
	FieldDepends          FieldID = "depends"
	FieldConstrains       FieldID = "constrains"
	FieldNoarch           FieldID = "noarch"
	FieldSitePackagesPath FieldID = "python_site_packages_path"
)

// URLStubFields is the set of fields a URL or filename cannot supply. Producers
// that only see an artifact URL mark exactly these as stubs.
func URLStubFields() []FieldID {
	return []FieldID{
		FieldBuildNumber,
		FieldLicense,
		FieldTimestamp,
		FieldTrackFeatures,
		FieldSize,
		FieldDepends,
		FieldConstrains,
		FieldNoarch,
		FieldSitePackagesPath,
	}
}

// Kind is the provenance classification of a Record.
type Kind uint8

const (
	// Uninitialized is the zero value: the producer failed to classify the
	// record. Illegal at the merge boundary.
	Uninitialized Kind = iota

	// Authoritative means every field is trustworthy, including empty
	// dependency and constraint lists, which may encode an upstream
	// metadata correction.
	Authoritative

	// PartialStub means the named fields hold placeholder defaults; all
	// other fields are trustworthy.
	PartialStub
)

func (k Kind) String() string {
	switch k {
	case Authoritative:
		return "authoritative"
	case PartialStub:
		return "partial-stub"
	default:
		return "uninitialized"
	}
}

// Provenance records which fields of a Record are trustworthy. The zero value
// is Uninitialized.
type Provenance struct {
	kind  Kind
	stubs map[FieldID]bool
}

// Trusted returns an Authoritative provenance.
func Trusted() Provenance {
	return Provenance{kind: Authoritative}
}

// Stubbed returns a PartialStub provenance naming the placeholder fields.
func Stubbed(fields ...FieldID) Provenance {
	stubs := make(map[FieldID]bool, len(fields))
	for _, f := range fields {
		stubs[f] = true
	}
	return Provenance{kind: PartialStub, stubs: stubs}
}

// Kind returns the provenance classification.
func (p Provenance) Kind() Kind {
	return p.kind
}

// Initialized reports whether a producer classified the record.
func (p Provenance) Initialized() bool {
	return p.kind != Uninitialized
}

// IsStub reports whether the field holds a placeholder default.
func (p Provenance) IsStub(f FieldID) bool {
	return p.kind == PartialStub && p.stubs[f]
}

// StubFields returns the placeholder fields in stable order.
func (p Provenance) StubFields() []FieldID {
	if len(p.stubs) == 0 {
		return nil
	}
	fields := make([]FieldID, 0, len(p.stubs))
	for f := range p.stubs {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Record describes one package as known at a point in the pipeline.
type Record struct {
	Name        string
	Version     string
	Build       string // build string, e.g. "py38_1"
	BuildNumber int64
	Channel     string // channel URL or name the artifact came from
	URL         string
	Filename    string
	Subdir      string // platform subdirectory, e.g. "linux-64", "noarch"
	License     string
	Timestamp   int64 // build time, seconds since epoch
	Size        int64 // artifact size in bytes
	MD5         string
	SHA256      string

	TrackFeatures    string
	Depends          []string
	Constrains       []string
	Noarch           string
	SitePackagesPath string

	Provenance Provenance
}

// EntryKey returns the cache directory name for the record,
// "name-version-build".
func (r *Record) EntryKey() string {
	return r.Name + "-" + r.Version + "-" + r.Build
}

// StrongHash returns the preferred content hash: sha256 when known, otherwise
// md5, otherwise "".
func (r *Record) StrongHash() (algorithm, value string) {
	if r.SHA256 != "" {
		return "sha256", r.SHA256
	}
	if r.MD5 != "" {
		return "md5", r.MD5
	}
	return "", ""
}
