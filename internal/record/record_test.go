package record

import (
	"reflect"
	"testing"
)

func TestProvenanceZeroValueIsUninitialized(t *testing.T) {
	var p Provenance
	if p.Initialized() {
		t.Error("zero-value provenance should not be initialized")
	}
	if p.Kind() != Uninitialized {
		t.Errorf("Kind = %v, want Uninitialized", p.Kind())
	}
}

func TestProvenanceTrusted(t *testing.T) {
	p := Trusted()
	if p.Kind() != Authoritative {
		t.Errorf("Kind = %v, want Authoritative", p.Kind())
	}
	if p.IsStub(FieldDepends) {
		t.Error("authoritative provenance has no stubs")
	}
}

func TestProvenanceStubbed(t *testing.T) {
	p := Stubbed(FieldLicense, FieldTimestamp)
	if p.Kind() != PartialStub {
		t.Errorf("Kind = %v, want PartialStub", p.Kind())
	}
	if !p.IsStub(FieldLicense) || !p.IsStub(FieldTimestamp) {
		t.Error("named fields should be stubs")
	}
	if p.IsStub(FieldDepends) {
		t.Error("unnamed fields should not be stubs")
	}

	got := p.StubFields()
	want := []FieldID{FieldLicense, FieldTimestamp}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StubFields = %v, want %v", got, want)
	}
}

func TestFromResolverIsAuthoritative(t *testing.T) {
	rec := FromResolver(ResolvedEntry{
		Name:      "numpy",
		Version:   "1.26.0",
		Build:     "py312h8813227_0",
		Channel:   "https://conda.anaconda.org/conda-forge",
		URL:       "https://conda.anaconda.org/conda-forge/linux-64/numpy-1.26.0-py312h8813227_0.conda",
		Depends:   []string{},
		Timestamp: 1700000000,
	})

	if rec.Provenance.Kind() != Authoritative {
		t.Errorf("provenance = %v, want Authoritative", rec.Provenance.Kind())
	}
	// An empty dependency list from the resolver is data, not absence.
	if rec.Depends == nil || len(rec.Depends) != 0 {
		t.Errorf("Depends = %v, want empty list", rec.Depends)
	}
}

func TestFromLockfileWithHashIsAuthoritative(t *testing.T) {
	rec, err := FromLockfile(LockfileEntry{
		Name:    "numpy",
		Version: "1.26.0",
		Build:   "py312_0",
		URL:     "https://conda.anaconda.org/conda-forge/linux-64/numpy-1.26.0-py312_0.conda",
		SHA256:  "4bf491c83a1cbb9be4dc8a725ab768e4e75e58c76f0a6b0c131ed53ba9459765",
		License: "BSD-3-Clause",
		Depends: []string{"python >=3.12"},
	})
	if err != nil {
		t.Fatalf("FromLockfile failed: %v", err)
	}

	if rec.Provenance.Kind() != Authoritative {
		t.Errorf("provenance = %v, want Authoritative", rec.Provenance.Kind())
	}
	if rec.License != "BSD-3-Clause" {
		t.Errorf("License = %q", rec.License)
	}
	if rec.Filename != "numpy-1.26.0-py312_0.conda" {
		t.Errorf("Filename = %q", rec.Filename)
	}
}

func TestFromLockfileWithoutHashIsStubbed(t *testing.T) {
	// Without a strong hash the entry cannot be distinguished from data
	// captured during the historical corruption window.
	rec, err := FromLockfile(LockfileEntry{
		Name:    "numpy",
		Version: "1.26.0",
		URL:     "https://conda.anaconda.org/conda-forge/linux-64/numpy-1.26.0-py312_0.conda",
		License: "BSD-3-Clause",
		MD5:     "7dbaa197d7ba6032caf7ae7f32c1efa0",
	})
	if err != nil {
		t.Fatalf("FromLockfile failed: %v", err)
	}

	if rec.Provenance.Kind() != PartialStub {
		t.Errorf("provenance = %v, want PartialStub", rec.Provenance.Kind())
	}
	if !rec.Provenance.IsStub(FieldLicense) {
		t.Error("license should be a stub without a strong hash")
	}
	if rec.MD5 != "7dbaa197d7ba6032caf7ae7f32c1efa0" {
		t.Errorf("MD5 = %q, want lockfile md5 kept", rec.MD5)
	}
}

func TestFromLockfileNoURL(t *testing.T) {
	if _, err := FromLockfile(LockfileEntry{Name: "numpy"}); err == nil {
		t.Error("FromLockfile without url should fail")
	}
}

func TestEntryKey(t *testing.T) {
	rec := &Record{Name: "xtensor", Version: "0.25.0", Build: "h00ab1b0_0"}
	if rec.EntryKey() != "xtensor-0.25.0-h00ab1b0_0" {
		t.Errorf("EntryKey = %q", rec.EntryKey())
	}
}

func TestStrongHash(t *testing.T) {
	tests := []struct {
		md5, sha256 string
		algorithm   string
		value       string
	}{
		{"", "abc", "sha256", "abc"},
		{"def", "", "md5", "def"},
		{"def", "abc", "sha256", "abc"},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		rec := &Record{MD5: tt.md5, SHA256: tt.sha256}
		alg, val := rec.StrongHash()
		if alg != tt.algorithm || val != tt.value {
			t.Errorf("StrongHash(md5=%q, sha256=%q) = (%q, %q), want (%q, %q)",
				tt.md5, tt.sha256, alg, val, tt.algorithm, tt.value)
		}
	}
}
