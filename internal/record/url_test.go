package record

import (
	"testing"
)

func TestFromURL(t *testing.T) {
	tests := []struct {
		url     string
		name    string
		version string
		build   string
		channel string
		subdir  string
	}{
		{
			url:     "https://conda.anaconda.org/conda-forge/linux-64/xtensor-0.25.0-h00ab1b0_0.conda",
			name:    "xtensor",
			version: "0.25.0",
			build:   "h00ab1b0_0",
			channel: "https://conda.anaconda.org/conda-forge",
			subdir:  "linux-64",
		},
		{
			url:     "https://repo.prefix.dev/emscripten-forge-dev/emscripten-wasm32/cpp-tabulate-1.5.0-h7223423_2.tar.bz2",
			name:    "cpp-tabulate",
			version: "1.5.0",
			build:   "h7223423_2",
			channel: "https://repo.prefix.dev/emscripten-forge-dev",
			subdir:  "emscripten-wasm32",
		},
		{
			url:     "file:///home/user/Downloads/xtensor-0.21.4-hc9558a2_0.tar.bz2",
			name:    "xtensor",
			version: "0.21.4",
			build:   "hc9558a2_0",
			channel: "file:///home/user",
			subdir:  "Downloads",
		},
	}

	for _, tt := range tests {
		rec, err := FromURL(tt.url)
		if err != nil {
			t.Fatalf("FromURL(%q) failed: %v", tt.url, err)
		}
		if rec.Name != tt.name {
			t.Errorf("FromURL(%q).Name = %q, want %q", tt.url, rec.Name, tt.name)
		}
		if rec.Version != tt.version {
			t.Errorf("FromURL(%q).Version = %q, want %q", tt.url, rec.Version, tt.version)
		}
		if rec.Build != tt.build {
			t.Errorf("FromURL(%q).Build = %q, want %q", tt.url, rec.Build, tt.build)
		}
		if rec.Channel != tt.channel {
			t.Errorf("FromURL(%q).Channel = %q, want %q", tt.url, rec.Channel, tt.channel)
		}
		if rec.Subdir != tt.subdir {
			t.Errorf("FromURL(%q).Subdir = %q, want %q", tt.url, rec.Subdir, tt.subdir)
		}
		if rec.Provenance.Kind() != PartialStub {
			t.Errorf("FromURL(%q) provenance = %v, want PartialStub", tt.url, rec.Provenance.Kind())
		}
	}
}

func TestFromURLStubFields(t *testing.T) {
	rec, err := FromURL("https://conda.anaconda.org/conda-forge/noarch/tzdata-2024a-h0c530f3_0.conda")
	if err != nil {
		t.Fatalf("FromURL failed: %v", err)
	}

	for _, f := range URLStubFields() {
		if !rec.Provenance.IsStub(f) {
			t.Errorf("field %q should be a stub", f)
		}
	}
	for _, f := range []FieldID{"name", "version", "build", "channel", "url", "fn", "subdir"} {
		if rec.Provenance.IsStub(f) {
			t.Errorf("field %q should not be a stub", f)
		}
	}
}

func TestFromURLHashFragment(t *testing.T) {
	const base = "https://conda.anaconda.org/conda-forge/linux-64/pkg-1.0-abc.conda"

	md5Fragment := base + "#7dbaa197d7ba6032caf7ae7f32c1efa0"
	rec, err := FromURL(md5Fragment)
	if err != nil {
		t.Fatalf("FromURL failed: %v", err)
	}
	if rec.MD5 != "7dbaa197d7ba6032caf7ae7f32c1efa0" {
		t.Errorf("MD5 = %q, want fragment hash", rec.MD5)
	}
	if rec.SHA256 != "" {
		t.Errorf("SHA256 = %q, want empty", rec.SHA256)
	}
	if rec.URL != base {
		t.Errorf("URL = %q, want fragment stripped", rec.URL)
	}

	shaFragment := base + "#4bf491c83a1cbb9be4dc8a725ab768e4e75e58c76f0a6b0c131ed53ba9459765"
	rec, err = FromURL(shaFragment)
	if err != nil {
		t.Fatalf("FromURL failed: %v", err)
	}
	if rec.SHA256 != "4bf491c83a1cbb9be4dc8a725ab768e4e75e58c76f0a6b0c131ed53ba9459765" {
		t.Errorf("SHA256 = %q, want fragment hash", rec.SHA256)
	}
	if rec.MD5 != "" {
		t.Errorf("MD5 = %q, want empty", rec.MD5)
	}
}

func TestFromURLErrors(t *testing.T) {
	tests := []string{
		"https://example.com/channel/linux-64/not-an-artifact.zip",
		"https://example.com/channel/linux-64/noversion.conda",
		"https://conda.anaconda.org/conda-forge/linux-64/pkg-1.0-abc.conda#nothex",
	}
	for _, url := range tests {
		if _, err := FromURL(url); err == nil {
			t.Errorf("FromURL(%q) should fail", url)
		}
	}
}

func TestSplitFilename(t *testing.T) {
	name, version, build, err := SplitFilename("python-abi3-support-1.0-hd8ed1ab_2.conda")
	if err != nil {
		t.Fatalf("SplitFilename failed: %v", err)
	}
	if name != "python-abi3-support" || version != "1.0" || build != "hd8ed1ab_2" {
		t.Errorf("SplitFilename = (%q, %q, %q)", name, version, build)
	}
}
