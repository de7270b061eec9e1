package record

import (
	"fmt"
	"net/url"
	"strings"
)

// Recognized artifact filename extensions.
var artifactExtensions = []string{".conda", ".tar.bz2", ".tar.gz"}

// FromURL builds a Record from an artifact URL, extracting only what the URL
// and filename can yield: name, version, build string, channel, platform
// subdirectory, filename and, when a hash fragment is present, a content
// hash. Every other field is a placeholder and is listed as a stub.
//
// Supported forms:
//
//	https://conda.anaconda.org/conda-forge/linux-64/xtensor-0.25.0-h00ab1b0_0.conda
//	https://repo.example.dev/channel/noarch/pkg-1.0-0.tar.bz2#<md5 or sha256>
//	file:///downloads/pkg-1.0-0.tar.bz2
func FromURL(rawURL string) (*Record, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing artifact url: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("artifact url %q has no scheme", rawURL)
	}

	path := strings.TrimSuffix(u.Path, "/")
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	filename := segments[len(segments)-1]

	name, version, build, err := SplitFilename(filename)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Name:       name,
		Version:    version,
		Build:      build,
		Filename:   filename,
		Provenance: Stubbed(URLStubFields()...),
	}

	// channel/subdir are the two path segments preceding the filename; the
	// channel keeps the full URL prefix so mirrors stay distinguishable.
	if len(segments) >= 3 {
		rec.Subdir = segments[len(segments)-2]
		prefix := strings.Join(segments[:len(segments)-2], "/")
		rec.Channel = u.Scheme + "://" + u.Host + "/" + prefix
	}

	// The URL used downstream must not carry the hash fragment.
	withoutFragment := *u
	withoutFragment.Fragment = ""
	rec.URL = withoutFragment.String()

	// A hash fragment is trustworthy: it was placed there by whoever pinned
	// the URL.
	if frag := u.Fragment; frag != "" {
		switch {
		case isHex(frag, 32):
			rec.MD5 = strings.ToLower(frag)
		case isHex(frag, 64):
			rec.SHA256 = strings.ToLower(frag)
		default:
			return nil, fmt.Errorf("url fragment %q is not an md5 or sha256 hash", frag)
		}
	}

	return rec, nil
}

// SplitFilename splits an artifact filename into name, version and build
// string. The version and build are the last two dash-separated components of
// the stem; the name may itself contain dashes.
func SplitFilename(filename string) (name, version, build string, err error) {
	stem := filename
	trimmed := false
	for _, ext := range artifactExtensions {
		if strings.HasSuffix(stem, ext) {
			stem = strings.TrimSuffix(stem, ext)
			trimmed = true
			break
		}
	}
	if !trimmed {
		return "", "", "", fmt.Errorf("unrecognized artifact extension in %q", filename)
	}

	parts := strings.Split(stem, "-")
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("artifact filename %q is not name-version-build", filename)
	}

	name = strings.Join(parts[:len(parts)-2], "-")
	version = parts[len(parts)-2]
	build = parts[len(parts)-1]
	if name == "" || version == "" || build == "" {
		return "", "", "", fmt.Errorf("artifact filename %q is not name-version-build", filename)
	}
	return name, version, build, nil
}

func isHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
