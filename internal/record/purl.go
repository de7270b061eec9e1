package record

import (
	"fmt"

	packageurl "github.com/package-url/packageurl-go"
)

const (
	defaultChannelBase = "https://conda.anaconda.org"
	defaultChannel     = "conda-forge"
	defaultSubdir      = "noarch"
)

// FromPURL builds a Record from a conda Package URL, e.g.
//
//	pkg:conda/absl-py@0.4.1?build=py36h06a4308_0&channel=main&subdir=linux-64&type=tar.bz2
//
// A PURL yields the same field set as an artifact URL, so the resulting record
// carries the same stub classification as FromURL. The sha256/md5 qualifiers,
// when present, are trusted like a URL hash fragment.
func FromPURL(purl string) (*Record, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, fmt.Errorf("parsing purl: %w", err)
	}
	if p.Type != "conda" {
		return nil, fmt.Errorf("purl type %q is not conda", p.Type)
	}
	if p.Version == "" {
		return nil, fmt.Errorf("purl %q has no version", purl)
	}

	q := p.Qualifiers.Map()

	build := q["build"]
	if build == "" {
		return nil, fmt.Errorf("purl %q has no build qualifier", purl)
	}

	channel := q["channel"]
	if channel == "" {
		channel = defaultChannel
	}
	subdir := q["subdir"]
	if subdir == "" {
		subdir = defaultSubdir
	}
	ext := q["type"]
	if ext == "" {
		ext = "conda"
	}

	rec := &Record{
		Name:       p.Name,
		Version:    p.Version,
		Build:      build,
		Channel:    defaultChannelBase + "/" + channel,
		Subdir:     subdir,
		Filename:   fmt.Sprintf("%s-%s-%s.%s", p.Name, p.Version, build, ext),
		SHA256:     q["sha256"],
		MD5:        q["md5"],
		Provenance: Stubbed(URLStubFields()...),
	}

	if u := q["url"]; u != "" {
		rec.URL = u
	} else {
		rec.URL = rec.Channel + "/" + subdir + "/" + rec.Filename
	}

	return rec, nil
}
