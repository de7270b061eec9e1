package record

import "fmt"

// LockfileEntry is one package captured in a lockfile.
type LockfileEntry struct {
	Name          string   `yaml:"name" json:"name"`
	Version       string   `yaml:"version" json:"version"`
	Build         string   `yaml:"build" json:"build"`
	BuildNumber   int64    `yaml:"build_number" json:"build_number"`
	Channel       string   `yaml:"channel" json:"channel"`
	URL           string   `yaml:"url" json:"url"`
	Subdir        string   `yaml:"subdir" json:"subdir"`
	License       string   `yaml:"license" json:"license"`
	Timestamp     int64    `yaml:"timestamp" json:"timestamp"`
	Size          int64    `yaml:"size" json:"size"`
	MD5           string   `yaml:"md5" json:"md5"`
	SHA256        string   `yaml:"sha256" json:"sha256"`
	TrackFeatures string   `yaml:"track_features" json:"track_features"`
	Depends       []string `yaml:"depends" json:"depends"`
	Constrains    []string `yaml:"constrains" json:"constrains"`
	Noarch        string   `yaml:"noarch" json:"noarch"`
}

// FromLockfile builds a Record from a lockfile entry.
//
// An entry carrying a sha256 was captured from a trustworthy source and is
// Authoritative. Without one, the entry cannot be distinguished from data
// written during a historical corruption window, so only the URL-derivable
// fields are trusted and the rest are stubs. This rule is deliberately
// conservative; see FromURL for the stub set.
func FromLockfile(e LockfileEntry) (*Record, error) {
	if e.URL == "" {
		return nil, fmt.Errorf("lockfile entry %q has no url", e.Name)
	}

	if e.SHA256 == "" {
		rec, err := FromURL(e.URL)
		if err != nil {
			return nil, err
		}
		if e.MD5 != "" {
			rec.MD5 = e.MD5
		}
		return rec, nil
	}

	rec := &Record{
		Name:          e.Name,
		Version:       e.Version,
		Build:         e.Build,
		BuildNumber:   e.BuildNumber,
		Channel:       e.Channel,
		URL:           e.URL,
		Subdir:        e.Subdir,
		License:       e.License,
		Timestamp:     e.Timestamp,
		Size:          e.Size,
		MD5:           e.MD5,
		SHA256:        e.SHA256,
		TrackFeatures: e.TrackFeatures,
		Depends:       e.Depends,
		Constrains:    e.Constrains,
		Noarch:        e.Noarch,
		Provenance:    Trusted(),
	}

	// Identity fields the entry omits are recovered from the URL.
	parsed, err := FromURL(e.URL)
	if err != nil {
		return nil, err
	}
	if rec.Name == "" {
		rec.Name = parsed.Name
	}
	if rec.Version == "" {
		rec.Version = parsed.Version
	}
	if rec.Build == "" {
		rec.Build = parsed.Build
	}
	rec.Filename = parsed.Filename
	if rec.Subdir == "" {
		rec.Subdir = parsed.Subdir
	}
	if rec.Channel == "" {
		rec.Channel = parsed.Channel
	}

	return rec, nil
}
