package record

// ResolvedEntry is one package as reported by the dependency resolver. It
// mirrors the channel's published repodata, which may carry corrections
// applied after the artifact was built.
type ResolvedEntry struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Build            string   `json:"build"`
	BuildNumber      int64    `json:"build_number"`
	Channel          string   `json:"channel"`
	URL              string   `json:"url"`
	Filename         string   `json:"fn"`
	Subdir           string   `json:"subdir"`
	License          string   `json:"license"`
	Timestamp        int64    `json:"timestamp"`
	Size             int64    `json:"size"`
	MD5              string   `json:"md5"`
	SHA256           string   `json:"sha256"`
	TrackFeatures    string   `json:"track_features"`
	Depends          []string `json:"depends"`
	Constrains       []string `json:"constrains"`
	Noarch           string   `json:"noarch"`
	SitePackagesPath string   `json:"python_site_packages_path"`
}

// FromResolver builds an Authoritative Record from resolver output. Resolver
// data originates from channel-published metadata, so even an empty dependency
// list is meaningful: it may encode an upstream correction and must not be
// treated as missing.
func FromResolver(e ResolvedEntry) *Record {
	return &Record{
		Name:             e.Name,
		Version:          e.Version,
		Build:            e.Build,
		BuildNumber:      e.BuildNumber,
		Channel:          e.Channel,
		URL:              e.URL,
		Filename:         e.Filename,
		Subdir:           e.Subdir,
		License:          e.License,
		Timestamp:        e.Timestamp,
		Size:             e.Size,
		MD5:              e.MD5,
		SHA256:           e.SHA256,
		TrackFeatures:    e.TrackFeatures,
		Depends:          e.Depends,
		Constrains:       e.Constrains,
		Noarch:           e.Noarch,
		SitePackagesPath: e.SitePackagesPath,
		Provenance:       Trusted(),
	}
}
