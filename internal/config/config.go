// Package config loads pkgcache settings from an optional YAML file with
// environment overrides.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv          = "PKGCACHE_CONFIG"
	cacheRootEnv           = "PKGCACHE_ROOT"
	downloadConcurrencyEnv = "PKGCACHE_DOWNLOAD_CONCURRENCY"
	extractConcurrencyEnv  = "PKGCACHE_EXTRACT_CONCURRENCY"
)

// Config holds the settings the acquisition pipeline needs.
type Config struct {
	CacheRoot   string           `yaml:"cacheRoot"`
	Downloads   DownloadConfig   `yaml:"downloads"`
	Extractions ExtractionConfig `yaml:"extractions"`
}

// DownloadConfig tunes the downloader.
type DownloadConfig struct {
	Concurrency int    `yaml:"concurrency"`
	UserAgent   string `yaml:"userAgent"`
	MaxRetries  int    `yaml:"maxRetries"`
}

// ExtractionConfig tunes the extraction stage.
type ExtractionConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			slog.Warn("cannot read config file, falling back to defaults", "path", path, "err", err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				slog.Warn("cannot parse config file, falling back to defaults", "path", path, "err", err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(cacheRootEnv); v != "" {
		c.CacheRoot = v
	}
	if v := os.Getenv(downloadConcurrencyEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Downloads.Concurrency = n
		}
	}
	if v := os.Getenv(extractConcurrencyEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Extractions.Concurrency = n
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.CacheRoot != "" {
		base.CacheRoot = override.CacheRoot
	}
	if override.Downloads.Concurrency > 0 {
		base.Downloads.Concurrency = override.Downloads.Concurrency
	}
	if override.Downloads.UserAgent != "" {
		base.Downloads.UserAgent = override.Downloads.UserAgent
	}
	if override.Downloads.MaxRetries > 0 {
		base.Downloads.MaxRetries = override.Downloads.MaxRetries
	}
	if override.Extractions.Concurrency > 0 {
		base.Extractions.Concurrency = override.Extractions.Concurrency
	}
	return base
}

func defaultConfig() Config {
	root := filepath.Join(os.TempDir(), "pkgcache")
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, ".pkgcache", "pkgs")
	}
	return Config{
		CacheRoot: root,
		Downloads: DownloadConfig{
			Concurrency: 15,
			UserAgent:   "pkgcache/1.0",
			MaxRetries:  3,
		},
		Extractions: ExtractionConfig{
			Concurrency: 4,
		},
	}
}
