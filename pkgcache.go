// Package pkgcache implements the acquisition pipeline of a local package
// manager: it turns resolved package records into verified, extracted,
// on-disk cache entries with merged metadata, reused across installs.
//
// Records enter the pipeline from one of three producers, each of which
// classifies the provenance of its fields:
//
//	rec, err := pkgcache.RecordFromURL("https://conda.anaconda.org/conda-forge/linux-64/xtensor-0.25.0-h00ab1b0_0.conda")
//	recs, err := adapter.Solve(ctx, specs) // resolver output, authoritative
//	rec, err := pkgcache.RecordFromLockfile(entry)
//
// The scheduler then populates the cache under bounded parallelism:
//
//	c, err := pkgcache.Open("/path/to/pkgs", nil)
//	dl := fetch.NewCircuitBreakerFetcher(fetch.NewFetcher())
//	s := pkgcache.NewScheduler(c, dl, extract.Tarball{}, pkgcache.Options{})
//	if err := s.Run(ctx, recs); err != nil {
//		log.Fatal(err)
//	}
//
// Cache entries are validated on every lookup; stale or corrupted entries are
// healed (removed and re-acquired) without surfacing an error.
package pkgcache

import (
	"context"
	"log/slog"

	"github.com/git-pkgs/pkgcache/extract"
	"github.com/git-pkgs/pkgcache/fetch"
	"github.com/git-pkgs/pkgcache/internal/cache"
	"github.com/git-pkgs/pkgcache/internal/config"
	"github.com/git-pkgs/pkgcache/internal/merge"
	"github.com/git-pkgs/pkgcache/internal/record"
	"github.com/git-pkgs/pkgcache/internal/scheduler"
	"github.com/git-pkgs/pkgcache/internal/solver"
)

// Re-export types from internal/record
type (
	// Record describes one package as known at a point in the pipeline.
	Record = record.Record

	// Provenance records which fields of a Record are trustworthy.
	Provenance = record.Provenance

	// FieldID identifies one mergeable field of a Record.
	FieldID = record.FieldID

	// ResolvedEntry is one package as reported by the dependency resolver.
	ResolvedEntry = record.ResolvedEntry

	// LockfileEntry is one package captured in a lockfile.
	LockfileEntry = record.LockfileEntry
)

// Re-export types from internal/merge
type (
	// Manifest is the build-time metadata embedded in a package artifact.
	Manifest = merge.Manifest

	// Document is the merged on-disk metadata record for a cached package.
	Document = merge.Document
)

// Re-export types from internal/cache and internal/scheduler
type (
	// Cache is one cache root directory.
	Cache = cache.Cache

	// Status classifies a cache entry against an expected record.
	Status = cache.Status

	// Scheduler ensures every package of a transaction has a valid cache entry.
	Scheduler = scheduler.Scheduler

	// Options configures a Scheduler.
	Options = scheduler.Options

	// Config holds the settings the acquisition pipeline needs.
	Config = config.Config
)

// Re-export resolver boundary types
type (
	// Solver is the external dependency resolver.
	Solver = solver.Solver

	// SolverAdapter re-stamps provenance on records leaving the resolver.
	SolverAdapter = solver.Adapter
)

// Provenance kinds
const (
	Uninitialized = record.Uninitialized
	Authoritative = record.Authoritative
	PartialStub   = record.PartialStub
)

// Cache entry statuses
const (
	Unchecked        = cache.Unchecked
	Valid            = cache.Valid
	InvalidStale     = cache.InvalidStale
	InvalidCorrupted = cache.InvalidCorrupted
)

// ErrUninitializedProvenance reports a record whose producer never classified
// its fields: a programming error, never retried.
var ErrUninitializedProvenance = record.ErrUninitializedProvenance

// Record producers.
var (
	RecordFromURL      = record.FromURL
	RecordFromPURL     = record.FromPURL
	RecordFromResolver = record.FromResolver
	RecordFromLockfile = record.FromLockfile
)

// Trusted returns an Authoritative provenance.
var Trusted = record.Trusted

// Stubbed returns a PartialStub provenance naming the placeholder fields.
var Stubbed = record.Stubbed

// Merge combines a package record with the artifact's build manifest into the
// on-disk metadata document.
var Merge = merge.Merge

// ReadManifest reads the build manifest from an extracted package directory.
var ReadManifest = merge.ReadManifest

// Open opens a cache rooted at dir, creating it if necessary.
func Open(dir string, logger *slog.Logger) (*Cache, error) {
	return cache.New(dir, logger)
}

// NewScheduler creates a Scheduler over the given cache and collaborators.
func NewScheduler(c *Cache, dl fetch.Downloader, ex extract.Extractor, opts Options) *Scheduler {
	return scheduler.New(c, dl, ex, opts)
}

// NewSolverAdapter wraps a resolver so its output is re-stamped with
// Authoritative provenance.
func NewSolverAdapter(s Solver) *SolverAdapter {
	return solver.NewAdapter(s)
}

// LoadConfig reads pkgcache settings from the optional YAML config file and
// environment overrides.
func LoadConfig() Config {
	return config.Load()
}

// Acquire is the one-call form: it opens (or creates) the cache at the
// configured root, builds the default downloader and extractor, and runs a
// scheduler over the records.
func Acquire(ctx context.Context, recs []*Record) error {
	cfg := config.Load()
	c, err := cache.New(cfg.CacheRoot, nil)
	if err != nil {
		return err
	}
	dl := fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(
		fetch.WithUserAgent(cfg.Downloads.UserAgent),
		fetch.WithMaxRetries(cfg.Downloads.MaxRetries),
	))
	s := scheduler.New(c, dl, extract.Tarball{}, Options{
		DownloadConcurrency: cfg.Downloads.Concurrency,
		ExtractConcurrency:  cfg.Extractions.Concurrency,
	})
	return s.Run(ctx, recs)
}
