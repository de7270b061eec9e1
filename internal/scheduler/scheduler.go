// Package scheduler orchestrates the acquisition of a transaction's packages:
// it decides which packages need downloading or extracting, runs that work
// under bounded parallelism, and finalizes each cache entry through the merge
// engine.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/git-pkgs/pkgcache/extract"
	"github.com/git-pkgs/pkgcache/fetch"
	"github.com/git-pkgs/pkgcache/internal/cache"
	"github.com/git-pkgs/pkgcache/internal/merge"
	"github.com/git-pkgs/pkgcache/internal/record"
)

const (
	defaultDownloadConcurrency = 15
	defaultExtractConcurrency  = 4
)

// Options configures a Scheduler.
type Options struct {
	// DownloadConcurrency bounds in-flight downloads. Downloads are
	// I/O-bound and safe to fan out widely.
	DownloadConcurrency int

	// ExtractConcurrency bounds in-flight extractions independently of
	// downloads; extraction is CPU/disk-bound and the bound is global.
	ExtractConcurrency int

	Logger *slog.Logger
}

// Scheduler ensures every package of a transaction has a valid cache entry.
type Scheduler struct {
	cache      *cache.Cache
	downloader fetch.Downloader
	extractor  extract.Extractor
	downloads  *semaphore.Weighted
	extracts   *semaphore.Weighted
	logger     *slog.Logger
}

// New creates a Scheduler over the given cache and collaborators.
func New(c *cache.Cache, dl fetch.Downloader, ex extract.Extractor, opts Options) *Scheduler {
	if opts.DownloadConcurrency <= 0 {
		opts.DownloadConcurrency = defaultDownloadConcurrency
	}
	if opts.ExtractConcurrency <= 0 {
		opts.ExtractConcurrency = defaultExtractConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		cache:      c,
		downloader: dl,
		extractor:  ex,
		downloads:  semaphore.NewWeighted(int64(opts.DownloadConcurrency)),
		extracts:   semaphore.NewWeighted(int64(opts.ExtractConcurrency)),
		logger:     opts.Logger,
	}
}

type action int

const (
	actionNone action = iota
	actionExtract
	actionDownloadExtract
)

// Run acquires every record's package. It returns when all scheduled work for
// the transaction has finished, or on the first fatal failure, in which case
// remaining work is cancelled. Entries finalized before the failure stay
// valid: a retried transaction skips them.
func (s *Scheduler) Run(ctx context.Context, recs []*record.Record) error {
	// Producer contract: provenance must be classified before any work is
	// scheduled.
	for _, rec := range recs {
		if !rec.Provenance.Initialized() {
			return fmt.Errorf("scheduling %s: %w", rec.EntryKey(), record.ErrUninitializedProvenance)
		}
	}

	// Classification is serial and completes before any work is spawned, so
	// a classification failure never leaves goroutines writing to the cache
	// behind a returned error. At most one in-flight extraction per package
	// per transaction.
	type unit struct {
		rec  *record.Record
		todo action
	}
	seen := make(map[string]bool, len(recs))
	var work []unit
	for _, rec := range recs {
		if seen[rec.EntryKey()] {
			continue
		}
		seen[rec.EntryKey()] = true

		todo, err := s.classify(rec)
		if err != nil {
			return err
		}
		if todo == actionNone {
			s.logger.Debug("cache entry already valid", "package", rec.EntryKey())
			continue
		}
		work = append(work, unit{rec: rec, todo: todo})
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, u := range work {
		u := u
		g.Go(func() error {
			return s.acquire(ctx, u.rec, u.todo)
		})
	}
	return g.Wait()
}

// classify decides what work a record needs, healing invalid cache state as a
// side effect.
func (s *Scheduler) classify(rec *record.Record) (action, error) {
	status := s.cache.Validate(rec)
	if status == cache.Valid {
		return actionNone, nil
	}
	// Healing: invalid entries are removed outright and re-acquired.
	if _, err := os.Stat(s.cache.EntryDir(rec)); err == nil {
		if err := s.cache.Invalidate(rec, status); err != nil {
			return actionNone, err
		}
	}

	if s.cache.ValidateArtifact(rec) == cache.Valid {
		return actionExtract, nil
	}
	if _, err := os.Stat(s.cache.ArtifactPath(rec)); err == nil {
		if err := s.cache.RemoveArtifact(rec); err != nil {
			return actionNone, err
		}
	}
	return actionDownloadExtract, nil
}

func (s *Scheduler) acquire(ctx context.Context, rec *record.Record, todo action) error {
	if todo == actionDownloadExtract {
		if err := s.download(ctx, rec); err != nil {
			return err
		}
	}

	if err := s.extracts.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.extracts.Release(1)

	return s.extract(ctx, rec)
}

func (s *Scheduler) download(ctx context.Context, rec *record.Record) error {
	if err := s.downloads.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.downloads.Release(1)

	s.logger.Debug("downloading", "package", rec.EntryKey(), "url", rec.URL)
	if err := s.downloader.Download(ctx, requestFor(rec, s.cache.ArtifactPath(rec))); err != nil {
		return fmt.Errorf("downloading %s: %w", rec.EntryKey(), err)
	}

	// Integrity must hold before extraction starts. The fetcher already
	// verifies sha256 in-stream; this covers md5-only records.
	if s.cache.ValidateArtifact(rec) != cache.Valid {
		return fmt.Errorf("downloaded artifact for %s failed validation: %w",
			rec.EntryKey(), fetch.ErrDigestMismatch)
	}
	return nil
}

// extract transactionally replaces the cache entry: the target directory is
// fully removed first, and the metadata document is written as the final
// step, so its presence marks a finalized entry.
func (s *Scheduler) extract(ctx context.Context, rec *record.Record) error {
	dest := s.cache.EntryDir(rec)
	artifact := s.cache.ArtifactPath(rec)

	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clearing cache entry %s: %w", dest, err)
	}

	s.logger.Debug("extracting", "package", rec.EntryKey(), "dest", dest)
	if err := s.extractor.Extract(ctx, artifact, dest); err != nil {
		return err
	}

	manifest, err := merge.ReadManifest(dest)
	if err != nil {
		return fmt.Errorf("finalizing %s: %w", rec.EntryKey(), err)
	}

	doc, err := merge.Merge(rec, manifest, artifact)
	if err != nil {
		return err
	}
	if err := doc.Write(dest); err != nil {
		return fmt.Errorf("finalizing %s: %w", rec.EntryKey(), err)
	}
	return nil
}

// requestFor builds the download request for a record. Only sha256 has a
// streaming verifier; md5-only records are verified after the download.
func requestFor(rec *record.Record, dest string) fetch.Request {
	req := fetch.Request{
		Name:         rec.EntryKey(),
		URL:          rec.URL,
		Destination:  dest,
		ExpectedSize: rec.Size,
	}
	if rec.SHA256 != "" {
		req.ExpectedDigest = digest.NewDigestFromEncoded(digest.SHA256, rec.SHA256)
	}
	return req
}
