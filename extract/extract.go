// Package extract is the archive-extraction boundary of the acquisition
// pipeline. The archive format itself is not this module's concern; Tarball
// covers the conda artifact formats so the scheduler has a working default.
package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Extractor unpacks an artifact into a destination directory.
type Extractor interface {
	Extract(ctx context.Context, archive, dest string) error
}

// ExtractionError reports a failed extraction. Extraction failures are never
// retried automatically: a corrupt archive or a full disk will not get better
// on its own.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Tarball extracts .conda, .tar.bz2 and .tar.gz artifacts. A .conda file is a
// zip envelope whose payload and metadata members are zstd-compressed
// tarballs; all members are unpacked into the same destination.
type Tarball struct{}

func (Tarball) Extract(ctx context.Context, archive, dest string) error {
	if strings.HasSuffix(archive, ".conda") {
		if err := extractConda(ctx, archive, dest); err != nil {
			return &ExtractionError{Archive: archive, Err: err}
		}
		return nil
	}

	f, err := os.Open(archive)
	if err != nil {
		return &ExtractionError{Archive: archive, Err: err}
	}
	defer func() { _ = f.Close() }()

	var reader io.Reader
	switch {
	case strings.HasSuffix(archive, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(archive, ".tar.gz"), strings.HasSuffix(archive, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return &ExtractionError{Archive: archive, Err: err}
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	default:
		return &ExtractionError{Archive: archive, Err: fmt.Errorf("unsupported archive format")}
	}

	if err := untar(ctx, reader, dest); err != nil {
		return &ExtractionError{Archive: archive, Err: err}
	}
	return nil
}

// extractConda unpacks every .tar.zst member of the zip envelope. Other
// members (format marker, signatures) carry no files and are skipped.
func extractConda(ctx context.Context, archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer func() { _ = zr.Close() }()

	for _, member := range zr.File {
		if !strings.HasSuffix(member.Name, ".tar.zst") {
			continue
		}
		if err := extractCondaMember(ctx, member, dest); err != nil {
			return fmt.Errorf("member %s: %w", member.Name, err)
		}
	}
	return nil
}

func extractCondaMember(ctx context.Context, member *zip.File, dest string) error {
	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	dec, err := zstd.NewReader(rc)
	if err != nil {
		return err
	}
	defer dec.Close()

	return untar(ctx, dec, dest)
}

func untar(ctx context.Context, r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			_, err = io.Copy(out, tr)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// hardlinks, devices etc. do not occur in package payloads
		}
	}
}

// securePath rejects entries that would escape the destination directory.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}
