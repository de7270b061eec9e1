// Package fetch downloads package artifacts to local files with retry,
// circuit breaking and content-digest verification.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/rs/dnscache"
)

var (
	ErrNotFound       = errors.New("artifact not found")
	ErrRateLimited    = errors.New("rate limited by upstream")
	ErrUpstreamDown   = errors.New("upstream registry unavailable")
	ErrDigestMismatch = errors.New("artifact digest mismatch")
	ErrSizeMismatch   = errors.New("artifact size mismatch")
)

// Request describes one artifact download.
type Request struct {
	Name        string // package name, for error context
	URL         string
	Destination string // final path of the downloaded file

	// ExpectedSize, when positive, is enforced after the body is consumed.
	ExpectedSize int64

	// ExpectedDigest, when set, is verified while streaming. Only digest
	// algorithms with a registered verifier are usable here (sha256).
	ExpectedDigest digest.Digest
}

// Downloader downloads artifacts described by Requests.
type Downloader interface {
	Download(ctx context.Context, req Request) error
}

// Fetcher downloads artifacts from upstream channels.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	authFn     func(url string) (headerName, headerValue string)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets the maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// WithAuthFunc sets a function that returns auth headers for a given URL.
// Return empty strings to skip authentication for that URL.
func WithAuthFunc(fn func(url string) (headerName, headerValue string)) Option {
	return func(f *Fetcher) {
		f.authFn = fn
	}
}

// NewFetcher creates a new Fetcher with the given options.
func NewFetcher(opts ...Option) *Fetcher {
	// DNS cache with 5 minute refresh interval
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	f := &Fetcher{
		client: &http.Client{
			Timeout: 5 * time.Minute, // Artifacts can be large
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  "pkgcache/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Download fetches the artifact to req.Destination. The file is written to a
// temporary sibling and renamed into place only after the body is fully
// consumed and verified, so a half-written download is never observable at
// the final path.
//
// Rate-limit and upstream errors are retried with exponential backoff;
// ErrNotFound and verification failures are terminal.
func (f *Fetcher) Download(ctx context.Context, req Request) error {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with 10% jitter to prevent thundering herd
			delay := f.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(float64(delay) * (rand.Float64() * 0.1))
			delay += jitter

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := f.doDownload(ctx, req)
		if err == nil {
			return nil
		}

		lastErr = err

		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamDown) {
			continue
		}

		// Not found, verification failures and local I/O errors are terminal.
		return err
	}

	return lastErr
}

func (f *Fetcher) doDownload(ctx context.Context, req Request) error {
	body, err := f.open(ctx, req.URL)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return fmt.Errorf("creating download dir: %w", err)
	}

	tmp := req.Destination + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	reader := io.Reader(body)
	var verifier digest.Verifier
	if req.ExpectedDigest != "" {
		verifier = req.ExpectedDigest.Verifier()
		reader = io.TeeReader(reader, verifier)
	}

	written, err := io.Copy(out, reader)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("downloading %s: %w", req.Name, err)
	}

	if req.ExpectedSize > 0 && written != req.ExpectedSize {
		_ = os.Remove(tmp)
		return fmt.Errorf("downloading %s: got %d bytes, want %d: %w",
			req.Name, written, req.ExpectedSize, ErrSizeMismatch)
	}
	if verifier != nil && !verifier.Verified() {
		_ = os.Remove(tmp)
		return fmt.Errorf("downloading %s: %w", req.Name, ErrDigestMismatch)
	}

	if err := os.Rename(tmp, req.Destination); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalizing %s: %w", req.Destination, err)
	}
	return nil
}

// open returns the artifact byte stream for a URL. file:// URLs read the
// local filesystem; everything else goes through HTTP.
func (f *Fetcher) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if path, ok := localPath(rawURL); ok {
		src, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return src, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	if f.authFn != nil {
		if name, value := f.authFn(rawURL); name != "" && value != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching artifact: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil

	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, ErrNotFound

	case resp.StatusCode == http.StatusTooManyRequests:
		_ = resp.Body.Close()
		return nil, ErrRateLimited

	case resp.StatusCode >= 500:
		_ = resp.Body.Close()
		return nil, ErrUpstreamDown

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// Head checks whether an artifact exists upstream and returns its size
// without downloading. Size is -1 when the upstream does not report it.
func (f *Fetcher) Head(ctx context.Context, url string) (size int64, err error) {
	if path, ok := localPath(url); ok {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return 0, ErrNotFound
			}
			return 0, err
		}
		return info.Size(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	if f.authFn != nil {
		if name, value := f.authFn(url); name != "" && value != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("head request: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	size = -1
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			size = n
		}
	}

	return size, nil
}

func localPath(rawURL string) (string, bool) {
	const prefix = "file://"
	if len(rawURL) > len(prefix) && rawURL[:len(prefix)] == prefix {
		return rawURL[len(prefix):], true
	}
	return "", false
}
