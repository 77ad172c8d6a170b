// Package download fetches direct-download artifacts such as the Android
// command-line tools archive.
package download

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/siderolabs/go-retry/retry"
	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/logging"
)

const (
	defaultAttempts = 3
	defaultInterval = 2 * time.Second
	attemptTimeout  = 10 * time.Minute
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return "GET " + e.URL + ": " + http.StatusText(e.Code)
}

// permanent reports whether retrying cannot help.
func (e *StatusError) permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusRequestTimeout && e.Code != http.StatusTooManyRequests
}

// Fetcher downloads URLs to files.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Downloader fetches over HTTP with constant-interval retries.
type Downloader struct {
	client   *http.Client
	fs       afero.Fs
	attempts int
	interval time.Duration
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithFs sets the filesystem downloads are written to.
func WithFs(fs afero.Fs) Option {
	return func(d *Downloader) { d.fs = fs }
}

// WithAttempts sets the maximum number of attempts. Values below 1 mean 1.
func WithAttempts(n int) Option {
	return func(d *Downloader) {
		if n < 1 {
			n = 1
		}
		d.attempts = n
	}
}

// WithInterval sets the wait between attempts.
func WithInterval(iv time.Duration) Option {
	return func(d *Downloader) { d.interval = iv }
}

// New returns a Downloader writing to the OS filesystem.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:   http.DefaultClient,
		fs:       afero.NewOsFs(),
		attempts: defaultAttempts,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads url to dest. The body is written to a temporary file
// next to dest and renamed into place only when complete. Transport errors
// and 5xx responses are retried; other 4xx responses fail immediately.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) error {
	logger := logging.FromContext(ctx)

	if err := d.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(dest))
	}

	attempt := 0
	timeout := time.Duration(d.attempts) * (attemptTimeout + d.interval)
	err := retry.Constant(timeout, retry.WithUnits(d.interval)).
		RetryWithContext(ctx, func(ctx context.Context) error {
			attempt++
			err := d.fetchOnce(ctx, url, dest)
			if err == nil {
				return nil
			}

			var se *StatusError
			if errors.As(err, &se) && se.permanent() {
				return err
			}
			if attempt >= d.attempts || ctx.Err() != nil {
				return err
			}
			logger.Warn("download failed, retrying", "url", url, "attempt", attempt, "error", err)
			return retry.ExpectedError(err)
		})
	if err != nil {
		return errors.Wrapf(err, "downloading %s after %d attempts", url, attempt)
	}

	logger.Debug("downloaded", "url", url, "dest", dest)
	return nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "requesting")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, Code: resp.StatusCode}
	}

	tmp, err := afero.TempFile(d.fs, filepath.Dir(dest), ".provision-download-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := d.fs.Stat(tmpName); statErr == nil {
			_ = d.fs.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing body")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := d.fs.Chmod(tmpName, 0o644); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "setting permissions")
	}
	return errors.Wrap(d.fs.Rename(tmpName, dest), "moving download into place")
}
