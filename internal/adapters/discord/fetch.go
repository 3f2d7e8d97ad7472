package discord

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"watchtower/internal/core/version"
	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
)

// FetchOptions configures the attachment downloader
type FetchOptions struct {
	// MaxBytes caps a single read; anything longer is reported as MaxBytes+1 bytes
	MaxBytes int64

	Timeout    time.Duration
	MaxRetries int
	WaitMin    time.Duration
	WaitMax    time.Duration
}

// Fetcher implements domain.Fetcher for attachment CDN urls
type Fetcher struct {
	c    *retryablehttp.Client
	opts FetchOptions
}

// leveled routes retryablehttp logs into zerolog; retry errors are warnings
type leveled struct{ log logger.Logger }

func (l leveled) Error(msg string, kv ...any) { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveled) Warn(msg string, kv ...any)  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveled) Info(msg string, kv ...any)  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveled) Debug(msg string, kv ...any) { l.log.Debug().Fields(kv).Msg(msg) }

// NewFetcher builds a retrying downloader
func NewFetcher(o FetchOptions) *Fetcher {
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Minute
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.WaitMin <= 0 {
		o.WaitMin = 500 * time.Millisecond
	}
	if o.WaitMax <= 0 {
		o.WaitMax = 5 * time.Second
	}
	c := retryablehttp.NewClient()
	c.RetryMax = o.MaxRetries
	c.RetryWaitMin = o.WaitMin
	c.RetryWaitMax = o.WaitMax
	c.HTTPClient.Timeout = o.Timeout
	c.Logger = retryablehttp.LeveledLogger(leveled{log: *logger.Named("fetch")})
	return &Fetcher{c: c, opts: o}
}

// Fetch downloads url
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "attachment url")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.c.Do(req)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUpstream, "attachment download")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, perr.Newf(perr.ErrorCodeUpstream, "attachment download status %d", resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if f.opts.MaxBytes > 0 {
		r = io.LimitReader(resp.Body, f.opts.MaxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUpstream, "attachment read")
	}
	return b, nil
}
