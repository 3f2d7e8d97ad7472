// Package catbox uploads evidence files to the catbox.moe content host
package catbox

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"watchtower/internal/core/version"
	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
)

const (
	// DefaultURL is the public upload endpoint
	DefaultURL = "https://catbox.moe/user/api.php"

	defaultTimeout = 5 * time.Minute
)

// Options configures the Client
type Options struct {
	URL string

	// UserHash ties uploads to an account; empty uploads anonymously
	UserHash string

	Timeout time.Duration
}

// Client implements domain.ContentHost
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a Client with defaults filled in
func NewClient(o Options) *Client {
	if o.URL == "" {
		o.URL = DefaultURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("catbox"),
	}
}

// Upload posts data as a single file and returns the hosted url
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if filename == "" {
		filename = "attachment"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("reqtype", "fileupload")
	if c.opts.UserHash != "" {
		_ = mw.WriteField("userhash", c.opts.UserHash)
	}
	fw, err := mw.CreateFormFile("fileToUpload", filename)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "catbox form")
	}
	if _, err := fw.Write(data); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "catbox form")
	}
	if err := mw.Close(); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "catbox form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, &body)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeInvalidArgument, "catbox new request failed")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnavailable, "catbox do failed")
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(text, "http") {
		c.log.Error().Int("status", resp.StatusCode).Str("body", text).Str("file", filename).Msg("catbox upload failed")
		return "", perr.Newf(perr.ErrorCodeUpstream, "catbox upload failed status %d", resp.StatusCode)
	}
	c.log.Debug().Str("file", filename).Int("bytes", len(data)).Str("url", text).Msg("catbox upload ok")
	return text, nil
}
