// Package scoring is the HTTP client for the external points service
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"watchtower/internal/core/version"
	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
	"watchtower/internal/platform/retry"
	"watchtower/internal/platform/validate"
	"watchtower/internal/services/watchtower/domain"
)

const (
	// PlaceholderToken is the shipped default that means scoring is not configured
	PlaceholderToken = "CHANGE_ME"

	defaultTimeout   = 10 * time.Second
	defaultRetryBase = time.Second
	attempts         = 3
)

// Options configures the Client
type Options struct {
	URL       string
	Token     string
	Timeout   time.Duration
	RetryBase time.Duration
}

// Client implements domain.Scorer
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	sleep func(context.Context, time.Duration) error
}

// NewClient creates a Client with defaults filled in
func NewClient(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	o.Token = strings.TrimSpace(o.Token)
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("scoring"),
		sleep: retry.SleepContext,
	}
}

// Configured reports whether a real credential is set
func (c *Client) Configured() bool {
	return c.opts.Token != "" && c.opts.Token != PlaceholderToken
}

// response is the optional body of a successful call
type response struct {
	TotalPoints    any `json:"total_points"`
	Action         any `json:"action"`
	PreviousPoints any `json:"previous_points"`
}

// statusError carries a non 2xx status through the retry loop
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string { return "scoring status " + http.StatusText(e.code) + ": " + e.body }

func retryable(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		// transport failures share the attempt budget
		return true
	}
	switch se.code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Apply posts one penalty. It never returns an error; the outcome is folded
// into the result
func (c *Client) Apply(ctx context.Context, req domain.ScoreRequest) domain.ScoreResult {
	if !c.Configured() {
		c.log.Warn().Msg("points api token missing; skipping points application")
		return domain.ScoreResult{Status: domain.ScoreSkipped, Reason: "credential not configured"}
	}
	if err := validate.Struct(req); err != nil {
		return domain.ScoreResult{Status: domain.ScoreFailed, Reason: "invalid request", Err: err}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return domain.ScoreResult{Status: domain.ScoreFailed, Reason: "encode", Err: perr.Wrap(err, perr.ErrorCodeUnknown, "encode score request")}
	}

	var (
		res  domain.ScoreResult
		last int
	)
	n, err := retry.Do(ctx, retry.Policy{
		Attempts:  attempts,
		Delay:     retry.Exponential(c.opts.RetryBase, 0),
		Retryable: retryable,
		Sleep:     c.sleep,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			c.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("points api retrying")
		},
	}, func(ctx context.Context, _ int) error {
		code, out, err := c.post(ctx, body)
		last = code
		if err != nil {
			return err
		}
		res.TotalPoints, res.Action, res.PreviousPoints = out.TotalPoints, out.Action, out.PreviousPoints
		return nil
	})

	res.Attempts = n
	res.StatusCode = last
	if err != nil {
		res.Status = domain.ScoreFailed
		res.Reason = "points api error"
		res.Err = err
		return res
	}
	res.Status = domain.ScoreApplied
	return res
}

func (c *Client) post(ctx context.Context, body []byte) (int, response, error) {
	var out response
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(body))
	if err != nil {
		return 0, out, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "scoring new request failed")
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, out, perr.Wrap(err, perr.ErrorCodeUnavailable, "scoring do failed")
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error().Int("status", resp.StatusCode).Str("body", string(raw)).Msg("points api error")
		return resp.StatusCode, out, &statusError{code: resp.StatusCode, body: string(raw)}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Warn().Int("status", resp.StatusCode).Msg("points api returned non json on success")
		out = response{}
	}
	return resp.StatusCode, out, nil
}
