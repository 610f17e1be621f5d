package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/govdash/pkg/buildinfo"
	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/observability"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Client issues JSON requests against a base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers http.Header
	backoff Backoff
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithRetry replaces the retry policy.
func WithRetry(b Backoff) ClientOption {
	return func(c *Client) { c.backoff = b }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "invalid base url %q", baseURL)
	}
	c := &Client{
		base:    base,
		http:    &http.Client{Timeout: 10 * time.Second},
		headers: http.Header{},
		backoff: DefaultBackoff,
	}
	c.headers.Set("User-Agent", buildinfo.UserAgent())
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetJSON issues a GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON encodes body, issues a POST and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Do issues a request with retries. body, when non-nil, is sent as JSON;
// out, when non-nil, receives the decoded response.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	target := c.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	return c.backoff.Do(ctx, func() error {
		return c.once(ctx, method, target, payload, out)
	})
}

func (c *Client) once(ctx context.Context, method string, target *url.URL, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return err
	}
	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, target.Host, target.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, target.Host, target.Path, err)
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrCodeTimeout, err, "%s %s", method, target.Path)
		}
		return Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, target.Path))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, target.Host, target.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return errors.Wrap(errors.ErrCodeNotFound, serr, "%s %s", method, target.Path)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return Retryable(errors.Wrap(errors.ErrCodeSourceUnavailable, serr, "%s %s", method, target.Path))
		case resp.StatusCode >= 400:
			return errors.Wrap(errors.ErrCodeInvalidInput, serr, "%s %s", method, target.Path)
		}
		return errors.Wrap(errors.ErrCodeSourceUnavailable, serr, "%s %s", method, target.Path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s %s", method, target.Path)
	}
	return nil
}
