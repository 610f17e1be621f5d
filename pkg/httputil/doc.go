// Package httputil provides the JSON-over-HTTP client used by the remote
// data sources.
//
// # Overview
//
//   - [Client]: base URL, default headers, JSON encoding and decoding
//   - [Backoff]: retry with exponential backoff for transient failures
//
// Transient failures are network errors, 5xx responses and 429 rate
// limits. They are wrapped in [RetryableError] so [Backoff.Do] attempts them
// again; every other failure is returned immediately.
//
//	c, err := httputil.NewClient("http://localhost:3001",
//	    httputil.WithHeader("apikey", key),
//	    httputil.WithRetry(httputil.Backoff{Attempts: 3, Delay: 500 * time.Millisecond}),
//	)
//	var rows []map[string]any
//	err = c.GetJSON(ctx, "/api/agents", nil, &rows)
//
// Requests and responses are reported to the observability HTTP hooks.
package httputil
