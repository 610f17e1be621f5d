package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/govdash/pkg/errors"
)

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/base/api/agents" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "20" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if r.Header.Get("apikey") != "secret" {
			t.Errorf("apikey header = %q", r.Header.Get("apikey"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"a","reputation":12.5}]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/base/", WithHeader("apikey", "secret"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	var rows []map[string]any
	if err := c.GetJSON(context.Background(), "/api/agents", url.Values{"limit": {"20"}}, &rows); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "a" {
		t.Fatalf("rows = %v", rows)
	}
	if n, ok := rows[0]["reputation"].(json.Number); !ok || n.String() != "12.5" {
		t.Errorf("reputation = %#v, want json.Number", rows[0]["reputation"])
	}
}

func TestClientPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("method %s content-type %s", r.Method, r.Header.Get("Content-Type"))
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["voteType"]})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	var out map[string]string
	if err := c.PostJSON(context.Background(), "/api/vote", map[string]string{"voteType": "for"}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out["echo"] != "for" {
		t.Errorf("echo = %q", out["echo"])
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, WithRetry(Backoff{Attempts: 3, Delay: time.Millisecond}))
	if err := c.GetJSON(context.Background(), "/x", nil, &map[string]any{}); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClientErrorCodes(t *testing.T) {
	tests := []struct {
		status int
		code   errors.Code
		calls  int32
	}{
		{http.StatusNotFound, errors.ErrCodeNotFound, 1},
		{http.StatusBadRequest, errors.ErrCodeInvalidInput, 1},
		{http.StatusInternalServerError, errors.ErrCodeSourceUnavailable, 2},
	}
	for _, tt := range tests {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, `{"error":"nope"}`, tt.status)
		}))
		c, _ := NewClient(srv.URL, WithRetry(Backoff{Attempts: 2, Delay: time.Millisecond}))
		err := c.GetJSON(context.Background(), "/x", nil, nil)
		srv.Close()

		if !errors.Is(err, tt.code) {
			t.Errorf("status %d: err = %v, want code %s", tt.status, err, tt.code)
		}
		if got := calls.Load(); got != tt.calls {
			t.Errorf("status %d: calls = %d, want %d", tt.status, got, tt.calls)
		}
	}
}

func TestClientBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	err := c.GetJSON(context.Background(), "/", nil, &map[string]any{})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:3001", "://x"} {
		if _, err := NewClient(u); err == nil {
			t.Errorf("NewClient(%q) succeeded", u)
		}
	}
}

func TestBackoffDo(t *testing.T) {
	ctx := context.Background()
	b := Backoff{Attempts: 3, Delay: time.Millisecond}

	calls := 0
	err := b.Do(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(errors.New(errors.ErrCodeNetwork, "flaky"))
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("Do = %v after %d calls, want success after 2", err, calls)
	}

	calls = 0
	permanent := errors.New(errors.ErrCodeInvalidInput, "bad")
	if err := b.Do(ctx, func() error { calls++; return permanent }); err != permanent || calls != 1 {
		t.Errorf("non-retryable: err %v, calls %d", err, calls)
	}

	calls = 0
	down := errors.New(errors.ErrCodeNetwork, "down")
	err = b.Do(ctx, func() error { calls++; return Retryable(down) })
	if err != down || calls != 3 {
		t.Errorf("exhausted: err %v, calls %d", err, calls)
	}
	if IsRetryable(err) {
		t.Error("exhausted error still marked retryable")
	}

	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
}

func TestBackoffDoContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Backoff{Attempts: 3, Delay: time.Hour}.Do(ctx, func() error {
		return Retryable(errors.New(errors.ErrCodeNetwork, "down"))
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
