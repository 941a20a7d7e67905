package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetJSONSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"left-pad"}`))
	}))
	defer server.Close()

	var got struct {
		Name string `json:"name"`
	}
	c := NewClient()
	if err := c.GetJSON(context.Background(), server.URL, &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got.Name != "left-pad" {
		t.Errorf("name = %q, want %q", got.Name, "left-pad")
	}
}

func TestGetJSONDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	var got map[string]any
	c := NewClient()
	err := c.GetJSON(context.Background(), server.URL, &got)

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("GetJSON = %v, want *DecodeError", err)
	}
}

func TestGetBodyNotFoundNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(WithBaseDelay(time.Millisecond))
	_, err := c.GetBody(context.Background(), server.URL)

	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("GetBody = %v, want *HTTPError", err)
	}
	if !httpErr.IsNotFound() {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestGetBodyServerErrorRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseDelay(time.Millisecond))
	if _, err := c.GetBody(context.Background(), server.URL); err != nil {
		t.Fatalf("GetBody failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGetBodyRateLimitRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseDelay(time.Millisecond))
	if _, err := c.GetBody(context.Background(), server.URL); err != nil {
		t.Fatalf("GetBody failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestGetBodyMaxRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(WithMaxRetries(2), WithBaseDelay(time.Millisecond))
	_, err := c.GetBody(context.Background(), server.URL)
	if err == nil {
		t.Fatal("GetBody succeeded, want error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
}

func TestGetBodyContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(WithBaseDelay(time.Millisecond))
	if _, err := c.GetBody(ctx, server.URL); err == nil {
		t.Error("GetBody succeeded with cancelled context, want error")
	}
}

func TestDefaultClientUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := DefaultClient()
	_, _ = c.GetBody(context.Background(), server.URL)

	if gotUA != "freshness" {
		t.Errorf("default User-Agent = %q, want %q", gotUA, "freshness")
	}
}

func TestClientWithUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := DefaultClient().WithUserAgent("custom-agent/2.0")
	_, _ = c.GetBody(context.Background(), server.URL)

	if gotUA != "custom-agent/2.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "custom-agent/2.0")
	}
}

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %q, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient()
	status, err := c.Head(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}

type tickingLimiter struct {
	waits int
}

func (l *tickingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return nil
}

func TestClientRateLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	limiter := &tickingLimiter{}
	c := NewClient(WithRateLimiter(limiter))
	_, _ = c.GetBody(context.Background(), server.URL)
	_, _ = c.GetBody(context.Background(), server.URL)

	if limiter.waits != 2 {
		t.Errorf("limiter waits = %d, want 2", limiter.waits)
	}
}
