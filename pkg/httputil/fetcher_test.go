package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
)

func testFetcher() *Fetcher {
	// Generous limits so tests don't stall on the bucket.
	return NewFetcher(RateLimits{RegistryQPS: 1000, RepoAPIQPS: 1000, DocSiteQPS: 1000, GenericQPS: 1000},
		"mcpcrawl/test", nil)
}

func TestFetchOK(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	resp, err := testFetcher().Fetch(context.Background(), Request{URL: server.URL, Category: CategoryRegistry})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("body = %q", resp.Body)
	}
	if gotUA != "mcpcrawl/test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	resp, err := testFetcher().Fetch(context.Background(), Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("body = %q", resp.Body)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testFetcher().Fetch(context.Background(), Request{URL: server.URL})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("want StatusError 404, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 404)", calls.Load())
	}
}

func TestFetchRetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	resp, err := testFetcher().Fetch(context.Background(), Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestFetchNoWaitFailsFast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewFetcher(RateLimits{GenericQPS: 0.001}, "mcpcrawl/test", nil)

	// First request consumes the only token.
	if _, err := f.Fetch(context.Background(), Request{URL: server.URL}); err != nil {
		t.Fatalf("first Fetch error: %v", err)
	}
	_, err := f.Fetch(context.Background(), Request{URL: server.URL, NoWait: true})
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("want ErrRateLimitExceeded, got %v", err)
	}
}

func TestFetchRenderedWithoutRenderer(t *testing.T) {
	_, err := testFetcher().Fetch(context.Background(), Request{URL: "https://example.com", Rendered: true})
	if err == nil {
		t.Fatal("want error without a configured renderer")
	}
}

func TestFetchCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := testFetcher().Fetch(ctx, Request{URL: server.URL})
	if err == nil {
		t.Fatal("want error after cancellation")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancellation should abort the in-flight request promptly")
	}
}

func TestRetryOnlyRetryableErrors(t *testing.T) {
	var calls int
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil || calls != 1 {
		t.Errorf("permanent error: calls = %d, err = %v", calls, err)
	}

	calls = 0
	err = Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return Retryable(errors.New("transient"))
	})
	if err == nil || calls != 3 {
		t.Errorf("transient error: calls = %d, err = %v", calls, err)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var calls int
	start := time.Now()
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		if calls == 1 {
			return Retryable(crawlerrors.Wrap(crawlerrors.ErrCodeRateLimited,
				&crawlerrors.RateLimitedError{RetryAfter: 1}, "rate limited"))
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("calls = %d, err = %v", calls, err)
	}
	// The 1ms backoff must have been stretched to the server's mandate.
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("waited %s, want at least the Retry-After second", elapsed)
	}
}

func TestLimiterRespectsQPS(t *testing.T) {
	l := NewLimiter(RateLimits{RegistryQPS: 5})

	// Count how many tokens are granted immediately in one window.
	granted := 0
	for range 20 {
		if l.Allow(CategoryRegistry, "registry.npmjs.org") {
			granted++
		}
	}
	// Burst of 1: only the first immediate request may pass.
	if granted > 1 {
		t.Errorf("granted = %d immediate tokens, want at most 1", granted)
	}
}

func TestLimiterSeparatesHosts(t *testing.T) {
	l := NewLimiter(RateLimits{RegistryQPS: 1})

	if !l.Allow(CategoryRegistry, "registry.npmjs.org") {
		t.Error("first request to npm should pass")
	}
	if !l.Allow(CategoryRegistry, "pypi.org") {
		t.Error("first request to pypi should pass despite npm's drained bucket")
	}
}
