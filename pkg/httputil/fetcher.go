package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/observability"
)

const (
	// DefaultTimeout is the per-request wall clock timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultAttempts is the default retry budget per request.
	DefaultAttempts = 3

	// maxBodySize caps response bodies to keep runaway doc pages bounded.
	maxBodySize = 8 << 20 // 8 MiB
)

// ErrRateLimitExceeded is returned when a request's bucket is drained and the
// caller asked not to wait for a token.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Request describes a single outbound fetch.
type Request struct {
	URL      string
	Method   string // defaults to GET
	Header   http.Header
	Body     []byte
	Category HostCategory  // defaults to CategoryGeneric
	Timeout  time.Duration // defaults to DefaultTimeout
	Attempts int           // defaults to DefaultAttempts
	NoWait   bool          // fail with ErrRateLimitExceeded instead of waiting
	Rendered bool          // fetch through the headless renderer if available
}

// Response is the result of a fetch.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RenderedFetcher fetches a URL through a headless browser and returns the
// post-render HTML. Implementations are optional; the default Fetcher has
// none and rejects Rendered requests.
type RenderedFetcher interface {
	FetchRendered(ctx context.Context, url string) ([]byte, error)
}

// Fetcher is the crawler's rate-limited, retried HTTP client.
// All methods are safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	limiter   *Limiter
	renderer  RenderedFetcher
	userAgent string
}

// NewFetcher creates a Fetcher with the given limits and User-Agent.
// Pass nil renderer to disable browser-mode fetches.
func NewFetcher(limits RateLimits, userAgent string, renderer RenderedFetcher) *Fetcher {
	return &Fetcher{
		// Timeouts are applied per request via context; the client itself
		// must not cut off slow-but-progressing doc downloads.
		client:    &http.Client{},
		limiter:   NewLimiter(limits),
		renderer:  renderer,
		userAgent: userAgent,
	}
}

// Fetch performs the request with rate limiting, timeout, and retry applied.
//
// Retries cover transport errors, 429, and 5xx responses. 4xx responses
// other than 408, 425, and 429 fail immediately. The returned error unwraps
// to a [StatusError] for HTTP-level failures, context.DeadlineExceeded for
// timeouts, or [ErrRateLimitExceeded] when NoWait was set and the host
// bucket was drained.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	if req.URL == "" {
		return nil, crawlerrors.New(crawlerrors.ErrCodeInvalidConfig, "fetch: empty URL")
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Category == "" {
		req.Category = CategoryGeneric
	}
	if req.Timeout <= 0 {
		req.Timeout = DefaultTimeout
	}
	if req.Attempts <= 0 {
		req.Attempts = DefaultAttempts
	}

	host, err := hostOf(req.URL)
	if err != nil {
		return nil, crawlerrors.Wrap(crawlerrors.ErrCodeInvalidConfig, err, "fetch: bad URL %s", req.URL)
	}

	if req.NoWait {
		if !f.limiter.Allow(req.Category, host) {
			return nil, ErrRateLimitExceeded
		}
	} else if err := f.limiter.Wait(ctx, req.Category, host); err != nil {
		return nil, err
	}

	if req.Rendered {
		return f.fetchRendered(ctx, req)
	}

	var resp *Response
	err = Retry(ctx, req.Attempts, time.Second, func() error {
		r, err := f.do(ctx, req, host)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *Fetcher) do(ctx context.Context, req Request, host string) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	observability.HTTP().OnRequest(ctx, req.Method, host, httpReq.URL.Path)

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, host, httpReq.URL.Path, err)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// Per-request timeout, not caller cancellation: retryable.
			return nil, Retryable(crawlerrors.Wrap(crawlerrors.ErrCodeTimeout, err, "fetch %s timed out", req.URL))
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Retryable(crawlerrors.Wrap(crawlerrors.ErrCodeNetwork, err, "fetch %s failed", req.URL))
	}
	defer httpResp.Body.Close()

	observability.HTTP().OnResponse(ctx, req.Method, host, httpReq.URL.Path, httpResp.StatusCode, time.Since(start))

	if err := checkStatus(httpResp, req.URL); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, Retryable(crawlerrors.Wrap(crawlerrors.ErrCodeNetwork, err, "read body of %s", req.URL))
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func (f *Fetcher) fetchRendered(ctx context.Context, req Request) (*Response, error) {
	if f.renderer == nil {
		return nil, crawlerrors.New(crawlerrors.ErrCodeUnsupported, "no headless renderer configured")
	}
	reqCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	html, err := f.renderer.FetchRendered(reqCtx, req.URL)
	if err != nil {
		return nil, crawlerrors.Wrap(crawlerrors.ErrCodeNetwork, err, "rendered fetch %s failed", req.URL)
	}
	return &Response{StatusCode: http.StatusOK, Body: html}, nil
}

// checkStatus converts non-2xx responses to errors, marking retryable ones.
func checkStatus(resp *http.Response, url string) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		retryAfter := 0
		if s := resp.Header.Get("Retry-After"); s != "" {
			retryAfter, _ = strconv.Atoi(s)
		}
		return Retryable(crawlerrors.Wrap(crawlerrors.ErrCodeRateLimited,
			&crawlerrors.RateLimitedError{RetryAfter: retryAfter},
			"rate limited by %s", url))
	case code == http.StatusRequestTimeout, code == http.StatusTooEarly, code >= 500:
		return Retryable(&StatusError{Code: code, URL: url})
	default:
		return &StatusError{Code: code, URL: url}
	}
}

func hostOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	return u.Hostname(), nil
}
