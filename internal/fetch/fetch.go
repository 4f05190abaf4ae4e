package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nao1215/webarchive/internal/model"
)

// Defaults for fetcher tuning knobs.
const (
	// DefaultMaxAttempts is how many times a retryable failure is tried
	// before it becomes terminal.
	DefaultMaxAttempts = 3

	// DefaultTimeout is the first attempt's request timeout. Later
	// attempts get progressively more headroom.
	DefaultTimeout = 10 * time.Second

	// DefaultBackoffBase is the unit for exponential backoff between
	// attempts: base, then 2x base.
	DefaultBackoffBase = 1 * time.Second

	// DefaultBackoffCap bounds any single backoff or Retry-After sleep.
	// A server asking us to come back in an hour gets a bounded wait
	// instead; the page will fail and be recorded, not stall the crawl.
	DefaultBackoffCap = 30 * time.Second

	// DefaultMaxBodySize bounds how many response bytes are kept.
	DefaultMaxBodySize = 10 << 20 // 10MB

	// maxRedirects bounds redirect chains. Matches net/http's own
	// default so behavior is unsurprising.
	maxRedirects = 10
)

// Fetcher retrieves URLs over HTTP with retry and backoff. It is safe
// for concurrent use; each Fetch builds its own redirect-capturing
// client around the shared transport.
type Fetcher struct {
	transport   http.RoundTripper
	userAgent   string
	headers     map[string]string
	maxAttempts int
	timeout     time.Duration
	backoffBase time.Duration
	backoffCap  time.Duration
	maxBodySize int64
}

// Result is a successful fetch.
type Result struct {
	// RequestedURL is the URL the fetch was asked for.
	RequestedURL string

	// FinalURL is the URL that produced the body, after redirects.
	FinalURL string

	// StatusCode is the final response status.
	StatusCode int

	// Header is the final response header.
	Header http.Header

	// Body is the response body, truncated at the configured limit.
	Body []byte

	// RedirectChain lists the hops taken to reach FinalURL, in order.
	// Empty when the response came directly.
	RedirectChain []model.RedirectHop

	// Attempts is how many attempts this fetch took.
	Attempts int

	// FetchedAt is when the final response arrived.
	FetchedAt time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithHeaders sets extra headers sent on every request, for sites that
// need custom authentication or content negotiation.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) { f.headers = headers }
}

// WithTimeout sets the first attempt's request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithBackoff sets the exponential backoff unit and cap. Tests use
// millisecond units to keep retry paths fast.
func WithBackoff(base, cap time.Duration) Option {
	return func(f *Fetcher) {
		f.backoffBase = base
		f.backoffCap = cap
	}
}

// WithMaxBodySize bounds how many response bytes are kept.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) { f.maxBodySize = n }
}

// NewFetcher creates a Fetcher over the given transport. A nil
// transport uses http.DefaultTransport.
func NewFetcher(transport http.RoundTripper, opts ...Option) *Fetcher {
	f := &Fetcher{
		transport:   transport,
		userAgent:   "webarchive",
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultTimeout,
		backoffBase: DefaultBackoffBase,
		backoffCap:  DefaultBackoffCap,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.transport == nil {
		f.transport = http.DefaultTransport
	}
	return f
}

// Fetch retrieves a URL, retrying transient failures with exponential
// backoff. On success it returns the final response with its redirect
// chain; on terminal failure it returns a *Error classifying the cause.
//
// Retry policy: timeouts, connection errors, 5xx, and 429 are retried
// up to the attempt limit with escalating per-attempt timeouts. Other
// 4xx and certificate errors fail immediately; the content will not
// appear on a second try.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr *Error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		res, ferr := f.attempt(ctx, rawURL, attempt)
		if ferr == nil {
			res.Attempts = attempt
			return res, nil
		}
		ferr.Attempts = attempt
		lastErr = ferr

		if !retryable(ferr.Kind) && ferr.StatusCode != http.StatusTooManyRequests {
			return nil, ferr
		}
		if attempt == f.maxAttempts {
			return nil, ferr
		}
		if err := f.sleep(ctx, f.backoffFor(attempt, ferr.retryAfter)); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// attempt performs a single fetch attempt with its escalated timeout.
func (f *Fetcher) attempt(ctx context.Context, rawURL string, attempt int) (*Result, *Error) {
	// Later attempts get 25% more headroom each, in case the first
	// deadline was simply too tight for a slow origin.
	timeout := f.timeout + f.timeout*time.Duration(attempt-1)/4
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var hops []model.RedirectHop
	client := &http.Client{
		Transport: f.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			hops = append(hops, model.RedirectHop{
				From:       via[len(via)-1].URL.String(),
				To:         req.URL.String(),
				StatusCode: req.Response.StatusCode,
			})
			return nil
		},
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindConnection, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: classify(err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain so the transport can reuse the connection.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			Kind:       classifyStatus(resp.StatusCode),
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, &Error{Kind: classify(err), URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}

	return &Result{
		RequestedURL:  rawURL,
		FinalURL:      resp.Request.URL.String(),
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		Body:          body,
		RedirectChain: hops,
		FetchedAt:     time.Now(),
	}, nil
}

// backoffFor returns the sleep before the next attempt: the server's
// Retry-After when present, otherwise exponential backoff. Both are
// capped.
func (f *Fetcher) backoffFor(attempt int, retryAfter time.Duration) time.Duration {
	d := retryAfter
	if d <= 0 {
		d = f.backoffBase << (attempt - 1)
	}
	return min(d, f.backoffCap)
}

// sleep waits for d or until the context is done.
func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter interprets a Retry-After header value as either delta
// seconds or an HTTP date. Unparseable values yield zero.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
