package politeness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// DefaultDelay is the conservative per-domain interval used when
// robots.txt declares no Crawl-Delay and the operator configured none.
const DefaultDelay = 1 * time.Second

// maxRobotsBody bounds how much of a robots.txt or sitemap response is
// read. Real files are tiny; anything larger is hostile or broken.
const maxRobotsBody = 1 << 20 // 1MB

// Doer issues HTTP requests. *http.Client satisfies it; tests swap in
// fixtures.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Controller makes allow/delay decisions for one crawl session. It
// lazily fetches robots.txt per domain on first encounter and caches
// the parsed rules for the life of the session.
//
// Wait is safe for concurrent use; the crawl loop's in-flight fetch
// goroutines all funnel through it. Allowed and DiscoverSeeds are
// called from the crawl loop only.
type Controller struct {
	client    Doer
	userAgent string

	// minDelay is the operator-configured floor; the effective delay for
	// a domain is max(minDelay, robots Crawl-Delay).
	minDelay time.Duration

	// mu guards domains. Wait is called from in-flight fetch goroutines
	// while the crawl loop may encounter new domains.
	mu sync.Mutex

	// domains holds per-domain robots state and pacing limiters.
	domains map[string]*domainState
}

// domainState is the cached politeness state for one domain.
type domainState struct {
	// group is the robots.txt rule group for our user agent. Nil means
	// robots.txt was unreachable or malformed: allow everything.
	group *robotstxt.Group

	// delay is the effective inter-request interval for the domain.
	delay time.Duration

	// limiter spaces request starts at the effective delay.
	limiter *rate.Limiter
}

// Option configures a Controller.
type Option func(*Controller)

// WithUserAgent sets the User-Agent presented to robots.txt and used
// for rule-group matching.
func WithUserAgent(ua string) Option {
	return func(c *Controller) { c.userAgent = ua }
}

// WithMinDelay sets the operator floor for per-domain request spacing.
func WithMinDelay(d time.Duration) Option {
	return func(c *Controller) { c.minDelay = d }
}

// NewController creates a politeness controller using the given HTTP
// client. A nil client falls back to a default with a short timeout;
// robots and sitemap fetches should never stall the crawl.
func NewController(client Doer, opts ...Option) *Controller {
	c := &Controller{
		client:    client,
		userAgent: "webarchive",
		minDelay:  DefaultDelay,
		domains:   make(map[string]*domainState),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 10 * time.Second}
	}
	return c
}

// Allowed reports whether the URL may be fetched under the domain's
// robots.txt rules. The first call for a domain fetches robots.txt.
func (c *Controller) Allowed(ctx context.Context, u *url.URL) bool {
	if u == nil || u.Host == "" {
		return false
	}
	state := c.state(ctx, u)
	if state.group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	// Rules can match query strings (Disallow: /*?sessionid=), so the
	// query is part of the tested path.
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return state.group.Test(path)
}

// DelayFor returns the effective minimum inter-request interval for a
// domain: the configured floor or the robots Crawl-Delay, whichever is
// larger. Domains not yet encountered report the configured floor.
func (c *Controller) DelayFor(domain string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.domains[strings.ToLower(domain)]; ok {
		return state.delay
	}
	return c.minDelay
}

// Wait blocks until a request to the URL's domain may start without
// violating the domain's interval. It returns early with the context's
// error on cancellation.
//
// This is the scheduling constraint from the controller's contract: the
// controller paces request starts, it does not sleep inside fetches.
func (c *Controller) Wait(ctx context.Context, u *url.URL) error {
	state := c.state(ctx, u)
	return state.limiter.Wait(ctx)
}

// state returns the cached domain state, fetching robots.txt on first
// encounter. The robots fetch happens outside the lock; the first
// caller for a domain wins and later arrivals reuse its entry.
func (c *Controller) state(ctx context.Context, u *url.URL) *domainState {
	host := strings.ToLower(u.Host)
	c.mu.Lock()
	if state, ok := c.domains[host]; ok {
		c.mu.Unlock()
		return state
	}
	c.mu.Unlock()

	state := &domainState{delay: c.minDelay}
	if data := c.fetchRobots(ctx, u.Scheme, u.Host); data != nil {
		group := data.FindGroup(c.userAgent)
		if group == nil {
			group = data.FindGroup("*")
		}
		if group != nil {
			state.group = group
			if group.CrawlDelay > state.delay {
				state.delay = group.CrawlDelay
			}
		}
	}

	// One request start per delay interval, no burst: two requests to
	// the same domain can never start closer together than the delay.
	state.limiter = rate.NewLimiter(rate.Every(state.delay), 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.domains[host]; ok {
		return existing
	}
	c.domains[host] = state
	return state
}

// fetchRobots retrieves and parses robots.txt for a host. Any failure
// (network, status, parse) yields nil, which callers treat as
// allow-all.
func (c *Controller) fetchRobots(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	// Anything but a clean 200 means "no usable rules". The library
	// would treat 5xx as disallow-all; a missing or broken robots.txt
	// must not stall the crawl, so only a real file produces rules.
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}
