package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/webarchive/internal/config"
	"github.com/nao1215/webarchive/internal/database"
	"github.com/nao1215/webarchive/internal/fetch"
	"github.com/nao1215/webarchive/internal/frontier"
	"github.com/nao1215/webarchive/internal/model"
	"github.com/nao1215/webarchive/internal/normalize"
	"github.com/nao1215/webarchive/internal/politeness"
)

// Engine sentinel errors.
var (
	// ErrSessionFinished is returned by Resume when the target session
	// already completed; there is nothing left to crawl.
	ErrSessionFinished = errors.New("archive: session already completed")
)

// Fetcher retrieves one URL. *fetch.Fetcher satisfies it; tests swap in
// fixtures.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Engine runs crawl sessions against one archive database.
type Engine struct {
	db     *database.ArchiveDB
	cfg    *config.Config
	logger *slog.Logger

	// client is used for page fetches, asset fetches, and robots.txt.
	client *http.Client

	// fetcher overrides the internally built fetcher when set.
	fetcher Fetcher

	// strategy orders the frontier; nil means the default path heuristic.
	strategy frontier.PriorityStrategy

	// backoffBase and backoffCap tune retry sleeps; tests shrink them.
	backoffBase time.Duration
	backoffCap  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHTTPClient sets the HTTP client used for all network traffic.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) { e.client = client }
}

// WithFetcher replaces the internally built fetcher.
func WithFetcher(f Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithPriorityStrategy replaces the default frontier ordering heuristic.
func WithPriorityStrategy(s frontier.PriorityStrategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithBackoff tunes the fetch retry backoff unit and cap.
func WithBackoff(base, cap time.Duration) Option {
	return func(e *Engine) {
		e.backoffBase = base
		e.backoffCap = cap
	}
}

// New creates an engine over an open archive database.
func New(db *database.ArchiveDB, cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		db:          db,
		cfg:         cfg,
		logger:      slog.Default(),
		backoffBase: fetch.DefaultBackoffBase,
		backoffCap:  fetch.DefaultBackoffCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = &http.Client{}
	}
	return e
}

// Start begins a new crawl session from the configured seed URL and
// runs it to completion, budget exhaustion, or cancellation. The
// returned session reflects the final status.
func (e *Engine) Start(ctx context.Context) (*model.CrawlSession, error) {
	seed, err := normalize.URL(e.cfg.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	seedURL, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	domain := seedURL.Host

	maxDepth, maxPages, delay, headers := e.siteSettings(domain)

	session := &model.CrawlSession{
		ID:        uuid.NewString(),
		SeedURL:   seed,
		Domain:    domain,
		MaxDepth:  maxDepth,
		MaxPages:  maxPages,
		StartedAt: time.Now().UTC(),
		Status:    model.StatusRunning,
	}
	if err := e.db.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	if err := e.db.SetMetadata(ctx, session.ID, "user_agent", e.cfg.UserAgent); err != nil {
		return nil, err
	}

	run := e.newRun(session, delay, headers)
	run.frontier.Push(seed, 0, model.ViaSeed)

	// Sitemap URLs enter at depth 1: they are one discovery step from
	// the seed even though no page linked them.
	for _, u := range run.politeness.DiscoverSeeds(ctx, seedURL.Scheme, seedURL.Host) {
		if normalize.SameHost(domain, u) {
			run.frontier.Push(u, 1, model.ViaSitemap)
		}
	}

	e.logger.Info("session started",
		"session", session.ID,
		"seed", seed,
		"max_depth", maxDepth,
		"max_pages", maxPages,
	)
	return e.runLoop(ctx, run)
}

// Resume continues a previously interrupted session from its latest
// checkpoint. An empty sessionID targets the most recent session.
//
// A corrupt checkpoint is surfaced as an error; the engine never
// silently restarts an interrupted crawl from the seed.
func (e *Engine) Resume(ctx context.Context, sessionID string) (*model.CrawlSession, error) {
	var session *model.CrawlSession
	var err error
	if sessionID == "" {
		session, err = e.db.LatestSession(ctx)
	} else {
		session, err = e.db.GetSession(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}
	if session.Status == model.StatusCompleted {
		return session, ErrSessionFinished
	}

	cp, err := e.db.LoadCheckpoint(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	_, _, delay, headers := e.siteSettings(session.Domain)
	run := e.newRun(session, delay, headers)
	run.frontier.Restore(cp.Frontier, cp.Visited)
	run.pagesProcessed = cp.PagesProcessed
	run.lastProcessedURL = cp.LastProcessedURL

	if err := e.db.UpdateSessionStatus(ctx, session.ID, model.StatusRunning); err != nil {
		return nil, err
	}
	session.Status = model.StatusRunning

	e.logger.Info("session resumed",
		"session", session.ID,
		"pages_processed", cp.PagesProcessed,
		"frontier", run.frontier.Len(),
	)
	return e.runLoop(ctx, run)
}

// LookupResult is the outcome of an archive query: index entries when
// the query resolved to page captures, or the asset record when it
// resolved to a stored asset. Exactly one of the two is populated.
type LookupResult struct {
	// Entries are the page captures matching the query, oldest first.
	Entries []model.IndexEntry

	// Asset is set when the query named an archived asset instead of
	// a page.
	Asset *model.AssetRecord
}

// Lookup resolves a query against the archive. Queries starting with
// the digest prefix are treated as payload digests; anything else is
// normalized and looked up as a URL. Queries that miss the page index
// fall back to the asset store, so asset URLs and blob hashes resolve
// too.
func (e *Engine) Lookup(ctx context.Context, query string) (*LookupResult, error) {
	if strings.HasPrefix(query, model.DigestPrefix) {
		entries, err := e.db.LookupDigest(ctx, query)
		if err == nil {
			return &LookupResult{Entries: entries}, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		asset, err := e.db.GetAssetByHash(ctx, query)
		if err != nil {
			return nil, err
		}
		return &LookupResult{Asset: asset}, nil
	}

	norm, err := normalize.URL(query)
	if err != nil {
		return nil, fmt.Errorf("invalid lookup query: %w", err)
	}
	entries, err := e.db.LookupURL(ctx, norm)
	if err == nil {
		return &LookupResult{Entries: entries}, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	// Asset URLs are stored as discovered, so try both spellings.
	for _, candidate := range []string{norm, strings.TrimSpace(query)} {
		asset, err := e.db.GetAssetByURL(ctx, candidate)
		if err == nil {
			return &LookupResult{Asset: asset}, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
	}
	return nil, database.ErrNotFound
}

// siteSettings resolves effective limits for a domain, applying any
// per-site overrides from the config file.
func (e *Engine) siteSettings(domain string) (maxDepth, maxPages int, delay time.Duration, headers map[string]string) {
	maxDepth = e.cfg.MaxDepth
	maxPages = e.cfg.MaxPages
	delay = e.cfg.CrawlDelay

	if e.cfg.SiteConfigs == nil {
		return maxDepth, maxPages, delay, nil
	}
	sc := e.cfg.SiteConfigs.GetSiteConfig(domain)
	if sc.Depth != 0 {
		maxDepth = sc.Depth
	}
	if sc.MaxPages != 0 {
		maxPages = sc.MaxPages
	}
	if sc.Delay != 0 {
		delay = sc.Delay
	}
	return maxDepth, maxPages, delay, sc.Headers
}

// newRun builds the per-session moving parts: frontier, politeness
// controller, and fetcher.
func (e *Engine) newRun(session *model.CrawlSession, delay time.Duration, headers map[string]string) *run {
	fetcher := e.fetcher
	if fetcher == nil {
		fetcher = fetch.NewFetcher(e.client.Transport,
			fetch.WithUserAgent(e.cfg.UserAgent),
			fetch.WithTimeout(e.cfg.Timeout),
			fetch.WithMaxBodySize(e.cfg.MaxBodySize),
			fetch.WithBackoff(e.backoffBase, e.backoffCap),
			fetch.WithHeaders(headers),
		)
	}
	return &run{
		session:  session,
		frontier: frontier.New(e.strategy, session.MaxDepth),
		politeness: politeness.NewController(e.client,
			politeness.WithUserAgent(e.cfg.UserAgent),
			politeness.WithMinDelay(delay),
		),
		fetcher: fetcher,
	}
}
