package archive

import (
	"context"
	"errors"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webarchive/internal/extract"
	"github.com/nao1215/webarchive/internal/fetch"
	"github.com/nao1215/webarchive/internal/frontier"
	"github.com/nao1215/webarchive/internal/model"
	"github.com/nao1215/webarchive/internal/normalize"
	"github.com/nao1215/webarchive/internal/politeness"
)

// run holds the moving parts of one crawl session.
type run struct {
	session    *model.CrawlSession
	frontier   *frontier.Frontier
	politeness *politeness.Controller
	fetcher    Fetcher

	pagesProcessed   int
	lastProcessedURL string
	sinceCheckpoint  int
}

// batchResult pairs a dequeued frontier entry with its fetch outcome.
type batchResult struct {
	entry model.FrontierEntry
	res   *fetch.Result
	err   error
}

// runLoop drives a session until the frontier empties, a budget runs
// out, or the context is canceled. It always leaves a final checkpoint
// and a terminal session status behind.
func (e *Engine) runLoop(ctx context.Context, r *run) (*model.CrawlSession, error) {
	if e.cfg.WallClockBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.WallClockBudget)
		defer cancel()
	}

	var loopErr error
	for r.frontier.Len() > 0 && r.pagesProcessed < r.session.MaxPages {
		if ctx.Err() != nil {
			break
		}

		batch := e.nextBatch(ctx, r)
		if len(batch) == 0 {
			continue
		}

		results := e.fetchBatch(ctx, r, batch)

		// Results are processed on this goroutine only. Every store,
		// frontier push, and counter update happens here. Entries that
		// cannot be processed (cancellation, storage failure) go back to
		// the frontier so the checkpoint does not lose them.
		for i, br := range results {
			if ctx.Err() != nil {
				e.requeue(r, results[i:])
				break
			}
			if err := e.processResult(ctx, r, br); err != nil {
				e.requeue(r, results[i:])
				loopErr = err
				break
			}
			if r.pagesProcessed >= r.session.MaxPages {
				e.requeue(r, results[i+1:])
				break
			}
		}
		if loopErr != nil {
			break
		}

		if r.sinceCheckpoint >= e.cfg.CheckpointInterval {
			if err := e.saveCheckpoint(ctx, r); err != nil {
				loopErr = err
				break
			}
		}
	}

	return e.finish(ctx, r, loopErr)
}

// nextBatch dequeues up to Concurrency entries, dropping any the
// domain's robots.txt disallows. Disallowed URLs are skipped quietly;
// they are not errors and never consume budget.
func (e *Engine) nextBatch(ctx context.Context, r *run) []model.FrontierEntry {
	limit := e.cfg.Concurrency
	if remaining := r.session.MaxPages - r.pagesProcessed; remaining < limit {
		limit = remaining
	}

	batch := make([]model.FrontierEntry, 0, limit)
	for len(batch) < limit {
		entry, ok := r.frontier.Pop()
		if !ok {
			break
		}
		u, err := url.Parse(entry.URL)
		if err != nil {
			continue
		}
		if !r.politeness.Allowed(ctx, u) {
			e.logger.Debug("disallowed by robots.txt", "url", entry.URL)
			continue
		}
		batch = append(batch, entry)
	}
	return batch
}

// fetchBatch fetches a batch concurrently. Each goroutine waits for its
// domain's politeness slot before starting; the results slice is
// populated by index so no goroutine touches shared state.
func (e *Engine) fetchBatch(ctx context.Context, r *run, batch []model.FrontierEntry) []batchResult {
	results := make([]batchResult, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, entry := range batch {
		g.Go(func() error {
			results[i].entry = entry
			u, err := url.Parse(entry.URL)
			if err != nil {
				results[i].err = err
				return nil
			}
			if err := r.politeness.Wait(gctx, u); err != nil {
				results[i].err = err
				return nil
			}
			// A request on the wire runs to completion even when the
			// crawl is cancelled mid-batch; only entries still waiting
			// for their politeness slot are abandoned. The fetcher's
			// own timeouts bound how long the drain can take.
			results[i].res, results[i].err = r.fetcher.Fetch(context.WithoutCancel(gctx), entry.URL)
			// Fetch failures are recorded per page, never propagated:
			// one dead URL must not cancel the batch.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	return results
}

// processResult stores one fetch outcome: an error record for failures,
// or the page, its links, and its assets for successes.
func (e *Engine) processResult(ctx context.Context, r *run, br batchResult) error {
	if br.err != nil {
		return e.recordFailure(ctx, r, br)
	}

	res := br.res

	// Redirect hops are marked visited so later links to them are not
	// refetched. Hops consume no page budget.
	for _, hop := range res.RedirectChain {
		r.frontier.MarkVisited(hop.From)
		r.frontier.MarkVisited(hop.To)
	}

	finalURL, err := normalize.URL(res.FinalURL)
	if err != nil {
		finalURL = res.FinalURL
	}
	r.frontier.MarkVisited(finalURL)

	rec := &model.PageRecord{
		SessionID:     r.session.ID,
		URL:           finalURL,
		StatusCode:    res.StatusCode,
		Depth:         br.entry.Depth,
		PayloadDigest: model.PayloadDigest(res.Body),
		BlockDigest:   model.BlockDigest(res.Header, res.Body),
		RedirectChain: res.RedirectChain,
		FetchedAt:     res.FetchedAt,
	}

	var extracted *extract.Result
	if isHTML(res.Header.Get("Content-Type")) {
		if u, err := url.Parse(res.FinalURL); err == nil {
			extracted = extract.Page(u, res.Body)
			rec.Title = extracted.Title
		}
	}

	revisit, err := e.db.PutPage(ctx, rec)
	if err != nil {
		return err
	}

	if revisit != nil {
		e.logger.Debug("duplicate payload",
			"url", finalURL,
			"original", revisit.OriginalURI,
		)
	} else if extracted != nil {
		// The link graph records page-to-page and page-to-asset edges.
		edges := extracted.Links
		if !e.cfg.SkipAssets {
			for _, a := range extracted.Assets {
				edges = append(edges, a.URL)
			}
		}
		if err := e.db.InsertLinks(ctx, r.session.ID, finalURL, edges); err != nil {
			return err
		}
		for _, link := range extracted.Links {
			if normalize.SameHost(r.session.Domain, link) {
				r.frontier.Push(link, br.entry.Depth+1, model.ViaLink)
			}
		}
		if !e.cfg.SkipAssets {
			if err := e.archiveAssets(ctx, r, extracted.Assets); err != nil {
				return err
			}
		}
	}

	// Failures and revisits consume budget too: the budget bounds work
	// performed, not archive growth, so a site of duplicates or errors
	// still terminates.
	r.pagesProcessed++
	r.sinceCheckpoint++
	r.lastProcessedURL = finalURL

	e.logger.Debug("page archived",
		"url", finalURL,
		"status", res.StatusCode,
		"depth", br.entry.Depth,
		"pages_processed", r.pagesProcessed,
	)
	return nil
}

// requeue returns unprocessed batch results to the frontier.
func (e *Engine) requeue(r *run, rest []batchResult) {
	for _, br := range rest {
		r.frontier.Requeue(br.entry)
	}
}

// recordFailure appends the fetch failure to the error log. The page
// consumed budget; a site of dead links must still terminate.
func (e *Engine) recordFailure(ctx context.Context, r *run, br batchResult) error {
	rec := &model.ErrorRecord{
		SessionID:    r.session.ID,
		URL:          br.entry.URL,
		Kind:         string(fetch.KindConnection),
		Message:      br.err.Error(),
		AttemptCount: 1,
		OccurredAt:   time.Now().UTC(),
	}
	var ferr *fetch.Error
	if errors.As(br.err, &ferr) {
		rec.Kind = string(ferr.Kind)
		rec.AttemptCount = ferr.Attempts
	}

	if err := e.db.AppendError(ctx, rec); err != nil {
		return err
	}

	r.pagesProcessed++
	r.sinceCheckpoint++
	r.lastProcessedURL = br.entry.URL

	e.logger.Warn("page failed",
		"url", br.entry.URL,
		"kind", rec.Kind,
		"attempts", rec.AttemptCount,
	)
	return nil
}

// archiveAssets fetches and stores a page's asset references. Assets
// already recorded for the session are skipped without a fetch; asset
// failures are logged and dropped, never recorded as page errors, and
// assets never consume page budget.
func (e *Engine) archiveAssets(ctx context.Context, r *run, candidates []extract.AssetCandidate) error {
	pending := make([]extract.AssetCandidate, 0, len(candidates))
	for _, c := range candidates {
		known, err := e.db.HasAsset(ctx, r.session.ID, c.URL)
		if err != nil {
			return err
		}
		if !known {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	fetched := make([]*fetch.Result, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, c := range pending {
		g.Go(func() error {
			u, err := url.Parse(c.URL)
			if err != nil {
				return nil
			}
			if err := r.politeness.Wait(gctx, u); err != nil {
				return nil
			}
			res, err := r.fetcher.Fetch(gctx, c.URL)
			if err != nil {
				e.logger.Debug("asset fetch failed", "url", c.URL, "error", err)
				return nil
			}
			fetched[i] = res
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	for i, res := range fetched {
		if res == nil {
			continue
		}
		c := pending[i]
		rec := &model.AssetRecord{
			SessionID:   r.session.ID,
			URL:         c.URL,
			Type:        c.Type,
			ContentHash: model.PayloadDigest(res.Body),
			MIMEType:    assetMIME(res.Header.Get("Content-Type"), c.URL),
			ByteSize:    int64(len(res.Body)),
		}
		if _, err := e.db.PutAsset(ctx, rec, res.Body); err != nil {
			return err
		}
	}
	return nil
}

// saveCheckpoint snapshots the frontier and counters.
func (e *Engine) saveCheckpoint(ctx context.Context, r *run) error {
	entries, visited := r.frontier.Snapshot()
	cp := &model.Checkpoint{
		SessionID:        r.session.ID,
		LastProcessedURL: r.lastProcessedURL,
		Frontier:         entries,
		Visited:          visited,
		PagesProcessed:   r.pagesProcessed,
		SavedAt:          time.Now().UTC(),
	}
	if err := e.db.SaveCheckpoint(ctx, cp); err != nil {
		return err
	}
	r.sinceCheckpoint = 0

	e.logger.Debug("checkpoint saved",
		"session", r.session.ID,
		"pages_processed", r.pagesProcessed,
		"frontier", len(entries),
	)
	return nil
}

// finish writes the final checkpoint and terminal status. Cancellation
// and wall-clock exhaustion pause the session for a later resume; an
// exhausted frontier or page budget completes it; a storage error fails
// it.
func (e *Engine) finish(ctx context.Context, r *run, loopErr error) (*model.CrawlSession, error) {
	// The final checkpoint and status updates must survive even when
	// the crawl context is already canceled.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	status := model.StatusCompleted
	switch {
	case loopErr != nil:
		status = model.StatusFailed
	case ctx.Err() != nil:
		status = model.StatusPaused
	}

	if err := e.saveCheckpoint(finishCtx, r); err != nil && loopErr == nil {
		loopErr = err
		status = model.StatusFailed
	}
	if err := e.db.UpdateSessionStatus(finishCtx, r.session.ID, status); err != nil && loopErr == nil {
		loopErr = err
		status = model.StatusFailed
	}
	if err := e.db.SetMetadata(finishCtx, r.session.ID, "finished_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		e.logger.Warn("failed to record finish time", "session", r.session.ID, "error", err)
	}
	r.session.Status = status

	e.logger.Info("session finished",
		"session", r.session.ID,
		"status", string(status),
		"pages_processed", r.pagesProcessed,
	)
	return r.session, loopErr
}

// isHTML reports whether a Content-Type names an HTML document.
func isHTML(contentType string) bool {
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml+xml")
}

// assetMIME returns the server-reported MIME type, falling back to a
// guess from the URL extension when the server sent none.
func assetMIME(contentType, rawURL string) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			return mt
		}
		return contentType
	}
	if u, err := url.Parse(rawURL); err == nil {
		if mt := mime.TypeByExtension(path.Ext(u.Path)); mt != "" {
			return mt
		}
	}
	return "application/octet-stream"
}
