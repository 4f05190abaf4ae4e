package politeness

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sitemapPaths are tried in order; the first one that parses wins.
// Sites publishing a sitemap index still list <loc> entries, so one
// decoder handles both document shapes.
var sitemapPaths = []string{"/sitemap.xml", "/sitemap_index.xml"}

// maxSitemapBody bounds how much of a sitemap response is read.
const maxSitemapBody = 10 << 20 // 10MB

// DiscoverSeeds fetches the domain's sitemap and returns the URLs it
// lists, in document order. Failures are not errors: a site without a
// sitemap simply yields no seeds and the crawl proceeds from links.
func (c *Controller) DiscoverSeeds(ctx context.Context, scheme, host string) []string {
	for _, path := range sitemapPaths {
		urls, err := c.fetchSitemap(ctx, fmt.Sprintf("%s://%s%s", scheme, host, path))
		if err != nil {
			continue
		}
		if len(urls) > 0 {
			return c.expandIndex(ctx, urls)
		}
	}
	return nil
}

// expandIndex resolves one level of sitemap index indirection: entries
// that are themselves sitemaps are fetched and replaced by their URLs.
// Deeper nesting is not followed.
func (c *Controller) expandIndex(ctx context.Context, urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.HasSuffix(u, ".xml") {
			if sub, err := c.fetchSitemap(ctx, u); err == nil {
				out = append(out, sub...)
				continue
			}
		}
		out = append(out, u)
	}
	return out
}

func (c *Controller) fetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap returned status %d", resp.StatusCode)
	}

	return parseSitemap(io.LimitReader(resp.Body, maxSitemapBody))
}

// parseSitemap extracts every <loc> element from a sitemap or sitemap
// index document. A token-level scan tolerates the truncated and
// namespace-mangled sitemaps found in the wild better than strict
// struct decoding: everything read before a syntax error is kept.
func parseSitemap(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var urls []string
	var inLoc bool
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever was extracted before the damage.
			if len(urls) > 0 {
				return urls, nil
			}
			return nil, fmt.Errorf("parse sitemap: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			inLoc = t.Name.Local == "loc"
		case xml.CharData:
			if inLoc {
				if loc := strings.TrimSpace(string(t)); loc != "" {
					urls = append(urls, loc)
				}
			}
		case xml.EndElement:
			inLoc = false
		}
	}
	return urls, nil
}
