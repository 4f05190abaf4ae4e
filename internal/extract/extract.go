// Package extract pulls links, assets, and metadata out of HTML
// documents. It resolves relative references against the page URL and
// classifies assets by how the page references them, so the crawl loop
// can archive a page's dependencies alongside the page itself.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/webarchive/internal/model"
)

// AssetCandidate is an asset reference found in a page, classified by
// its role.
type AssetCandidate struct {
	// URL is the absolute asset URL.
	URL string

	// Type is the asset classification.
	Type model.AssetType
}

// Result holds everything extracted from one HTML document.
type Result struct {
	// Title is the text of the first <title> element, trimmed. Empty
	// when the document has none.
	Title string

	// Links are absolute hyperlink targets, deduplicated within the
	// page, in first-seen order.
	Links []string

	// Assets are the page's asset references, deduplicated by URL, in
	// first-seen order.
	Assets []AssetCandidate
}

// Page parses an HTML document fetched from base and extracts its
// links, assets, and title.
//
// Parse errors do not abort extraction: net/html repairs what it can,
// and whatever was walked before the damage is returned. A page with
// broken markup contributes fewer links, never a failed crawl step.
func Page(base *url.URL, body []byte) *Result {
	res := &Result{}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return res
	}

	seenLinks := make(map[string]struct{})
	seenAssets := make(map[string]struct{})

	for node := range doc.Descendants() {
		if node.Type != html.ElementNode {
			continue
		}
		switch node.Data {
		case "title":
			if res.Title == "" {
				res.Title = strings.TrimSpace(textContent(node))
			}
		case "a":
			if target := resolve(base, attr(node, "href")); target != "" {
				if _, ok := seenLinks[target]; !ok {
					seenLinks[target] = struct{}{}
					res.Links = append(res.Links, target)
				}
			}
		case "img":
			src := attr(node, "src")
			if src == "" {
				// Lazy-loading themes park the real URL here.
				src = attr(node, "data-src")
			}
			res.addAsset(seenAssets, resolve(base, src), model.AssetImage)
		case "script":
			res.addAsset(seenAssets, resolve(base, attr(node, "src")), model.AssetJS)
		case "link":
			res.classifyLink(seenAssets, base, node)
		case "meta":
			res.classifyMeta(seenAssets, base, node)
		}
	}
	return res
}

// classifyLink handles <link> elements, which carry stylesheets,
// favicons, and preloaded fonts.
func (r *Result) classifyLink(seen map[string]struct{}, base *url.URL, node *html.Node) {
	rel := strings.ToLower(attr(node, "rel"))
	target := resolve(base, attr(node, "href"))
	switch {
	case strings.Contains(rel, "stylesheet"):
		r.addAsset(seen, target, model.AssetCSS)
	case strings.Contains(rel, "icon"):
		r.addAsset(seen, target, model.AssetFavicon)
	case rel == "preload" && strings.EqualFold(attr(node, "as"), "font"):
		r.addAsset(seen, target, model.AssetFont)
	}
}

// classifyMeta handles social-card images declared in <meta> tags.
func (r *Result) classifyMeta(seen map[string]struct{}, base *url.URL, node *html.Node) {
	name := attr(node, "property")
	if name == "" {
		name = attr(node, "name")
	}
	switch strings.ToLower(name) {
	case "og:image", "twitter:image":
		r.addAsset(seen, resolve(base, attr(node, "content")), model.AssetMetaImage)
	}
}

// addAsset appends an asset candidate unless the URL is empty or
// already recorded.
func (r *Result) addAsset(seen map[string]struct{}, target string, typ model.AssetType) {
	if target == "" {
		return
	}
	if _, ok := seen[target]; ok {
		return
	}
	seen[target] = struct{}{}
	r.Assets = append(r.Assets, AssetCandidate{URL: target, Type: typ})
}

// resolve turns a raw reference into an absolute http(s) URL against
// base. Non-navigational schemes (javascript:, mailto:, data:, tel:)
// and unparseable references yield "".
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// attr returns the value of the named attribute, "" when absent.
func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates the text nodes under a node.
func textContent(node *html.Node) string {
	var sb strings.Builder
	for child := range node.Descendants() {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	return sb.String()
}
