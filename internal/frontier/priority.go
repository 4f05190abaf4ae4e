package frontier

import (
	"net/url"
	"strings"
)

// PriorityStrategy assigns a scheduling priority to a URL at enqueue
// time. Lower numbers are crawled sooner.
//
// Design decision: We make this an interface with one method rather
// than a function field because:
//  1. Strategies can carry configuration (e.g. per-site path tables)
//  2. It can be tested independently of the queue
//  3. Callers can swap heuristics without touching the frontier
type PriorityStrategy interface {
	// Priority returns the scheduling priority for the URL.
	Priority(u *url.URL) int
}

// Priority bands used by the default strategy. The gaps leave room for
// custom strategies to interleave without renumbering.
const (
	PriorityService    = 0  // service/product pages
	PriorityCategory   = 10 // category/listing pages
	PriorityDefault    = 20 // general navigation
	PriorityContent    = 30 // blog/article pages
	PriorityMedia      = 40 // media/video pages
	PriorityPagination = 50 // paginated URLs
)

// PathPriority is the default static heuristic: priority is a function
// of the URL shape only, never of fetched content. Commercial pages
// outrank navigation, navigation outranks long-tail content, and
// pagination is crawled last.
type PathPriority struct{}

// Priority implements PriorityStrategy.
func (PathPriority) Priority(u *url.URL) int {
	if u == nil {
		return PriorityDefault
	}

	query := u.Query()
	if query.Get("page") != "" {
		return PriorityPagination
	}

	path := strings.ToLower(u.Path)
	switch {
	case containsSegment(path, "service", "services", "product", "products", "pricing"):
		return PriorityService
	case containsSegment(path, "category", "categories", "collection", "collections", "shop", "catalog"):
		return PriorityCategory
	case containsSegment(path, "blog", "news", "article", "articles", "post", "posts"):
		return PriorityContent
	case containsSegment(path, "video", "videos", "media", "gallery"):
		return PriorityMedia
	default:
		return PriorityDefault
	}
}

// containsSegment reports whether any path segment equals one of the
// given words. Matching whole segments avoids false positives like
// /disservice matching "service".
func containsSegment(path string, words ...string) bool {
	for seg := range strings.SplitSeq(strings.Trim(path, "/"), "/") {
		for _, w := range words {
			if seg == w {
				return true
			}
		}
	}
	return false
}
