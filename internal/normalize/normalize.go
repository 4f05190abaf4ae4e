package normalize

import (
	"errors"
	"net/url"
	"strings"
)

// ErrUnsupportedScheme is returned for URLs that are not http or https.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// ErrInvalidURL is returned when the input cannot be parsed as an
// absolute URL.
var ErrInvalidURL = errors.New("invalid URL")

// URL canonicalizes a URL for deduplication. Rules, applied in order:
//
//  1. The fragment is stripped; #anchors never change page content.
//  2. A query of exactly "page=1" is removed (the first page of a
//     paginated listing is the listing itself), as is a bare "?".
//     Surviving queries are re-encoded with sorted keys so
//     semantically equal URLs have one spelling.
//  3. A single trailing slash is stripped unless the path is the
//     domain root.
//
// Scheme and host are lowercased, and an empty path becomes "/" so the
// domain root has one spelling.
//
// Note: only the literal "page=1" query is collapsed. Other pagination
// parameter spellings (p=1, offset=0, ...) pass through untouched.
func URL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidURL
	}
	if !u.IsAbs() || u.Host == "" {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrUnsupportedScheme
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Rule 1: fragments never survive.
	u.Fragment = ""

	// Rule 2: the narrow pagination rule. "?page=1" is the listing
	// itself; a bare "?" carries no information.
	if u.RawQuery == "page=1" || u.RawQuery == "" {
		u.RawQuery = ""
		u.ForceQuery = false
	} else {
		// Encode sorts keys, so key order stops mattering for dedup.
		u.RawQuery = u.Query().Encode()
	}

	// Rule 3: trailing slash, except at the domain root. All trailing
	// slashes go, not just one, so the result is a fixed point.
	if u.Path == "" || u.Path == "/" {
		u.Path = "/"
	} else {
		for len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
			u.Path = strings.TrimSuffix(u.Path, "/")
		}
	}

	return u.String(), nil
}

// Host returns the lowercased host of a normalized URL, or an empty
// string when the URL does not parse. Callers use this for per-domain
// politeness bookkeeping.
func Host(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// SameHost reports whether the candidate URL is on the given host.
// The crawl never leaves the seed's domain.
func SameHost(host, candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
