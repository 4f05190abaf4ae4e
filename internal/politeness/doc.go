// Package politeness gates the crawl against server preferences: it
// fetches and evaluates robots.txt rules, honors Crawl-Delay, discovers
// sitemap URLs for authoritative seeding, and enforces a minimum
// inter-request interval per domain.
//
// Design decision: We use github.com/temoto/robotstxt for rule
// evaluation rather than parsing robots.txt ourselves because:
//  1. Group resolution (specific agent vs "*") has subtle precedence rules
//  2. The library is battle-tested against real-world robots files
//  3. Crawl-Delay comes out parsed for free
//
// When robots.txt is unreachable or malformed the controller fails open
// (allow-all) with a conservative default delay, matching common
// crawler practice.
package politeness
