// Package fetch retrieves URLs with retry, backoff, and redirect-chain
// capture, and classifies terminal failures into the archiver's error
// taxonomy.
//
// The fetcher never panics and never lets a transport error escape
// unclassified: every failed fetch surfaces as a *Error carrying a Kind
// (TIMEOUT, HTTP_4XX, HTTP_5XX, SSL_ERROR, CONNECTION_ERROR) that the
// crawl loop turns into an ErrorRecord and moves on. A single
// unreachable page never aborts a session.
package fetch
