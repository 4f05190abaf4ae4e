// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard
// slog package.
//
// Site configurations can carry authentication headers for crawling
// access-controlled sites, and request/response logging would otherwise
// leak them. The SecureHandler masks attribute values that look like
// credentials (Authorization headers, cookies, tokens, API keys) before
// they reach the underlying handler, even in verbose mode.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("request sent",
//	    "authorization", "Bearer abc123", // masked
//	    "url", "https://example.com",
//	)
package log
