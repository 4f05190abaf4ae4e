package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind buckets a terminal fetch failure. Values match the persisted
// error taxonomy; they appear verbatim in error_log rows.
type Kind string

// Failure kinds.
const (
	KindTimeout    Kind = "TIMEOUT"
	KindHTTP4xx    Kind = "HTTP_4XX"
	KindHTTP5xx    Kind = "HTTP_5XX"
	KindSSL        Kind = "SSL_ERROR"
	KindConnection Kind = "CONNECTION_ERROR"
)

// Error is a classified terminal fetch failure.
type Error struct {
	// Kind is the taxonomy bucket.
	Kind Kind

	// URL is the URL whose fetch failed.
	URL string

	// StatusCode is the last HTTP status observed, zero when the
	// failure happened below the HTTP layer.
	StatusCode int

	// Attempts is how many attempts were made before giving up.
	Attempts int

	// Err is the underlying cause, nil for pure status failures.
	Err error

	// retryAfter is the server-requested wait from a Retry-After
	// header, zero when absent. Consumed by the retry loop only.
	retryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s after %d attempt(s): %v", e.URL, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s (status %d) after %d attempt(s)", e.URL, e.Kind, e.StatusCode, e.Attempts)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// classify maps a transport-level error onto the taxonomy.
func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	// Certificate and TLS handshake problems are terminal; retrying a
	// bad certificate cannot help.
	var certVerify *tls.CertificateVerificationError
	var recordHdr tls.RecordHeaderError
	var unknownAuth x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certVerify) ||
		errors.As(err, &recordHdr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostname) ||
		errors.As(err, &certInvalid) {
		return KindSSL
	}

	return KindConnection
}

// classifyStatus maps a terminal HTTP status onto the taxonomy.
func classifyStatus(status int) Kind {
	if status >= http.StatusInternalServerError {
		return KindHTTP5xx
	}
	return KindHTTP4xx
}

// retryable reports whether the failure kind may resolve on retry.
// Certificate errors and client errors (except 429, handled separately)
// are assumed non-transient.
func retryable(kind Kind) bool {
	switch kind {
	case KindTimeout, KindConnection, KindHTTP5xx:
		return true
	default:
		return false
	}
}
