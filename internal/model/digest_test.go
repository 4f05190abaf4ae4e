package model

import (
	"net/http"
	"strings"
	"testing"
)

// TestPayloadDigest tests body-only digest computation.
func TestPayloadDigest(t *testing.T) {
	t.Parallel()

	t.Run("identical bodies produce identical digests", func(t *testing.T) {
		t.Parallel()

		a := PayloadDigest([]byte("<html>hello</html>"))
		b := PayloadDigest([]byte("<html>hello</html>"))
		if a != b {
			t.Errorf("expected identical digests, got %q and %q", a, b)
		}
	})

	t.Run("different bodies produce different digests", func(t *testing.T) {
		t.Parallel()

		a := PayloadDigest([]byte("one"))
		b := PayloadDigest([]byte("two"))
		if a == b {
			t.Errorf("expected different digests, both %q", a)
		}
	})

	t.Run("digest is prefixed with algorithm name", func(t *testing.T) {
		t.Parallel()

		d := PayloadDigest([]byte("body"))
		if !strings.HasPrefix(d, DigestPrefix) {
			t.Errorf("expected %q prefix, got %q", DigestPrefix, d)
		}
	})
}

// TestBlockDigest tests header+body digest computation.
func TestBlockDigest(t *testing.T) {
	t.Parallel()

	t.Run("same content different headers diverge", func(t *testing.T) {
		t.Parallel()

		body := []byte("<html>same</html>")
		h1 := http.Header{"Content-Type": {"text/html"}, "Server": {"nginx"}}
		h2 := http.Header{"Content-Type": {"text/html"}, "Server": {"apache"}}

		if PayloadDigest(body) != PayloadDigest(body) {
			t.Fatal("payload digest must not depend on headers")
		}
		if BlockDigest(h1, body) == BlockDigest(h2, body) {
			t.Error("block digest must reflect header differences")
		}
	})

	t.Run("header iteration order does not matter", func(t *testing.T) {
		t.Parallel()

		body := []byte("body")
		// Maps iterate in random order; repeated computation over the
		// same logical headers must stay stable.
		h := http.Header{
			"A": {"1"}, "B": {"2"}, "C": {"3"}, "D": {"4"}, "E": {"5"},
		}
		first := BlockDigest(h, body)
		for range 10 {
			if got := BlockDigest(h, body); got != first {
				t.Fatalf("unstable block digest: %q then %q", first, got)
			}
		}
	})
}

// TestSessionStatus tests terminal state classification.
func TestSessionStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   SessionStatus
		terminal bool
	}{
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusPaused, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("IsTerminal(%q) = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}
