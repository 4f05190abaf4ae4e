package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fastBackoff keeps retry paths quick in tests.
func fastBackoff() Option {
	return WithBackoff(time.Millisecond, 10*time.Millisecond)
}

// TestFetchSuccess tests the straight-line fetch path.
func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client().Transport, fastBackoff())
	res, err := f.Fetch(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
	if string(res.Body) != "<html><body>hello</body></html>" {
		t.Errorf("unexpected body: %q", res.Body)
	}
	if len(res.RedirectChain) != 0 {
		t.Errorf("RedirectChain = %v, want empty", res.RedirectChain)
	}
	if got := res.Header.Get("Content-Type"); got != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", got)
	}
}

// TestFetchRetry tests the retry policy against flaky and dead servers.
func TestFetchRetry(t *testing.T) {
	t.Parallel()

	t.Run("recovers after transient 500s", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) <= 2 {
				http.Error(w, "flaky", http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte("recovered"))
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client().Transport, fastBackoff())
		res, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if res.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want 200", res.StatusCode)
		}
		if res.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", res.Attempts)
		}
	})

	t.Run("persistent 500 fails after the attempt limit", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client().Transport, fastBackoff())
		_, err := f.Fetch(context.Background(), srv.URL)

		var ferr *Error
		if !errors.As(err, &ferr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if ferr.Kind != KindHTTP5xx {
			t.Errorf("Kind = %s, want %s", ferr.Kind, KindHTTP5xx)
		}
		if ferr.Attempts != DefaultMaxAttempts {
			t.Errorf("Attempts = %d, want %d", ferr.Attempts, DefaultMaxAttempts)
		}
		if got := hits.Load(); got != DefaultMaxAttempts {
			t.Errorf("server saw %d requests, want %d", got, DefaultMaxAttempts)
		}
	})

	t.Run("404 is not retried", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client().Transport, fastBackoff())
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")

		var ferr *Error
		if !errors.As(err, &ferr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if ferr.Kind != KindHTTP4xx {
			t.Errorf("Kind = %s, want %s", ferr.Kind, KindHTTP4xx)
		}
		if ferr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", ferr.StatusCode)
		}
		if got := hits.Load(); got != 1 {
			t.Errorf("server saw %d requests, want 1", got)
		}
	})

	t.Run("429 is retried and honors Retry-After", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		var firstFailure, retryAt time.Time
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				firstFailure = time.Now()
				w.Header().Set("Retry-After", "1")
				http.Error(w, "slow down", http.StatusTooManyRequests)
				return
			}
			retryAt = time.Now()
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		// Backoff unit is a millisecond; a 1s gap can only come from
		// the Retry-After header being honored.
		f := NewFetcher(srv.Client().Transport, WithBackoff(time.Millisecond, 2*time.Second))
		res, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if res.Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", res.Attempts)
		}
		if gap := retryAt.Sub(firstFailure); gap < 900*time.Millisecond {
			t.Errorf("retry came %v after failure, want >= ~1s", gap)
		}
	})

	t.Run("connection refused is retried then classified", func(t *testing.T) {
		t.Parallel()

		// Grab a port and close it so connections are refused.
		srv := httptest.NewServer(http.NotFoundHandler())
		deadURL := srv.URL
		srv.Close()

		f := NewFetcher(http.DefaultTransport, fastBackoff())
		_, err := f.Fetch(context.Background(), deadURL)

		var ferr *Error
		if !errors.As(err, &ferr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if ferr.Kind != KindConnection {
			t.Errorf("Kind = %s, want %s", ferr.Kind, KindConnection)
		}
		if ferr.Attempts != DefaultMaxAttempts {
			t.Errorf("Attempts = %d, want %d", ferr.Attempts, DefaultMaxAttempts)
		}
	})

	t.Run("timeout is classified as TIMEOUT", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		f := NewFetcher(srv.Client().Transport, fastBackoff(), WithTimeout(30*time.Millisecond))
		_, err := f.Fetch(context.Background(), srv.URL)

		var ferr *Error
		if !errors.As(err, &ferr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if ferr.Kind != KindTimeout {
			t.Errorf("Kind = %s, want %s", ferr.Kind, KindTimeout)
		}
	})
}

// TestFetchRedirects tests redirect-chain capture.
func TestFetchRedirects(t *testing.T) {
	t.Parallel()

	t.Run("chain is recorded in hop order", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/interim", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/interim", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/final", http.StatusFound)
		})
		mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("landed"))
		})

		f := NewFetcher(srv.Client().Transport, fastBackoff())
		res, err := f.Fetch(context.Background(), srv.URL+"/old")
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if res.FinalURL != srv.URL+"/final" {
			t.Errorf("FinalURL = %q, want %q", res.FinalURL, srv.URL+"/final")
		}
		if len(res.RedirectChain) != 2 {
			t.Fatalf("RedirectChain has %d hops, want 2: %v", len(res.RedirectChain), res.RedirectChain)
		}
		first := res.RedirectChain[0]
		if first.From != srv.URL+"/old" || first.To != srv.URL+"/interim" || first.StatusCode != http.StatusMovedPermanently {
			t.Errorf("unexpected first hop: %+v", first)
		}
		second := res.RedirectChain[1]
		if second.From != srv.URL+"/interim" || second.To != srv.URL+"/final" || second.StatusCode != http.StatusFound {
			t.Errorf("unexpected second hop: %+v", second)
		}
	})

	t.Run("redirect loops give up", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()
		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/b", http.StatusFound)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/a", http.StatusFound)
		})

		f := NewFetcher(srv.Client().Transport, fastBackoff())
		if _, err := f.Fetch(context.Background(), srv.URL+"/a"); err == nil {
			t.Error("expected error from redirect loop")
		}
	})
}

// TestFetchBodyLimit verifies oversized bodies are truncated, not
// rejected.
func TestFetchBodyLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client().Transport, fastBackoff(), WithMaxBodySize(1024))
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(res.Body) != 1024 {
		t.Errorf("body length = %d, want 1024", len(res.Body))
	}
}

// TestFetchCancellation verifies a canceled context stops the retry
// loop instead of sleeping through the remaining backoff.
func TestFetchCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client().Transport, WithBackoff(time.Hour, time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch took %v, should abort on cancellation", elapsed)
	}
}

// TestParseRetryAfter tests both Retry-After encodings.
func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	t.Run("delta seconds", func(t *testing.T) {
		t.Parallel()
		if got := parseRetryAfter("7"); got != 7*time.Second {
			t.Errorf("parseRetryAfter(7) = %v, want 7s", got)
		}
	})

	t.Run("http date", func(t *testing.T) {
		t.Parallel()
		at := time.Now().Add(5 * time.Second).UTC().Format(http.TimeFormat)
		got := parseRetryAfter(at)
		if got <= 0 || got > 5*time.Second {
			t.Errorf("parseRetryAfter(date) = %v, want (0s, 5s]", got)
		}
	})

	t.Run("garbage and negatives yield zero", func(t *testing.T) {
		t.Parallel()
		for _, v := range []string{"", "soon", "-3"} {
			if got := parseRetryAfter(v); got != 0 {
				t.Errorf("parseRetryAfter(%q) = %v, want 0", v, got)
			}
		}
	})
}
