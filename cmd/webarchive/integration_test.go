package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newArchiveTestServer serves a tiny two-page site over plain HTTP.
func newArchiveTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head>
<body><a href="/about">About</a></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>About</title></head>
<body><a href="/">Home</a></body></html>`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestCrawlReportLookupFlow exercises crawl, report, and lookup through
// the CLI against a local test server.
func TestCrawlReportLookupFlow(t *testing.T) {
	srv := newArchiveTestServer(t)
	archiveDir := t.TempDir()
	reportFile := filepath.Join(t.TempDir(), "report.txt")

	// Crawl the test site, writing the report to a file.
	root := NewRootCmd()
	root.SetArgs([]string{
		"crawl", srv.URL,
		"--archive-dir", archiveDir,
		"--delay", "1ms",
		"--skip-assets",
		"--output", reportFile,
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	data, err := os.ReadFile(reportFile)
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}
	output := string(data)
	if !strings.Contains(output, "WEBARCHIVE REPORT") {
		t.Error("expected report header in output file")
	}
	if !strings.Contains(output, "Pages archived:      2") {
		t.Errorf("expected 2 archived pages in report, got:\n%s", output)
	}

	// List sessions.
	var listBuf bytes.Buffer
	root = NewRootCmd()
	root.SetOut(&listBuf)
	root.SetArgs([]string{"report", "--list", "--archive-dir", archiveDir})
	if err := root.Execute(); err != nil {
		t.Fatalf("report --list failed: %v", err)
	}
	if !strings.Contains(listBuf.String(), "completed") {
		t.Errorf("expected completed session in listing, got:\n%s", listBuf.String())
	}

	// Look up a captured URL.
	var lookupBuf bytes.Buffer
	root = NewRootCmd()
	root.SetOut(&lookupBuf)
	root.SetArgs([]string{"lookup", srv.URL + "/about", "--archive-dir", archiveDir})
	if err := root.Execute(); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !strings.Contains(lookupBuf.String(), "/about") {
		t.Errorf("expected capture of /about, got:\n%s", lookupBuf.String())
	}
	if !strings.Contains(lookupBuf.String(), "1 capture(s)") {
		t.Errorf("expected one capture, got:\n%s", lookupBuf.String())
	}

	// Prefix query matches both pages.
	var prefixBuf bytes.Buffer
	root = NewRootCmd()
	root.SetOut(&prefixBuf)
	root.SetArgs([]string{"lookup", "--prefix", srv.URL, "--archive-dir", archiveDir})
	if err := root.Execute(); err != nil {
		t.Fatalf("prefix lookup failed: %v", err)
	}
	if !strings.Contains(prefixBuf.String(), "2 capture(s)") {
		t.Errorf("expected two captures, got:\n%s", prefixBuf.String())
	}
}

// TestLookupMissingArchive verifies lookup refuses to create a database.
func TestLookupMissingArchive(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"lookup", "https://example.com", "--archive-dir", t.TempDir()})

	if err := root.Execute(); err == nil {
		t.Error("expected error for missing archive database")
	}
}
