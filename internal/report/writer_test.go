package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webarchive/internal/database"
	"github.com/nao1215/webarchive/internal/model"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *Summary {
	session := &model.CrawlSession{
		ID:        "11111111-2222-3333-4444-555555555555",
		SeedURL:   "https://example.com/",
		Domain:    "example.com",
		Status:    model.StatusCompleted,
		StartedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	stats := &database.SessionStats{
		Pages:     10,
		Revisits:  2,
		Assets:    5,
		Blobs:     4,
		BlobBytes: 2048,
		Errors:    1,
		ErrorsByKind: map[string]int{
			"HTTP_4XX": 1,
		},
		AssetsByType: map[string]int{
			"image": 3,
			"css":   2,
		},
	}
	return NewSummary(session, stats)
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "WEBARCHIVE REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "example.com") {
			t.Error("expected output to contain domain")
		}
		if !strings.Contains(output, "completed") {
			t.Error("expected output to contain session status")
		}
	})

	t.Run("writes record counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Pages archived:      10") {
			t.Error("expected output to contain page count")
		}
		if !strings.Contains(output, "Duplicate payloads:  2") {
			t.Error("expected output to contain revisit count")
		}
		if !strings.Contains(output, "16.7% dedup") {
			t.Error("expected output to contain dedup ratio")
		}
	})

	t.Run("writes asset breakdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "ASSETS BY TYPE") {
			t.Error("expected output to contain asset section")
		}
		if !strings.Contains(output, "image") {
			t.Error("expected output to contain image asset type")
		}
	})

	t.Run("writes failure breakdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "FAILURES BY KIND") {
			t.Error("expected output to contain failure section")
		}
		if !strings.Contains(output, "HTTP_4XX") {
			t.Error("expected output to contain failure kind")
		}
	})

	t.Run("omits empty sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		summary := createTestSummary()
		summary.AssetsByType = nil
		summary.ErrorsByKind = nil

		_, err := w.Write(summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "ASSETS BY TYPE") {
			t.Error("should not show asset section without assets")
		}
		if strings.Contains(output, "FAILURES BY KIND") {
			t.Error("should not show failure section without failures")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed Summary
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		if parsed.Domain != "example.com" {
			t.Errorf("expected domain %q, got %q", "example.com", parsed.Domain)
		}
		if parsed.Pages != 10 {
			t.Errorf("expected 10 pages, got %d", parsed.Pages)
		}
		if parsed.ErrorsByKind["HTTP_4XX"] != 1 {
			t.Errorf("expected 1 HTTP_4XX error, got %d", parsed.ErrorsByKind["HTTP_4XX"])
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) > 1 {
			t.Errorf("expected compact output (1 line), got %d lines", len(lines))
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) < 5 {
			t.Errorf("expected multi-line output, got %d lines", len(lines))
		}
	})

	t.Run("custom prefix and indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithIndent(">>", "\t"))

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, ">>") {
			t.Error("expected custom prefix '>>' in output")
		}
		if !strings.Contains(output, "\t") {
			t.Error("expected tab indentation in output")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Web Archive Report") {
			t.Error("expected output to contain H1 header")
		}
		if !strings.Contains(output, "example.com") {
			t.Error("expected output to contain domain")
		}
		if !strings.Contains(output, "Completed") {
			t.Error("expected output to contain status")
		}
	})

	t.Run("writes record table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Records") {
			t.Error("expected output to contain records header")
		}
		if !strings.Contains(output, "| Pages") {
			t.Error("expected output to contain pages row")
		}
	})

	t.Run("includes pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "pie") {
			t.Error("expected output to contain mermaid pie chart")
		}
	})

	t.Run("includes warning alert for failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!WARNING]") {
			t.Error("expected WARNING alert for fetch failures")
		}
	})

	t.Run("tip alert when no failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		summary := createTestSummary()
		summary.Errors = 0
		summary.ErrorsByKind = nil

		_, err := w.Write(summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected TIP alert for clean session")
		}
	})

	t.Run("paused status is marked resumable", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		summary := createTestSummary()
		summary.Status = model.StatusPaused

		_, err := w.Write(summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "resumable") {
			t.Error("expected paused status to be marked resumable")
		}
	})

	t.Run("writes footer with link", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "https://github.com/nao1215/webarchive") {
			t.Error("expected footer with repository link")
		}
	})
}

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		multi := NewMultiWriter(NewSimpleWriter(&buf1), NewJSONWriter(&buf2))

		n, err := multi.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero bytes written")
		}

		if buf1.Len() == 0 {
			t.Error("expected buf1 to have content")
		}
		if buf2.Len() == 0 {
			t.Error("expected buf2 to have content")
		}
		if strings.Contains(buf1.String(), "{") {
			t.Error("expected buf1 (simple) to not be JSON")
		}
		if !strings.Contains(buf2.String(), "{") {
			t.Error("expected buf2 (JSON) to contain JSON")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		multi := NewMultiWriter()

		n, err := multi.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 bytes written for empty writers, got %d", n)
		}
	})
}

// TestSummaryDerived tests the derived summary metrics.
func TestSummaryDerived(t *testing.T) {
	t.Parallel()

	t.Run("total records", func(t *testing.T) {
		t.Parallel()

		summary := createTestSummary()
		if got := summary.TotalRecords(); got != 17 {
			t.Errorf("expected 17 total records, got %d", got)
		}
	})

	t.Run("dedup ratio", func(t *testing.T) {
		t.Parallel()

		summary := createTestSummary()
		want := 2.0 / 12.0
		if got := summary.DedupRatio(); got != want {
			t.Errorf("expected dedup ratio %f, got %f", want, got)
		}
	})

	t.Run("dedup ratio with no fetches", func(t *testing.T) {
		t.Parallel()

		summary := &Summary{}
		if got := summary.DedupRatio(); got != 0 {
			t.Errorf("expected zero ratio, got %f", got)
		}
	})
}
