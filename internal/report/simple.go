package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        WEBARCHIVE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Session:     %s\n", summary.SessionID)
	fmt.Fprintf(&sb, "Seed URL:    %s\n", summary.SeedURL)
	fmt.Fprintf(&sb, "Domain:      %s\n", summary.Domain)
	fmt.Fprintf(&sb, "Started:     %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Status:      %s\n", summary.Status)
	sb.WriteString("\n")

	sb.WriteString("RECORDS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Pages archived:      %d\n", summary.Pages)
	fmt.Fprintf(&sb, "Duplicate payloads:  %d (%.1f%% dedup)\n", summary.Revisits, summary.DedupRatio()*100)
	fmt.Fprintf(&sb, "Assets:              %d (%d unique blobs, %d bytes)\n",
		summary.Assets, summary.Blobs, summary.BlobBytes)
	fmt.Fprintf(&sb, "Fetch failures:      %d\n", summary.Errors)
	sb.WriteString("\n")

	if len(summary.AssetsByType) > 0 {
		sb.WriteString("ASSETS BY TYPE\n")
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		for _, k := range sortedKeys(summary.AssetsByType) {
			fmt.Fprintf(&sb, "  %-12s %d\n", k, summary.AssetsByType[k])
		}
		sb.WriteString("\n")
	}

	if len(summary.ErrorsByKind) > 0 {
		sb.WriteString("FAILURES BY KIND\n")
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		for _, k := range sortedKeys(summary.ErrorsByKind) {
			fmt.Fprintf(&sb, "  %-18s %d\n", k, summary.ErrorsByKind[k])
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// sortedKeys returns map keys in deterministic order so report output
// is stable run to run.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
