package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeRecords(md, summary)
	w.writeAssets(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with session information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *Summary) {
	md.H1("Web Archive Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + summary.SessionID + "`"},
			{"Seed URL", summary.SeedURL},
			{"Domain", "`" + summary.Domain + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", w.statusText(summary)},
		},
	})
	md.PlainText("")
}

// statusText returns a status cell with a marker for unfinished runs.
func (w *MarkdownWriter) statusText(summary *Summary) string {
	switch summary.Status {
	case "completed":
		return "✅ Completed"
	case "paused":
		return "⏸️ Paused (resumable)"
	case "failed":
		return "❌ Failed"
	default:
		return string(summary.Status)
	}
}

// writeRecords writes the record count section with a distribution
// chart.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, summary *Summary) {
	md.H2("Records")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Record", "Count"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(summary.Pages)},
			{"Duplicate payloads (revisits)", strconv.Itoa(summary.Revisits)},
			{"Assets", strconv.Itoa(summary.Assets)},
			{"Unique blobs", strconv.Itoa(summary.Blobs)},
			{"Fetch failures", strconv.Itoa(summary.Errors)},
			{"**Total records**", "**" + strconv.Itoa(summary.TotalRecords()) + "**"},
		},
	})
	md.PlainText("")

	if summary.TotalRecords() > 0 {
		w.writePieChart(md, summary)
	}
}

// writePieChart writes a mermaid pie chart for record distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Record Distribution"),
		piechart.WithShowData(true),
	)

	if summary.Pages > 0 {
		chart.LabelAndIntValue("Pages", uint64(summary.Pages))
	}
	if summary.Revisits > 0 {
		chart.LabelAndIntValue("Revisits", uint64(summary.Revisits))
	}
	if summary.Assets > 0 {
		chart.LabelAndIntValue("Assets", uint64(summary.Assets))
	}
	if summary.Errors > 0 {
		chart.LabelAndIntValue("Failures", uint64(summary.Errors))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAssets writes the asset classification table.
func (w *MarkdownWriter) writeAssets(md *markdown.Markdown, summary *Summary) {
	md.H2("Assets by Type")
	md.PlainText("")

	if len(summary.AssetsByType) == 0 {
		md.PlainText("No assets archived.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.AssetsByType))
	for _, k := range sortedKeys(summary.AssetsByType) {
		rows = append(rows, []string{k, strconv.Itoa(summary.AssetsByType[k])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the failure breakdown with an advisory alert.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, summary *Summary) {
	md.H2("Fetch Failures")
	md.PlainText("")

	if summary.Errors == 0 {
		md.Tip("Every fetched URL was archived successfully.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.ErrorsByKind))
	for _, k := range sortedKeys(summary.ErrorsByKind) {
		rows = append(rows, []string{k, strconv.Itoa(summary.ErrorsByKind[k])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	md.Warningf("%d URL(s) could not be archived; see the session error log for details.", summary.Errors)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webarchive](https://github.com/nao1215/webarchive)*")
}
