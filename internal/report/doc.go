// Package report renders crawl session summaries in human-readable
// text, JSON, and Markdown formats.
//
// Reports are built from persisted session statistics, so they can be
// produced for a live session, a finished one, or one from a previous
// run of the tool.
package report
