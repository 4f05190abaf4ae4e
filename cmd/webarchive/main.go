// Package main provides the entry point for the webarchive CLI.
//
// webarchive is a polite, resumable website archiver. It crawls a
// single site within robots.txt rules, stores pages and assets with
// content-addressed deduplication, and records every capture in a
// queryable archive index.
//
// Usage:
//
//	webarchive crawl https://example.com
//	webarchive resume
//	webarchive lookup https://example.com/page
//
// See --help for all available options.
package main

// main is the entry point for webarchive.
func main() {
	Execute()
}
