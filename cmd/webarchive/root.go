// Package main provides the entry point for the webarchive CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webarchive.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webarchive",
		Short: "Polite, resumable website archiver",
		Long: `webarchive crawls a single website and stores every page and asset
in a local, content-addressed archive.

It honors robots.txt and Crawl-Delay, deduplicates identical content,
checkpoints its progress so interrupted crawls can resume, and keeps
a timestamped index of every capture for later lookup.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewResumeCmd())
	cmd.AddCommand(NewLookupCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
