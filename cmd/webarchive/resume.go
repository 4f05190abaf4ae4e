package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nao1215/webarchive/internal/archive"
	"github.com/nao1215/webarchive/internal/config"
	"github.com/nao1215/webarchive/internal/database"
	"github.com/nao1215/webarchive/internal/log"
	"github.com/spf13/cobra"
)

// NewResumeCmd creates the resume command.
func NewResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [session-id]",
		Short: "Continue an interrupted archive session",
		Long: `Resume continues a previously interrupted crawl from its latest
checkpoint. Pages archived before the interruption are not refetched.

Without a session ID, the most recent session is resumed.

Examples:
  # Resume the most recent session
  webarchive resume

  # Resume a specific session
  webarchive resume 7c9e6679-7425-40de-944b-e07fc1f90ae7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runResumeCmd,
	}

	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed (0 = seed only)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to archive")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum delay between requests to the same domain")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent fetches")
	cmd.Flags().Duration("budget", 0,
		"Wall-clock time budget for the session (0 = unlimited)")
	cmd.Flags().Bool("skip-assets", false,
		"Archive HTML pages only, skipping images, CSS, and scripts")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("archive-dir", "",
		"Directory holding the archive database (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webarchive in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runResumeCmd executes the resume command.
func runResumeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	var sessionID string
	if len(args) > 0 {
		sessionID = args[0]
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	db, err := database.Open(cfg.ArchiveDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer db.Close()

	engine := archive.New(db, cfg, archive.WithLogger(logger))

	fmt.Println("Resuming archive session...")
	startTime := time.Now()

	session, err := engine.Resume(ctx, sessionID)
	if err != nil {
		if errors.Is(err, archive.ErrSessionFinished) {
			fmt.Printf("Session %s already completed; nothing to resume.\n", session.ID)
			return outputReport(cmd.Context(), cfg, db, session)
		}
		if errors.Is(err, database.ErrCheckpointNotFound) {
			return fmt.Errorf("no checkpoint found; the session cannot be resumed: %w", err)
		}
		return fmt.Errorf("resume failed: %w", err)
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Session %s %s in %s\n\n", session.ID, session.Status, elapsed.Round(time.Millisecond))

	return outputReport(cmd.Context(), cfg, db, session)
}
