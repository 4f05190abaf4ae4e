package main

import (
	"fmt"

	"github.com/nao1215/webarchive/internal/config"
	"github.com/nao1215/webarchive/internal/database"
	"github.com/nao1215/webarchive/internal/model"
	"github.com/spf13/cobra"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [session-id]",
		Short: "Regenerate the report for an archived session",
		Long: `Report regenerates the summary report for a stored session without
crawling anything. Without a session ID, the most recent session is
reported.

Examples:
  # Report on the most recent session
  webarchive report

  # List all stored sessions
  webarchive report --list

  # Markdown report for a specific session, written to a file
  webarchive report -m -o report.md 7c9e6679-7425-40de-944b-e07fc1f90ae7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReportCmd,
	}

	cmd.Flags().String("archive-dir", "",
		"Directory holding the archive database (default: XDG data directory)")
	cmd.Flags().Bool("list", false,
		"List all stored sessions instead of reporting on one")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	archiveDir, err := cmd.Flags().GetString("archive-dir")
	if err != nil {
		return err
	}
	if archiveDir == "" {
		archiveDir = config.XDGDataDir()
	}

	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.ArchiveDir = archiveDir
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}

	db, err := database.Open(archiveDir, database.ReadOnlyOptions())
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if list {
		return listSessions(cmd, db)
	}

	var session *model.CrawlSession
	if len(args) > 0 {
		session, err = db.GetSession(ctx, args[0])
	} else {
		session, err = db.LatestSession(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	return outputReport(ctx, cfg, db, session)
}

// listSessions prints one line per stored session.
func listSessions(cmd *cobra.Command, db *database.ArchiveDB) error {
	sessions, err := db.ListSessions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions stored.")
		return nil
	}

	for _, s := range sessions {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s  %s  %s\n",
			s.ID, s.Status, s.StartedAt.Format("2006-01-02 15:04"), s.SeedURL)
	}
	return nil
}
