package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/webarchive/internal/archive"
	"github.com/nao1215/webarchive/internal/config"
	"github.com/nao1215/webarchive/internal/database"
	"github.com/nao1215/webarchive/internal/log"
	"github.com/nao1215/webarchive/internal/model"
	"github.com/spf13/cobra"
)

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <url-or-digest>",
		Short: "Query the archive index for captured URLs",
		Long: `Lookup queries the archive index. The query is either a URL (matched
after normalization) or a payload digest (a string starting with
"sha256:"), which finds every URL whose content had that digest.

With --prefix, the query matches every archived URL starting with the
given string. With --from/--to, results are restricted to captures in
the given 14-digit timestamp range (YYYYMMDDHHMMSS).

Examples:
  # Find captures of one page
  webarchive lookup https://example.com/about

  # Find every URL that served identical content
  webarchive lookup sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824

  # List everything archived under a path
  webarchive lookup --prefix https://example.com/blog/

  # List captures from one day
  webarchive lookup --from 20260830000000 --to 20260831000000 https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLookupCmd,
	}

	cmd.Flags().String("archive-dir", "",
		"Directory holding the archive database (default: XDG data directory)")
	cmd.Flags().Bool("prefix", false,
		"Treat the query as a URL prefix instead of an exact URL")
	cmd.Flags().String("from", "",
		"Lower bound 14-digit timestamp (inclusive)")
	cmd.Flags().String("to", "",
		"Upper bound 14-digit timestamp (exclusive)")
	cmd.Flags().BoolP("json", "j", false,
		"Output matches as JSON")

	return cmd
}

// runLookupCmd executes the lookup command.
func runLookupCmd(cmd *cobra.Command, args []string) error {
	archiveDir, err := cmd.Flags().GetString("archive-dir")
	if err != nil {
		return err
	}
	if archiveDir == "" {
		archiveDir = config.XDGDataDir()
	}

	prefix, err := cmd.Flags().GetBool("prefix")
	if err != nil {
		return err
	}
	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return err
	}
	to, err := cmd.Flags().GetString("to")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(archiveDir, database.ReadOnlyOptions())
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	var entries []model.IndexEntry
	switch {
	case from != "" || to != "":
		if from == "" || to == "" {
			return errors.New("--from and --to must be used together")
		}
		entries, err = db.QueryIndexByTimeRange(ctx, from, to)
	case prefix:
		if len(args) == 0 {
			return errors.New("a URL prefix argument is required with --prefix")
		}
		entries, err = db.QueryIndexByPrefix(ctx, args[0])
	default:
		if len(args) == 0 {
			return errors.New("a URL or digest argument is required")
		}
		cfg := config.NewConfig()
		cfg.ArchiveDir = archiveDir
		engine := archive.New(db, cfg, archive.WithLogger(log.NewSecureLogger(os.Stderr, false)))
		var res *archive.LookupResult
		res, err = engine.Lookup(ctx, args[0])
		if err == nil && res.Asset != nil {
			return printAsset(cmd, res.Asset, asJSON)
		}
		if err == nil {
			entries = res.Entries
		}
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No captures found.")
			return nil
		}
		return fmt.Errorf("lookup failed: %w", err)
	}

	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", e.Timestamp, e.URI, e.PayloadDigest)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d capture(s)\n", len(entries))
	return nil
}

// printAsset outputs a single archived asset record.
func printAsset(cmd *cobra.Command, asset *model.AssetRecord, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(asset)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "asset  %s  %s  %s  %d bytes\n",
		asset.URL, asset.ContentHash, asset.MIMEType, asset.ByteSize)
	return nil
}
