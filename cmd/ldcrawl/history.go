package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/ldcrawl/internal/config"
	"github.com/nao1215/ldcrawl/internal/crawler"
	"github.com/nao1215/ldcrawl/internal/database"
	"github.com/nao1215/ldcrawl/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [crawl-id]",
		Short: "Show recorded crawls",
		Long: `History lists the crawls recorded in the history database, newest first.

Given a crawl id, it prints the report of that crawl rebuilt from the
stored resources.

Examples:
  # List recorded crawls
  ldcrawl history

  # Report of one crawl as Markdown
  ldcrawl history --markdown 0b6d0f4e-3c55-4f0e-9a77-2d1f0f4b8a21`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	jsonReport, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownReport, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonReport && markdownReport {
		return config.ErrConflictingReportFormats
	}

	// Reading history must not create an empty database
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if errors.Is(err, database.ErrDatabaseNotFound) && len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawls recorded.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if len(args) == 0 {
		return listCrawls(cmd, db)
	}
	return showCrawl(cmd, db, args[0], formatFromFlags(jsonReport, markdownReport))
}

// listCrawls prints one line per recorded crawl.
func listCrawls(cmd *cobra.Command, db *database.ResourceDB) error {
	crawls, err := db.ListCrawls(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list crawls: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(crawls) == 0 {
		fmt.Fprintln(out, "No crawls recorded.")
		fmt.Fprintln(out, "\nUse 'ldcrawl crawl <uri>' to start one.")
		return nil
	}

	fmt.Fprintf(out, "Recorded crawls (%d):\n\n", len(crawls))
	fmt.Fprintf(out, "  %-36s  %-19s  %9s  %s\n", "ID", "Started", "Resources", "Seeds")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))
	for _, c := range crawls {
		fmt.Fprintf(out, "  %-36s  %-19s  %9d  %s\n",
			c.ID,
			c.StartedAt.Local().Format("2006-01-02 15:04:05"),
			c.Resources,
			strings.Join(c.Seeds, " "),
		)
	}
	fmt.Fprintln(out, "\nUse 'ldcrawl history <id>' to see the report of a crawl.")
	return nil
}

// showCrawl rebuilds and prints the report of one crawl.
func showCrawl(cmd *cobra.Command, db *database.ResourceDB, id string, format reportFormat) error {
	ctx := cmd.Context()
	rec, err := db.GetCrawl(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load crawl: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", database.ErrCrawlNotFound, id)
	}

	records, err := db.GetResources(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load resources: %w", err)
	}

	summary := report.NewSummary(rec.ID, rec.Seeds, rec.StartedAt, finishedAt(rec), toResources(records))
	return writeReport(cmd.OutOrStdout(), "", format, getBoolFlag(cmd, "verbose"), summary)
}

// finishedAt falls back to the start time for crawls that never finished.
func finishedAt(rec *database.CrawlRecord) time.Time {
	if rec.FinishedAt.IsZero() {
		return rec.StartedAt
	}
	return rec.FinishedAt
}

// toResources converts stored rows back into crawler resources.
func toResources(records []database.ResourceRecord) []crawler.Resource {
	out := make([]crawler.Resource, len(records))
	for i, r := range records {
		var resErr error
		if r.Error != "" {
			resErr = errors.New(r.Error)
		}
		out[i] = crawler.Resource{
			URI:            r.URI,
			ContentType:    r.ContentType,
			Representation: r.Representation,
			Status:         r.Status,
			StatusCode:     r.StatusCode,
			Err:            resErr,
			FetchedAt:      r.FetchedAt,
			Duration:       r.Duration,
			RequestID:      r.RequestID,
		}
	}
	return out
}
