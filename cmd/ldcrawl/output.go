package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/ldcrawl/internal/log"
	"github.com/nao1215/ldcrawl/internal/report"
)

// getBoolFlag reads a flag from the command or, failing that, from the
// root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the sanitizing logger selected by --verbose and
// --log-json. Logs go to the command's error stream.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getBoolFlag(cmd, "verbose")
	if getBoolFlag(cmd, "log-json") {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// reportFormat selects a report writer.
type reportFormat int

const (
	formatText reportFormat = iota
	formatJSON
	formatMarkdown
)

func formatFromFlags(jsonReport, markdownReport bool) reportFormat {
	switch {
	case jsonReport:
		return formatJSON
	case markdownReport:
		return formatMarkdown
	default:
		return formatText
	}
}

// writeReport renders the summary to path, or to stdout when path is empty.
func writeReport(stdout io.Writer, path string, format reportFormat, verbose bool, summary *report.Summary) error {
	output := stdout
	if path != "" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		// Reports list crawled URIs, which may be private
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch format {
	case formatJSON:
		w = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case formatMarkdown:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(verbose))
	}
	_, err := w.Write(summary)
	return err
}
