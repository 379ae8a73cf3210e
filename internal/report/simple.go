package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/ldcrawl/internal/crawler"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// verbose lists every resource, not only the failures.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-resource listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeStatuses(&sb, summary)
	w.writeTags(&sb, summary)
	w.writeFailures(&sb, summary)
	if w.verbose {
		w.writeResources(&sb, summary)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          LDCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Session:   %s\n", s.SessionID)
	for i, seed := range s.Seeds {
		label := "Seed:"
		if i > 0 {
			label = ""
		}
		fmt.Fprintf(sb, "%-10s %s\n", label, seed)
	}
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:   %s\n", s.StartedAt.Format(timeLayout))
		fmt.Fprintf(sb, "Elapsed:   %s\n", s.Elapsed().Round(1e6))
	}
	fmt.Fprintf(sb, "Resources: %d (%d facts)\n\n", s.Total, s.Facts)
}

func (w *SimpleWriter) writeStatuses(sb *strings.Builder, s *Summary) {
	writeSection(sb, "STATUS SUMMARY")
	for _, st := range crawler.AllStatuses() {
		fmt.Fprintf(sb, "  %-28s %d\n", st.String()+":", s.Count(st))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTags(sb *strings.Builder, s *Summary) {
	if len(s.TagCounts) == 0 {
		return
	}
	writeSection(sb, "REPRESENTATIONS")
	for _, tag := range s.Tags() {
		name := tag
		if name == "" {
			name = "(empty)"
		}
		fmt.Fprintf(sb, "  %-28s %d\n", name+":", s.TagCounts[tag])
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *Summary) {
	failures := s.Failures()
	if len(failures) == 0 {
		return
	}
	writeSection(sb, "FAILURES")
	for _, f := range failures {
		fmt.Fprintf(sb, "  [%s] %s\n", f.Status, f.URI)
		if f.StatusCode != 0 {
			fmt.Fprintf(sb, "    HTTP %d\n", f.StatusCode)
		}
		if f.Error != "" {
			fmt.Fprintf(sb, "    Error: %s\n", f.Error)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResources(sb *strings.Builder, s *Summary) {
	if len(s.Resources) == 0 {
		return
	}
	writeSection(sb, "RESOURCES")
	for _, r := range s.Resources {
		fmt.Fprintf(sb, "  %-26s %s\n", r.Status, r.URI)
		if r.OK() {
			fmt.Fprintf(sb, "    %s, %d facts, %dms\n", orDash(r.ContentType), r.Facts, r.DurationMS)
		}
	}
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
