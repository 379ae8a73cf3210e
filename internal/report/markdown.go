package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/ldcrawl/internal/crawler"
)

// MarkdownWriter outputs summaries in Markdown format.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// chart adds a mermaid pie chart of the status distribution.
	chart bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithStatusChart toggles the mermaid status chart. It is on by default.
func WithStatusChart(enabled bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.chart = enabled
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		chart:      true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeStatuses(md, summary)
	w.writeTags(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("ldcrawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Session", "`" + s.SessionID + "`"},
	}
	for _, seed := range s.Seeds {
		rows = append(rows, []string{"Seed", "`" + seed + "`"})
	}
	if !s.StartedAt.IsZero() {
		rows = append(rows,
			[]string{"Started", s.StartedAt.Format(timeLayout)},
			[]string{"Elapsed", s.Elapsed().Round(1e6).String()},
		)
	}
	rows = append(rows,
		[]string{"Resources", strconv.Itoa(s.Total)},
		[]string{"Facts", strconv.Itoa(s.Facts)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStatuses(md *markdown.Markdown, s *Summary) {
	md.H2("Status Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(crawler.AllStatuses())+1)
	for _, st := range crawler.AllStatuses() {
		rows = append(rows, []string{st.String(), strconv.Itoa(s.Count(st))})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(s.Total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if w.chart && s.Total > 0 {
		w.writePieChart(md, s)
	}

	switch {
	case s.Total == 0:
		md.Note("No resources were delivered.")
	case s.Count(crawler.StatusOK) == 0:
		md.Cautionf("All %d resource(s) failed.", s.Total)
	case s.HasFailures():
		md.Warningf("%d of %d resource(s) failed.", s.Total-s.Count(crawler.StatusOK), s.Total)
	default:
		md.Tip("Every resource was fetched and parsed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Resource Status Distribution"),
		piechart.WithShowData(true),
	)
	for _, st := range crawler.AllStatuses() {
		if n := s.Count(st); n > 0 {
			chart.LabelAndIntValue(st.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeTags(md *markdown.Markdown, s *Summary) {
	if len(s.TagCounts) == 0 {
		return
	}
	md.H2("Representations")
	md.PlainText("")

	tags := s.Tags()
	rows := make([][]string, len(tags))
	for i, tag := range tags {
		name := "`" + tag + "`"
		if tag == "" {
			name = "(empty)"
		}
		rows[i] = []string{name, strconv.Itoa(s.TagCounts[tag])}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Tag", "Resources"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *Summary) {
	md.H2("Failures")
	md.PlainText("")

	failures := s.Failures()
	if len(failures) == 0 {
		md.PlainText("No failed resources.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(failures))
	for i, f := range failures {
		code := "-"
		if f.StatusCode != 0 {
			code = strconv.Itoa(f.StatusCode)
		}
		rows[i] = []string{
			truncateString(f.URI, 60),
			f.Status,
			code,
			truncateString(orDash(f.Error), 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URI", "Status", "Code", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ldcrawl](https://github.com/nao1215/ldcrawl)*")
}
