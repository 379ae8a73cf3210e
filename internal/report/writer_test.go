package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ldcrawl/internal/crawler"
	"github.com/nao1215/ldcrawl/internal/fact"
)

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and status summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, buffer has %d", n, buf.Len())
		}

		output := buf.String()
		for _, want := range []string{
			"LDCRAWL REPORT",
			"session-1",
			"http://example.com/a",
			"STATUS SUMMARY",
			"OK:",
			"UNSUPPORTED_REPRESENTATION:",
			"REPRESENTATIONS",
			"rdf:",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("lists failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[CLIENT_ERROR] http://example.com/missing") {
			t.Error("expected client error line")
		}
		if !strings.Contains(output, "HTTP 404") {
			t.Error("expected status code")
		}
		if !strings.Contains(output, "Error: dial tcp: no such host") {
			t.Error("expected transport error message")
		}
		if strings.Contains(output, "RESOURCES") {
			t.Error("resource listing should require verbose")
		}
	})

	t.Run("verbose lists every resource", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "RESOURCES") {
			t.Error("expected resource section")
		}
		if !strings.Contains(output, "text/turtle, 2 facts, 15ms") {
			t.Error("expected resource detail line")
		}
	})

	t.Run("omits failures section when everything succeeded", func(t *testing.T) {
		t.Parallel()

		s := NewSummary("s", nil, time.Time{}, time.Time{}, []crawler.Resource{
			{URI: "http://x/", Status: crawler.StatusOK, Representation: fact.Collection{fact.New("text", fact.String("a"))}},
		})
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "FAILURES") {
			t.Error("unexpected failures section")
		}
		if strings.Contains(buf.String(), "Started:") {
			t.Error("zero start time should not be printed")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output is valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.HasSuffix(output, "\n") {
			t.Error("expected trailing newline")
		}
		if strings.Count(output, "\n") != 1 {
			t.Error("compact output should be a single line")
		}

		var doc struct {
			Version string  `json:"version"`
			Summary Summary `json:"summary"`
		}
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.Version != "" {
			t.Errorf("version = %q, want empty", doc.Version)
		}
		if doc.Summary.SessionID != "session-1" {
			t.Errorf("session_id = %q", doc.Summary.SessionID)
		}
		if doc.Summary.StatusCounts["TRANSPORT_ERROR"] != 1 {
			t.Errorf("status_counts = %v", doc.Summary.StatusCounts)
		}
		if len(doc.Summary.Resources) != 4 {
			t.Errorf("got %d resources, want 4", len(doc.Summary.Resources))
		}
	})

	t.Run("pretty print and version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("v1.2.3"))
		if _, err := w.Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "\n  \"summary\"") {
			t.Error("expected indented output")
		}
		if !strings.Contains(output, `"version": "v1.2.3"`) {
			t.Error("expected version field")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# ldcrawl Report",
			"session-1",
			"## Status Summary",
			"## Representations",
			"## Failures",
			"http://example.com/missing",
			"404",
			"[!WARNING]",
			"pie",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("chart can be disabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithStatusChart(false)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("unexpected mermaid block")
		}
	})

	t.Run("alerts", func(t *testing.T) {
		t.Parallel()

		ok := crawler.Resource{URI: "http://x/ok", Status: crawler.StatusOK, Representation: fact.Collection{fact.New("text", fact.String("a"))}}
		bad := crawler.Resource{URI: "http://x/bad", Status: crawler.StatusServerError, StatusCode: 503, Representation: fact.Empty()}

		tests := []struct {
			name      string
			resources []crawler.Resource
			want      string
		}{
			{name: "empty", resources: nil, want: "[!NOTE]"},
			{name: "all ok", resources: []crawler.Resource{ok}, want: "[!TIP]"},
			{name: "all failed", resources: []crawler.Resource{bad}, want: "[!CAUTION]"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				var buf bytes.Buffer
				s := NewSummary("s", nil, testStart, testStart, tt.resources)
				if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !strings.Contains(buf.String(), tt.want) {
					t.Errorf("expected %s alert", tt.want)
				}
			})
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*Summary) (int, error) {
	return 3, errors.New("disk full")
}

// TestMultiWriter tests writing to several destinations.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))
		n, err := mw.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("n = %d, want %d", n, text.Len()+js.Len())
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))
		n, err := mw.Write(createTestSummary())
		if err == nil {
			t.Fatal("expected error")
		}
		if n != 3 {
			t.Errorf("n = %d, want 3", n)
		}
		if after.Len() != 0 {
			t.Error("writer after the failure should not run")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
