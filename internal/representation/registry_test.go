package representation

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// stubHandler is a minimal handler used to observe dispatch decisions.
type stubHandler struct {
	name  string
	tag   string
	types []string
}

func (s *stubHandler) Tag() string            { return s.tag }
func (s *stubHandler) ContentTypes() []string { return s.types }
func (s *stubHandler) ReadOnly() bool         { return false }

func (s *stubHandler) Serialize(w io.Writer, _ fact.Collection, _, _ string) error {
	_, err := io.WriteString(w, s.name)
	return err
}

func (s *stubHandler) Deserialize(io.Reader, string, string) (fact.Collection, error) {
	return fact.Collection{fact.New(s.tag, fact.String(s.name))}, nil
}

// TestRegistryHandlerFor tests media type dispatch on the read path.
func TestRegistryHandlerFor(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(Builtin()...)

	tests := []struct {
		name        string
		contentType string
		wantTag     string
	}{
		{name: "exact text/plain", contentType: "text/plain", wantTag: TagText},
		{name: "parameters are ignored", contentType: "text/plain; charset=UTF-8", wantTag: TagText},
		{name: "case is ignored", contentType: "Text/Turtle", wantTag: TagRDF},
		{name: "unknown text type falls back to text", contentType: "text/csv", wantTag: TagText},
		{name: "html wins over text wildcard", contentType: "text/html; charset=utf-8", wantTag: TagHTML},
		{name: "yaml wins over text wildcard", contentType: "text/yaml", wantTag: TagYAML},
		{name: "json-ld", contentType: "application/ld+json", wantTag: TagJSON},
		{name: "n-triples", contentType: "application/n-triples", wantTag: TagRDF},
		{name: "jpeg", contentType: "image/jpeg", wantTag: TagEXIF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, err := reg.HandlerFor(tt.contentType)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Tag() != tt.wantTag {
				t.Errorf("expected handler with tag %q, got %q", tt.wantTag, h.Tag())
			}
		})
	}
}

// TestRegistryDeserializeUnsupported verifies that unknown media types
// always fail with ErrUnsupportedRepresentation.
func TestRegistryDeserializeUnsupported(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(Builtin()...)

	for _, ct := range []string{"", "application/octet-stream", "video/mp4", "not a media type"} {
		t.Run("content type "+ct, func(t *testing.T) {
			t.Parallel()

			facts, err := reg.Deserialize(strings.NewReader("data"), "http://example.org/", ct)
			if !errors.Is(err, ErrUnsupportedRepresentation) {
				t.Errorf("expected ErrUnsupportedRepresentation, got %v", err)
			}
			if facts == nil || len(facts) != 0 {
				t.Errorf("expected empty non-nil collection, got %#v", facts)
			}
		})
	}
}

// TestRegistryRegister verifies last-registration-wins semantics.
func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("later handler replaces earlier for shared keys", func(t *testing.T) {
		t.Parallel()

		first := &stubHandler{name: "first", tag: "x", types: []string{"application/x-test"}}
		second := &stubHandler{name: "second", tag: "x", types: []string{"application/x-test"}}
		reg := NewRegistry(first, second)

		h, err := reg.HandlerFor("application/x-test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h != second {
			t.Error("expected the second handler for the content type")
		}

		var buf bytes.Buffer
		if err := reg.Serialize(&buf, fact.Collection{fact.New("x")}, ""); err != nil {
			t.Fatalf("serialize failed: %v", err)
		}
		if buf.String() != "second" {
			t.Errorf("expected second handler to serialize, got %q", buf.String())
		}
	})

	t.Run("registering the same handler twice is idempotent", func(t *testing.T) {
		t.Parallel()

		h := &stubHandler{name: "only", tag: "y", types: []string{"application/y"}}
		reg := NewRegistry(h)
		reg.Register(h)

		if got := reg.ContentTypes(); len(got) != 1 || got[0] != "application/y" {
			t.Errorf("expected one content type, got %v", got)
		}
	})

	t.Run("concurrent lookups during registration", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry(Builtin()...)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				reg.Register(&stubHandler{name: "z", tag: "z", types: []string{"application/z"}})
			}()
			go func() {
				defer wg.Done()
				if _, err := reg.HandlerFor("text/plain"); err != nil {
					t.Errorf("lookup failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})
}

// TestRegistrySerialize tests tag dispatch on the write path.
func TestRegistrySerialize(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(Builtin()...)

	t.Run("unknown tag", func(t *testing.T) {
		t.Parallel()
		err := reg.Serialize(io.Discard, fact.Collection{fact.New("nope", fact.String("x"))}, "")
		if !errors.Is(err, ErrUnsupportedRepresentation) {
			t.Errorf("expected ErrUnsupportedRepresentation, got %v", err)
		}
	})

	t.Run("untagged collection", func(t *testing.T) {
		t.Parallel()
		err := reg.Serialize(io.Discard, fact.Collection{fact.String("x")}, "")
		if !errors.Is(err, ErrUnsupportedRepresentation) {
			t.Errorf("expected ErrUnsupportedRepresentation, got %v", err)
		}
	})

	t.Run("read-only tags are not serializable", func(t *testing.T) {
		t.Parallel()
		err := reg.Serialize(io.Discard, fact.Collection{fact.New(TagHTML, fact.String("t"))}, "")
		if !errors.Is(err, ErrUnsupportedRepresentation) {
			t.Errorf("expected ErrUnsupportedRepresentation, got %v", err)
		}
	})

	t.Run("serialize as a read-only type", func(t *testing.T) {
		t.Parallel()
		err := reg.SerializeAs(io.Discard, fact.Collection{fact.New(TagText, fact.String("t"))}, "", "text/html")
		if !errors.Is(err, ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", err)
		}
	})

	t.Run("facts foreign to the chosen handler", func(t *testing.T) {
		t.Parallel()
		err := reg.SerializeAs(io.Discard, fact.Collection{fact.New(TagText, fact.String("t"))}, "", "text/turtle")
		if !errors.Is(err, ErrUnsupportedRepresentation) {
			t.Errorf("expected ErrUnsupportedRepresentation, got %v", err)
		}
	})

	t.Run("json facts re-encoded as yaml", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		facts := fact.Collection{fact.New(TagJSON, fact.Mapping{"a": fact.Int(1)})}
		if err := reg.SerializeAs(&buf, facts, "", "application/yaml"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "a: 1" {
			t.Errorf("unexpected YAML %q", buf.String())
		}
	})

	t.Run("default content type per tag", func(t *testing.T) {
		t.Parallel()
		ct, err := reg.ContentTypeFor(TagRDF)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ct != "text/turtle" {
			t.Errorf("expected text/turtle, got %q", ct)
		}
	})
}

// TestRegistryAccept checks the generated Accept header.
func TestRegistryAccept(t *testing.T) {
	t.Parallel()

	accept := NewRegistry(Builtin()...).Accept()
	if !strings.HasPrefix(accept, "text/plain, text/turtle") {
		t.Errorf("expected exact types first, got %q", accept)
	}
	if !strings.Contains(accept, "text/*;q=0.5") {
		t.Errorf("expected text wildcard, got %q", accept)
	}
	if !strings.HasSuffix(accept, "*/*;q=0.1") {
		t.Errorf("expected catch-all last, got %q", accept)
	}
}

// TestDefaultRegistry verifies the process-wide registry is shared.
func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	if Default() != Default() {
		t.Error("expected Default to return the same registry")
	}
	if _, err := Default().HandlerFor("text/plain"); err != nil {
		t.Errorf("default registry lacks text handler: %v", err)
	}
}

// TestMediaType tests content type normalization.
func TestMediaType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                                  "",
		"text/plain":                        "text/plain",
		"Text/HTML; charset=UTF-8":          "text/html",
		"application/json;charset=\"broken": "application/json",
	}
	for in, want := range tests {
		if got := MediaType(in); got != want {
			t.Errorf("MediaType(%q) = %q, want %q", in, got, want)
		}
	}
}
