package representation

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// TagText is the structural tag of plain text facts.
const TagText = "text"

// TextHandler maps text bodies to a single text("...") fact.
// It also serves as the fallback for text/* types no other handler claims.
//
// Surrounding whitespace is trimmed on read, so a round trip normalizes
// leading and trailing blanks.
type TextHandler struct{}

// NewTextHandler creates a TextHandler.
func NewTextHandler() *TextHandler {
	return &TextHandler{}
}

// Tag implements Handler.
func (h *TextHandler) Tag() string { return TagText }

// ContentTypes implements Handler.
func (h *TextHandler) ContentTypes() []string {
	return []string{"text/plain", "text/*"}
}

// ReadOnly implements Handler.
func (h *TextHandler) ReadOnly() bool { return false }

// Deserialize implements Handler. A charset parameter other than UTF-8 is
// decoded with golang.org/x/text.
func (h *TextHandler) Deserialize(r io.Reader, _, contentType string) (fact.Collection, error) {
	reader := r
	if cs := mediaParam(contentType, "charset"); cs != "" && !isUTF8(cs) {
		enc, err := htmlindex.Get(cs)
		if err != nil {
			return nil, unsupportedErr("unknown charset "+cs, err)
		}
		reader = enc.NewDecoder().Reader(r)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read text body: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, unsupported("text body is not valid UTF-8")
	}

	return fact.Collection{
		fact.New(TagText, fact.String(strings.TrimSpace(string(data)))),
	}, nil
}

// Serialize implements Handler. The collection must hold exactly one text
// fact: a text body reads back as a single fact, so several facts could not
// survive a round trip.
func (h *TextHandler) Serialize(w io.Writer, facts fact.Collection, _, contentType string) error {
	if len(facts) != 1 {
		return unsupported("%s expects exactly one fact, got %d", TagText, len(facts))
	}
	s, ok := facts[0].(fact.Struct)
	if !ok || s.Functor != TagText || s.Arity() != 1 {
		return unsupported("not %s/1: %s", TagText, facts[0])
	}
	out, ok := s.TextArg(0)
	if !ok {
		return unsupported("non-string argument: %s", facts[0])
	}

	if cs := mediaParam(contentType, "charset"); cs != "" && !isUTF8(cs) {
		enc, err := htmlindex.Get(cs)
		if err != nil {
			return unsupportedErr("unknown charset "+cs, err)
		}
		encoded, err := enc.NewEncoder().String(out)
		if err != nil {
			return unsupportedErr("text not encodable as "+cs, err)
		}
		out = encoded
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(out); err != nil {
		return fmt.Errorf("failed to write text: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write text: %w", err)
	}
	return nil
}

func isUTF8(charset string) bool {
	cs := strings.ToLower(charset)
	return cs == "utf-8" || cs == "utf8"
}

var _ Handler = (*TextHandler)(nil)
