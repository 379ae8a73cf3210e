package representation

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/knakk/rdf"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// Fact names produced and consumed by GraphHandler.
const (
	// TagRDF is the structural tag of triple facts: rdf(S, P, O).
	TagRDF = "rdf"

	// FunctorBlank marks a blank node term: blank(id).
	FunctorBlank = "blank"

	// FunctorLiteral marks a literal term: literal(lexical, datatype[, lang]).
	FunctorLiteral = "literal"
)

// GraphHandler wraps github.com/knakk/rdf to read and write RDF graphs.
// Each triple becomes rdf(S, P, O) where IRIs are string scalars, blank
// nodes are blank(id), and literals are literal(lexical, datatype[, lang]).
type GraphHandler struct{}

// NewGraphHandler creates a GraphHandler.
func NewGraphHandler() *GraphHandler {
	return &GraphHandler{}
}

// Tag implements Handler.
func (h *GraphHandler) Tag() string { return TagRDF }

// ContentTypes implements Handler.
func (h *GraphHandler) ContentTypes() []string {
	return []string{"text/turtle", "application/n-triples"}
}

// ReadOnly implements Handler.
func (h *GraphHandler) ReadOnly() bool { return false }

// format picks the knakk/rdf serialization for a media type.
func (h *GraphHandler) format(contentType string) rdf.Format {
	if MediaType(contentType) == "application/n-triples" {
		return rdf.NTriples
	}
	return rdf.Turtle
}

// Deserialize implements Handler. For Turtle, relative IRIs resolve against
// baseURI, or against the document's own @base/BASE directives.
func (h *GraphHandler) Deserialize(r io.Reader, baseURI, contentType string) (fact.Collection, error) {
	format := h.format(contentType)

	src := r
	if format == rdf.Turtle {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read graph: %w", err)
		}
		base := ""
		if isAbsoluteIRI(baseURI) {
			base = baseURI
		}
		src = strings.NewReader(rewriteBases(string(body), base))
	}

	dec := rdf.NewTripleDecoder(src, format)
	facts := fact.Empty()
	for {
		triple, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unsupportedErr("malformed graph", err)
		}
		facts = append(facts, fact.New(TagRDF,
			termFact(triple.Subj),
			termFact(triple.Pred),
			termFact(triple.Obj),
		))
	}
	return facts, nil
}

// knakk/rdf joins a relative IRI to the base by plain concatenation, which
// is wrong for "../x", "/x" and "x" alike. Every base the decoder sees is
// therefore replaced by a marker IRI that carries the real base, escaped,
// up to a '!'. Whatever the decoder appends after the marker is the
// relative reference, which decodeIRI resolves per RFC 3986.
const relativeMarker = "urn:ldcrawl:base:"

// baseDirective matches Turtle "@base <iri>" and SPARQL-style "BASE <iri>"
// at the start of a line.
var baseDirective = regexp.MustCompile(`(?m)^([ \t]*)(@base|(?i:base))([ \t]*)<([^>]*)>`)

// rewriteBases prefixes body with a marker base for base and replaces
// each base directive in body by the marker of its resolved IRI.
func rewriteBases(body, base string) string {
	current := base
	body = baseDirective.ReplaceAllStringFunc(body, func(m string) string {
		g := baseDirective.FindStringSubmatch(m)
		current = resolveIRI(current, g[4])
		return g[1] + g[2] + g[3] + "<" + markBase(current) + ">"
	})
	return "@base <" + markBase(base) + "> .\n" + body
}

func markBase(base string) string {
	return relativeMarker + url.QueryEscape(base) + "!"
}

// decodeIRI turns a decoded IRI back into an absolute one when it was
// relative in the source. Other IRIs are returned unchanged.
func decodeIRI(iri string) string {
	rest, ok := strings.CutPrefix(iri, relativeMarker)
	if !ok {
		return iri
	}
	escaped, ref, ok := strings.Cut(rest, "!")
	if !ok {
		return iri
	}
	base, err := url.QueryUnescape(escaped)
	if err != nil {
		return iri
	}
	if base == "" {
		return ref
	}
	return resolveIRI(base, ref)
}

// termFact converts an RDF term into a fact node.
func termFact(term rdf.Term) fact.Node {
	switch t := term.(type) {
	case rdf.IRI:
		return fact.String(decodeIRI(t.String()))
	case rdf.Blank:
		return fact.New(FunctorBlank, fact.String(strings.TrimPrefix(t.String(), "_:")))
	case rdf.Literal:
		args := []fact.Node{fact.String(t.String()), fact.String(decodeIRI(t.DataType.String()))}
		if lang := t.Lang(); lang != "" {
			args = append(args, fact.String(lang))
		}
		return fact.New(FunctorLiteral, args...)
	default:
		return fact.String(term.String())
	}
}

// Serialize implements Handler. Every fact must be rdf/3.
func (h *GraphHandler) Serialize(w io.Writer, facts fact.Collection, baseURI, contentType string) error {
	enc := rdf.NewTripleEncoder(w, h.format(contentType))
	for i, n := range facts {
		triple, err := factTriple(n, baseURI)
		if err != nil {
			return fmt.Errorf("fact %d: %w", i, err)
		}
		if err := enc.Encode(triple); err != nil {
			return fmt.Errorf("failed to write triple: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush graph: %w", err)
	}
	return nil
}

// factTriple converts an rdf(S, P, O) fact into a knakk/rdf triple.
func factTriple(n fact.Node, baseURI string) (rdf.Triple, error) {
	s, ok := n.(fact.Struct)
	if !ok || s.Functor != TagRDF || s.Arity() != 3 {
		return rdf.Triple{}, unsupported("not %s/3: %s", TagRDF, n)
	}

	subj, err := termFromFact(s.Args[0], baseURI)
	if err != nil {
		return rdf.Triple{}, err
	}
	subject, ok := subj.(rdf.Subject)
	if !ok {
		return rdf.Triple{}, unsupported("literal cannot be a subject: %s", s.Args[0])
	}

	pred, err := termFromFact(s.Args[1], baseURI)
	if err != nil {
		return rdf.Triple{}, err
	}
	predicate, ok := pred.(rdf.IRI)
	if !ok {
		return rdf.Triple{}, unsupported("predicate must be an IRI: %s", s.Args[1])
	}

	obj, err := termFromFact(s.Args[2], baseURI)
	if err != nil {
		return rdf.Triple{}, err
	}
	object, ok := obj.(rdf.Object)
	if !ok {
		return rdf.Triple{}, unsupported("invalid object: %s", s.Args[2])
	}

	return rdf.Triple{Subj: subject, Pred: predicate, Obj: object}, nil
}

// termFromFact converts a fact node into an RDF term.
func termFromFact(n fact.Node, baseURI string) (rdf.Term, error) {
	switch v := n.(type) {
	case fact.Scalar:
		iri, ok := v.Text()
		if !ok {
			return nil, unsupported("IRI must be a string: %s", n)
		}
		out, err := rdf.NewIRI(resolveIRI(baseURI, iri))
		if err != nil {
			return nil, unsupportedErr("invalid IRI "+iri, err)
		}
		return out, nil
	case fact.Struct:
		switch v.Functor {
		case FunctorBlank:
			id, ok := v.TextArg(0)
			if !ok {
				return nil, unsupported("blank node without id: %s", n)
			}
			out, err := rdf.NewBlank(id)
			if err != nil {
				return nil, unsupportedErr("invalid blank node", err)
			}
			return out, nil
		case FunctorLiteral:
			return literalFromFact(v)
		}
	}
	return nil, unsupported("cannot express %s as an RDF term", n)
}

func literalFromFact(s fact.Struct) (rdf.Term, error) {
	lexical, ok := s.TextArg(0)
	if !ok {
		return nil, unsupported("literal without lexical form: %s", s)
	}
	if lang, ok := s.TextArg(2); ok && lang != "" {
		out, err := rdf.NewLangLiteral(lexical, lang)
		if err != nil {
			return nil, unsupportedErr("invalid language literal", err)
		}
		return out, nil
	}
	if dt, ok := s.TextArg(1); ok && dt != "" {
		iri, err := rdf.NewIRI(dt)
		if err != nil {
			return nil, unsupportedErr("invalid datatype "+dt, err)
		}
		return rdf.NewTypedLiteral(lexical, iri), nil
	}
	out, err := rdf.NewLiteral(lexical)
	if err != nil {
		return nil, unsupportedErr("invalid literal", err)
	}
	return out, nil
}

// resolveIRI resolves a relative reference against base; absolute IRIs and
// unparsable input are returned unchanged.
func resolveIRI(base, ref string) string {
	if base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func isAbsoluteIRI(s string) bool {
	if s == "" || strings.ContainsAny(s, "<> \"{}|\\^`") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

var _ Handler = (*GraphHandler)(nil)
