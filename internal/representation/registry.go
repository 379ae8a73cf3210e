package representation

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// table is an immutable snapshot of the dispatch state.
type table struct {
	// byType maps a bare media type (or "major/*") to its handler.
	byType map[string]Handler

	// byTag maps a structural tag to the handler that serializes it.
	// Read-only handlers are never entered here.
	byTag map[string]Handler

	// types lists registered media types in first-registration order.
	types []string
}

// Registry selects a Handler by media type or structural tag.
//
// Design decision: We publish the table through an atomic pointer and
// rebuild it on every registration because:
//  1. Lookups happen on every fetch and must not contend on a lock
//  2. Registrations are rare and happen at startup
//  3. A reader never observes a half-updated table
type Registry struct {
	// mu serializes writers; readers never take it.
	mu sync.Mutex

	tab atomic.Pointer[table]
}

// NewRegistry creates a registry populated with the given handlers, in order.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{}
	r.tab.Store(&table{
		byType: make(map[string]Handler),
		byTag:  make(map[string]Handler),
		types:  make([]string, 0),
	})
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry holding the built-in handlers.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(Builtin()...)
	})
	return defaultRegistry
}

// Builtin returns a fresh instance of every built-in handler.
// The order matters: later handlers win for shared keys.
func Builtin() []Handler {
	return []Handler{
		NewTextHandler(),
		NewGraphHandler(),
		NewJSONHandler(),
		NewYAMLHandler(),
		NewHTMLHandler(),
		NewEXIFHandler(),
	}
}

// Register adds a handler. Registering a handler for a media type or tag
// that is already present replaces the previous handler for that key.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.tab.Load()
	next := &table{
		byType: make(map[string]Handler, len(old.byType)+len(h.ContentTypes())),
		byTag:  make(map[string]Handler, len(old.byTag)+1),
		types:  append(make([]string, 0, len(old.types)+len(h.ContentTypes())), old.types...),
	}
	for k, v := range old.byType {
		next.byType[k] = v
	}
	for k, v := range old.byTag {
		next.byTag[k] = v
	}

	for _, ct := range h.ContentTypes() {
		mt := MediaType(ct)
		if mt == "" {
			continue
		}
		if _, exists := next.byType[mt]; !exists {
			next.types = append(next.types, mt)
		}
		next.byType[mt] = h
	}
	if !h.ReadOnly() && h.Tag() != "" {
		next.byTag[h.Tag()] = h
	}

	r.tab.Store(next)
}

// HandlerFor returns the handler for a Content-Type value. An exact media
// type match wins; otherwise a "major/*" handler is used if registered.
func (r *Registry) HandlerFor(contentType string) (Handler, error) {
	mt := MediaType(contentType)
	if mt == "" {
		return nil, unsupported("missing content type")
	}

	t := r.tab.Load()
	if h, ok := t.byType[mt]; ok {
		return h, nil
	}
	if major, _, ok := strings.Cut(mt, "/"); ok {
		if h, ok := t.byType[major+"/*"]; ok {
			return h, nil
		}
	}
	return nil, unsupported("no handler for content type %q", mt)
}

// HandlerForTag returns the handler that serializes facts with the given
// structural tag.
func (r *Registry) HandlerForTag(tag string) (Handler, error) {
	if tag == "" {
		return nil, unsupported("facts carry no structural tag")
	}
	h, ok := r.tab.Load().byTag[tag]
	if !ok {
		return nil, unsupported("no handler for structural tag %q", tag)
	}
	return h, nil
}

// ContentTypeFor returns the default media type used to serialize facts
// with the given tag.
func (r *Registry) ContentTypeFor(tag string) (string, error) {
	h, err := r.HandlerForTag(tag)
	if err != nil {
		return "", err
	}
	return h.ContentTypes()[0], nil
}

// Deserialize parses src with the handler selected by contentType.
// The result is never nil.
func (r *Registry) Deserialize(src io.Reader, baseURI, contentType string) (fact.Collection, error) {
	h, err := r.HandlerFor(contentType)
	if err != nil {
		return fact.Empty(), err
	}
	facts, err := h.Deserialize(src, baseURI, contentType)
	if err != nil {
		return fact.Empty(), err
	}
	if facts == nil {
		facts = fact.Empty()
	}
	return facts, nil
}

// Serialize writes facts with the handler selected by their structural tag.
func (r *Registry) Serialize(w io.Writer, facts fact.Collection, baseURI string) error {
	h, err := r.HandlerForTag(facts.Tag())
	if err != nil {
		return err
	}
	return h.Serialize(w, facts, baseURI, h.ContentTypes()[0])
}

// SerializeAs writes facts with the handler selected by contentType.
func (r *Registry) SerializeAs(w io.Writer, facts fact.Collection, baseURI, contentType string) error {
	h, err := r.HandlerFor(contentType)
	if err != nil {
		return err
	}
	if h.ReadOnly() {
		return fmt.Errorf("%w (%s)", ErrReadOnly, MediaType(contentType))
	}
	return h.Serialize(w, facts, baseURI, contentType)
}

// ContentTypes returns every registered exact media type, in registration
// order. Wildcard entries are omitted.
func (r *Registry) ContentTypes() []string {
	t := r.tab.Load()
	out := make([]string, 0, len(t.types))
	for _, mt := range t.types {
		if !strings.HasSuffix(mt, "/*") {
			out = append(out, mt)
		}
	}
	return out
}

// Accept builds an Accept header preferring exact types, then registered
// wildcards, then anything.
func (r *Registry) Accept() string {
	t := r.tab.Load()
	exact := make([]string, 0, len(t.types))
	wild := make([]string, 0)
	for _, mt := range t.types {
		if strings.HasSuffix(mt, "/*") {
			wild = append(wild, mt+";q=0.5")
			continue
		}
		exact = append(exact, mt)
	}
	parts := append(exact, wild...)
	parts = append(parts, "*/*;q=0.1")
	return strings.Join(parts, ", ")
}
