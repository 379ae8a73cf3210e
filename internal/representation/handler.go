package representation

import (
	"io"
	"mime"
	"strings"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// Handler converts one family of media types to and from facts.
type Handler interface {
	// Tag returns the structural tag of the facts this handler produces
	// and serializes, e.g. "text" or "rdf".
	Tag() string

	// ContentTypes returns the media types the handler consumes. The first
	// entry is the default type used when serializing by tag. An entry of
	// the form "major/*" acts as a fallback for that major type.
	ContentTypes() []string

	// ReadOnly reports whether the handler can only deserialize.
	ReadOnly() bool

	// Serialize writes facts to w. contentType is the negotiated type,
	// which may carry parameters such as charset.
	Serialize(w io.Writer, facts fact.Collection, baseURI, contentType string) error

	// Deserialize reads r and returns its facts. baseURI resolves relative
	// references found in the body.
	Deserialize(r io.Reader, baseURI, contentType string) (fact.Collection, error)
}

// readOnly can be embedded by handlers that only deserialize.
type readOnly struct{}

// ReadOnly implements Handler.
func (readOnly) ReadOnly() bool { return true }

// Serialize implements Handler and always fails with ErrReadOnly.
func (readOnly) Serialize(io.Writer, fact.Collection, string, string) error {
	return ErrReadOnly
}

// MediaType returns the lowercase "type/subtype" token of a Content-Type
// value, dropping parameters. It returns "" for an empty value.
func MediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Malformed parameters should not hide a usable media type.
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// mediaParam returns a single Content-Type parameter, or "".
func mediaParam(contentType, name string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params[name]
}
