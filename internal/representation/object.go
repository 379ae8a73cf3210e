package representation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// Structural tags of generic object documents.
const (
	TagJSON = "json"
	TagYAML = "yaml"
)

// JSONHandler maps each JSON document in a body to json(value).
// A body holding several concatenated documents yields several facts.
type JSONHandler struct{}

// NewJSONHandler creates a JSONHandler.
func NewJSONHandler() *JSONHandler {
	return &JSONHandler{}
}

// Tag implements Handler.
func (h *JSONHandler) Tag() string { return TagJSON }

// ContentTypes implements Handler.
func (h *JSONHandler) ContentTypes() []string {
	return []string{"application/json", "application/ld+json"}
}

// ReadOnly implements Handler.
func (h *JSONHandler) ReadOnly() bool { return false }

// Deserialize implements Handler.
func (h *JSONHandler) Deserialize(r io.Reader, _, _ string) (fact.Collection, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	facts := fact.Empty()
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unsupportedErr("malformed JSON", err)
		}
		node, err := fact.FromGo(v)
		if err != nil {
			return nil, unsupportedErr("unrepresentable JSON value", err)
		}
		facts = append(facts, fact.New(TagJSON, node))
	}
	if len(facts) == 0 {
		return nil, unsupported("empty JSON document")
	}
	return facts, nil
}

// Serialize implements Handler. Each fact is written as one line.
func (h *JSONHandler) Serialize(w io.Writer, facts fact.Collection, _, _ string) error {
	enc := json.NewEncoder(w)
	for i, n := range facts {
		v, err := objectValue(n)
		if err != nil {
			return fmt.Errorf("fact %d: %w", i, err)
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to write JSON: %w", err)
		}
	}
	return nil
}

// YAMLHandler maps each YAML document in a stream to yaml(value).
// It also serializes json(value) facts, since both describe generic objects.
type YAMLHandler struct{}

// NewYAMLHandler creates a YAMLHandler.
func NewYAMLHandler() *YAMLHandler {
	return &YAMLHandler{}
}

// Tag implements Handler.
func (h *YAMLHandler) Tag() string { return TagYAML }

// ContentTypes implements Handler.
func (h *YAMLHandler) ContentTypes() []string {
	return []string{"application/yaml", "application/x-yaml", "text/yaml"}
}

// ReadOnly implements Handler.
func (h *YAMLHandler) ReadOnly() bool { return false }

// Deserialize implements Handler.
func (h *YAMLHandler) Deserialize(r io.Reader, _, _ string) (fact.Collection, error) {
	dec := yaml.NewDecoder(r)

	facts := fact.Empty()
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unsupportedErr("malformed YAML", err)
		}
		node, err := fact.FromGo(v)
		if err != nil {
			return nil, unsupportedErr("unrepresentable YAML value", err)
		}
		facts = append(facts, fact.New(TagYAML, node))
	}
	if len(facts) == 0 {
		return nil, unsupported("empty YAML document")
	}
	return facts, nil
}

// Serialize implements Handler. Facts become documents of one stream.
func (h *YAMLHandler) Serialize(w io.Writer, facts fact.Collection, _, _ string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for i, n := range facts {
		v, err := objectValue(n)
		if err != nil {
			return fmt.Errorf("fact %d: %w", i, err)
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to write YAML: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush YAML: %w", err)
	}
	return nil
}

// objectValue unwraps json(value) or yaml(value) into a generic Go value.
func objectValue(n fact.Node) (any, error) {
	s, ok := n.(fact.Struct)
	if !ok || (s.Functor != TagJSON && s.Functor != TagYAML) || s.Arity() != 1 {
		return nil, unsupported("not a generic object fact: %s", n)
	}
	v, err := fact.ToGo(s.Args[0])
	if err != nil {
		return nil, unsupportedErr("not a generic object", err)
	}
	return v, nil
}

var (
	_ Handler = (*JSONHandler)(nil)
	_ Handler = (*YAMLHandler)(nil)
)
