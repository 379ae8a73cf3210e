package fact

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	// KindScalar is a single primitive value.
	KindScalar Kind = iota
	// KindSequence is an ordered list of nodes.
	KindSequence
	// KindMapping is a set of string-keyed nodes.
	KindMapping
	// KindStruct is a functor applied to argument nodes.
	KindStruct
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// Node is a single element of the structured-fact model.
// The interface is sealed: only the types in this package implement it.
type Node interface {
	// Kind reports which variant the node is.
	Kind() Kind

	// String renders the node in a compact, human-readable term syntax.
	String() string

	node()
}

// Scalar holds a primitive value. Value is always one of string, int64,
// float64, bool, or nil; use the constructors to build scalars.
type Scalar struct {
	Value any
}

// String creates a string scalar.
func String(s string) Scalar { return Scalar{Value: s} }

// Int creates an integer scalar.
func Int(i int64) Scalar { return Scalar{Value: i} }

// Float creates a floating point scalar.
func Float(f float64) Scalar { return Scalar{Value: f} }

// Bool creates a boolean scalar.
func Bool(b bool) Scalar { return Scalar{Value: b} }

// Null creates a null scalar.
func Null() Scalar { return Scalar{} }

// Kind implements Node.
func (Scalar) Kind() Kind { return KindScalar }

func (Scalar) node() {}

// String implements Node. Strings are quoted.
func (s Scalar) String() string {
	switch v := s.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Text returns the scalar's string value and whether it is a string.
func (s Scalar) Text() (string, bool) {
	v, ok := s.Value.(string)
	return v, ok
}

// Sequence is an ordered list of nodes.
type Sequence []Node

// Kind implements Node.
func (Sequence) Kind() Kind { return KindSequence }

func (Sequence) node() {}

// String implements Node.
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, n := range s {
		parts[i] = n.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Mapping is a set of string-keyed nodes.
type Mapping map[string]Node

// Kind implements Node.
func (Mapping) Kind() Kind { return KindMapping }

func (Mapping) node() {}

// String implements Node. Keys are rendered in sorted order.
func (m Mapping) String() string {
	keys := m.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = strconv.Quote(k) + ": " + m[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Keys returns the mapping keys in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Struct is a functor applied to positional arguments, e.g. rdf(s, p, o).
type Struct struct {
	Functor string
	Args    []Node
}

// New creates a Struct with the given functor and arguments.
func New(functor string, args ...Node) Struct {
	return Struct{Functor: functor, Args: args}
}

// Kind implements Node.
func (Struct) Kind() Kind { return KindStruct }

func (Struct) node() {}

// String implements Node.
func (s Struct) String() string {
	if len(s.Args) == 0 {
		return s.Functor
	}
	parts := make([]string, len(s.Args))
	for i, n := range s.Args {
		parts[i] = n.String()
	}
	return s.Functor + "(" + strings.Join(parts, ", ") + ")"
}

// Arity returns the number of arguments.
func (s Struct) Arity() int { return len(s.Args) }

// Arg returns the i-th argument, or nil when out of range.
func (s Struct) Arg(i int) Node {
	if i < 0 || i >= len(s.Args) {
		return nil
	}
	return s.Args[i]
}

// TextArg returns the i-th argument as a string when it is a string scalar.
func (s Struct) TextArg(i int) (string, bool) {
	sc, ok := s.Arg(i).(Scalar)
	if !ok {
		return "", false
	}
	return sc.Text()
}

// Collection is the ordered result of deserializing one representation.
// A nil Collection and an empty one are equivalent; handlers return empty,
// never nil, collections.
type Collection []Node

// Empty returns a non-nil collection with no facts.
func Empty() Collection { return Collection{} }

// Tag returns the structural tag of the collection: the functor of its first
// fact, or "" when the collection is empty or starts with a non-struct node.
func (c Collection) Tag() string {
	if len(c) == 0 {
		return ""
	}
	if s, ok := c[0].(Struct); ok {
		return s.Functor
	}
	return ""
}

// Structs returns the facts whose functor equals the given name.
func (c Collection) Structs(functor string) []Struct {
	out := make([]Struct, 0)
	for _, n := range c {
		if s, ok := n.(Struct); ok && s.Functor == functor {
			out = append(out, s)
		}
	}
	return out
}

// String renders the collection one fact per line.
func (c Collection) String() string {
	parts := make([]string, len(c))
	for i, n := range c {
		parts[i] = n.String()
	}
	return strings.Join(parts, "\n")
}
