package fact

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireNode is the tagged JSON shape used to persist collections.
// Unlike the json representation handler, it keeps every variant distinct,
// so Struct nodes survive a store/load cycle.
type wireNode struct {
	Kind    string              `json:"kind"`
	Type    string              `json:"type,omitempty"`
	Value   any                 `json:"value,omitempty"`
	Items   []wireNode          `json:"items,omitempty"`
	Entries map[string]wireNode `json:"entries,omitempty"`
	Functor string              `json:"functor,omitempty"`
}

// MarshalCollection encodes a collection in a lossless tagged JSON form.
func MarshalCollection(c Collection) ([]byte, error) {
	wire := make([]wireNode, 0, len(c))
	for _, n := range c {
		w, err := toWire(n)
		if err != nil {
			return nil, err
		}
		wire = append(wire, w)
	}
	return json.Marshal(wire)
}

// UnmarshalCollection decodes data produced by MarshalCollection.
func UnmarshalCollection(data []byte) (Collection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var wire []wireNode
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}

	c := make(Collection, 0, len(wire))
	for _, w := range wire {
		n, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		c = append(c, n)
	}
	return c, nil
}

func toWire(n Node) (wireNode, error) {
	switch x := n.(type) {
	case Scalar:
		w := wireNode{Kind: KindScalar.String(), Value: x.Value}
		switch x.Value.(type) {
		case nil:
			w.Type = "null"
		case string:
			w.Type = "string"
		case int64:
			w.Type = "int"
		case float64:
			w.Type = "float"
		case bool:
			w.Type = "bool"
		default:
			return wireNode{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, x.Value)
		}
		return w, nil
	case Sequence:
		items := make([]wireNode, 0, len(x))
		for _, item := range x {
			w, err := toWire(item)
			if err != nil {
				return wireNode{}, err
			}
			items = append(items, w)
		}
		return wireNode{Kind: KindSequence.String(), Items: items}, nil
	case Mapping:
		entries := make(map[string]wireNode, len(x))
		for k, item := range x {
			w, err := toWire(item)
			if err != nil {
				return wireNode{}, err
			}
			entries[k] = w
		}
		return wireNode{Kind: KindMapping.String(), Entries: entries}, nil
	case Struct:
		items := make([]wireNode, 0, len(x.Args))
		for _, item := range x.Args {
			w, err := toWire(item)
			if err != nil {
				return wireNode{}, err
			}
			items = append(items, w)
		}
		return wireNode{Kind: KindStruct.String(), Functor: x.Functor, Items: items}, nil
	default:
		return wireNode{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, n)
	}
}

func fromWire(w wireNode) (Node, error) {
	switch w.Kind {
	case "scalar":
		return scalarFromWire(w)
	case "sequence":
		seq := make(Sequence, 0, len(w.Items))
		for _, item := range w.Items {
			n, err := fromWire(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, n)
		}
		return seq, nil
	case "mapping":
		m := make(Mapping, len(w.Entries))
		for k, item := range w.Entries {
			n, err := fromWire(item)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return m, nil
	case "struct":
		args := make([]Node, 0, len(w.Items))
		for _, item := range w.Items {
			n, err := fromWire(item)
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
		return Struct{Functor: w.Functor, Args: args}, nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", w.Kind)
	}
}

func scalarFromWire(w wireNode) (Node, error) {
	switch w.Type {
	case "null":
		return Null(), nil
	case "string":
		s, ok := w.Value.(string)
		if !ok {
			// omitempty drops the empty string
			return String(""), nil
		}
		return String(s), nil
	case "bool":
		b, _ := w.Value.(bool)
		return Bool(b), nil
	case "int", "float":
		num, ok := w.Value.(json.Number)
		if !ok {
			if w.Type == "int" {
				return Int(0), nil
			}
			return Float(0), nil
		}
		if w.Type == "int" {
			i, err := num.Int64()
			if err != nil {
				return nil, fmt.Errorf("invalid int scalar %q: %w", num, err)
			}
			return Int(i), nil
		}
		f, err := num.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid float scalar %q: %w", num, err)
		}
		return Float(f), nil
	default:
		return nil, fmt.Errorf("unknown scalar type %q", w.Type)
	}
}
