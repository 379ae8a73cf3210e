package fact

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNotGeneric is returned by ToGo when a node has no counterpart in the
// generic object model (maps, slices, and primitives).
var ErrNotGeneric = errors.New("node cannot be expressed as a generic object")

// ErrUnsupportedValue is returned by FromGo for Go values outside the
// generic object model.
var ErrUnsupportedValue = errors.New("unsupported value")

// FromGo converts a value produced by a generic object decoder
// (encoding/json, gopkg.in/yaml.v3) into a Node.
func FromGo(v any) (Node, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Node:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return unsigned(uint64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return unsigned(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrUnsupportedValue, x.String())
		}
		return Float(f), nil
	case time.Time:
		return String(x.Format(time.RFC3339Nano)), nil
	case []any:
		seq := make(Sequence, 0, len(x))
		for _, item := range x {
			n, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, n)
		}
		return seq, nil
	case map[string]any:
		m := make(Mapping, len(x))
		for k, item := range x {
			n, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return m, nil
	case map[any]any:
		m := make(Mapping, len(x))
		for k, item := range x {
			n, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			m[fmt.Sprint(k)] = n
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func unsigned(u uint64) Node {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// ToGo converts a node into the generic object model. Struct nodes and
// scalars holding foreign types fail with ErrNotGeneric.
func ToGo(n Node) (any, error) {
	switch x := n.(type) {
	case Scalar:
		switch x.Value.(type) {
		case nil, string, int64, float64, bool:
			return x.Value, nil
		}
		return nil, fmt.Errorf("%w: scalar of type %T", ErrNotGeneric, x.Value)
	case Sequence:
		out := make([]any, 0, len(x))
		for _, item := range x {
			v, err := ToGo(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case Mapping:
		out := make(map[string]any, len(x))
		for k, item := range x {
			v, err := ToGo(item)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case Struct:
		return nil, fmt.Errorf("%w: struct %s/%d", ErrNotGeneric, x.Functor, x.Arity())
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotGeneric, n)
	}
}
