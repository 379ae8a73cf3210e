package fact

// Equal reports whether two nodes have the same content.
// Integer and float scalars compare numerically, so int 1 equals float 1.0;
// mapping key order is irrelevant.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Scalar:
		y, ok := b.(Scalar)
		return ok && scalarEqual(x, y)
	case Sequence:
		y, ok := b.(Sequence)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Mapping:
		y, ok := b.(Mapping)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, found := y[k]
			if !found || !Equal(v, w) {
				return false
			}
		}
		return true
	case Struct:
		y, ok := b.(Struct)
		if !ok || x.Functor != y.Functor || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// EqualCollections reports whether two collections hold equal facts in the
// same order.
func EqualCollections(a, b Collection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func scalarEqual(a, b Scalar) bool {
	if af, ok := number(a.Value); ok {
		bf, ok := number(b.Value)
		return ok && af == bf
	}
	return a.Value == b.Value
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
