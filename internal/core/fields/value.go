package fields

// Value is what a geometry field converts on the read path. It is either a
// Native storage value still to be converted, or a Normalized structure an
// upstream caller already produced.
type Value interface {
	isValue()
}

// Native wraps a storage value: a geom.T, or geometry text / EWKB bytes.
type Native struct {
	Raw any
}

// Normalized is an already converted GeoJSON-like structure.
type Normalized map[string]any

func (Native) isValue()     {}
func (Normalized) isValue() {}

// ValueOf classifies v. A nil input yields a nil Value.
func ValueOf(v any) Value {
	switch v := v.(type) {
	case nil:
		return nil
	case Value:
		return v
	case map[string]any:
		return Normalized(v)
	default:
		return Native{Raw: v}
	}
}
