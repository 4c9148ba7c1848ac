package dataset

// Attributes is an ordered string-keyed metadata map. NetCDF attribute order
// is meaningful to round-trip comparisons, so insertion order is preserved.
type Attributes struct {
	keys   []string
	values map[string]any
}

// NewAttributes creates an empty attribute map.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]any)}
}

// Set adds or replaces an attribute. A new key is appended to the key order.
func (a *Attributes) Set(key string, value any) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns an attribute value.
func (a *Attributes) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Keys returns the attribute keys in insertion order.
func (a *Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	return len(a.keys)
}

// Map returns the attributes as a plain map, for JSON encoding.
func (a *Attributes) Map() map[string]any {
	out := make(map[string]any, len(a.keys))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}
