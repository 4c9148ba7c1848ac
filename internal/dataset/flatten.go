package dataset

import (
	"fmt"
	"reflect"
)

var kindOfGo = map[reflect.Kind]Kind{
	reflect.Int8:    KindInt8,
	reflect.Int16:   KindInt16,
	reflect.Int32:   KindInt32,
	reflect.Int64:   KindInt64,
	reflect.Uint8:   KindUint8,
	reflect.Uint16:  KindUint16,
	reflect.Uint32:  KindUint32,
	reflect.Uint64:  KindUint64,
	reflect.Float32: KindFloat32,
	reflect.Float64: KindFloat64,
	reflect.Bool:    KindBool,
	reflect.String:  KindString,
}

// KindOf returns the element kind of a flat slice or scalar value.
func KindOf(v any) Kind {
	t := reflect.TypeOf(v)
	if t == nil {
		return KindInvalid
	}
	for t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if k, ok := kindOfGo[t.Kind()]; ok {
		return k
	}
	return KindInvalid
}

// flatLen returns the length of a flat value slice, or 0 for non-slices.
func flatLen(v any) int {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return 0
	}
	return rv.Len()
}

// Flatten converts a possibly nested slice (the shape NetCDF readers return
// for multidimensional variables, e.g. [][]float32) into a flat row-major
// slice plus its shape. A non-slice scalar becomes a one-element slice with
// an empty shape. Ragged nesting is an error.
func Flatten(nested any) (flat any, shape []int, kind Kind, err error) {
	rv := reflect.ValueOf(nested)
	if !rv.IsValid() {
		return nil, nil, KindInvalid, fmt.Errorf("flatten: nil value")
	}

	// Depth comes from the static type; sizes from walking first elements.
	// An empty level contributes size 0, everything below it too.
	elemType := rv.Type()
	v := rv
	for elemType.Kind() == reflect.Slice {
		if v.IsValid() && v.Kind() == reflect.Slice {
			shape = append(shape, v.Len())
			if v.Len() > 0 {
				v = v.Index(0)
			} else {
				v = reflect.Value{}
			}
		} else {
			shape = append(shape, 0)
		}
		elemType = elemType.Elem()
	}

	kind, ok := kindOfGo[elemType.Kind()]
	if !ok {
		return nil, nil, KindInvalid, fmt.Errorf("flatten: unsupported element type %s", elemType)
	}

	total := 1
	for _, s := range shape {
		total *= s
	}
	out := reflect.MakeSlice(reflect.SliceOf(elemType), 0, total)

	if rv.Kind() != reflect.Slice {
		out = reflect.Append(out, rv)
		return out.Interface(), nil, kind, nil
	}

	out, err = appendFlat(out, rv, shape, 0)
	if err != nil {
		return nil, nil, KindInvalid, err
	}
	return out.Interface(), shape, kind, nil
}

func appendFlat(out, v reflect.Value, shape []int, depth int) (reflect.Value, error) {
	if v.Len() != shape[depth] {
		return out, fmt.Errorf("flatten: ragged slice at depth %d: length %d != %d", depth, v.Len(), shape[depth])
	}
	if depth == len(shape)-1 {
		return reflect.AppendSlice(out, v), nil
	}
	for i := 0; i < v.Len(); i++ {
		var err error
		out, err = appendFlat(out, v.Index(i), shape, depth+1)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// NewVariable builds a Variable from possibly nested values, inferring shape
// and element kind.
func NewVariable(name string, dims []string, values any) (*Variable, error) {
	flat, shape, kind, err := Flatten(values)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	if len(shape) != len(dims) {
		return nil, fmt.Errorf("variable %q: %d dimensions for %d-dimensional values", name, len(dims), len(shape))
	}
	return &Variable{
		Name:   name,
		Dims:   dims,
		Shape:  shape,
		Kind:   kind,
		Values: flat,
		Attrs:  NewAttributes(),
	}, nil
}
