package dataset

import (
	"fmt"
	"reflect"
)

// Concat concatenates datasets along the named dimension, in argument order.
// Variables carrying the dimension must list it first and agree on element
// kind and trailing shape across inputs; their values are appended. Variables
// and attributes not carrying the dimension are taken from the first dataset.
func Concat(datasets []*Dataset, dim string) (*Dataset, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("concat: no datasets")
	}
	if len(datasets) == 1 {
		return datasets[0], nil
	}

	first := datasets[0]
	total := 0
	for i, ds := range datasets {
		size, ok := ds.Dim(dim)
		if !ok {
			return nil, fmt.Errorf("concat: dataset %d has no dimension %q", i, dim)
		}
		total += size
	}

	out := New()
	for _, d := range first.Dims() {
		size := d.Size
		if d.Name == dim {
			size = total
		}
		if err := out.AddDim(d.Name, size); err != nil {
			return nil, fmt.Errorf("concat: %w", err)
		}
	}
	for _, k := range first.Attrs.Keys() {
		v, _ := first.Attrs.Get(k)
		out.Attrs.Set(k, v)
	}

	for _, v := range first.Vars() {
		merged, err := concatVar(datasets, v, dim, total)
		if err != nil {
			return nil, err
		}
		if err := out.AddVar(merged); err != nil {
			return nil, fmt.Errorf("concat: %w", err)
		}
	}
	return out, nil
}

func concatVar(datasets []*Dataset, v *Variable, dim string, total int) (*Variable, error) {
	carries := false
	for _, d := range v.Dims {
		if d == dim {
			carries = true
			break
		}
	}
	if !carries {
		return v, nil
	}
	if v.Dims[0] != dim {
		return nil, fmt.Errorf("concat: variable %q must lead with dimension %q, has %v", v.Name, dim, v.Dims)
	}

	values := reflect.ValueOf(v.Values)
	for i, ds := range datasets[1:] {
		other, ok := ds.Var(v.Name)
		if !ok {
			return nil, fmt.Errorf("concat: dataset %d is missing variable %q", i+1, v.Name)
		}
		if other.Kind != v.Kind {
			return nil, fmt.Errorf("concat: variable %q: kind %s != %s in dataset %d", v.Name, other.Kind, v.Kind, i+1)
		}
		if !reflect.DeepEqual(other.Shape[1:], v.Shape[1:]) {
			return nil, fmt.Errorf("concat: variable %q: trailing shape %v != %v in dataset %d", v.Name, other.Shape[1:], v.Shape[1:], i+1)
		}
		values = reflect.AppendSlice(values, reflect.ValueOf(other.Values))
	}

	shape := make([]int, len(v.Shape))
	copy(shape, v.Shape)
	shape[0] = total

	return &Variable{
		Name:   v.Name,
		Dims:   v.Dims,
		Shape:  shape,
		Kind:   v.Kind,
		Values: values.Interface(),
		Attrs:  v.Attrs,
	}, nil
}
