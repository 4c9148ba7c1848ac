// Package dataset models a self-describing multidimensional array collection:
// named dimensions, coordinate variables, data variables, and global
// attributes. It is the neutral in-memory form between the NetCDF reader and
// the Zarr writer, so neither container format leaks into the other.
//
// Variables store their values as a flat row-major slice plus an explicit
// shape. Coordinate variables follow the NetCDF convention: a one-dimensional
// variable whose name equals its dimension name.
package dataset

import (
	"fmt"
)

// Kind identifies the element type of a variable or attribute value.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindBool
	KindString
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindBool:    "bool",
	KindString:  "string",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// ItemSize returns the encoded size of one element in bytes, or 0 for
// variable-length kinds (string) and invalid kinds.
func (k Kind) ItemSize() int {
	switch k {
	case KindInt8, KindUint8, KindBool:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// Dimension is a named axis shared across variables.
type Dimension struct {
	Name string
	Size int
}

// Variable is an N-dimensional array tagged with its dimension names.
// Values holds a flat row-major slice whose element type matches Kind
// ([]float64, []int32, ...). A scalar has an empty Shape and a one-element
// Values slice.
type Variable struct {
	Name   string
	Dims   []string
	Shape  []int
	Kind   Kind
	Values any
	Attrs  *Attributes
}

// Len returns the number of elements, i.e. the product of the shape.
func (v *Variable) Len() int {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

// IsCoord reports whether the variable is a coordinate variable: one
// dimension, named after itself.
func (v *Variable) IsCoord() bool {
	return len(v.Dims) == 1 && v.Dims[0] == v.Name
}

// Dataset is an in-memory collection of dimensions, variables, and global
// attributes, in declaration order.
type Dataset struct {
	// Path records where the dataset was opened from, if anywhere.
	Path string

	dims  []Dimension
	index map[string]int // dimension name -> index in dims

	vars     []*Variable
	varIndex map[string]int

	Attrs *Attributes
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{
		index:    make(map[string]int),
		varIndex: make(map[string]int),
		Attrs:    NewAttributes(),
	}
}

// AddDim declares a dimension. Redeclaring a dimension with the same size is
// a no-op; a size conflict is an error.
func (d *Dataset) AddDim(name string, size int) error {
	if size < 0 {
		return fmt.Errorf("dimension %q: negative size %d", name, size)
	}
	if i, ok := d.index[name]; ok {
		if d.dims[i].Size != size {
			return fmt.Errorf("dimension %q: size conflict %d != %d", name, size, d.dims[i].Size)
		}
		return nil
	}
	d.index[name] = len(d.dims)
	d.dims = append(d.dims, Dimension{Name: name, Size: size})
	return nil
}

// Dim returns the size of a declared dimension.
func (d *Dataset) Dim(name string) (int, bool) {
	i, ok := d.index[name]
	if !ok {
		return 0, false
	}
	return d.dims[i].Size, true
}

// Dims returns the dimensions in declaration order.
func (d *Dataset) Dims() []Dimension {
	out := make([]Dimension, len(d.dims))
	copy(out, d.dims)
	return out
}

// AddVar appends a variable, checking that its dimension references resolve
// to declared dimensions and that its value length matches its shape.
func (d *Dataset) AddVar(v *Variable) error {
	if v.Name == "" {
		return fmt.Errorf("variable with empty name")
	}
	if _, ok := d.varIndex[v.Name]; ok {
		return fmt.Errorf("duplicate variable %q", v.Name)
	}
	if len(v.Dims) != len(v.Shape) {
		return fmt.Errorf("variable %q: %d dimensions but %d shape entries", v.Name, len(v.Dims), len(v.Shape))
	}
	for i, dim := range v.Dims {
		size, ok := d.Dim(dim)
		if !ok {
			return fmt.Errorf("variable %q: undeclared dimension %q", v.Name, dim)
		}
		if size != v.Shape[i] {
			return fmt.Errorf("variable %q: dimension %q has size %d, shape says %d", v.Name, dim, size, v.Shape[i])
		}
	}
	if v.Kind == KindInvalid {
		return fmt.Errorf("variable %q: invalid element kind", v.Name)
	}
	if n := flatLen(v.Values); n != v.Len() {
		return fmt.Errorf("variable %q: %d values for shape %v", v.Name, n, v.Shape)
	}
	if v.Attrs == nil {
		v.Attrs = NewAttributes()
	}
	d.varIndex[v.Name] = len(d.vars)
	d.vars = append(d.vars, v)
	return nil
}

// Var returns the named variable.
func (d *Dataset) Var(name string) (*Variable, bool) {
	i, ok := d.varIndex[name]
	if !ok {
		return nil, false
	}
	return d.vars[i], true
}

// Vars returns all variables in declaration order, coordinates included.
func (d *Dataset) Vars() []*Variable {
	out := make([]*Variable, len(d.vars))
	copy(out, d.vars)
	return out
}

// DataVars returns the non-coordinate variables in declaration order.
func (d *Dataset) DataVars() []*Variable {
	var out []*Variable
	for _, v := range d.vars {
		if !v.IsCoord() {
			out = append(out, v)
		}
	}
	return out
}

// Coords returns the coordinate variables in declaration order.
func (d *Dataset) Coords() []*Variable {
	var out []*Variable
	for _, v := range d.vars {
		if v.IsCoord() {
			out = append(out, v)
		}
	}
	return out
}
