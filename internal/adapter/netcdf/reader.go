// Package netcdf maps NetCDF containers to and from the neutral dataset
// model. Reading goes through go-native-netcdf, which handles both classic
// CDF and NetCDF4/HDF5 files behind one interface; writing produces classic
// CDF via ctessum/cdf, which is what the combine output and test fixtures
// use.
package netcdf

import (
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/cloudvane/climate-raster-etl/internal/dataset"
)

// Open reads the full contents of a NetCDF file (classic or NetCDF4) into a
// dataset: every dimension, coordinate, data variable, and global attribute.
func Open(path string) (*dataset.Dataset, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer g.Close()

	ds := dataset.New()
	ds.Path = path

	copyAttrs(ds.Attrs, g.Attributes())

	for _, name := range g.ListVariables() {
		nv, err := g.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read variable %q in %s: %w", name, path, err)
		}
		v, err := toVariable(name, nv)
		if err != nil {
			return nil, fmt.Errorf("read variable %q in %s: %w", name, path, err)
		}
		for i, dim := range v.Dims {
			if err := ds.AddDim(dim, v.Shape[i]); err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
		}
		if err := ds.AddVar(v); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return ds, nil
}

func toVariable(name string, nv *api.Variable) (*dataset.Variable, error) {
	flat, shape, kind, err := dataset.Flatten(nv.Values)
	if err != nil {
		return nil, err
	}
	if len(shape) != len(nv.Dimensions) {
		return nil, fmt.Errorf("%d dimensions but %d-dimensional values", len(nv.Dimensions), len(shape))
	}
	v := &dataset.Variable{
		Name:   name,
		Dims:   nv.Dimensions,
		Shape:  shape,
		Kind:   kind,
		Values: flat,
		Attrs:  dataset.NewAttributes(),
	}
	copyAttrs(v.Attrs, nv.Attributes)
	return v, nil
}

func copyAttrs(dst *dataset.Attributes, src api.AttributeMap) {
	if src == nil {
		return
	}
	for _, key := range src.Keys() {
		if val, ok := src.Get(key); ok {
			dst.Set(key, normalizeAttr(val))
		}
	}
}

// normalizeAttr unwraps one-element slices to scalars. NetCDF stores numeric
// attributes as arrays even when they hold a single value; the scalar form is
// what metadata comparisons and JSON encoding expect.
func normalizeAttr(val any) any {
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice && rv.Len() == 1 {
		return rv.Index(0).Interface()
	}
	return val
}
