package netcdf

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/cloudvane/climate-raster-etl/internal/dataset"
)

// Write serializes a dataset to a classic-format NetCDF file at path,
// replacing any existing file. Element kinds outside the classic type set
// (int64, unsigned, bool, string variables) are rejected.
func Write(ds *dataset.Dataset, path string) error {
	names := make([]string, 0, len(ds.Dims()))
	lengths := make([]int, 0, len(ds.Dims()))
	for _, d := range ds.Dims() {
		names = append(names, d.Name)
		lengths = append(lengths, d.Size)
	}

	h := cdf.NewHeader(names, lengths)

	for _, key := range ds.Attrs.Keys() {
		val, _ := ds.Attrs.Get(key)
		h.AddAttribute("", key, attrValue(val))
	}

	for _, v := range ds.Vars() {
		template, err := templateFor(v.Kind)
		if err != nil {
			return fmt.Errorf("variable %q: %w", v.Name, err)
		}
		h.AddVariable(v.Name, v.Dims, template)
		for _, key := range v.Attrs.Keys() {
			val, _ := v.Attrs.Get(key)
			h.AddAttribute(v.Name, key, attrValue(val))
		}
	}

	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("define %s: %v", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cf, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	for _, v := range ds.Vars() {
		begin := make([]int, len(v.Shape))
		w := cf.Writer(v.Name, begin, v.Shape)
		if _, err := w.Write(v.Values); err != nil {
			return fmt.Errorf("write variable %q to %s: %w", v.Name, path, err)
		}
	}
	// cdf leaves numrecs at the streaming sentinel; finalize it so readers
	// that require a concrete record count (go-native-netcdf) accept the file.
	if err := cdf.UpdateNumRecs(f); err != nil {
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return nil
}

// templateFor returns the one-element slice cdf uses to pick a variable's
// on-disk type.
func templateFor(k dataset.Kind) (any, error) {
	switch k {
	case dataset.KindInt8:
		return []int8{0}, nil
	case dataset.KindInt16:
		return []int16{0}, nil
	case dataset.KindInt32:
		return []int32{0}, nil
	case dataset.KindFloat32:
		return []float32{0}, nil
	case dataset.KindFloat64:
		return []float64{0}, nil
	default:
		return nil, fmt.Errorf("kind %s not supported by classic NetCDF", k)
	}
}

// attrValue maps an attribute to a type cdf can store: strings pass through,
// numeric scalars become one-element slices.
func attrValue(val any) any {
	switch x := val.(type) {
	case string:
		return x
	case int8:
		return []int8{x}
	case int16:
		return []int16{x}
	case int32:
		return []int32{x}
	case int:
		return []int32{int32(x)}
	case float32:
		return []float32{x}
	case float64:
		return []float64{x}
	default:
		return val
	}
}
