package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/cloudvane/climate-raster-etl/internal/dataset"
)

// Read opens a Zarr v2 directory store written by this package and rebuilds
// the dataset. Attribute values come back as decoded JSON (numbers become
// float64), which is what callers comparing metadata should expect. Arrays
// are returned in lexical name order.
func Read(dir string) (*dataset.Dataset, error) {
	var group GroupMeta
	if err := readJSON(filepath.Join(dir, groupFile), &group); err != nil {
		return nil, fmt.Errorf("open store %s: %w", dir, err)
	}
	if group.ZarrFormat != Version {
		return nil, fmt.Errorf("open store %s: unsupported zarr_format %d", dir, group.ZarrFormat)
	}

	ds := dataset.New()
	ds.Path = dir

	rootAttrs := map[string]any{}
	if err := readJSON(filepath.Join(dir, attrsFile), &rootAttrs); err != nil {
		return nil, fmt.Errorf("open store %s: %w", dir, err)
	}
	setSorted(ds.Attrs, rootAttrs)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dir, err)
	}

	// Two passes: dimensions must all be declared before variables that
	// reference them can be added.
	type pending struct {
		name  string
		meta  ArrayMeta
		dims  []string
		attrs map[string]any
	}
	var arrays []pending
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		var meta ArrayMeta
		if err := readJSON(filepath.Join(dir, name, arrayFile), &meta); err != nil {
			if os.IsNotExist(err) {
				continue // not an array
			}
			return nil, fmt.Errorf("array %s: %w", name, err)
		}
		attrs := map[string]any{}
		if err := readJSON(filepath.Join(dir, name, attrsFile), &attrs); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("array %s: %w", name, err)
		}
		dims, err := dimensionNames(attrs)
		if err != nil {
			return nil, fmt.Errorf("array %s: %w", name, err)
		}
		delete(attrs, DimensionsAttr)
		if len(dims) != len(meta.Shape) {
			return nil, fmt.Errorf("array %s: %d dimension names for shape %v", name, len(dims), meta.Shape)
		}
		for i, d := range dims {
			if err := ds.AddDim(d, meta.Shape[i]); err != nil {
				return nil, fmt.Errorf("array %s: %w", name, err)
			}
		}
		arrays = append(arrays, pending{name: name, meta: meta, dims: dims, attrs: attrs})
	}

	for _, a := range arrays {
		v, err := readArray(dir, a.name, a.meta, a.dims)
		if err != nil {
			return nil, err
		}
		setSorted(v.Attrs, a.attrs)
		if err := ds.AddVar(v); err != nil {
			return nil, fmt.Errorf("array %s: %w", a.name, err)
		}
	}
	return ds, nil
}

func readArray(dir, name string, meta ArrayMeta, dims []string) (*dataset.Variable, error) {
	kind, err := KindFor(meta.DType)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", name, err)
	}
	if meta.Compressor == nil || meta.Compressor.ID != "zlib" {
		return nil, fmt.Errorf("array %s: unsupported compressor %+v", name, meta.Compressor)
	}
	if meta.Order != "C" {
		return nil, fmt.Errorf("array %s: unsupported order %q", name, meta.Order)
	}
	for i := range meta.Shape {
		if meta.Chunks[i] != meta.Shape[i] {
			return nil, fmt.Errorf("array %s: partial chunks not supported (chunks %v, shape %v)", name, meta.Chunks, meta.Shape)
		}
	}

	raw, err := readChunk(filepath.Join(dir, name, chunkKey(make([]int, len(meta.Shape)))))
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", name, err)
	}

	total := 1
	for _, s := range meta.Shape {
		total *= s
	}
	values, err := decodeValues(raw, kind, total)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", name, err)
	}

	return &dataset.Variable{
		Name:   name,
		Dims:   dims,
		Shape:  meta.Shape,
		Kind:   kind,
		Values: values,
		Attrs:  dataset.NewAttributes(),
	}, nil
}

func readChunk(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := zlib.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func decodeValues(raw []byte, kind dataset.Kind, n int) (any, error) {
	itemSize := kind.ItemSize()
	if len(raw) != n*itemSize {
		return nil, fmt.Errorf("chunk holds %d bytes, want %d", len(raw), n*itemSize)
	}
	switch kind {
	case dataset.KindInt8:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(raw[i])
		}
		return out, nil
	case dataset.KindUint8:
		out := make([]uint8, n)
		copy(out, raw)
		return out, nil
	case dataset.KindBool:
		out := make([]bool, n)
		for i := range out {
			out[i] = raw[i] != 0
		}
		return out, nil
	case dataset.KindInt16:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out, nil
	case dataset.KindUint16:
		out := make([]uint16, n)
		for i := range out {
			out[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
		return out, nil
	case dataset.KindInt32:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case dataset.KindUint32:
		out := make([]uint32, n)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
		return out, nil
	case dataset.KindInt64:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return out, nil
	case dataset.KindUint64:
		out := make([]uint64, n)
		for i := range out {
			out[i] = binary.LittleEndian.Uint64(raw[i*8:])
		}
		return out, nil
	case dataset.KindFloat32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case dataset.KindFloat64:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s", kind)
	}
}

func dimensionNames(attrs map[string]any) ([]string, error) {
	raw, ok := attrs[DimensionsAttr]
	if !ok {
		return nil, fmt.Errorf("missing %s attribute", DimensionsAttr)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("malformed %s attribute: %T", DimensionsAttr, raw)
	}
	dims := make([]string, len(list))
	for i, d := range list {
		s, ok := d.(string)
		if !ok {
			return nil, fmt.Errorf("malformed %s entry: %T", DimensionsAttr, d)
		}
		dims[i] = s
	}
	return dims, nil
}

func setSorted(dst *dataset.Attributes, src map[string]any) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	// JSON objects carry no order; sort for determinism.
	sort.Strings(keys)
	for _, k := range keys {
		dst.Set(k, src[k])
	}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
