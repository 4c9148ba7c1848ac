package zarr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"

	"github.com/cloudvane/climate-raster-etl/internal/dataset"
)

// DefaultCompressionLevel matches zlib's own default.
const DefaultCompressionLevel = 5

// Writer serializes datasets into Zarr v2 directory stores.
type Writer struct {
	level int
}

// NewWriter creates a Writer with the given zlib compression level (0-9).
// Out-of-range levels fall back to the default.
func NewWriter(level int) *Writer {
	if level < 0 || level > 9 {
		level = DefaultCompressionLevel
	}
	return &Writer{level: level}
}

// Write stores the full dataset under dir, creating it if needed. Every
// variable becomes a child array holding a single whole-array chunk; global
// attributes land in the root .zattrs, and a consolidated .zmetadata is
// written last.
func (w *Writer) Write(ds *dataset.Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store %s: %w", dir, err)
	}

	consolidated := &ConsolidatedMeta{
		Metadata: make(map[string]any),
		Format:   1,
	}

	group := GroupMeta{ZarrFormat: Version}
	if err := writeJSON(filepath.Join(dir, groupFile), group); err != nil {
		return err
	}
	consolidated.Metadata[groupFile] = group

	rootAttrs := ds.Attrs.Map()
	if err := writeJSON(filepath.Join(dir, attrsFile), rootAttrs); err != nil {
		return err
	}
	consolidated.Metadata[attrsFile] = rootAttrs

	for _, v := range ds.Vars() {
		if err := w.writeArray(dir, v, consolidated); err != nil {
			return err
		}
	}

	return writeJSON(filepath.Join(dir, consolidatedFile), consolidated)
}

func (w *Writer) writeArray(dir string, v *dataset.Variable, consolidated *ConsolidatedMeta) error {
	dtype, err := DTypeFor(v.Kind)
	if err != nil {
		return fmt.Errorf("variable %q: %w", v.Name, err)
	}

	arrayDir := filepath.Join(dir, v.Name)
	if err := os.MkdirAll(arrayDir, 0o755); err != nil {
		return fmt.Errorf("create array dir %s: %w", arrayDir, err)
	}

	// Chunk layout is a single chunk spanning the whole array.
	chunks := make([]int, len(v.Shape))
	copy(chunks, v.Shape)

	meta := ArrayMeta{
		Chunks:     chunks,
		Compressor: &Compressor{ID: "zlib", Level: w.level},
		DType:      dtype,
		FillValue:  nil,
		Filters:    nil,
		Order:      "C",
		Shape:      v.Shape,
		ZarrFormat: Version,
	}
	if meta.Shape == nil {
		meta.Shape = []int{}
	}
	if err := writeJSON(filepath.Join(arrayDir, arrayFile), meta); err != nil {
		return err
	}

	attrs := v.Attrs.Map()
	attrs[DimensionsAttr] = v.Dims
	if v.Dims == nil {
		attrs[DimensionsAttr] = []string{}
	}
	if err := writeJSON(filepath.Join(arrayDir, attrsFile), attrs); err != nil {
		return err
	}

	raw, err := encodeValues(v)
	if err != nil {
		return fmt.Errorf("variable %q: %w", v.Name, err)
	}
	if err := w.writeChunk(filepath.Join(arrayDir, chunkKey(make([]int, len(v.Shape)))), raw); err != nil {
		return fmt.Errorf("variable %q: %w", v.Name, err)
	}

	consolidated.Metadata[v.Name+"/"+arrayFile] = meta
	consolidated.Metadata[v.Name+"/"+attrsFile] = attrs
	return nil
}

func (w *Writer) writeChunk(path string, raw []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw, err := zlib.NewWriterLevel(f, w.level)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// encodeValues serializes a variable's flat values little-endian, row-major.
func encodeValues(v *dataset.Variable) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, v.Len()*max(v.Kind.ItemSize(), 1)))
	var scratch [8]byte

	switch vals := v.Values.(type) {
	case []int8:
		for _, x := range vals {
			buf.WriteByte(byte(x))
		}
	case []uint8:
		buf.Write(vals)
	case []bool:
		for _, x := range vals {
			if x {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	case []int16:
		for _, x := range vals {
			binary.LittleEndian.PutUint16(scratch[:2], uint16(x))
			buf.Write(scratch[:2])
		}
	case []uint16:
		for _, x := range vals {
			binary.LittleEndian.PutUint16(scratch[:2], x)
			buf.Write(scratch[:2])
		}
	case []int32:
		for _, x := range vals {
			binary.LittleEndian.PutUint32(scratch[:4], uint32(x))
			buf.Write(scratch[:4])
		}
	case []uint32:
		for _, x := range vals {
			binary.LittleEndian.PutUint32(scratch[:4], x)
			buf.Write(scratch[:4])
		}
	case []int64:
		for _, x := range vals {
			binary.LittleEndian.PutUint64(scratch[:8], uint64(x))
			buf.Write(scratch[:8])
		}
	case []uint64:
		for _, x := range vals {
			binary.LittleEndian.PutUint64(scratch[:8], x)
			buf.Write(scratch[:8])
		}
	case []float32:
		for _, x := range vals {
			binary.LittleEndian.PutUint32(scratch[:4], math.Float32bits(x))
			buf.Write(scratch[:4])
		}
	case []float64:
		for _, x := range vals {
			binary.LittleEndian.PutUint64(scratch[:8], math.Float64bits(x))
			buf.Write(scratch[:8])
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %s", v.Kind)
	}
	return buf.Bytes(), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
