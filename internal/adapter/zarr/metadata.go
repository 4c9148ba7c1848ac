// Package zarr reads and writes Zarr v2 directory stores. The writer emits
// one whole-array chunk per variable, zlib-compressed, in C (row-major) order
// with little-endian encoding, and mirrors the xarray convention of recording
// dimension names in an _ARRAY_DIMENSIONS attribute. The reader exists mainly
// to verify written stores and round-trip them back into a dataset.
package zarr

import (
	"fmt"
	"strings"

	"github.com/cloudvane/climate-raster-etl/internal/dataset"
)

const (
	// Version is the Zarr storage specification version this package targets.
	Version = 2

	groupFile        = ".zgroup"
	arrayFile        = ".zarray"
	attrsFile        = ".zattrs"
	consolidatedFile = ".zmetadata"

	// DimensionsAttr names the xarray attribute that records a variable's
	// dimension names, which plain Zarr has no slot for.
	DimensionsAttr = "_ARRAY_DIMENSIONS"

	chunkSeparator = "."
)

// ArrayMeta is the .zarray metadata document for a single array.
type ArrayMeta struct {
	Chunks     []int       `json:"chunks"`
	Compressor *Compressor `json:"compressor"`
	DType      string      `json:"dtype"`
	FillValue  any         `json:"fill_value"`
	Filters    any         `json:"filters"`
	Order      string      `json:"order"`
	Shape      []int       `json:"shape"`
	ZarrFormat int         `json:"zarr_format"`
}

// Compressor is the compressor section of .zarray.
type Compressor struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// GroupMeta is the .zgroup document.
type GroupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

// ConsolidatedMeta is the .zmetadata document: every metadata file in the
// store gathered into one, so readers can avoid directory listings.
type ConsolidatedMeta struct {
	Metadata map[string]any `json:"metadata"`
	Format   int            `json:"zarr_consolidated_format"`
}

var dtypeOf = map[dataset.Kind]string{
	dataset.KindInt8:    "|i1",
	dataset.KindUint8:   "|u1",
	dataset.KindBool:    "|b1",
	dataset.KindInt16:   "<i2",
	dataset.KindUint16:  "<u2",
	dataset.KindInt32:   "<i4",
	dataset.KindUint32:  "<u4",
	dataset.KindInt64:   "<i8",
	dataset.KindUint64:  "<u8",
	dataset.KindFloat32: "<f4",
	dataset.KindFloat64: "<f8",
}

var kindOfDType = func() map[string]dataset.Kind {
	m := make(map[string]dataset.Kind, len(dtypeOf))
	for k, s := range dtypeOf {
		m[s] = k
	}
	return m
}()

// DTypeFor returns the numpy-style dtype string for an element kind.
// Variable-length kinds have no Zarr v2 encoding here and are rejected.
func DTypeFor(k dataset.Kind) (string, error) {
	s, ok := dtypeOf[k]
	if !ok {
		return "", fmt.Errorf("unsupported dtype %s", k)
	}
	return s, nil
}

// KindFor parses a dtype string written by this package.
func KindFor(dtype string) (dataset.Kind, error) {
	k, ok := kindOfDType[dtype]
	if !ok {
		return dataset.KindInvalid, fmt.Errorf("unsupported or unknown dtype %q", dtype)
	}
	return k, nil
}

// chunkKey builds the store key for a chunk from its grid indices. A zero
// dimensional array has the single key "0".
func chunkKey(indices []int) string {
	if len(indices) == 0 {
		return "0"
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return strings.Join(parts, chunkSeparator)
}
