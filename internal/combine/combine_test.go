package combine_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudvane/climate-raster-etl/internal/adapter/netcdf"
	"github.com/cloudvane/climate-raster-etl/internal/combine"
	"github.com/cloudvane/climate-raster-etl/internal/dataset"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writePeriod creates a NetCDF file holding one data variable over
// {time: len(times), lat: 2} with the given time coordinate values.
func writePeriod(t *testing.T, path, varName string, times []int32, values []float32) {
	t.Helper()

	ds := dataset.New()
	require.NoError(t, ds.AddDim("time", len(times)))
	require.NoError(t, ds.AddDim("lat", 2))

	require.NoError(t, ds.AddVar(&dataset.Variable{
		Name:   "time",
		Dims:   []string{"time"},
		Shape:  []int{len(times)},
		Kind:   dataset.KindInt32,
		Values: times,
	}))
	require.NoError(t, ds.AddVar(&dataset.Variable{
		Name:   varName,
		Dims:   []string{"time", "lat"},
		Shape:  []int{len(times), 2},
		Kind:   dataset.KindFloat32,
		Values: values,
	}))
	require.NoError(t, netcdf.Write(ds, path))
}

func TestScan_GroupsByPrefix(t *testing.T) {
	dir := t.TempDir()
	writePeriod(t, filepath.Join(dir, "precip_2019.nc"), "precip", []int32{0, 1}, []float32{1, 2, 3, 4})
	writePeriod(t, filepath.Join(dir, "precip_2020.nc"), "precip", []int32{2}, []float32{5, 6})
	writePeriod(t, filepath.Join(dir, "temp_2019.nc"), "temp", []int32{0}, []float32{10, 11})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.nc"), 0o755))

	groups, err := combine.New(discardLogger()).Scan(dir)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "precip", groups[0].Prefix)
	assert.Equal(t, []string{
		filepath.Join(dir, "precip_2019.nc"),
		filepath.Join(dir, "precip_2020.nc"),
	}, groups[0].Paths)

	assert.Equal(t, "temp", groups[1].Prefix)
	assert.Equal(t, []string{filepath.Join(dir, "temp_2019.nc")}, groups[1].Paths)
}

func TestScan_PrefixWithoutUnderscore(t *testing.T) {
	dir := t.TempDir()
	writePeriod(t, filepath.Join(dir, "precip.nc"), "precip", []int32{0}, []float32{1, 2})

	groups, err := combine.New(discardLogger()).Scan(dir)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "precip", groups[0].Prefix)
}

func TestCombineAll(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "combined")
	writePeriod(t, filepath.Join(dir, "precip_2019.nc"), "precip", []int32{0, 1}, []float32{1, 2, 3, 4})
	writePeriod(t, filepath.Join(dir, "precip_2020.nc"), "precip", []int32{2, 3, 4}, []float32{5, 6, 7, 8, 9, 10})
	writePeriod(t, filepath.Join(dir, "temp_2019.nc"), "temp", []int32{0}, []float32{10, 11})

	results, err := combine.New(discardLogger()).CombineAll(context.Background(), dir, outDir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "precip", results[0].Prefix)
	assert.Equal(t, filepath.Join(outDir, "combined_precip_precip_data.nc"), results[0].OutputPath)

	require.NoError(t, results[1].Err)
	assert.Equal(t, filepath.Join(outDir, "combined_temp_temp_data.nc"), results[1].OutputPath)

	ds, err := netcdf.Open(results[0].OutputPath)
	require.NoError(t, err)

	size, ok := ds.Dim("time")
	require.True(t, ok)
	assert.Equal(t, 5, size)

	timeVar, ok := ds.Var("time")
	require.True(t, ok)
	assert.Empty(t, cmp.Diff([]int32{0, 1, 2, 3, 4}, timeVar.Values))

	precip, ok := ds.Var("precip")
	require.True(t, ok)
	assert.Equal(t, []int{5, 2}, precip.Shape)
	assert.Empty(t, cmp.Diff([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, precip.Values))
}

func TestCombineAll_BadGroupDoesNotAbortOthers(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "combined")
	writePeriod(t, filepath.Join(dir, "precip_2019.nc"), "precip", []int32{0}, []float32{1, 2})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_2019.nc"), []byte("not netcdf"), 0o644))

	results, err := combine.New(discardLogger()).CombineAll(context.Background(), dir, outDir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "broken", results[0].Prefix)
	assert.Error(t, results[0].Err)

	assert.Equal(t, "precip", results[1].Prefix)
	require.NoError(t, results[1].Err)
	_, statErr := os.Stat(results[1].OutputPath)
	assert.NoError(t, statErr)
}

func TestCombineGroup_EmptyGroup(t *testing.T) {
	_, err := combine.New(discardLogger()).CombineGroup(context.Background(), combine.Group{Prefix: "x"}, t.TempDir())
	assert.ErrorContains(t, err, "no files")
}
