// Package combine merges families of NetCDF files. Climate providers ship
// one file per period with a shared filename prefix (e.g. precip_2019.nc,
// precip_2020.nc); combining concatenates each family along the time axis
// into a single file.
package combine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudvane/climate-raster-etl/internal/adapter/netcdf"
	"github.com/cloudvane/climate-raster-etl/internal/dataset"
)

// ConcatDim is the axis files within a group are concatenated along.
const ConcatDim = "time"

// Group is a set of NetCDF files sharing a filename prefix.
type Group struct {
	Prefix string
	Paths  []string
}

// Result reports the outcome for one group.
type Result struct {
	Prefix     string
	OutputPath string
	Err        error
}

// Combiner scans for NetCDF file groups and writes combined files.
type Combiner struct {
	logger *slog.Logger
}

// New creates a Combiner.
func New(logger *slog.Logger) *Combiner {
	return &Combiner{logger: logger}
}

// Scan lists *.nc files directly under dir and groups them by the filename
// text before the first underscore. Groups and their members come back
// sorted so output is deterministic.
func (c *Combiner) Scan(dir string) ([]Group, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	byPrefix := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".nc") {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), "_")
		prefix = strings.TrimSuffix(prefix, ".nc")
		byPrefix[prefix] = append(byPrefix[prefix], filepath.Join(dir, e.Name()))
	}

	prefixes := make([]string, 0, len(byPrefix))
	for p := range byPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	groups := make([]Group, 0, len(prefixes))
	for _, p := range prefixes {
		paths := byPrefix[p]
		sort.Strings(paths)
		groups = append(groups, Group{Prefix: p, Paths: paths})
	}
	return groups, nil
}

// CombineAll scans dir, combines every group along the time axis, and writes
// one combined NetCDF per group into outDir. A failing group is reported in
// its Result and does not abort the others.
func (c *Combiner) CombineAll(ctx context.Context, dir, outDir string) ([]Result, error) {
	groups, err := c.Scan(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", outDir, err)
	}

	results := make([]Result, 0, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		out, err := c.CombineGroup(ctx, g, outDir)
		if err != nil {
			c.logger.Warn("combine group failed", "prefix", g.Prefix, "error", err)
			results = append(results, Result{Prefix: g.Prefix, Err: err})
			continue
		}
		c.logger.Info("combined group", "prefix", g.Prefix, "files", len(g.Paths), "output", out)
		results = append(results, Result{Prefix: g.Prefix, OutputPath: out})
	}
	return results, nil
}

// CombineGroup concatenates a group's files along the time axis and writes
// the combined dataset to outDir. The output name records the prefix and the
// group's first data variable.
func (c *Combiner) CombineGroup(ctx context.Context, g Group, outDir string) (string, error) {
	if len(g.Paths) == 0 {
		return "", fmt.Errorf("group %q: no files", g.Prefix)
	}

	datasets := make([]*dataset.Dataset, 0, len(g.Paths))
	for _, path := range g.Paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ds, err := netcdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("group %q: %w", g.Prefix, err)
		}
		datasets = append(datasets, ds)
	}

	combined, err := dataset.Concat(datasets, ConcatDim)
	if err != nil {
		return "", fmt.Errorf("group %q: %w", g.Prefix, err)
	}

	name := fmt.Sprintf("combined_%s_climate_data.nc", g.Prefix)
	if vars := combined.DataVars(); len(vars) > 0 {
		name = fmt.Sprintf("combined_%s_%s_data.nc", g.Prefix, vars[0].Name)
	}
	out := filepath.Join(outDir, name)

	if err := netcdf.Write(combined, out); err != nil {
		return "", fmt.Errorf("group %q: %w", g.Prefix, err)
	}
	return out, nil
}
