// Command genfixture writes a small demonstration NetCDF file: a daily
// precipitation grid over time/lat/lon with coordinate variables and global
// metadata. Useful for exercising the converter and combine tools without
// real climate data.
//
// Usage:
//
//	go run ./cmd/genfixture -out data/precip_demo.nc -days 31
package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/cloudvane/climate-raster-etl/internal/adapter/netcdf"
	"github.com/cloudvane/climate-raster-etl/internal/dataset"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the NetCDF fixture")
	days := flag.Int("days", 31, "number of time steps")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	ds, err := buildFixture(*days)
	if err != nil {
		return err
	}
	if err := netcdf.Write(ds, *out); err != nil {
		return err
	}
	fmt.Println("wrote", *out)
	return nil
}

func buildFixture(days int) (*dataset.Dataset, error) {
	const (
		nLat = 12
		nLon = 16
	)

	ds := dataset.New()
	for _, d := range []dataset.Dimension{
		{Name: "time", Size: days},
		{Name: "lat", Size: nLat},
		{Name: "lon", Size: nLon},
	} {
		if err := ds.AddDim(d.Name, d.Size); err != nil {
			return nil, err
		}
	}
	ds.Attrs.Set("title", "Synthetic precipitation fixture")
	ds.Attrs.Set("source", "genfixture")
	ds.Attrs.Set("Conventions", "CF-1.8")

	times := make([]int32, days)
	for i := range times {
		times[i] = int32(i)
	}
	lats := make([]float64, nLat)
	for i := range lats {
		lats[i] = -5.5 + float64(i)
	}
	lons := make([]float64, nLon)
	for i := range lons {
		lons[i] = -8.0 + float64(i)
	}

	// Smooth, deterministic precipitation field.
	precip := make([]float32, days*nLat*nLon)
	for t := 0; t < days; t++ {
		for y := 0; y < nLat; y++ {
			for x := 0; x < nLon; x++ {
				v := 10*math.Sin(float64(t)/3) + float64(y) + 0.5*float64(x)
				precip[(t*nLat+y)*nLon+x] = float32(math.Max(0, v))
			}
		}
	}

	type varDef struct {
		name   string
		values any
		units  string
	}
	for _, def := range []varDef{
		{name: "time", values: times, units: "days since 2020-01-01"},
		{name: "lat", values: lats, units: "degrees_north"},
		{name: "lon", values: lons, units: "degrees_east"},
	} {
		v, err := dataset.NewVariable(def.name, []string{def.name}, def.values)
		if err != nil {
			return nil, err
		}
		v.Attrs.Set("units", def.units)
		if err := ds.AddVar(v); err != nil {
			return nil, err
		}
	}

	pv := &dataset.Variable{
		Name:   "precip",
		Dims:   []string{"time", "lat", "lon"},
		Shape:  []int{days, nLat, nLon},
		Kind:   dataset.KindFloat32,
		Values: precip,
		Attrs:  dataset.NewAttributes(),
	}
	pv.Attrs.Set("units", "mm")
	pv.Attrs.Set("long_name", "daily precipitation")
	if err := ds.AddVar(pv); err != nil {
		return nil, err
	}
	return ds, nil
}
