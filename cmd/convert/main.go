// Command convert performs a single NetCDF to Zarr conversion and exits.
//
// Usage:
//
//	go run ./cmd/convert -in data/precip_2020.nc -out out/precip_2020
//
// On success it prints the artifact path and exits 0; on failure it reports
// which stage failed (open, filesystem, or write) and exits 1.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cloudvane/climate-raster-etl/internal/adapter/zarr"
	"github.com/cloudvane/climate-raster-etl/internal/convert"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "convert:", err)
		os.Exit(1)
	}
}

func run() error {
	in := flag.String("in", "", "path to the source NetCDF file")
	out := flag.String("out", "", "output directory for the Zarr artifact")
	compression := flag.Int("compression", zarr.DefaultCompressionLevel, "zlib compression level (0-9)")
	verbose := flag.Bool("v", false, "log conversion details")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -in, -out")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	converter := convert.New(*compression, logger)
	_, err := converter.Convert(context.Background(), *in, *out)
	return err
}
