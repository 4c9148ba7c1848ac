// Command combine merges families of NetCDF files that share a filename
// prefix, concatenating each family along the time axis into one file.
//
// Usage:
//
//	go run ./cmd/combine -dir "Base Climate Data" -out "Processed Climate Data"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudvane/climate-raster-etl/internal/combine"
)

func main() {
	if code := run(); code != 0 {
		os.Exit(code)
	}
}

func run() int {
	dir := flag.String("dir", "", "directory to scan for *.nc files")
	out := flag.String("out", "", "output directory for combined files")
	flag.Parse()

	if *dir == "" || *out == "" {
		flag.Usage()
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	combiner := combine.New(logger)

	results, err := combiner.CombineAll(context.Background(), *dir, *out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "combine:", err)
		return 1
	}

	code := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "combine: group %q: %v\n", r.Prefix, r.Err)
			code = 1
			continue
		}
		fmt.Printf("Combined dataset for prefix %q saved to: %s\n", r.Prefix, r.OutputPath)
	}
	return code
}
