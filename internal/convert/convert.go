// Package convert turns NetCDF raster files into Zarr directory stores.
//
// A conversion is strictly sequential: open the source, ensure the output
// directory exists, destructively replace the artifact, close the source.
// Nothing is retried and a partially written artifact is not cleaned up on
// failure; callers needing atomicity should convert into a temporary
// directory and rename.
package convert

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cloudvane/climate-raster-etl/internal/adapter/netcdf"
	"github.com/cloudvane/climate-raster-etl/internal/adapter/zarr"
)

// ArtifactName is the fixed name of the Zarr store inside the output
// directory.
const ArtifactName = "output.zarr"

// Converter performs NetCDF to Zarr conversions.
type Converter struct {
	writer *zarr.Writer
	logger *slog.Logger

	// Notice receives the human-readable completion line. Defaults to
	// stdout; tests and the service swap it out.
	Notice io.Writer
}

// Outcome describes a finished conversion.
type Outcome struct {
	ArtifactPath string
	Variables    int
	Bytes        int64
}

// New creates a Converter writing Zarr with the given compression level.
func New(compressionLevel int, logger *slog.Logger) *Converter {
	return &Converter{
		writer: zarr.NewWriter(compressionLevel),
		logger: logger,
		Notice: os.Stdout,
	}
}

// Convert converts the NetCDF file at inputPath into a Zarr store at
// <outputDir>/output.zarr and returns the artifact path.
//
// Failure classes: *OpenError (source missing/unreadable/unparseable, no
// output is created), *FilesystemError (output directory cannot be created),
// *WriteError (artifact cannot be replaced or written).
func (c *Converter) Convert(ctx context.Context, inputPath, outputDir string) (string, error) {
	out, err := c.Run(ctx, inputPath, outputDir)
	if err != nil {
		return "", err
	}
	return out.ArtifactPath, nil
}

// Run is Convert with conversion statistics for callers that report them.
func (c *Converter) Run(ctx context.Context, inputPath, outputDir string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	ds, err := netcdf.Open(inputPath)
	if err != nil {
		return Outcome{}, &OpenError{Path: inputPath, Err: err}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Outcome{}, &FilesystemError{Path: outputDir, Err: err}
	}

	artifact := filepath.Join(outputDir, ArtifactName)

	// Destructive replace: any previous artifact goes away entirely so no
	// stale arrays survive. Unrelated files in outputDir are untouched.
	if err := os.RemoveAll(artifact); err != nil {
		return Outcome{}, &WriteError{Path: artifact, Err: err}
	}
	if err := c.writer.Write(ds, artifact); err != nil {
		return Outcome{}, &WriteError{Path: artifact, Err: err}
	}

	size, err := dirSize(artifact)
	if err != nil {
		return Outcome{}, &WriteError{Path: artifact, Err: err}
	}

	fmt.Fprintf(c.Notice, "Converted %s to Zarr: %s\n", inputPath, artifact)
	c.logger.Info("conversion complete",
		"input", inputPath,
		"artifact", artifact,
		"variables", len(ds.Vars()),
		"bytes", size,
	)

	return Outcome{
		ArtifactPath: artifact,
		Variables:    len(ds.Vars()),
		Bytes:        size,
	}, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
