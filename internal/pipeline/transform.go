package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cloudvane/climate-raster-etl/internal/convert"
	"github.com/cloudvane/climate-raster-etl/internal/domain"
)

// JobTransformer implements Transformer by running the converter on each
// decoded job. Relative job paths resolve against dataDir so producers can
// publish portable paths.
type JobTransformer struct {
	converter *convert.Converter
	dataDir   string
	logger    *slog.Logger
}

// NewTransformer creates a JobTransformer.
func NewTransformer(converter *convert.Converter, dataDir string, logger *slog.Logger) *JobTransformer {
	return &JobTransformer{
		converter: converter,
		dataDir:   dataDir,
		logger:    logger,
	}
}

func (t *JobTransformer) Transform(ctx context.Context, raw domain.RawJob) (domain.ConversionResult, error) {
	job, err := domain.ParseJob(raw)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	input := t.resolve(job.InputPath)
	outputDir := t.resolve(job.OutputDir)

	start := time.Now()
	out, err := t.converter.Run(ctx, input, outputDir)
	elapsed := time.Since(start)

	if err != nil {
		t.logger.Warn("conversion failed", "job_id", job.ID, "input", input, "error", err)
		return domain.NewFailedResult(job, err, elapsed), nil
	}
	return domain.NewResult(job, out.ArtifactPath, out.Variables, out.Bytes, elapsed), nil
}

func (t *JobTransformer) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(t.dataDir, path)
}
