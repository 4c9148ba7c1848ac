package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudvane/climate-raster-etl/internal/adapter/netcdf"
	"github.com/cloudvane/climate-raster-etl/internal/adapter/zarr"
	"github.com/cloudvane/climate-raster-etl/internal/convert"
	"github.com/cloudvane/climate-raster-etl/internal/dataset"
	"github.com/cloudvane/climate-raster-etl/internal/domain"
	"github.com/cloudvane/climate-raster-etl/internal/observability"
	"github.com/cloudvane/climate-raster-etl/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	jobs  []domain.RawJob
	index atomic.Int64
}

func (m *mockExtractor) Extract(ctx context.Context) (domain.RawJob, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.jobs) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return domain.RawJob{}, ctx.Err()
	}
	return m.jobs[i], nil
}

type mockTransformer struct {
	err    error
	result domain.ConversionResult
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawJob) (domain.ConversionResult, error) {
	if m.err != nil {
		return domain.ConversionResult{}, m.err
	}
	res := m.result
	if res.ID == "" {
		res.ID = string(raw.Key)
	}
	return res, nil
}

type mockLoader struct {
	err    error
	loaded []domain.ConversionResult
}

func (m *mockLoader) Load(_ context.Context, result domain.ConversionResult) error {
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, result)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawJob(t, "job-1", "data/in.nc", "out")

	ext := &mockExtractor{jobs: []domain.RawJob{raw}}
	tfm := &mockTransformer{result: domain.ConversionResult{Status: domain.StatusOK, Bytes: 1024, Variables: 2}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, testLogger(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "job-1", ldr.loaded[0].ID)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no jobs, will block
	tfm := &mockTransformer{}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, testLogger(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_InvalidJobSkippedAndCommitted(t *testing.T) {
	commitCalled := false
	raw := domain.RawJob{
		Value: []byte("not json"),
		Commit: func(_ context.Context) error {
			commitCalled = true
			return nil
		},
	}

	ext := &mockExtractor{jobs: []domain.RawJob{raw}}
	tfm := &mockTransformer{err: errors.New("decode job: bad payload")}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, testLogger(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
	assert.True(t, commitCalled, "invalid jobs are committed so they are not redelivered")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	commitCalled := false
	raw := makeRawJob(t, "job-2", "data/in.nc", "out")
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{jobs: []domain.RawJob{raw}}
	tfm := &mockTransformer{}
	ldr := &mockLoader{err: errors.New("broker unavailable")}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, testLogger(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.False(t, commitCalled, "failed loads must leave the offset uncommitted")
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := false
	raw := makeRawJob(t, "job-3", "data/in.nc", "out")
	raw.Topic = "raster-conversion-jobs"
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{jobs: []domain.RawJob{raw}}
	tfm := &mockTransformer{result: domain.ConversionResult{Status: domain.StatusOK}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, testLogger(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, commitCalled)
}

func TestJobTransformer_Transform(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, filepath.Join(dir, "in.nc"))

	converter := convert.New(zarr.DefaultCompressionLevel, testLogger())
	converter.Notice = io.Discard
	tfm := pipeline.NewTransformer(converter, dir, testLogger())

	raw := makeRawJob(t, "job-4", "in.nc", "out")
	res, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	expected := domain.ConversionResult{
		ID:           "job-4",
		InputPath:    "in.nc",
		ArtifactPath: filepath.Join(dir, "out", convert.ArtifactName),
		Status:       domain.StatusOK,
		Variables:    1,
	}
	actual := res
	actual.Bytes = 0
	actual.Duration = 0
	actual.ProcessedAt = time.Time{}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	assert.Greater(t, res.Bytes, int64(0))
}

func TestJobTransformer_Transform_ConversionFailureIsResult(t *testing.T) {
	dir := t.TempDir()

	converter := convert.New(zarr.DefaultCompressionLevel, testLogger())
	converter.Notice = io.Discard
	tfm := pipeline.NewTransformer(converter, dir, testLogger())

	raw := makeRawJob(t, "job-5", "missing.nc", "out")
	res, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err, "a failed conversion is a result, not a transform error")
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.ArtifactPath)
}

func TestJobTransformer_Transform_InvalidPayload(t *testing.T) {
	converter := convert.New(zarr.DefaultCompressionLevel, testLogger())
	tfm := pipeline.NewTransformer(converter, t.TempDir(), testLogger())

	_, err := tfm.Transform(context.Background(), domain.RawJob{Value: []byte("not json")})
	assert.Error(t, err)
}

// --- helpers ---

func makeRawJob(t *testing.T, id, inputPath, outputDir string) domain.RawJob {
	t.Helper()
	data, err := json.Marshal(domain.ConversionJob{
		ID:        id,
		InputPath: inputPath,
		OutputDir: outputDir,
	})
	require.NoError(t, err)
	return domain.RawJob{
		Key:   []byte(id),
		Value: data,
	}
}

func writeInput(t *testing.T, path string) {
	t.Helper()
	ds := dataset.New()
	require.NoError(t, ds.AddDim("time", 2))
	require.NoError(t, ds.AddVar(&dataset.Variable{
		Name:   "precip",
		Dims:   []string{"time"},
		Shape:  []int{2},
		Kind:   dataset.KindFloat64,
		Values: []float64{1.5, 2.5},
	}))
	require.NoError(t, netcdf.Write(ds, path))
}
