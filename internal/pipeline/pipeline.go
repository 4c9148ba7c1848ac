package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cloudvane/climate-raster-etl/internal/domain"
	"github.com/cloudvane/climate-raster-etl/internal/observability"
)

// Extractor reads the next raw job from the source.
type Extractor interface {
	Extract(ctx context.Context) (domain.RawJob, error)
}

// Transformer runs the conversion a raw job describes. A returned error
// means the job payload itself was unusable; a conversion failure comes back
// as a failed-status result, not an error.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawJob) (domain.ConversionResult, error)
}

// Loader writes a conversion result to the destination.
type Loader interface {
	Load(ctx context.Context, result domain.ConversionResult) error
}

// Pipeline orchestrates the extract-convert-load loop. Jobs are processed
// one at a time: a conversion holds a whole dataset in memory, so there is
// nothing to gain from batching and a lot of peak memory to lose.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// job, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any jobs yet")
	}
	return nil
}

// Run executes the conversion loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka
	// outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processJob(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processJob runs one extract-convert-load cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processJob(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	raw, err := p.extractor.Extract(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract job failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.JobsConsumed.Inc()
	*backoff = 200 * time.Millisecond

	result, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		// Undecodable payload: skip past it, it will never succeed.
		p.logger.Warn("skipping invalid job",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		p.metrics.InvalidJobs.Inc()
		p.commitOffset(ctx, raw)
		return true
	}

	if err := p.loader.Load(ctx, result); err != nil {
		if ctx.Err() != nil {
			return false
		}
		// Not committed: the job is redelivered and converted again.
		p.logger.Error("load result failed", "error", err, "job_id", result.ID)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.ResultsProduced.Inc()
	p.metrics.Conversions.WithLabelValues(result.Status).Inc()
	p.metrics.ConversionDuration.Observe(result.Duration.Seconds())
	if result.Status == domain.StatusOK {
		p.metrics.ArtifactBytes.Observe(float64(result.Bytes))
		p.metrics.DatasetVariables.Observe(float64(result.Variables))
	}

	p.commitOffset(ctx, raw)
	p.ready.Store(true)
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should
// stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawJob) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
