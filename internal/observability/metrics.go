package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// conversion pipeline.
type Metrics struct {
	JobsConsumed    prometheus.Counter
	InvalidJobs     prometheus.Counter
	ResultsProduced prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Conversion metrics.
	Conversions        *prometheus.CounterVec // labels: status={ok,failed}
	ConversionDuration prometheus.Histogram
	ArtifactBytes      prometheus.Histogram
	DatasetVariables   prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		JobsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raster_etl",
			Name:      "jobs_consumed_total",
			Help:      "Total conversion jobs read from the jobs topic.",
		}),
		InvalidJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raster_etl",
			Name:      "invalid_jobs_total",
			Help:      "Jobs skipped because their payload did not decode or validate.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raster_etl",
			Name:      "results_produced_total",
			Help:      "Total results written to the results topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raster_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raster_etl",
			Name:      "conversions_total",
			Help:      "Completed conversions by status.",
		}, []string{"status"}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "raster_etl",
			Name:      "conversion_duration_seconds",
			Help:      "Duration of a complete open-write-close conversion.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		ArtifactBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "raster_etl",
			Name:      "artifact_bytes",
			Help:      "Size of written Zarr artifacts in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 8, 8),
		}),
		DatasetVariables: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "raster_etl",
			Name:      "dataset_variables",
			Help:      "Variables per converted dataset, coordinates included.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}

	prometheus.MustRegister(
		m.JobsConsumed,
		m.InvalidJobs,
		m.ResultsProduced,
		m.PipelineRunning,
		m.Conversions,
		m.ConversionDuration,
		m.ArtifactBytes,
		m.DatasetVariables,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		JobsConsumed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "raster_etl", Name: "jobs_consumed_total"}),
		InvalidJobs:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "raster_etl", Name: "invalid_jobs_total"}),
		ResultsProduced:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "raster_etl", Name: "results_produced_total"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "raster_etl", Name: "pipeline_running"}),
		Conversions:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "raster_etl", Name: "conversions_total"}, []string{"status"}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "raster_etl", Name: "conversion_duration_seconds"}),
		ArtifactBytes:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "raster_etl", Name: "artifact_bytes"}),
		DatasetVariables:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "raster_etl", Name: "dataset_variables"}),
	}
}
