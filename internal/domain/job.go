// Package domain models conversion jobs and their results.
//
// Jobs arrive as flat JSON on the jobs topic, published by whatever schedules
// conversions (a watcher, a cron, an operator with kafkacat):
//
//	{"id": "...", "input_path": "data/precip_2020.nc", "output_dir": "out/precip_2020"}
//
// The id is optional; one is assigned when absent so results can always be
// keyed. Relative paths are resolved against the service's DATA_DIR.
package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// RawJob is an unprocessed message from the jobs topic.
type RawJob struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ConversionJob is a decoded, validated request to convert one file.
type ConversionJob struct {
	ID        string `json:"id"`
	InputPath string `json:"input_path"`
	OutputDir string `json:"output_dir"`
}

// ParseJob decodes and validates a raw job payload, assigning an ID when the
// producer didn't set one.
func ParseJob(raw RawJob) (ConversionJob, error) {
	var job ConversionJob
	if err := json.Unmarshal(raw.Value, &job); err != nil {
		return ConversionJob{}, fmt.Errorf("decode job: %w", err)
	}
	if job.InputPath == "" {
		return ConversionJob{}, fmt.Errorf("job missing input_path")
	}
	if job.OutputDir == "" {
		return ConversionJob{}, fmt.Errorf("job missing output_dir")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	return job, nil
}

// ConversionResult is the record published to the results topic for every
// processed job, successful or not.
type ConversionResult struct {
	ID           string        `json:"id"`
	InputPath    string        `json:"input_path"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	Variables    int           `json:"variables,omitempty"`
	Bytes        int64         `json:"bytes,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	ProcessedAt  time.Time     `json:"processed_at"`
}

// NewResult builds a successful result for a job.
func NewResult(job ConversionJob, artifactPath string, variables int, bytes int64, duration time.Duration) ConversionResult {
	return ConversionResult{
		ID:           job.ID,
		InputPath:    job.InputPath,
		ArtifactPath: artifactPath,
		Status:       StatusOK,
		Variables:    variables,
		Bytes:        bytes,
		Duration:     duration,
		ProcessedAt:  clock.Now().UTC(),
	}
}

// NewFailedResult builds a failed result carrying the conversion error.
func NewFailedResult(job ConversionJob, convErr error, duration time.Duration) ConversionResult {
	return ConversionResult{
		ID:          job.ID,
		InputPath:   job.InputPath,
		Status:      StatusFailed,
		Error:       convErr.Error(),
		Duration:    duration,
		ProcessedAt: clock.Now().UTC(),
	}
}
