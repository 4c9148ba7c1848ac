package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudvane/climate-raster-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	processedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	result := domain.ConversionResult{
		ID:           "job-1",
		InputPath:    "data/precip_2020.nc",
		ArtifactPath: "out/precip_2020/output.zarr",
		Status:       domain.StatusOK,
		Variables:    4,
		Bytes:        8192,
		Duration:     300 * time.Millisecond,
		ProcessedAt:  processedAt,
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte("job-1"), msg.Key)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "ok", headers["status"])
	assert.Equal(t, "2026-03-14T09:26:53Z", headers["processed_at"])

	var roundtrip domain.ConversionResult
	require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
	assert.Equal(t, result, roundtrip)
}

func TestSerializeToMessage_FailedResult(t *testing.T) {
	result := domain.ConversionResult{
		ID:        "job-2",
		InputPath: "data/missing.nc",
		Status:    domain.StatusFailed,
		Error:     "open data/missing.nc: no such file",
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte("job-2"), msg.Key)
	assert.Contains(t, string(msg.Value), `"status":"failed"`)
	assert.NotContains(t, string(msg.Value), "artifact_path", "omitted for failures")
}
