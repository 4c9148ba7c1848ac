package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/cloudvane/climate-raster-etl/internal/config"
	"github.com/cloudvane/climate-raster-etl/internal/domain"
)

// Reader consumes conversion jobs from the jobs topic as part of a consumer
// group. It implements pipeline.Extractor.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured jobs topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaJobsTopic,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})
	return &Reader{reader: r, logger: logger}
}

// Extract blocks until a job message arrives or the context is cancelled.
// The returned job carries a Commit closure; offsets are committed only
// after the job has been fully processed.
func (r *Reader) Extract(ctx context.Context) (domain.RawJob, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.RawJob{}, err
	}
	return domain.RawJob{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
