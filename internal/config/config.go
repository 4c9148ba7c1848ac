package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers      []string
	KafkaJobsTopic    string
	KafkaResultsTopic string
	KafkaGroupID      string
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	ShutdownTimeout   time.Duration

	// DataDir is the base directory relative job paths resolve against.
	DataDir string

	// ZarrCompressionLevel is the zlib level (0-9) for chunk data.
	ZarrCompressionLevel int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	level, err := parseInt("ZARR_COMPRESSION_LEVEL", 5)
	if err != nil {
		return nil, err
	}
	if level < 0 || level > 9 {
		return nil, fmt.Errorf("ZARR_COMPRESSION_LEVEL must be 0-9, got %d", level)
	}

	cfg := &Config{
		KafkaBrokers:      splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaJobsTopic:    envOrDefault("KAFKA_JOBS_TOPIC", "raster-conversion-jobs"),
		KafkaResultsTopic: envOrDefault("KAFKA_RESULTS_TOPIC", "raster-conversion-results"),
		KafkaGroupID:      envOrDefault("KAFKA_GROUP_ID", "climate-raster-etl"),
		HTTPAddr:          envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,

		DataDir:              envOrDefault("DATA_DIR", "."),
		ZarrCompressionLevel: level,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaJobsTopic == "" {
		return nil, errors.New("KAFKA_JOBS_TOPIC is required")
	}
	if cfg.KafkaResultsTopic == "" {
		return nil, errors.New("KAFKA_RESULTS_TOPIC is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
