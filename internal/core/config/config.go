package config

import (
	"github.com/abroskin/kafka-connect-jdbc/internal/infra/deadletter"
	"github.com/abroskin/kafka-connect-jdbc/internal/infra/writer"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig      `yaml:"server"`
	Logging    LoggingConfig     `yaml:"logging"`
	Connection writer.Config     `yaml:"connection"`
	Sink       SinkConfig        `yaml:"sink"`
	Redis      deadletter.Config `yaml:"redis"`
	Source     SourceConfig      `yaml:"source"`
}

// ServerConfig holds metrics/health HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SinkConfig holds the delivery-control parameters.
type SinkConfig struct {
	// MaxRetries is the number of retriable-failure recoveries permitted
	// before a failure becomes fatal. 0 means fail on the first error.
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoffMs is the wait before a failed batch is redelivered.
	RetryBackoffMs int `yaml:"retry_backoff_ms"`

	// BatchSize is the maximum records per delivery and the saturation
	// reference for adaptive pacing.
	BatchSize int `yaml:"batch_size"`

	// MinSleepAfterPutMs / MaxSleepAfterPutMs bound the adaptive pacing
	// stall after a successful write. MaxSleepAfterPutMs = 0 disables
	// adaptivity; MinSleepAfterPutMs is then applied flat.
	MinSleepAfterPutMs int `yaml:"min_sleep_after_put_ms"`
	MaxSleepAfterPutMs int `yaml:"max_sleep_after_put_ms"`
}

// SourceConfig selects what feeds the delivery loop.
type SourceConfig struct {
	// Type is "bench" (synthetic records) or "file" (JSON lines).
	Type string `yaml:"type"`

	// Path is the input file for the file source.
	Path string `yaml:"path"`

	// Topic stamped onto generated records (bench source).
	Topic string `yaml:"topic"`

	// Batches bounds how many batches the bench source produces.
	// 0 = unbounded.
	Batches int `yaml:"batches"`
}
