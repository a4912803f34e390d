package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file. Environment variable
// references in the file are expanded before parsing.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	// max_retries and retry_backoff_ms get no defaults: zero is a valid
	// setting for both (fail on first error, redeliver immediately).
	if cfg.Sink.BatchSize == 0 {
		cfg.Sink.BatchSize = 3000
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = "bench"
	}
	if cfg.Source.Topic == "" {
		cfg.Source.Topic = "bench"
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Connection.URL == "" {
		return fmt.Errorf("connection.url is required")
	}
	if cfg.Sink.BatchSize <= 0 {
		return fmt.Errorf("sink.batch_size must be positive, got %d", cfg.Sink.BatchSize)
	}
	if cfg.Sink.MaxRetries < 0 {
		return fmt.Errorf("sink.max_retries must not be negative, got %d", cfg.Sink.MaxRetries)
	}
	if cfg.Sink.RetryBackoffMs < 0 {
		return fmt.Errorf("sink.retry_backoff_ms must not be negative, got %d", cfg.Sink.RetryBackoffMs)
	}
	if cfg.Sink.MinSleepAfterPutMs < 0 || cfg.Sink.MaxSleepAfterPutMs < 0 {
		return fmt.Errorf("sink sleep bounds must not be negative")
	}
	switch cfg.Source.Type {
	case "bench":
	case "file":
		if cfg.Source.Path == "" {
			return fmt.Errorf("source.path is required for the file source")
		}
	default:
		return fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
	return nil
}
