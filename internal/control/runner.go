// Package control is the lifecycle shell around the sink task: it runs
// migrations, owns the delivery loop that honors the host contract
// (redeliver after retriable failures, stop on fatal ones), and serves
// metrics and health endpoints.
package control

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abroskin/kafka-connect-jdbc/internal/core/config"
	"github.com/abroskin/kafka-connect-jdbc/internal/core/domain"
	"github.com/abroskin/kafka-connect-jdbc/internal/infra/deadletter"
	"github.com/abroskin/kafka-connect-jdbc/internal/infra/writer"
	"github.com/abroskin/kafka-connect-jdbc/internal/metrics"
	"github.com/abroskin/kafka-connect-jdbc/internal/sink"
	"github.com/abroskin/kafka-connect-jdbc/migrations"
)

// hostContext collects the task's delay requests. The delivery loop takes
// the pending delay and applies it before the next call.
type hostContext struct {
	pending time.Duration
}

func (h *hostContext) Timeout(d time.Duration) {
	h.pending = d
}

func (h *hostContext) take() time.Duration {
	d := h.pending
	h.pending = 0
	return d
}

// Runner wires the sink task to a record source and runs it to completion.
type Runner struct {
	cfg        *config.AppConfig
	task       *sink.Task
	source     Source
	host       *hostContext
	deadLetter *deadletter.Reporter // nil when disabled
	server     *http.Server
	log        *slog.Logger
}

// NewRunner builds the task, source, dead-letter reporter and HTTP server
// from the configuration.
func NewRunner(cfg *config.AppConfig) (*Runner, error) {
	host := &hostContext{}
	task := sink.NewTask(sink.Config{
		MaxRetries:   cfg.Sink.MaxRetries,
		RetryBackoff: time.Duration(cfg.Sink.RetryBackoffMs) * time.Millisecond,
		Pacing: sink.PacingConfig{
			BatchSizeLimit: cfg.Sink.BatchSize,
			MinSleep:       time.Duration(cfg.Sink.MinSleepAfterPutMs) * time.Millisecond,
			MaxSleep:       time.Duration(cfg.Sink.MaxSleepAfterPutMs) * time.Millisecond,
		},
	}, func(ctx context.Context) (sink.Writer, error) {
		return writer.New(ctx, cfg.Connection)
	}, host)

	var reporter *deadletter.Reporter
	if cfg.Redis.URL != "" {
		var err error
		reporter, err = deadletter.NewReporter(cfg.Redis, task.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to init dead-letter reporter: %w", err)
		}
		slog.Info("Dead-letter journal enabled")
	}

	var source Source
	switch cfg.Source.Type {
	case "file":
		var err error
		source, err = NewFileSource(cfg.Source.Path, cfg.Sink.BatchSize)
		if err != nil {
			return nil, err
		}
	default:
		source = NewBenchSource(cfg.Source.Topic, cfg.Sink.BatchSize, cfg.Source.Batches, time.Now().UnixNano())
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Runner{
		cfg:        cfg,
		task:       task,
		source:     source,
		host:       host,
		deadLetter: reporter,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: mux,
		},
		log: slog.Default().With("task", task.ID()),
	}, nil
}

// migrate brings the connector's destination schema up to date.
func (r *Runner) migrate(ctx context.Context) error {
	d, err := writer.ResolveDialect(r.cfg.Connection)
	if err != nil {
		return err
	}
	db, err := sql.Open(d.DriverName(), d.DSN(r.cfg.Connection.URL))
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(gooseDialect(d.Name())); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func gooseDialect(name string) string {
	if name == "sqlite" {
		return "sqlite3"
	}
	return name
}

// Run migrates the schema, starts the task and drives the delivery loop
// until the source is exhausted, the context is cancelled, or the task
// fails fatally.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.migrate(ctx); err != nil {
		return err
	}
	if err := r.task.Start(ctx); err != nil {
		return err
	}

	go func() {
		r.log.Info("Serving metrics", "addr", r.server.Addr)
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("Metrics server failed", "error", err)
		}
	}()

	for {
		batch, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			r.log.Info("Source exhausted, stopping")
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.deliver(ctx, batch); err != nil {
			return err
		}
	}
}

// deliver puts one batch, redelivering it verbatim after every retriable
// failure. The task's requested backoff is honored before each redelivery.
// A fatal failure is journaled and returned.
func (r *Runner) deliver(ctx context.Context, batch domain.Batch) error {
	for {
		err := r.task.Put(ctx, batch)
		if err == nil {
			return nil
		}
		if !sink.IsRetriable(err) {
			r.journal(ctx, batch, err)
			return err
		}

		r.log.Warn("Retriable delivery failure, batch will be redelivered", "error", err)
		if d := r.host.take(); d > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
		}
	}
}

// journal records a fatally failed batch in the dead-letter store.
// Best-effort: a journal failure is logged, never masks the fatal error.
func (r *Runner) journal(ctx context.Context, batch domain.Batch, cause error) {
	if r.deadLetter == nil || batch.Size() == 0 {
		return
	}
	if err := r.deadLetter.Report(ctx, batch, cause.Error()); err != nil {
		r.log.Warn("Failed to journal dead-lettered batch", "error", err)
		return
	}
	metrics.DeadLetteredBatches.WithLabelValues(batch.First().Topic).Inc()
}

// Stop shuts everything down, suppressing and logging close-time errors.
// Safe to call more than once.
func (r *Runner) Stop(ctx context.Context) {
	r.task.Stop()
	if err := r.server.Shutdown(ctx); err != nil {
		r.log.Warn("Error while shutting down metrics server", "error", err)
	}
	if r.deadLetter != nil {
		if err := r.deadLetter.Close(); err != nil {
			r.log.Warn("Error while closing dead-letter reporter", "error", err)
		}
		r.deadLetter = nil
	}
}
