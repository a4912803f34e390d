package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abroskin/kafka-connect-jdbc/internal/core/domain"
	"github.com/abroskin/kafka-connect-jdbc/internal/metrics"
)

// Writer persists one batch against the target store. Write returns nil on
// success, a *RetriableError for transient failures, or a *FatalError for
// permanent ones. A batch is all-or-nothing: the writer never reports
// success for a partial write.
type Writer interface {
	Write(ctx context.Context, batch domain.Batch) error
	Close() error
}

// WriterFactory constructs a fresh Writer from the static configuration.
// The task calls it at start and again after every retriable failure.
type WriterFactory func(ctx context.Context) (Writer, error)

// HostContext is the slice of the host runtime the task signals back to.
type HostContext interface {
	// Timeout requests that the host wait at least d before the next
	// delivery call. Used for retry backoff.
	Timeout(d time.Duration)
}

// Config holds the task's delivery-control parameters.
type Config struct {
	// MaxRetries is the number of consecutive retriable-failure
	// recoveries permitted before escalation to fatal. Zero means the
	// first failure is fatal.
	MaxRetries int

	// RetryBackoff is the delay requested from the host before a failed
	// batch is redelivered.
	RetryBackoff time.Duration

	Pacing PacingConfig
}

// Task is the write-retry controller. It owns the live writer, the retry
// budget, and the pacing history. The host delivers batches through Put on
// a single goroutine; the task performs no internal synchronization beyond
// that contract. Stop may arrive from another goroutine during an
// in-flight Put; closing the writer is best-effort and idempotent.
type Task struct {
	id        string
	cfg       Config
	host      HostContext
	newWriter WriterFactory

	writer           Writer
	remainingRetries int
	pacer            *Pacer
	log              *slog.Logger
}

// NewTask creates a sink task.
func NewTask(cfg Config, newWriter WriterFactory, host HostContext) *Task {
	id := uuid.New().String()
	return &Task{
		id:        id,
		cfg:       cfg,
		host:      host,
		newWriter: newWriter,
		pacer:     NewPacer(cfg.Pacing),
		log:       slog.Default().With("task", id),
	}
}

// ID is the unique identifier of this task instance, stamped into logs
// and dead-letter entries.
func (t *Task) ID() string {
	return t.id
}

// Start constructs the writer and arms the retry budget. A construction
// failure here is terminal; the host must not call Put.
func (t *Task) Start(ctx context.Context) error {
	t.log.Info("Starting JDBC sink task")
	w, err := t.newWriter(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize writer: %w", err)
	}
	t.writer = w
	t.remainingRetries = t.cfg.MaxRetries
	metrics.RetryBudgetRemaining.Set(float64(t.remainingRetries))
	return nil
}

// Put delivers one batch. An empty batch is a no-op. On success the retry
// budget is reset and the delivery goroutine stalls for the adaptive
// pacing delay. On a retriable failure with budget remaining, the writer
// is replaced, the budget decremented, a backoff requested from the host,
// and a *RetriableError returned: the host must redeliver the same batch.
// A *FatalError return is terminal for this task instance.
func (t *Task) Put(ctx context.Context, batch domain.Batch) error {
	if batch.Size() == 0 {
		return nil
	}
	if t.writer == nil {
		return NewFatalError(errors.New("task is not running"))
	}

	first := batch.First()
	t.log.Debug("Received records, writing them to the database",
		"count", batch.Size(),
		"topic", first.Topic,
		"partition", first.Partition,
		"offset", first.Offset,
	)

	if err := t.writer.Write(ctx, batch); err != nil {
		return t.handleWriteError(ctx, batch, err)
	}

	t.remainingRetries = t.cfg.MaxRetries
	metrics.RetryBudgetRemaining.Set(float64(t.remainingRetries))
	metrics.BatchesWritten.WithLabelValues(first.Topic).Inc()
	metrics.RecordsWritten.WithLabelValues(first.Topic).Add(float64(batch.Size()))

	delay := t.pacer.NextDelay(batch.Size())
	metrics.PacingSleep.Observe(delay.Seconds())
	t.log.Info("Processed records", "count", batch.Size(), "topic", first.Topic, "sleep", delay)
	if delay > 0 {
		select {
		case <-ctx.Done():
			// Swallowing the cancellation could corrupt downstream
			// ordering assumptions; surface it as terminal instead.
			return NewFatalError(fmt.Errorf("pacing sleep interrupted: %w", ctx.Err()))
		case <-time.After(delay):
		}
	}
	return nil
}

func (t *Task) handleWriteError(ctx context.Context, batch domain.Batch, werr error) error {
	t.log.Warn("Write of records failed",
		"count", batch.Size(),
		"remaining_retries", t.remainingRetries,
		"error", werr,
	)
	flat := FlattenChain(werr)

	if IsFatal(werr) || t.remainingRetries == 0 {
		metrics.WriteFailures.WithLabelValues("fatal").Inc()
		return &FatalError{Message: flat, cause: werr}
	}

	metrics.WriteFailures.WithLabelValues("retriable").Inc()
	t.closeWriterQuietly()
	w, err := t.newWriter(ctx)
	if err != nil {
		// Reinitialization gets no retry layer of its own: a writer
		// that cannot even be constructed needs operator attention.
		rerr := fmt.Errorf("writer reinitialization failed: %w", err)
		metrics.WriteFailures.WithLabelValues("fatal").Inc()
		return &FatalError{Message: FlattenChain(rerr), cause: rerr}
	}
	t.writer = w
	t.remainingRetries--
	metrics.WriterReinits.Inc()
	metrics.RetryBudgetRemaining.Set(float64(t.remainingRetries))
	t.host.Timeout(t.cfg.RetryBackoff)
	return &RetriableError{Message: flat, cause: werr}
}

// Flush is a no-op: every Put either persists its batch completely or
// reports a failure, so there is nothing buffered to flush.
func (t *Task) Flush() {}

// Stop releases the writer, suppressing and logging close errors.
// Shutdown must complete regardless. Safe to call more than once.
func (t *Task) Stop() {
	t.log.Info("Stopping JDBC sink task")
	t.closeWriterQuietly()
}

func (t *Task) closeWriterQuietly() {
	if t.writer == nil {
		return
	}
	if err := t.writer.Close(); err != nil {
		t.log.Warn("Error while closing writer", "error", err)
	}
	t.writer = nil
}
