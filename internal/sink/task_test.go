package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abroskin/kafka-connect-jdbc/internal/core/domain"
)

// harness scripts writer behavior across reconstructions.
type harness struct {
	writeErrs   []error // returned by successive Write calls, then nil
	writeCalls  int
	constructed int
	closes      int
	closeErr    error
	failFactory int // fail construction once constructed >= failFactory (0 = never)
}

type scriptedWriter struct {
	h *harness
}

func (w *scriptedWriter) Write(_ context.Context, _ domain.Batch) error {
	i := w.h.writeCalls
	w.h.writeCalls++
	if i < len(w.h.writeErrs) {
		return w.h.writeErrs[i]
	}
	return nil
}

func (w *scriptedWriter) Close() error {
	w.h.closes++
	return w.h.closeErr
}

func (h *harness) factory(_ context.Context) (Writer, error) {
	if h.failFactory > 0 && h.constructed >= h.failFactory {
		return nil, errors.New("connection refused")
	}
	h.constructed++
	return &scriptedWriter{h: h}, nil
}

type hostRecorder struct {
	timeouts []time.Duration
}

func (r *hostRecorder) Timeout(d time.Duration) {
	r.timeouts = append(r.timeouts, d)
}

func newTestTask(t *testing.T, maxRetries int, h *harness, host HostContext) *Task {
	t.Helper()
	task := NewTask(Config{
		MaxRetries:   maxRetries,
		RetryBackoff: 25 * time.Millisecond,
		Pacing:       PacingConfig{BatchSizeLimit: 100},
	}, h.factory, host)
	if err := task.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return task
}

func makeBatch(n int) domain.Batch {
	batch := make(domain.Batch, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, domain.SinkRecord{
			Topic:     "orders",
			Partition: 3,
			Offset:    int64(100 + i),
			Value:     []byte(`{}`),
		})
	}
	return batch
}

func TestPut_EmptyBatchIsNoOp(t *testing.T) {
	h := &harness{}
	host := &hostRecorder{}
	task := newTestTask(t, 5, h, host)
	task.remainingRetries = 2 // must stay untouched

	if err := task.Put(context.Background(), domain.Batch{}); err != nil {
		t.Fatalf("Put of empty batch returned error: %v", err)
	}
	if h.writeCalls != 0 {
		t.Errorf("expected no write attempts, got %d", h.writeCalls)
	}
	if task.remainingRetries != 2 {
		t.Errorf("retry budget mutated: got %d, want 2", task.remainingRetries)
	}
	if len(task.pacer.history) != 0 {
		t.Errorf("batch size history mutated: %v", task.pacer.history)
	}
	if len(host.timeouts) != 0 {
		t.Errorf("unexpected host timeout requests: %v", host.timeouts)
	}
}

func TestPut_SuccessResetsBudget(t *testing.T) {
	h := &harness{}
	task := newTestTask(t, 5, h, &hostRecorder{})
	task.remainingRetries = 1

	if err := task.Put(context.Background(), makeBatch(7)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if task.remainingRetries != 5 {
		t.Errorf("retry budget after success: got %d, want 5", task.remainingRetries)
	}
	if got := task.pacer.history; len(got) != 1 || got[0] != 7 {
		t.Errorf("batch size history: got %v, want [7]", got)
	}
}

func TestPut_RetriableFailuresDecrementBudget(t *testing.T) {
	const maxRetries = 5
	const failures = 3
	h := &harness{writeErrs: []error{
		NewRetriableError(errors.New("connection reset")),
		NewRetriableError(errors.New("connection reset")),
		NewRetriableError(errors.New("connection reset")),
	}}
	host := &hostRecorder{}
	task := newTestTask(t, maxRetries, h, host)

	for i := 1; i <= failures; i++ {
		err := task.Put(context.Background(), makeBatch(4))
		if !IsRetriable(err) {
			t.Fatalf("attempt %d: expected retriable error, got %v", i, err)
		}
		if task.remainingRetries != maxRetries-i {
			t.Errorf("attempt %d: budget %d, want %d", i, task.remainingRetries, maxRetries-i)
		}
		if h.constructed != 1+i {
			t.Errorf("attempt %d: %d writers constructed, want %d", i, h.constructed, 1+i)
		}
	}
	if h.closes != failures {
		t.Errorf("writers closed: got %d, want %d", h.closes, failures)
	}
	if len(host.timeouts) != failures {
		t.Fatalf("host timeout requests: got %d, want %d", len(host.timeouts), failures)
	}
	for _, d := range host.timeouts {
		if d != 25*time.Millisecond {
			t.Errorf("backoff request: got %v, want 25ms", d)
		}
	}

	// Failures never touch the pacing history.
	if len(task.pacer.history) != 0 {
		t.Errorf("batch size history mutated on failure: %v", task.pacer.history)
	}
}

func TestPut_ExhaustedBudgetIsFatal(t *testing.T) {
	h := &harness{writeErrs: []error{
		NewRetriableError(errors.New("deadlock detected")),
		NewRetriableError(errors.New("deadlock detected")),
	}}
	task := newTestTask(t, 1, h, &hostRecorder{})

	if err := task.Put(context.Background(), makeBatch(1)); !IsRetriable(err) {
		t.Fatalf("first failure: expected retriable, got %v", err)
	}
	err := task.Put(context.Background(), makeBatch(1))
	if !IsFatal(err) {
		t.Fatalf("second failure: expected fatal, got %v", err)
	}
	if IsRetriable(err) {
		t.Error("fatal error must not classify as retriable")
	}
	if h.constructed != 2 {
		t.Errorf("writers constructed: got %d, want 2 (no reinit on the fatal path)", h.constructed)
	}
}

func TestPut_FatalErrorBypassesRetry(t *testing.T) {
	h := &harness{writeErrs: []error{
		NewFatalError(errors.New(`relation "orders" does not exist`)),
	}}
	host := &hostRecorder{}
	task := newTestTask(t, 10, h, host)

	err := task.Put(context.Background(), makeBatch(2))
	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if h.constructed != 1 || h.closes != 0 {
		t.Errorf("writer touched on fatal path: constructed=%d closes=%d", h.constructed, h.closes)
	}
	if len(host.timeouts) != 0 {
		t.Errorf("no backoff expected on fatal path, got %v", host.timeouts)
	}
}

func TestPut_ReinitFailureIsFatal(t *testing.T) {
	h := &harness{
		writeErrs:   []error{NewRetriableError(errors.New("broken pipe"))},
		failFactory: 1,
	}
	task := newTestTask(t, 10, h, &hostRecorder{})

	err := task.Put(context.Background(), makeBatch(2))
	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if !strings.Contains(err.Error(), "writer reinitialization failed") {
		t.Errorf("error message should name the reinit failure, got %q", err.Error())
	}
	if task.remainingRetries != 10 {
		t.Errorf("budget must not be decremented on reinit failure, got %d", task.remainingRetries)
	}
}

func TestScenario_TwoFailuresThenSuccess(t *testing.T) {
	h := &harness{writeErrs: []error{
		NewRetriableError(errors.New("timeout")),
		NewRetriableError(errors.New("timeout")),
	}}
	task := newTestTask(t, 2, h, &hostRecorder{})
	batch := makeBatch(3)

	var signals []string
	for i := 0; i < 3; i++ {
		switch err := task.Put(context.Background(), batch); {
		case err == nil:
			signals = append(signals, "success")
		case IsRetriable(err):
			signals = append(signals, "retriable")
		default:
			signals = append(signals, "fatal")
		}
	}

	want := []string{"retriable", "retriable", "success"}
	for i := range want {
		if signals[i] != want[i] {
			t.Fatalf("signal sequence: got %v, want %v", signals, want)
		}
	}
	if h.constructed != 3 {
		t.Errorf("writers constructed: got %d, want 3 (initial + 2 reinits)", h.constructed)
	}
	if task.remainingRetries != 2 {
		t.Errorf("budget after success: got %d, want 2 (full reset)", task.remainingRetries)
	}
}

func TestScenario_ZeroRetriesFailsFast(t *testing.T) {
	h := &harness{writeErrs: []error{
		NewRetriableError(errors.New("connection refused")),
	}}
	task := newTestTask(t, 0, h, &hostRecorder{})

	err := task.Put(context.Background(), makeBatch(1))
	if !IsFatal(err) {
		t.Fatalf("expected immediate fatal with maxRetries=0, got %v", err)
	}
	if h.constructed != 1 || h.closes != 0 {
		t.Errorf("no reconstruction expected: constructed=%d closes=%d", h.constructed, h.closes)
	}
}

func TestPut_SurfacesFlattenedChain(t *testing.T) {
	inner := errors.New("connection reset by peer")
	h := &harness{writeErrs: []error{
		NewRetriableError(fmt.Errorf("failed to commit batch: %w", inner)),
	}}
	task := newTestTask(t, 2, h, &hostRecorder{})

	err := task.Put(context.Background(), makeBatch(1))
	if !IsRetriable(err) {
		t.Fatalf("expected retriable error, got %v", err)
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "write error chain:") {
		t.Errorf("message should start with the chain header, got %q", msg)
	}
	for _, cause := range []string{"failed to commit batch", "connection reset by peer"} {
		if !strings.Contains(msg, cause) {
			t.Errorf("message should contain cause %q, got %q", cause, msg)
		}
	}
}

func TestStop_Idempotent(t *testing.T) {
	h := &harness{}
	task := newTestTask(t, 3, h, &hostRecorder{})

	task.Stop()
	task.Stop()
	if h.closes != 1 {
		t.Errorf("writer closed %d times, want 1", h.closes)
	}
	if task.writer != nil {
		t.Error("writer reference must be dropped after Stop")
	}
}

func TestStop_SuppressesCloseError(t *testing.T) {
	h := &harness{closeErr: errors.New("close failed")}
	task := newTestTask(t, 3, h, &hostRecorder{})

	task.Stop() // must not panic or surface the error
	if task.writer != nil {
		t.Error("writer reference must be dropped even when close fails")
	}
}

func TestPut_CancelledDuringPacingStall(t *testing.T) {
	h := &harness{}
	task := NewTask(Config{
		MaxRetries: 3,
		Pacing:     PacingConfig{BatchSizeLimit: 100, MinSleep: time.Minute},
	}, h.factory, &hostRecorder{})
	if err := task.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := task.Put(ctx, makeBatch(1))
	if !IsFatal(err) {
		t.Fatalf("cancellation during the stall must surface as fatal, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("fatal error should wrap the cancellation cause, got %v", err)
	}
}
