package writer

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/abroskin/kafka-connect-jdbc/internal/sink"
)

// classify wraps a write failure as retriable or fatal.
//
// Postgres errors carry a SQLSTATE: connection failures (08), transaction
// rollbacks such as deadlocks and serialization conflicts (40),
// insufficient resources (53) and admin shutdown (57) are worth retrying
// against a fresh writer; syntax/access (42), data (22) and integrity (23)
// violations will fail identically on every attempt. Drivers without
// SQLSTATE fall back to message heuristics.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return sink.NewFatalError(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "40"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57"):
			return sink.NewRetriableError(err)
		case strings.HasPrefix(pgErr.Code, "22"),
			strings.HasPrefix(pgErr.Code, "23"),
			strings.HasPrefix(pgErr.Code, "42"):
			return sink.NewFatalError(err)
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return sink.NewRetriableError(err)
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "syntax error"),
		strings.Contains(s, "no such table"),
		strings.Contains(s, "no such column"),
		strings.Contains(s, "does not exist"),
		strings.Contains(s, "permission denied"),
		strings.Contains(s, "authentication failed"):
		return sink.NewFatalError(err)
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "connection reset"),
		strings.Contains(s, "broken pipe"),
		strings.Contains(s, "timeout"),
		strings.Contains(s, "deadlock"),
		strings.Contains(s, "database is locked"),
		strings.Contains(s, "too many connections"),
		strings.Contains(s, "bad connection"):
		return sink.NewRetriableError(err)
	}

	// Default to retriable: transient store trouble is the common case,
	// and the retry budget bounds the damage of a misclassification.
	return sink.NewRetriableError(err)
}
