// Package writer executes batch persistence against the target database.
// One DbWriter is live at a time; the sink task replaces it wholesale
// after a retriable failure.
package writer

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/abroskin/kafka-connect-jdbc/internal/core/domain"
	"github.com/abroskin/kafka-connect-jdbc/internal/infra/dialect"
	"github.com/abroskin/kafka-connect-jdbc/internal/sink"
)

// recordColumns is the fixed destination schema: the record coordinates
// plus the opaque key and value payloads.
var recordColumns = []string{
	"kafka_topic",
	"kafka_partition",
	"kafka_offset",
	"record_key",
	"record_value",
}

// DbWriter writes batches into one destination table inside a single
// transaction per batch.
type DbWriter struct {
	db        *sqlx.DB
	dialect   dialect.Dialect
	insertSQL string
}

// New resolves the dialect and opens a fresh connection pool. The sink
// task wraps this in its WriterFactory so every retriable failure gets a
// clean writer.
func New(ctx context.Context, cfg Config) (*DbWriter, error) {
	d, err := ResolveDialect(cfg)
	if err != nil {
		return nil, err
	}
	db, err := openDB(ctx, cfg, d)
	if err != nil {
		return nil, err
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	return &DbWriter{
		db:        db,
		dialect:   d,
		insertSQL: d.InsertStatement(table, recordColumns),
	}, nil
}

// Dialect returns the resolved dialect.
func (w *DbWriter) Dialect() dialect.Dialect {
	return w.dialect
}

// Write persists the batch in one transaction: all rows or none. Failures
// are classified retriable or fatal before being returned.
func (w *DbWriter) Write(ctx context.Context, batch domain.Batch) error {
	if batch.Size() == 0 {
		return nil
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, w.insertSQL)
	if err != nil {
		return classify(fmt.Errorf("failed to prepare insert: %w", err))
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.Topic, r.Partition, r.Offset, r.Key, r.Value); err != nil {
			return classify(fmt.Errorf("failed to insert record %s-%d-%d: %w", r.Topic, r.Partition, r.Offset, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit batch: %w", err))
	}
	return nil
}

// Close releases the connection pool.
func (w *DbWriter) Close() error {
	return w.db.Close()
}

var _ sink.Writer = (*DbWriter)(nil)
