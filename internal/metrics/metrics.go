package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesWritten tracks successfully persisted batches per topic
	BatchesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_jdbc_batches_written_total",
			Help: "Total number of batches successfully written",
		},
		[]string{"topic"},
	)

	// RecordsWritten tracks successfully persisted records per topic
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_jdbc_records_written_total",
			Help: "Total number of records successfully written",
		},
		[]string{"topic"},
	)

	// WriteFailures tracks failed write attempts by classification
	WriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_jdbc_write_failures_total",
			Help: "Total number of failed write attempts",
		},
		[]string{"class"},
	)

	// WriterReinits tracks writer reconstructions after retriable failures
	WriterReinits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connect_jdbc_writer_reinits_total",
			Help: "Total number of writer reinitializations",
		},
	)

	// RetryBudgetRemaining tracks the current retry budget
	RetryBudgetRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connect_jdbc_retry_budget_remaining",
			Help: "Remaining retriable-failure recoveries before escalation",
		},
	)

	// PacingSleep tracks the adaptive stall applied after successful writes
	PacingSleep = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "connect_jdbc_pacing_sleep_seconds",
			Help:    "Post-write pacing stall in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DeadLetteredBatches tracks batches journaled after fatal failures
	DeadLetteredBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_jdbc_dead_lettered_batches_total",
			Help: "Total number of batches journaled to the dead-letter store",
		},
		[]string{"topic"},
	)
)
