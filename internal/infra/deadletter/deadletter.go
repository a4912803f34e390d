// Package deadletter journals fatally failed batches to Redis so
// operators can inspect or replay them after restarting the task.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/abroskin/kafka-connect-jdbc/internal/core/domain"
)

// Config holds Redis connection configuration. An empty URL disables the
// reporter.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// entryTTL bounds how long a journaled batch is kept.
const entryTTL = 24 * time.Hour

// Entry is the journaled form of one fatally failed batch.
type Entry struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Topic       string    `json:"topic"`
	Partition   int32     `json:"partition"`
	StartOffset int64     `json:"start_offset"`
	EndOffset   int64     `json:"end_offset"`
	Records     int       `json:"records"`
	Cause       string    `json:"cause"`
	FailedAt    time.Time `json:"failed_at"`
}

// Reporter journals failed batches under per-topic sorted sets.
type Reporter struct {
	rdb    *redis.Client
	taskID string
}

// NewReporter connects to Redis and verifies the connection.
func NewReporter(cfg Config, taskID string) (*Reporter, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Reporter{rdb: rdb, taskID: taskID}, nil
}

// Key helpers
func queueKey(topic string) string {
	return fmt.Sprintf("dead_letter:%s", topic)
}

func entryKey(topic, id string) string {
	return fmt.Sprintf("dead_letter_entry:%s:%s", topic, id)
}

// Report journals the batch with its flattened failure cause. The payload
// is stored under a TTL'd key and indexed in a sorted set scored by
// failure time, oldest first.
func (r *Reporter) Report(ctx context.Context, batch domain.Batch, cause string) error {
	if batch.Size() == 0 {
		return nil
	}
	first := batch.First()
	start, end := batch.OffsetSpan()
	entry := Entry{
		ID:          uuid.New().String(),
		TaskID:      r.taskID,
		Topic:       first.Topic,
		Partition:   first.Partition,
		StartOffset: start,
		EndOffset:   end,
		Records:     batch.Size(),
		Cause:       cause,
		FailedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter entry: %w", err)
	}

	if err := r.rdb.Set(ctx, entryKey(entry.Topic, entry.ID), data, entryTTL).Err(); err != nil {
		return fmt.Errorf("failed to store dead-letter entry: %w", err)
	}
	if err := r.rdb.ZAdd(ctx, queueKey(entry.Topic), redis.Z{
		Score:  float64(entry.FailedAt.UnixMilli()),
		Member: entry.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index dead-letter entry: %w", err)
	}
	return nil
}

// Next returns the oldest journaled batch for topic, or nil when the
// journal is empty. Expired payloads are pruned from the index.
func (r *Reporter) Next(ctx context.Context, topic string) (*Entry, error) {
	ids, err := r.rdb.ZRange(ctx, queueKey(topic), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	data, err := r.rdb.Get(ctx, entryKey(topic, ids[0])).Bytes()
	if err == redis.Nil {
		// Payload expired but the ID is still indexed, drop it.
		r.rdb.ZRem(ctx, queueKey(topic), ids[0])
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dead-letter entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead-letter entry: %w", err)
	}
	return &entry, nil
}

// Ack removes a journaled batch after the operator has handled it.
func (r *Reporter) Ack(ctx context.Context, topic, id string) error {
	if err := r.rdb.ZRem(ctx, queueKey(topic), id).Err(); err != nil {
		return fmt.Errorf("failed to remove dead-letter index: %w", err)
	}
	if err := r.rdb.Del(ctx, entryKey(topic, id)).Err(); err != nil {
		return fmt.Errorf("failed to remove dead-letter entry: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Reporter) Close() error {
	return r.rdb.Close()
}
