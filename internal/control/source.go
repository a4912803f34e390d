package control

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/abroskin/kafka-connect-jdbc/internal/core/domain"
)

// Source feeds the delivery loop with batches. Next returns io.EOF when
// the source is exhausted.
type Source interface {
	Next(ctx context.Context) (domain.Batch, error)
}

// BenchSource generates synthetic batches of varying size so the adaptive
// pacing can be observed end to end.
type BenchSource struct {
	topic     string
	batchSize int
	batches   int // 0 = unbounded
	produced  int
	offset    int64
	rng       *rand.Rand
}

// NewBenchSource creates a bench source producing up to batches batches of
// at most batchSize records each.
func NewBenchSource(topic string, batchSize, batches int, seed int64) *BenchSource {
	return &BenchSource{
		topic:     topic,
		batchSize: batchSize,
		batches:   batches,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (s *BenchSource) Next(ctx context.Context) (domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.batches > 0 && s.produced >= s.batches {
		return nil, io.EOF
	}

	size := 1 + s.rng.Intn(s.batchSize)
	batch := make(domain.Batch, 0, size)
	for i := 0; i < size; i++ {
		batch = append(batch, domain.SinkRecord{
			Topic:     s.topic,
			Partition: 0,
			Offset:    s.offset,
			Key:       []byte(fmt.Sprintf("key-%d", s.offset)),
			Value:     []byte(fmt.Sprintf(`{"seq":%d}`, s.offset)),
		})
		s.offset++
	}
	s.produced++
	return batch, nil
}

// fileRecord is the JSON-lines wire form consumed by FileSource.
type fileRecord struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// FileSource reads records from a JSON-lines file and groups them into
// batches of at most batchSize.
type FileSource struct {
	f         *os.File
	scanner   *bufio.Scanner
	batchSize int
	done      bool
}

// NewFileSource opens path for reading.
func NewFileSource(path string, batchSize int) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	return &FileSource{
		f:         f,
		scanner:   bufio.NewScanner(f),
		batchSize: batchSize,
	}, nil
}

func (s *FileSource) Next(ctx context.Context) (domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}

	batch := make(domain.Batch, 0, s.batchSize)
	for len(batch) < s.batchSize && s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec fileRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse source record: %w", err)
		}
		batch = append(batch, domain.SinkRecord{
			Topic:     rec.Topic,
			Partition: rec.Partition,
			Offset:    rec.Offset,
			Key:       []byte(rec.Key),
			Value:     []byte(rec.Value),
		})
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	if len(batch) == 0 {
		s.done = true
		_ = s.f.Close()
		return nil, io.EOF
	}
	return batch, nil
}
