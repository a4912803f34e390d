package domain

// SinkRecord is one record delivered by the host runtime. The payload is
// opaque to the delivery controller; the coordinates identify where the
// record came from and are used for logging and dead-letter journaling.
type SinkRecord struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Batch is one delivery unit. The host delivers it whole and, after a
// retriable failure, redelivers it verbatim. It is either fully written or
// not written at all.
type Batch []SinkRecord

// First returns the first record of the batch. Callers must check that the
// batch is non-empty.
func (b Batch) First() SinkRecord {
	return b[0]
}

// Size returns the number of records in the batch.
func (b Batch) Size() int {
	return len(b)
}

// OffsetSpan returns the lowest and highest offsets in the batch.
func (b Batch) OffsetSpan() (start, end int64) {
	if len(b) == 0 {
		return 0, 0
	}
	start, end = b[0].Offset, b[0].Offset
	for _, r := range b[1:] {
		if r.Offset < start {
			start = r.Offset
		}
		if r.Offset > end {
			end = r.Offset
		}
	}
	return start, end
}
