package sink

import "time"

// historyCapacity is the number of recent batch sizes the pacer keeps.
const historyCapacity = 20

// PacingConfig holds the adaptive pacing parameters.
type PacingConfig struct {
	// BatchSizeLimit is the configured maximum batch size. Batches at the
	// limit mean the producer side is saturated.
	BatchSizeLimit int

	// MinSleep is the floor applied to every computed delay.
	MinSleep time.Duration

	// MaxSleep is the ceiling of the adaptive delay. Zero disables the
	// adaptive formula: every delay is MinSleep.
	MaxSleep time.Duration
}

// Pacer computes the post-write stall from a bounded history of recent
// batch sizes. When recent batches run at the configured limit the sink
// adds no extra delay; when they shrink, the sink slows down in proportion
// to the spare headroom so the downstream store is not overwhelmed.
//
// Not safe for concurrent use; the controller calls it from the single
// delivery goroutine.
type Pacer struct {
	cfg     PacingConfig
	history []int
}

// NewPacer creates a pacer with an empty history.
func NewPacer(cfg PacingConfig) *Pacer {
	return &Pacer{
		cfg:     cfg,
		history: make([]int, 0, historyCapacity),
	}
}

// NextDelay records batchSize into the history, evicting the oldest entry
// when the window is full, and returns the stall to apply before the next
// delivery.
//
// The delay is max(MinSleep, MaxSleep × (1 − observed/limit)) where
// observed = min(limit, max(history)). Deterministic given the history.
func (p *Pacer) NextDelay(batchSize int) time.Duration {
	if len(p.history) >= historyCapacity {
		// Shift elements left, drop oldest
		copy(p.history, p.history[1:])
		p.history[len(p.history)-1] = batchSize
	} else {
		p.history = append(p.history, batchSize)
	}

	if p.cfg.MaxSleep <= 0 {
		return p.cfg.MinSleep
	}

	observed := p.history[0]
	for _, n := range p.history[1:] {
		if n > observed {
			observed = n
		}
	}
	if observed > p.cfg.BatchSizeLimit {
		observed = p.cfg.BatchSizeLimit
	}

	ratio := 1.0 - float64(observed)/float64(p.cfg.BatchSizeLimit)
	delay := time.Duration(float64(p.cfg.MaxSleep) * ratio)
	if delay < p.cfg.MinSleep {
		delay = p.cfg.MinSleep
	}
	return delay
}
