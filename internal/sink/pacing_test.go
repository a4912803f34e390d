package sink

import (
	"testing"
	"time"
)

func TestNextDelay_AdaptiveRatio(t *testing.T) {
	cfg := PacingConfig{
		BatchSizeLimit: 100,
		MinSleep:       10 * time.Millisecond,
		MaxSleep:       1000 * time.Millisecond,
	}

	tests := []struct {
		name     string
		history  []int
		expected time.Duration
	}{
		{
			name:     "saturated (max of history = limit)",
			history:  []int{100},
			expected: 10 * time.Millisecond,
		},
		{
			name:     "idle (max of history = 0)",
			history:  []int{0},
			expected: 1000 * time.Millisecond,
		},
		{
			name:     "half load",
			history:  []int{50},
			expected: 500 * time.Millisecond,
		},
		{
			name:     "max of history governs, not the latest entry",
			history:  []int{100, 5},
			expected: 10 * time.Millisecond,
		},
		{
			name:     "oversized batch clamped to the limit",
			history:  []int{250},
			expected: 10 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPacer(cfg)
			var got time.Duration
			for _, size := range tt.history {
				got = p.NextDelay(size)
			}
			if got != tt.expected {
				t.Errorf("NextDelay = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNextDelay_DisabledReturnsMinimum(t *testing.T) {
	p := NewPacer(PacingConfig{
		BatchSizeLimit: 100,
		MinSleep:       10 * time.Millisecond,
		MaxSleep:       0,
	})

	for _, size := range []int{0, 1, 50, 100} {
		if got := p.NextDelay(size); got != 10*time.Millisecond {
			t.Errorf("NextDelay(%d) = %v, want 10ms with adaptivity disabled", size, got)
		}
	}
}

func TestHistory_BoundedFIFOEviction(t *testing.T) {
	p := NewPacer(PacingConfig{BatchSizeLimit: 100, MaxSleep: time.Second})

	for i := 1; i <= 25; i++ {
		p.NextDelay(i)
		if len(p.history) > historyCapacity {
			t.Fatalf("history length %d exceeds capacity after %d insertions", len(p.history), i)
		}
	}

	if len(p.history) != historyCapacity {
		t.Fatalf("history length after 25 insertions: got %d, want %d", len(p.history), historyCapacity)
	}
	// The last 20 inserted values, oldest first.
	for i, v := range p.history {
		if want := i + 6; v != want {
			t.Errorf("history[%d] = %d, want %d", i, v, want)
		}
	}
}
