package sink

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFlattenChain(t *testing.T) {
	root := errors.New("connection refused")
	mid := fmt.Errorf("failed to begin transaction: %w", root)
	top := fmt.Errorf("failed to write batch: %w", mid)

	got := FlattenChain(top)
	lines := strings.Split(got, "\n")
	want := []string{
		"write error chain:",
		"failed to write batch: failed to begin transaction: connection refused",
		"failed to begin transaction: connection refused",
		"connection refused",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestFlattenChain_SingleError(t *testing.T) {
	got := FlattenChain(errors.New("boom"))
	if got != "write error chain:\nboom" {
		t.Errorf("got %q", got)
	}
}

func TestFlattenChain_DepthCap(t *testing.T) {
	err := errors.New("root")
	for i := 0; i < 2*maxChainDepth; i++ {
		err = fmt.Errorf("layer %d: %w", i, err)
	}

	got := FlattenChain(err)
	lines := strings.Split(got, "\n")
	// header + capped causes + truncation marker
	if len(lines) != maxChainDepth+2 {
		t.Fatalf("got %d lines, want %d", len(lines), maxChainDepth+2)
	}
	if lines[len(lines)-1] != "(chain truncated)" {
		t.Errorf("last line: got %q, want truncation marker", lines[len(lines)-1])
	}
}

func TestClassificationPredicates(t *testing.T) {
	retriable := NewRetriableError(errors.New("deadlock"))
	fatal := NewFatalError(errors.New("syntax error"))

	tests := []struct {
		name          string
		err           error
		wantRetriable bool
		wantFatal     bool
	}{
		{"retriable", retriable, true, false},
		{"fatal", fatal, false, true},
		{"wrapped retriable", fmt.Errorf("put failed: %w", retriable), true, false},
		{"wrapped fatal", fmt.Errorf("put failed: %w", fatal), false, true},
		{"plain error", errors.New("whatever"), false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetriable(tt.err); got != tt.wantRetriable {
				t.Errorf("IsRetriable = %v, want %v", got, tt.wantRetriable)
			}
			if got := IsFatal(tt.err); got != tt.wantFatal {
				t.Errorf("IsFatal = %v, want %v", got, tt.wantFatal)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	re := NewRetriableError(errors.New("blip"))
	if re.Error() != "blip (retriable)" {
		t.Errorf("retriable message: got %q", re.Error())
	}
	fe := &FatalError{Message: "full chain here", cause: errors.New("blip")}
	if fe.Error() != "full chain here" {
		t.Errorf("explicit message should win: got %q", fe.Error())
	}
	if !errors.Is(fe, fe) || errors.Unwrap(fe) == nil {
		t.Error("fatal error must expose its cause via Unwrap")
	}
}
