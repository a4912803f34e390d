package sink

import (
	"errors"
	"fmt"
	"strings"
)

// maxChainDepth bounds the cause-chain walk in FlattenChain. Realistic
// chains are a handful of links; the cap only guards against cyclic or
// pathological Unwrap implementations.
const maxChainDepth = 32

// RetriableError signals a transient failure. The batch is not consumed:
// the host is expected to wait the requested backoff and redeliver the
// same batch verbatim.
type RetriableError struct {
	// Message, when set, replaces the cause's message. The controller
	// puts the flattened cause chain here so the host log carries full
	// root-cause context in a single entry.
	Message string
	cause   error
}

// NewRetriableError wraps cause as a retriable failure.
func NewRetriableError(cause error) *RetriableError {
	return &RetriableError{cause: cause}
}

func (e *RetriableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s (retriable)", e.cause)
}

func (e *RetriableError) Unwrap() error {
	return e.cause
}

// FatalError signals a terminal failure: the retry budget is exhausted,
// the store rejected the write permanently, or the writer could not be
// reinitialized. The host must stop the task; external intervention is
// required before delivery can resume.
type FatalError struct {
	Message string
	cause   error
}

// NewFatalError wraps cause as a fatal failure.
func NewFatalError(cause error) *FatalError {
	return &FatalError{cause: cause}
}

func (e *FatalError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s (fatal)", e.cause)
}

func (e *FatalError) Unwrap() error {
	return e.cause
}

// IsRetriable reports whether err is classified as retriable.
func IsRetriable(err error) bool {
	var re *RetriableError
	return errors.As(err, &re)
}

// IsFatal reports whether err is classified as fatal.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// FlattenChain renders err and every underlying cause into one message,
// one cause per line, outermost first. Operators see the full root-cause
// context even when the host log records only the top-level failure.
func FlattenChain(err error) string {
	var sb strings.Builder
	sb.WriteString("write error chain:")
	depth := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		if depth == maxChainDepth {
			sb.WriteString("\n(chain truncated)")
			break
		}
		sb.WriteString("\n")
		sb.WriteString(e.Error())
		depth++
	}
	return sb.String()
}
