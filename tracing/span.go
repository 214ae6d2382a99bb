// Package tracing records how long a handshake spends in each state.
package tracing

import (
	"time"

	"github.com/Hyphaeic/radixrunner-wasm/handshake"
)

// A Span is one stay of the handshake in a non-terminal state.
type Span struct {
	ID      string
	Session string
	State   handshake.State
	Status  string
	Start   time.Time
	End     time.Time
}

// Duration is the time between the start and the end of the span.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// A SpanWriter stores finished spans.
type SpanWriter interface {
	Write(span Span)
	Flush()
}
