package tracing

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
)

// StageTracer is a hook that turns handshake state changes into spans. A span
// opens when the controller enters a state and closes on the next change.
// Terminal states do not open a span.
type StageTracer struct {
	session string
	writer  SpanWriter
	now     func() time.Time

	lock      sync.Mutex
	current   *Span
	spans     []Span
	totalTime map[handshake.State]time.Duration
}

// NewStageTracer creates a tracer for the given session. The writer may be
// nil.
func NewStageTracer(session string, writer SpanWriter) *StageTracer {
	return &StageTracer{
		session:   session,
		writer:    writer,
		now:       time.Now,
		totalTime: make(map[handshake.State]time.Duration),
	}
}

// Func records a span boundary if ctx is a handshake state change.
func (t *StageTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != handshake.HookPosStateChange {
		return
	}

	tr, ok := ctx.Item.(handshake.Transition)
	if !ok {
		return
	}

	now := t.now()

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.current != nil {
		t.endSpan(now)
	}

	if tr.To.Terminal() {
		if t.writer != nil {
			t.writer.Flush()
		}

		return
	}

	t.current = &Span{
		ID:      xid.New().String(),
		Session: t.session,
		State:   tr.To,
		Status:  tr.Status,
		Start:   now,
	}
}

func (t *StageTracer) endSpan(now time.Time) {
	span := *t.current
	span.End = now
	t.current = nil

	t.spans = append(t.spans, span)
	t.totalTime[span.State] += span.Duration()

	if t.writer != nil {
		t.writer.Write(span)
	}
}

// Spans returns the finished spans in order.
func (t *StageTracer) Spans() []Span {
	t.lock.Lock()
	defer t.lock.Unlock()

	spans := make([]Span, len(t.spans))
	copy(spans, t.spans)

	return spans
}

// TotalTime returns the time spent in state over all finished spans.
func (t *StageTracer) TotalTime(state handshake.State) time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime[state]
}

// Elapsed returns the time from the first span's start to the last finished
// span's end.
func (t *StageTracer) Elapsed() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.spans) == 0 {
		return 0
	}

	return t.spans[len(t.spans)-1].End.Sub(t.spans[0].Start)
}
