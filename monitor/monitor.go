// Package monitor samples the head counter once per frame and reports a
// tick rate once per interval.
package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Hyphaeic/radixrunner-wasm/codec"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
)

// Hook positions raised by the Monitor.
var (
	// HookPosSample carries a Sample, once per frame.
	HookPosSample = &hooking.HookPos{Name: "Monitor Sample"}

	// HookPosRate carries a RateReport, once per rate interval.
	HookPosRate = &hooking.HookPos{Name: "Monitor Rate"}

	// HookPosAnomaly carries a *SamplingAnomaly.
	HookPosAnomaly = &hooking.HookPos{Name: "Monitor Anomaly"}

	// HookPosFault carries a *FrameFault.
	HookPosFault = &hooking.HookPos{Name: "Monitor Fault"}
)

// HeadReader provides the current head counter.
type HeadReader interface {
	LoadHead() uint64
}

// Sample is one observation of the head.
type Sample struct {
	Seq    uint64       `json:"seq"`
	Time   time.Time    `json:"time"`
	Head   uint64       `json:"head"`
	Fields codec.Fields `json:"fields"`
	Hex    string       `json:"hex"`
}

// RateReport is the tick rate measured over one interval.
type RateReport struct {
	Time           time.Time     `json:"time"`
	Head           uint64        `json:"head"`
	Prev           uint64        `json:"prev"`
	Elapsed        time.Duration `json:"elapsed"`
	TicksPerSecond float64       `json:"ticks_per_second"`
	Anomaly        bool          `json:"anomaly"`
}

// Stats are the monitor's running counters.
type Stats struct {
	Frames    uint64                  `json:"frames"`
	Rates     uint64                  `json:"rates"`
	Anomalies uint64                  `json:"anomalies"`
	Faults    uint64                  `json:"faults"`
	Carries   [codec.NumFields]uint64 `json:"carries"`
	Shadows   []ShadowValue           `json:"shadows"`
}

// Monitor polls a head counter. It never writes it.
type Monitor struct {
	*hooking.HookableBase

	name         string
	head         HeadReader
	rateInterval time.Duration
	shadows      []*shadow

	running atomic.Bool

	// Owned by the Run goroutine.
	seq     uint64
	last    *Sample
	refHead uint64
	refTime time.Time
	counts  Stats

	latest     atomic.Pointer[Sample]
	latestRate atomic.Pointer[RateReport]
	stats      atomic.Pointer[Stats]
}

// Name returns the name of the monitor.
func (m *Monitor) Name() string {
	return m.name
}

// Latest returns the most recent sample, or nil before the first frame.
func (m *Monitor) Latest() *Sample {
	return m.latest.Load()
}

// LatestRate returns the most recent rate report, or nil before the first
// interval elapses.
func (m *Monitor) LatestRate() *RateReport {
	return m.latestRate.Load()
}

// Stats returns a snapshot of the running counters.
func (m *Monitor) Stats() Stats {
	return *m.stats.Load()
}

// Run samples once per frame of clock until ctx is done or the clock stops
// delivering frames. Faults within a frame are reported and do not stop the
// loop. Run stops the clock before returning.
func (m *Monitor) Run(ctx context.Context, clock FrameClock) error {
	if !m.running.CompareAndSwap(false, true) {
		panic("monitor is already running")
	}
	defer m.running.Store(false)
	defer clock.Stop()

	frames := clock.Frames()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-frames:
			if !ok {
				return nil
			}

			m.frame(t)
		}
	}
}

func (m *Monitor) frame(t time.Time) {
	m.seq++

	defer m.publishStats()
	defer func() {
		if r := recover(); r != nil {
			m.counts.Faults++
			m.reportFault(&FrameFault{Seq: m.seq, Recovered: r})
		}
	}()

	m.counts.Frames++

	head := m.head.LoadHead()
	fields := codec.Decode(head)

	s := &Sample{
		Seq:    m.seq,
		Time:   t,
		Head:   head,
		Fields: fields,
		Hex:    codec.Format(head),
	}

	prev := m.last
	m.last = s
	m.latest.Store(s)

	if prev == nil {
		m.refHead, m.refTime = head, t
	} else {
		m.observeTransition(prev, s)
	}

	m.InvokeHook(hooking.HookCtx{Domain: m, Pos: HookPosSample, Item: *s})

	if elapsed := t.Sub(m.refTime); elapsed >= m.rateInterval {
		m.reportRate(s, elapsed)
	}
}

func (m *Monitor) observeTransition(prev, curr *Sample) {
	if curr.Head < prev.Head {
		m.counts.Anomalies++
		m.InvokeHook(hooking.HookCtx{
			Domain: m,
			Pos:    HookPosAnomaly,
			Item: &SamplingAnomaly{
				Seq:  curr.Seq,
				Prev: prev.Head,
				Head: curr.Head,
			},
		})

		return
	}

	carries := codec.Carries(prev.Fields, curr.Fields)
	for i, c := range carries {
		if c {
			m.counts.Carries[i]++
		}
	}

	for _, s := range m.shadows {
		s.observe(carries)
	}
}

func (m *Monitor) reportRate(s *Sample, elapsed time.Duration) {
	tps, anomaly := codec.Rate(s.Head, m.refHead, elapsed)

	r := &RateReport{
		Time:           s.Time,
		Head:           s.Head,
		Prev:           m.refHead,
		Elapsed:        elapsed,
		TicksPerSecond: tps,
		Anomaly:        anomaly,
	}

	m.refHead, m.refTime = s.Head, s.Time
	m.counts.Rates++
	m.latestRate.Store(r)

	m.InvokeHook(hooking.HookCtx{Domain: m, Pos: HookPosRate, Item: *r})
}

func (m *Monitor) reportFault(fault *FrameFault) {
	defer func() {
		_ = recover()
	}()

	m.InvokeHook(hooking.HookCtx{Domain: m, Pos: HookPosFault, Item: fault})
}

func (m *Monitor) publishStats() {
	st := m.counts
	st.Shadows = make([]ShadowValue, 0, len(m.shadows))

	for _, s := range m.shadows {
		st.Shadows = append(st.Shadows, s.value())
	}

	m.stats.Store(&st)
}
