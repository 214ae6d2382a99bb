package monitor

import "fmt"

// SamplingAnomaly is reported when the head is lower than in the previous
// sample. The counter is expected to be monotonic, so this indicates a
// defect in the writer or a torn read.
type SamplingAnomaly struct {
	Seq  uint64
	Prev uint64
	Head uint64
}

func (e *SamplingAnomaly) Error() string {
	return fmt.Sprintf("sample %d: head went backwards from 0x%016x to 0x%016x",
		e.Seq, e.Prev, e.Head)
}

// FrameFault wraps a panic recovered while processing a frame.
type FrameFault struct {
	Seq       uint64
	Recovered any
}

func (e *FrameFault) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Seq, e.Recovered)
}
