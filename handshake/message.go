// Package handshake implements the controller side of the protocol that hands
// the shared region to a worker and proves that the worker's writes are
// visible through it before any telemetry is trusted.
package handshake

import (
	"fmt"

	"github.com/Hyphaeic/radixrunner-wasm/idgen"
	"github.com/Hyphaeic/radixrunner-wasm/region"
)

// Kind discriminates handshake messages.
type Kind string

// Message kinds. Receivers ignore any other kind.
const (
	KindInit  Kind = "init"
	KindReady Kind = "ready"
	KindError Kind = "error"
)

// Message is exchanged between the controller and a worker.
type Message struct {
	ID   idgen.ID
	Kind Kind

	// Memory and Payload are set on init messages. Payload holds the bytes of
	// the computation module.
	Memory  *region.Region
	Payload []byte

	// Error describes the failure on error messages. Stage names the step
	// that failed and Detail may carry a stack trace.
	Error  string
	Stage  string
	Detail string
}

func (m Message) String() string {
	switch m.Kind {
	case KindInit:
		return fmt.Sprintf("#%d init (%d payload bytes)", m.ID, len(m.Payload))
	case KindError:
		if m.Stage != "" {
			return fmt.Sprintf("#%d error at %s: %s", m.ID, m.Stage, m.Error)
		}

		return fmt.Sprintf("#%d error: %s", m.ID, m.Error)
	default:
		return fmt.Sprintf("#%d %s", m.ID, m.Kind)
	}
}
