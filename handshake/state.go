package handshake

import "fmt"

// State is a step of the controller's handshake.
type State int

// States of the handshake, in order. Verified and Failed are terminal.
const (
	Idle State = iota
	AwaitingBytes
	WorkerSpawned
	AwaitingReady
	Verified
	Failed
)

var stateNames = [...]string{
	"Idle",
	"AwaitingBytes",
	"WorkerSpawned",
	"AwaitingReady",
	"Verified",
	"Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}

	return stateNames[s]
}

// Terminal tells if no further transition can happen from s.
func (s State) Terminal() bool {
	return s == Verified || s == Failed
}

// A Transition is raised with HookPosStateChange.
type Transition struct {
	From   State
	To     State
	Status string
}

func (t Transition) String() string {
	return fmt.Sprintf("%s -> %s: %s", t.From, t.To, t.Status)
}

// A VerifyCheck is raised with HookPosVerifyCheck every time the controller
// reads the head counter during verification.
type VerifyCheck struct {
	Attempt int
	Head    uint64
}

func (c VerifyCheck) String() string {
	return fmt.Sprintf("check %d: head 0x%016x", c.Attempt, c.Head)
}
