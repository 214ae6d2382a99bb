package handshake

import (
	"errors"
	"fmt"
	"time"
)

var errWorkerExited = errors.New("worker exited before the handshake completed")

// PayloadFetchError is returned when the computation module bytes cannot be
// obtained.
type PayloadFetchError struct {
	Source string
	Err    error
}

func (e *PayloadFetchError) Error() string {
	return fmt.Sprintf("handshake: fetch payload from %s: %v", e.Source, e.Err)
}

func (e *PayloadFetchError) Unwrap() error {
	return e.Err
}

// WorkerError is returned when the worker reports a failure with an error
// message.
type WorkerError struct {
	WorkerID string
	Message  string
	Stage    string
	Detail   string
}

func (e *WorkerError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("handshake: worker %s failed at %s: %s",
			e.WorkerID, e.Stage, e.Message)
	}

	return fmt.Sprintf("handshake: worker %s failed: %s", e.WorkerID, e.Message)
}

// WorkerFault is returned when the worker context itself breaks: it cannot be
// spawned, cannot be posted to, crashes, or goes away.
type WorkerFault struct {
	WorkerID string
	Err      error
}

func (e *WorkerFault) Error() string {
	if e.WorkerID == "" {
		return fmt.Sprintf("handshake: worker fault: %v", e.Err)
	}

	return fmt.Sprintf("handshake: worker %s fault: %v", e.WorkerID, e.Err)
}

func (e *WorkerFault) Unwrap() error {
	return e.Err
}

// VerificationFailure is returned when the worker signalled readiness but the
// head counter never became nonzero in the controller's view of the region.
// It points at a memory sharing defect, not at the computation module.
type VerificationFailure struct {
	Checks int
	Waited time.Duration
}

func (e *VerificationFailure) Error() string {
	return fmt.Sprintf(
		"handshake: memory not shared: head still zero after %d check(s) over %s",
		e.Checks, e.Waited)
}
