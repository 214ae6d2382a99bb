package handshake

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hyphaeic/radixrunner-wasm/hooking"
	"github.com/Hyphaeic/radixrunner-wasm/idgen"
	"github.com/Hyphaeic/radixrunner-wasm/region"
)

// Hook positions raised by the Controller.
var (
	// HookPosStateChange carries a Transition.
	HookPosStateChange = &hooking.HookPos{Name: "Handshake State Change"}

	// HookPosMessage carries every Message received from the worker.
	HookPosMessage = &hooking.HookPos{Name: "Handshake Message"}

	// HookPosVerifyCheck carries a VerifyCheck.
	HookPosVerifyCheck = &hooking.HookPos{Name: "Handshake Verify Check"}
)

// Status strings reported to the presentation layer.
const (
	StatusIdle          = "Idle"
	StatusLoading       = "Loading WASM bytes for worker..."
	StatusSpawning      = "Spawning tick worker..."
	StatusWaiting       = "Waiting for tick worker..."
	StatusVerified      = "WASM Runtime Active - Clock Running"
	StatusNotShared     = "ERROR: Memory not shared"
	statusErrorPrefix   = "ERROR: "
	statusWorkerFailure = "ERROR: Tick worker failed"
)

// Result describes a completed handshake.
type Result struct {
	State State

	// Head is the head value that proved the region is shared.
	Head uint64

	// Checks is the number of head reads done during verification.
	Checks int

	Worker Worker
}

// Controller drives the handshake with a single worker. A Controller can only
// run once; a failed handshake needs a fresh region and a fresh Controller.
type Controller struct {
	*hooking.HookableBase

	name    string
	region  *region.Region
	source  PayloadSource
	spawner Spawner
	policy  VerifyPolicy
	ids     idgen.Generator

	started atomic.Bool

	lock   sync.RWMutex
	state  State
	status string
	worker Worker
	err    error
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// State returns the current state.
func (c *Controller) State() State {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.state
}

// Status returns the human-readable status of the handshake.
func (c *Controller) Status() string {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.status
}

// Err returns the failure that moved the controller to Failed, if any.
func (c *Controller) Err() error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.err
}

// Worker returns the spawned worker, or nil before spawning.
func (c *Controller) Worker() Worker {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.worker
}

// Run performs the handshake. It returns once the controller reaches Verified
// or Failed. The returned error is one of *PayloadFetchError, *WorkerError,
// *WorkerFault, *VerificationFailure, or the context's error.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	if !c.started.CompareAndSwap(false, true) {
		panic("handshake: a controller can only run once")
	}

	c.transit(AwaitingBytes, StatusLoading)

	payload, err := c.source.Fetch(ctx)
	if err != nil {
		return c.fail(&PayloadFetchError{Source: c.source.Describe(), Err: err})
	}

	w, err := c.spawner.Spawn(ctx)
	if err != nil {
		return c.fail(&WorkerFault{Err: err})
	}

	c.lock.Lock()
	c.worker = w
	c.lock.Unlock()

	c.transit(WorkerSpawned, StatusSpawning)

	err = w.PostMessage(Message{
		ID:      c.ids.Generate(),
		Kind:    KindInit,
		Memory:  c.region,
		Payload: payload,
	})
	if err != nil {
		return c.fail(&WorkerFault{WorkerID: w.ID(), Err: err})
	}

	c.transit(AwaitingReady, StatusWaiting)

	if err := c.awaitReady(ctx, w); err != nil {
		return c.fail(err)
	}

	head, checks, err := c.verify(ctx, w)
	if err != nil {
		return c.fail(err)
	}

	c.transit(Verified, StatusVerified)

	return Result{State: Verified, Head: head, Checks: checks, Worker: w}, nil
}

func (c *Controller) awaitReady(ctx context.Context, w Worker) error {
	for {
		msg, _, err := c.next(ctx, w, nil)
		if err != nil {
			return err
		}

		if msg.Kind == KindReady {
			return nil
		}
	}
}

// verify reads the head after each delay of the policy and succeeds on the
// first nonzero read.
func (c *Controller) verify(
	ctx context.Context,
	w Worker,
) (head uint64, checks int, err error) {
	var waited time.Duration

	for i, d := range c.policy.Delays() {
		timer := time.NewTimer(d)
		err = c.waitFor(ctx, w, timer.C)
		timer.Stop()

		if err != nil {
			return 0, i, err
		}

		waited += d
		head = c.region.LoadHead()
		checks = i + 1

		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosVerifyCheck,
			Item:   VerifyCheck{Attempt: checks, Head: head},
		})

		if head != 0 {
			return head, checks, nil
		}
	}

	return 0, checks, &VerificationFailure{Checks: checks, Waited: waited}
}

// waitFor keeps draining worker messages until deadline fires. Worker errors
// and faults during the wait still fail the handshake.
func (c *Controller) waitFor(
	ctx context.Context,
	w Worker,
	deadline <-chan time.Time,
) error {
	for {
		_, timedOut, err := c.next(ctx, w, deadline)
		if err != nil {
			return err
		}

		if timedOut {
			return nil
		}
	}
}

// next waits for the next relevant event from the worker. Error messages are
// turned into a *WorkerError and unknown message kinds are skipped.
func (c *Controller) next(
	ctx context.Context,
	w Worker,
	deadline <-chan time.Time,
) (msg Message, timedOut bool, err error) {
	faults := w.Faults()

	for {
		select {
		case <-ctx.Done():
			return Message{}, false, ctx.Err()

		case <-deadline:
			return Message{}, true, nil

		case fault, ok := <-faults:
			if !ok {
				faults = nil
				continue
			}

			return Message{}, false, &WorkerFault{WorkerID: w.ID(), Err: fault}

		case msg, ok := <-w.Messages():
			if !ok {
				return Message{}, false, c.exitFault(w, faults)
			}

			c.InvokeHook(hooking.HookCtx{
				Domain: c,
				Pos:    HookPosMessage,
				Item:   msg,
			})

			switch msg.Kind {
			case KindReady:
				return msg, false, nil
			case KindError:
				return msg, false, &WorkerError{
					WorkerID: w.ID(),
					Message:  msg.Error,
					Stage:    msg.Stage,
					Detail:   msg.Detail,
				}
			}
		}
	}
}

// exitFault explains a closed message channel. A crashing worker reports its
// fault before it closes the channel, so a pending fault wins.
func (c *Controller) exitFault(w Worker, faults <-chan error) error {
	select {
	case fault, ok := <-faults:
		if ok {
			return &WorkerFault{WorkerID: w.ID(), Err: fault}
		}
	default:
	}

	return &WorkerFault{WorkerID: w.ID(), Err: errWorkerExited}
}

func (c *Controller) transit(to State, status string) {
	c.lock.Lock()
	from := c.state
	c.state = to
	c.status = status
	c.lock.Unlock()

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosStateChange,
		Item:   Transition{From: from, To: to, Status: status},
	})
}

func (c *Controller) fail(err error) (Result, error) {
	c.lock.Lock()
	c.err = err
	worker := c.worker
	c.lock.Unlock()

	c.transit(Failed, StatusFor(err))

	return Result{State: Failed, Worker: worker}, err
}

// StatusFor maps a handshake failure to the status string shown to the user.
func StatusFor(err error) string {
	var (
		notShared   *VerificationFailure
		workerError *WorkerError
		fault       *WorkerFault
	)

	switch {
	case err == nil:
		return StatusVerified
	case errors.As(err, &notShared):
		return StatusNotShared
	case errors.As(err, &workerError):
		return statusErrorPrefix + workerError.Message
	case errors.As(err, &fault):
		return statusWorkerFailure
	default:
		return statusErrorPrefix + err.Error()
	}
}
