package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
	"github.com/rs/xid"
)

var (
	errWorkerTerminated = errors.New("worker has terminated")
	errInboxFull        = errors.New("worker inbox is full")
)

// Spawner starts hosts on their own goroutines. It implements
// handshake.Spawner.
type Spawner struct {
	loader Loader
	hooks  []hooking.Hook
}

// NewSpawner creates a spawner whose hosts load modules with loader. The
// hooks are attached to every host it starts.
func NewSpawner(loader Loader, hooks ...hooking.Hook) *Spawner {
	return &Spawner{loader: loader, hooks: hooks}
}

// Spawn starts a worker. The worker lives until ctx is done.
func (s *Spawner) Spawn(ctx context.Context) (handshake.Worker, error) {
	if s.loader == nil {
		return nil, errors.New("host: no loader configured")
	}

	w := &Worker{
		id:     xid.New().String(),
		inbox:  make(chan handshake.Message, 4),
		outbox: make(chan handshake.Message, 8),
		faults: make(chan error, 1),
		done:   make(chan struct{}),
	}

	h := NewHost("Worker."+w.id, s.loader, w.inbox, w.outbox)
	for _, hook := range s.hooks {
		h.AcceptHook(hook)
	}

	go w.guard(ctx, h)

	return w, nil
}

// Worker is the controller's handle on a host goroutine.
type Worker struct {
	id     string
	inbox  chan handshake.Message
	outbox chan handshake.Message
	faults chan error
	done   chan struct{}
}

// ID returns the xid of the worker.
func (w *Worker) ID() string {
	return w.id
}

// PostMessage queues msg for the host without blocking.
func (w *Worker) PostMessage(msg handshake.Message) error {
	select {
	case <-w.done:
		return errWorkerTerminated
	default:
	}

	select {
	case w.inbox <- msg:
		return nil
	default:
		return errInboxFull
	}
}

// Messages delivers messages from the host. It is closed when the host
// goroutine ends.
func (w *Worker) Messages() <-chan handshake.Message {
	return w.outbox
}

// Faults delivers crashes of the host goroutine.
func (w *Worker) Faults() <-chan error {
	return w.faults
}

// Done is closed when the host goroutine ends.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) guard(ctx context.Context, h *Host) {
	defer close(w.done)
	defer close(w.outbox)
	defer func() {
		if v := recover(); v != nil {
			select {
			case w.faults <- fmt.Errorf("worker %s crashed: %v", w.id, v):
			default:
			}
		}
	}()

	h.Serve(ctx)
}

var _ handshake.Spawner = (*Spawner)(nil)
var _ handshake.Worker = (*Worker)(nil)
