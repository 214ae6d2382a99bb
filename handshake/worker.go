package handshake

import "context"

// A Worker is the controller's handle on an execution context that runs the
// computation module.
type Worker interface {
	// ID identifies the worker in logs.
	ID() string

	// PostMessage delivers a message to the worker without waiting for it to
	// be processed.
	PostMessage(msg Message) error

	// Messages delivers messages sent by the worker. It is closed if the
	// worker goes away.
	Messages() <-chan Message

	// Faults delivers failures of the worker context that the worker could
	// not report itself.
	Faults() <-chan error
}

// A Spawner creates workers.
type Spawner interface {
	Spawn(ctx context.Context) (Worker, error)
}
