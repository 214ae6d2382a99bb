// Package host runs on the worker side of the handshake. It loads the
// computation module against the shared region, initializes it, reports
// readiness and then hands the goroutine over to the module's run loop.
package host

import (
	"context"

	"github.com/Hyphaeic/radixrunner-wasm/region"
)

// A Loader turns payload bytes into a module definition.
type Loader interface {
	Compile(ctx context.Context, payload []byte) (Definition, error)
}

// A Definition is a compiled computation module that can be bound to a
// region.
type Definition interface {
	// Instantiate binds the module to r, which becomes its only memory.
	Instantiate(ctx context.Context, r *region.Region) (Module, error)

	// Close releases the compiled code.
	Close(ctx context.Context) error
}

// A Module is an instantiated computation module.
type Module interface {
	// Init prepares the module. It is called exactly once, before Run.
	Init(ctx context.Context) error

	// Run is the module's main loop. It is not expected to return while ctx
	// is alive.
	Run(ctx context.Context) error

	// Close releases the instance.
	Close(ctx context.Context) error
}

// A MemoryExporter is a Module that also exports its own view of memory.
type MemoryExporter interface {
	ExportedMemory() ([]byte, bool)
}
