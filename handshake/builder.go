package handshake

import (
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
	"github.com/Hyphaeic/radixrunner-wasm/idgen"
	"github.com/Hyphaeic/radixrunner-wasm/region"
)

// Builder can build Controllers.
type Builder struct {
	name    string
	region  *region.Region
	source  PayloadSource
	spawner Spawner
	policy  VerifyPolicy
}

// MakeBuilder creates a builder with the default verification policy.
func MakeBuilder() Builder {
	return Builder{
		name:   "Controller",
		policy: DefaultVerifyPolicy(),
	}
}

// WithName sets the name used in logs.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithRegion sets the shared region handed to the worker.
func (b Builder) WithRegion(r *region.Region) Builder {
	b.region = r
	return b
}

// WithPayloadSource sets where the computation module bytes come from.
func (b Builder) WithPayloadSource(s PayloadSource) Builder {
	b.source = s
	return b
}

// WithSpawner sets the spawner that creates the worker.
func (b Builder) WithSpawner(s Spawner) Builder {
	b.spawner = s
	return b
}

// WithVerifyPolicy sets the verification timing.
func (b Builder) WithVerifyPolicy(p VerifyPolicy) Builder {
	b.policy = p
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.region == nil {
		panic("handshake: region is required")
	}

	if b.source == nil {
		panic("handshake: payload source is required")
	}

	if b.spawner == nil {
		panic("handshake: spawner is required")
	}

	if b.policy.Delay < 0 {
		panic("handshake: verify delay cannot be negative")
	}
}

// Build creates the Controller.
func (b Builder) Build() *Controller {
	b.parametersMustBeValid()

	return &Controller{
		HookableBase: hooking.NewHookableBase(),
		name:         b.name,
		region:       b.region,
		source:       b.source,
		spawner:      b.spawner,
		policy:       b.policy,
		ids:          idgen.New(),
		status:       StatusIdle,
	}
}
