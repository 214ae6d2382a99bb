package monitor

import (
	"fmt"
	"time"

	"github.com/Hyphaeic/radixrunner-wasm/codec"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
)

// DefaultRateInterval is how often a rate is reported.
const DefaultRateInterval = time.Second

// Builder can build monitors.
type Builder struct {
	name         string
	head         HeadReader
	rateInterval time.Duration
	shadows      []ShadowConfig
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		name:         "Monitor",
		rateInterval: DefaultRateInterval,
	}
}

// WithName sets the name of the monitor.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithHeadReader sets where the head counter is read from.
func (b Builder) WithHeadReader(head HeadReader) Builder {
	b.head = head
	return b
}

// WithRateInterval sets how much time must pass between rate reports.
func (b Builder) WithRateInterval(d time.Duration) Builder {
	b.rateInterval = d
	return b
}

// WithShadows adds shadow counters.
func (b Builder) WithShadows(shadows ...ShadowConfig) Builder {
	b.shadows = append(append([]ShadowConfig{}, b.shadows...), shadows...)
	return b
}

// Build creates a monitor.
func (b Builder) Build() *Monitor {
	b.parametersMustBeValid()

	m := &Monitor{
		HookableBase: hooking.NewHookableBase(),
		name:         b.name,
		head:         b.head,
		rateInterval: b.rateInterval,
	}

	for _, cfg := range b.shadows {
		m.shadows = append(m.shadows, &shadow{cfg: cfg})
	}

	m.publishStats()

	return m
}

func (b Builder) parametersMustBeValid() {
	if b.head == nil {
		panic("head reader is not set")
	}

	if b.rateInterval <= 0 {
		panic("rate interval must be positive")
	}

	for _, s := range b.shadows {
		if s.Field < 0 || s.Field >= codec.NumFields {
			panic(fmt.Sprintf("shadow %q watches field %d, which does not exist",
				s.Name, s.Field))
		}

		if s.Divisor == 0 {
			panic(fmt.Sprintf("shadow %q has a zero divisor", s.Name))
		}
	}
}
