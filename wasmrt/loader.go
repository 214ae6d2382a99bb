// Package wasmrt runs WebAssembly computation modules with wazero. The
// module's imported linear memory is the shared region itself, so every store
// the module makes lands directly in memory the controller is reading.
package wasmrt

import (
	"context"
	"fmt"

	"github.com/Hyphaeic/radixrunner-wasm/host"
	"github.com/Hyphaeic/radixrunner-wasm/region"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

// Default names of the computation module contract.
const (
	DefaultInitExport   = "init_memory_base"
	DefaultRunExport    = "tick_worker_main"
	DefaultMemoryModule = "env"
	DefaultMemoryName   = "memory"
)

// Config names the imports and exports of the computation module.
type Config struct {
	InitExport   string
	RunExport    string
	MemoryModule string
	MemoryName   string

	// SharedMemory makes the provided memory a shared (threads) memory. It
	// must match the module's import.
	SharedMemory bool
}

// DefaultConfig matches the reference radixrunner build.
func DefaultConfig() Config {
	return Config{
		InitExport:   DefaultInitExport,
		RunExport:    DefaultRunExport,
		MemoryModule: DefaultMemoryModule,
		MemoryName:   DefaultMemoryName,
		SharedMemory: true,
	}
}

// Loader compiles computation modules. It implements host.Loader.
type Loader struct {
	cfg Config
}

// NewLoader creates a Loader.
func NewLoader(cfg Config) *Loader {
	return &Loader{cfg: cfg}
}

// Compile validates and compiles payload in a runtime of its own.
func (l *Loader) Compile(ctx context.Context, payload []byte) (host.Definition, error) {
	rc := wazero.NewRuntimeConfig().
		WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads).
		WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	compiled, err := rt.CompileModule(ctx, payload)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	return &definition{cfg: l.cfg, rt: rt, compiled: compiled}, nil
}

type definition struct {
	cfg      Config
	rt       wazero.Runtime
	compiled wazero.CompiledModule
}

func (d *definition) Instantiate(
	ctx context.Context,
	r *region.Region,
) (host.Module, error) {
	if err := d.checkMemoryImport(r); err != nil {
		return nil, err
	}

	envBin := MemoryModule(uint32(r.Pages()), d.cfg.SharedMemory, d.cfg.MemoryName)
	allocCtx := experimental.WithMemoryAllocator(ctx, regionAllocator{r: r})

	env, err := d.rt.InstantiateWithConfig(allocCtx, envBin,
		wazero.NewModuleConfig().WithName(d.cfg.MemoryModule))
	if err != nil {
		return nil, fmt.Errorf("provide %s.%s: %w",
			d.cfg.MemoryModule, d.cfg.MemoryName, err)
	}

	mod, err := d.rt.InstantiateModule(ctx, d.compiled,
		wazero.NewModuleConfig().WithName("computation").WithStartFunctions())
	if err != nil {
		_ = env.Close(ctx)
		return nil, err
	}

	m := &module{cfg: d.cfg, env: env, mod: mod}

	m.init = mod.ExportedFunction(d.cfg.InitExport)
	m.run = mod.ExportedFunction(d.cfg.RunExport)

	switch {
	case m.init == nil:
		_ = m.Close(ctx)
		return nil, fmt.Errorf("module does not export function %q", d.cfg.InitExport)
	case m.run == nil:
		_ = m.Close(ctx)
		return nil, fmt.Errorf("module does not export function %q", d.cfg.RunExport)
	}

	return m, nil
}

func (d *definition) checkMemoryImport(r *region.Region) error {
	for _, mem := range d.compiled.ImportedMemories() {
		modName, memName, ok := mem.Import()
		if !ok || modName != d.cfg.MemoryModule || memName != d.cfg.MemoryName {
			continue
		}

		if int(mem.Min()) > r.Pages() {
			return fmt.Errorf(
				"module needs %d pages of memory but the region has %d",
				mem.Min(), r.Pages())
		}

		return nil
	}

	return fmt.Errorf("module does not import memory %s.%s",
		d.cfg.MemoryModule, d.cfg.MemoryName)
}

func (d *definition) Close(ctx context.Context) error {
	return d.rt.Close(ctx)
}

type module struct {
	cfg       Config
	env       api.Module
	mod       api.Module
	init, run api.Function
}

func (m *module) Init(ctx context.Context) error {
	_, err := m.init.Call(ctx)
	return err
}

func (m *module) Run(ctx context.Context) error {
	_, err := m.run.Call(ctx)
	return err
}

func (m *module) Close(ctx context.Context) error {
	err := m.mod.Close(ctx)
	if envErr := m.env.Close(ctx); err == nil {
		err = envErr
	}

	return err
}

// ExportedMemory returns the module's exported view of memory, if it exports
// one.
func (m *module) ExportedMemory() ([]byte, bool) {
	mem := m.mod.ExportedMemory(m.cfg.MemoryName)
	if mem == nil {
		return nil, false
	}

	return mem.Read(0, mem.Size())
}

var (
	_ host.Loader         = (*Loader)(nil)
	_ host.MemoryExporter = (*module)(nil)
)
