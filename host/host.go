package host

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"unsafe"

	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
	"github.com/Hyphaeic/radixrunner-wasm/idgen"
	"github.com/Hyphaeic/radixrunner-wasm/region"
)

// Hook positions raised by the Host.
var (
	// HookPosStage carries the name of the stage the host is entering.
	HookPosStage = &hooking.HookPos{Name: "Host Stage"}

	// HookPosIgnored carries a message the host dropped. Detail says why.
	HookPosIgnored = &hooking.HookPos{Name: "Host Ignored Message"}

	// HookPosAnomaly carries a description of unexpected but non-fatal
	// behavior.
	HookPosAnomaly = &hooking.HookPos{Name: "Host Anomaly"}

	// HookPosFailure carries the error reported to the controller.
	HookPosFailure = &hooking.HookPos{Name: "Host Failure"}
)

// Host serves one worker. It reacts to the first init message only; after
// the module's run loop starts, the host goroutine belongs to the module.
type Host struct {
	*hooking.HookableBase

	name   string
	loader Loader
	inbox  <-chan handshake.Message
	outbox chan<- handshake.Message
	ids    idgen.Generator

	initialized bool
	definition  Definition
	module      Module
}

// NewHost creates a host that reads inbox and replies on outbox.
func NewHost(
	name string,
	loader Loader,
	inbox <-chan handshake.Message,
	outbox chan<- handshake.Message,
) *Host {
	return &Host{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		loader:       loader,
		inbox:        inbox,
		outbox:       outbox,
		ids:          idgen.New(),
	}
}

// Name returns the name of the host.
func (h *Host) Name() string {
	return h.name
}

// Serve processes messages until ctx is done or the inbox is closed.
func (h *Host) Serve(ctx context.Context) {
	defer h.release()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-h.inbox:
			if !ok {
				return
			}

			h.handle(ctx, msg)
		}
	}
}

func (h *Host) handle(ctx context.Context, msg handshake.Message) {
	if msg.Kind != handshake.KindInit {
		h.ignore(msg, "unknown message kind")
		return
	}

	if h.initialized {
		h.ignore(msg, "module already initialized")
		return
	}

	h.initialized = true
	h.start(ctx, msg)
}

func (h *Host) start(ctx context.Context, msg handshake.Message) {
	stage := StageMessage

	defer func() {
		v := recover()
		if v == nil {
			return
		}

		h.reportFailure(ctx, stage, fmt.Errorf("panic: %v", v), string(debug.Stack()))
	}()

	if msg.Memory == nil || len(msg.Payload) == 0 {
		h.reportFailure(ctx, stage,
			errors.New("init message needs memory and payload bytes"), "")
		return
	}

	stage = h.enter(StageCompile)

	def, err := h.loader.Compile(ctx, msg.Payload)
	if err != nil {
		h.reportError(ctx, &CompileError{Err: err})
		return
	}

	h.definition = def

	stage = h.enter(StageInstantiate)

	mod, err := def.Instantiate(ctx, msg.Memory)
	if err != nil {
		h.reportError(ctx, &InstantiateError{Err: err})
		return
	}

	h.module = mod
	h.checkExportedMemory(mod, msg.Memory)

	stage = h.enter(StageInit)

	if err := mod.Init(ctx); err != nil {
		h.reportError(ctx, &InitError{Err: err})
		return
	}

	h.send(ctx, handshake.Message{ID: h.ids.Generate(), Kind: handshake.KindReady})

	stage = h.enter(StageRun)

	err = mod.Run(ctx)

	switch {
	case ctx.Err() != nil:
	case err != nil:
		h.reportError(ctx, &RunError{Err: err})
	default:
		h.InvokeHook(hooking.HookCtx{
			Domain: h,
			Pos:    HookPosAnomaly,
			Item:   "run entry point returned unexpectedly; worker is idle",
		})
	}
}

func (h *Host) enter(stage string) string {
	h.InvokeHook(hooking.HookCtx{Domain: h, Pos: HookPosStage, Item: stage})
	return stage
}

func (h *Host) checkExportedMemory(mod Module, r *region.Region) {
	exporter, ok := mod.(MemoryExporter)
	if !ok {
		return
	}

	exported, ok := exporter.ExportedMemory()
	if !ok {
		return
	}

	if len(exported) == 0 || !sameMemory(exported, r.Bytes()) {
		h.InvokeHook(hooking.HookCtx{
			Domain: h,
			Pos:    HookPosAnomaly,
			Item:   "exported memory does not alias the shared region",
		})
	}
}

func sameMemory(a, b []byte) bool {
	return len(a) == len(b) &&
		unsafe.Pointer(unsafe.SliceData(a)) == unsafe.Pointer(unsafe.SliceData(b))
}

func (h *Host) ignore(msg handshake.Message, why string) {
	h.InvokeHook(hooking.HookCtx{
		Domain: h,
		Pos:    HookPosIgnored,
		Item:   msg,
		Detail: why,
	})
}

func (h *Host) reportError(ctx context.Context, err error) {
	h.reportFailure(ctx, stageOf(err), err, "")
}

func (h *Host) reportFailure(
	ctx context.Context,
	stage string,
	err error,
	detail string,
) {
	h.InvokeHook(hooking.HookCtx{
		Domain: h,
		Pos:    HookPosFailure,
		Item:   err,
		Detail: stage,
	})

	h.send(ctx, handshake.Message{
		ID:     h.ids.Generate(),
		Kind:   handshake.KindError,
		Error:  err.Error(),
		Stage:  stage,
		Detail: detail,
	})
}

func (h *Host) send(ctx context.Context, msg handshake.Message) {
	select {
	case h.outbox <- msg:
	case <-ctx.Done():
	}
}

func (h *Host) release() {
	ctx := context.Background()

	if h.module != nil {
		_ = h.module.Close(ctx)
	}

	if h.definition != nil {
		_ = h.definition.Close(ctx)
	}
}
