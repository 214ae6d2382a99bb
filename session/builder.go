package session

import (
	"log"
	"time"

	"github.com/rs/xid"

	"github.com/Hyphaeic/radixrunner-wasm/config"
	"github.com/Hyphaeic/radixrunner-wasm/datarecording"
	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
	"github.com/Hyphaeic/radixrunner-wasm/host"
	"github.com/Hyphaeic/radixrunner-wasm/monitor"
	"github.com/Hyphaeic/radixrunner-wasm/region"
	"github.com/Hyphaeic/radixrunner-wasm/tracing"
	"github.com/Hyphaeic/radixrunner-wasm/wasmrt"
)

// Builder can be used to build a session.
type Builder struct {
	pages        int
	shared       bool
	source       handshake.PayloadSource
	loader       host.Loader
	policy       handshake.VerifyPolicy
	fps          int
	clock        func() monitor.FrameClock
	rateInterval time.Duration
	shadows      []monitor.ShadowConfig
	duration     time.Duration

	serverOn    bool
	serverPort  int
	recordOn    bool
	recorderCfg datarecording.RecorderConfig
	tracePath   string

	logger *log.Logger
	hooks  []hooking.Hook
}

// MakeBuilder creates a new builder. By default the session runs the
// built-in ticker in a 16 MiB region, without a status server or recording.
func MakeBuilder() Builder {
	return Builder{
		pages:        region.DefaultPages,
		shared:       true,
		loader:       wasmrt.NewLoader(wasmrt.DefaultConfig()),
		policy:       handshake.DefaultVerifyPolicy(),
		fps:          monitor.DefaultFrameRate,
		rateInterval: monitor.DefaultRateInterval,
	}
}

// WithConfig applies a loaded configuration.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.pages = cfg.Pages
	b.shared = cfg.Wasm.SharedMemory
	b.loader = wasmrt.NewLoader(cfg.WasmRuntime())
	b.policy = cfg.VerifyPolicy()
	b.fps = cfg.Monitor.FPS
	b.rateInterval = cfg.Monitor.RateInterval
	b.shadows = cfg.Monitor.Shadows
	b.duration = cfg.Duration

	switch {
	case cfg.Payload.Path != "":
		b.source = handshake.FileSource{Path: cfg.Payload.Path}
	case cfg.Payload.URL != "":
		b.source = handshake.HTTPSource{
			URL:      cfg.Payload.URL,
			MaxBytes: int64(cfg.RegionSize()),
		}
	default:
		b.source = nil
	}

	b.serverOn = cfg.Server.ServeStatus()
	b.serverPort = cfg.Server.Port

	b.recorderCfg, b.recordOn = cfg.Recorder()
	b.tracePath = cfg.Record.TracePath

	return b
}

// WithPages sets the size of the shared region in 64 KiB pages.
func (b Builder) WithPages(pages int) Builder {
	b.pages = pages
	return b
}

// WithPayloadSource sets where the computation module is fetched from. Nil
// selects the built-in ticker.
func (b Builder) WithPayloadSource(s handshake.PayloadSource) Builder {
	b.source = s
	return b
}

// WithLoader sets how worker hosts load the computation module.
func (b Builder) WithLoader(l host.Loader) Builder {
	b.loader = l
	return b
}

// WithVerifyPolicy sets the schedule of post-ready head checks.
func (b Builder) WithVerifyPolicy(p handshake.VerifyPolicy) Builder {
	b.policy = p
	return b
}

// WithFrameRate sets how many samples per second the monitor takes.
func (b Builder) WithFrameRate(fps int) Builder {
	b.fps = fps
	return b
}

// WithFrameClock overrides the clock that paces the monitor.
func (b Builder) WithFrameClock(clock func() monitor.FrameClock) Builder {
	b.clock = clock
	return b
}

// WithRateInterval sets how often a rate is reported.
func (b Builder) WithRateInterval(d time.Duration) Builder {
	b.rateInterval = d
	return b
}

// WithShadows adds shadow counters to the monitor.
func (b Builder) WithShadows(shadows ...monitor.ShadowConfig) Builder {
	b.shadows = append(append([]monitor.ShadowConfig{}, b.shadows...), shadows...)
	return b
}

// WithDuration makes Run return after the session has been monitored for d.
func (b Builder) WithDuration(d time.Duration) Builder {
	b.duration = d
	return b
}

// WithMonitorPort turns the status server on at the given port. Zero picks
// a free port.
func (b Builder) WithMonitorPort(port int) Builder {
	b.serverOn = true
	b.serverPort = port

	return b
}

// WithoutMonitoring turns the status server off.
func (b Builder) WithoutMonitoring() Builder {
	b.serverOn = false
	b.serverPort = 0

	return b
}

// WithRecorder records telemetry with the given backend.
func (b Builder) WithRecorder(cfg datarecording.RecorderConfig) Builder {
	b.recordOn = true
	b.recorderCfg = cfg

	return b
}

// WithOutputFileName records telemetry into filename.sqlite3.
func (b Builder) WithOutputFileName(filename string) Builder {
	return b.WithRecorder(datarecording.RecorderConfig{
		Type: datarecording.BackendSQLite,
		Path: filename,
	})
}

// WithStageTrace writes the handshake stage spans into filename.csv.
func (b Builder) WithStageTrace(filename string) Builder {
	b.tracePath = filename
	return b
}

// WithLogger prints handshake, host and monitor events, except per-frame
// samples, into logger.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithHooks attaches hooks to the controller, the worker hosts and the
// monitor.
func (b Builder) WithHooks(hooks ...hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook{}, b.hooks...), hooks...)
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.pages <= 0 {
		panic("pages must be positive")
	}

	if b.loader == nil {
		panic("loader is not set")
	}

	if !b.serverOn && b.serverPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if b.duration < 0 {
		panic("duration must not be negative")
	}
}

// Build builds the session. Nothing is allocated until the session starts.
func (b Builder) Build() *Session {
	b.parametersMustBeValid()

	s := &Session{
		id:      xid.New().String(),
		builder: b,
		done:    make(chan struct{}),
	}

	if b.logger != nil {
		s.hooks = append(s.hooks, hooking.NewLogger(b.logger, loggedPositions...))
	}

	if b.tracePath != "" {
		s.traceWriter = tracing.NewCSVTraceWriter(b.tracePath)
		s.stages = tracing.NewStageTracer(s.id, s.traceWriter)
	} else {
		s.stages = tracing.NewStageTracer(s.id, nil)
	}

	s.hooks = append(s.hooks, s.stages)
	s.hooks = append(s.hooks, b.hooks...)

	return s
}

var loggedPositions = []*hooking.HookPos{
	handshake.HookPosStateChange,
	handshake.HookPosVerifyCheck,
	host.HookPosStage,
	host.HookPosIgnored,
	host.HookPosAnomaly,
	host.HookPosFailure,
	monitor.HookPosRate,
	monitor.HookPosAnomaly,
	monitor.HookPosFault,
}
