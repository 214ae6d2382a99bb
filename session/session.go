// Package session wires the shared region, the handshake controller, the
// worker hosts, the tick monitor, recording and the status server into one
// run.
package session

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/Hyphaeic/radixrunner-wasm/datarecording"
	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
	"github.com/Hyphaeic/radixrunner-wasm/host"
	"github.com/Hyphaeic/radixrunner-wasm/monitor"
	"github.com/Hyphaeic/radixrunner-wasm/monitoring"
	"github.com/Hyphaeic/radixrunner-wasm/region"
	"github.com/Hyphaeic/radixrunner-wasm/tracing"
	"github.com/Hyphaeic/radixrunner-wasm/wasmrt"
)

// workerStopTimeout bounds how long Terminate waits for the worker to leave
// the region before the region is unmapped.
const workerStopTimeout = 5 * time.Second

// Info describes a session. It does not change once the session starts.
type Info struct {
	ID           string
	Payload      string
	Pages        int
	RegionSize   int
	Mapped       bool
	VerifyPolicy handshake.VerifyPolicy
	VerifyBudget time.Duration
	FrameRate    int
	RateInterval time.Duration
	Shadows      []monitor.ShadowConfig
}

// Status is a point-in-time view of a session.
type Status struct {
	ID     string
	State  handshake.State
	Status string
	Head   uint64
	Sample *monitor.Sample
	Rate   *monitor.RateReport
	Stats  monitor.Stats
}

// A Session runs one handshake and, if it verifies, monitors the counter
// until terminated. A failed session cannot be restarted; build a new one.
type Session struct {
	id      string
	builder Builder
	hooks   []hooking.Hook

	lock    sync.Mutex
	started bool

	info       *Info
	region     *region.Region
	controller *handshake.Controller
	monitor    *monitor.Monitor
	telemetry  *datarecording.TelemetryRecorder
	exec       *datarecording.ExecRecorder
	server     *monitoring.Server

	stages      *tracing.StageTracer
	traceWriter *tracing.CSVTraceWriter

	cancel        context.CancelFunc
	monitorDone   chan struct{}
	terminateOnce sync.Once
	done          chan struct{}
}

// ID returns the xid of the session.
func (s *Session) ID() string {
	return s.id
}

// Region returns the shared region, or nil before Start.
func (s *Session) Region() *region.Region {
	return s.region
}

// Controller returns the handshake controller, or nil before Start.
func (s *Session) Controller() *handshake.Controller {
	return s.controller
}

// Monitor returns the tick monitor, or nil before Start.
func (s *Session) Monitor() *monitor.Monitor {
	return s.monitor
}

// Server returns the status server, or nil if monitoring is off.
func (s *Session) Server() *monitoring.Server {
	return s.server
}

// Info returns the session description, or nil before Start.
func (s *Session) Info() *Info {
	return s.info
}

// Stages returns the handshake stage tracer.
func (s *Session) Stages() *tracing.StageTracer {
	return s.stages
}

// Done is closed when the session has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Status returns the current state of the session.
func (s *Session) Status() Status {
	st := Status{ID: s.id, State: handshake.Idle}

	if s.controller != nil {
		st.State = s.controller.State()
		st.Status = s.controller.Status()
	}

	if s.region != nil && st.State != handshake.Idle {
		st.Head = s.region.LoadHead()
	}

	if s.monitor != nil {
		st.Sample = s.monitor.Latest()
		st.Rate = s.monitor.LatestRate()
		st.Stats = s.monitor.Stats()
	}

	return st
}

// Run starts the session, monitors it until ctx is done or the configured
// duration has passed, and terminates it.
func (s *Session) Run(ctx context.Context) (handshake.Result, error) {
	defer s.Terminate()

	result, err := s.Start(ctx)
	if err != nil {
		return result, err
	}

	s.Wait(ctx)

	return result, nil
}

// Start allocates the region and runs the handshake. Once the region is
// verified, the monitor starts in the background and Start returns. The
// caller must call Terminate.
func (s *Session) Start(ctx context.Context) (handshake.Result, error) {
	s.lock.Lock()
	if s.started {
		s.lock.Unlock()
		panic("session already started")
	}
	s.started = true
	s.lock.Unlock()

	b := s.builder

	r, err := region.Allocate(b.pages * region.PageSize)
	if err != nil {
		return handshake.Result{State: handshake.Idle}, err
	}

	s.region = r

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	source := b.source
	if source == nil {
		source = handshake.BytesSource{
			Name: "builtin ticker",
			Data: wasmrt.TickerModule(uint32(b.pages), b.shared),
		}
	}

	if s.traceWriter != nil {
		s.traceWriter.Init()
	}

	if err := s.setupRecording(source); err != nil {
		return handshake.Result{State: handshake.Idle}, err
	}

	s.buildComponents(source)

	if b.serverOn {
		if err := s.startServer(); err != nil {
			return handshake.Result{State: handshake.Idle}, err
		}
	}

	bar := s.trackVerification()

	result, err := s.controller.Run(runCtx)

	if bar != nil {
		s.server.CompleteProgressBar(bar)
	}

	if err != nil {
		return result, err
	}

	s.monitorDone = make(chan struct{})
	clock := s.newClock()

	go func() {
		defer close(s.monitorDone)
		_ = s.monitor.Run(runCtx, clock)
	}()

	return result, nil
}

func (s *Session) setupRecording(source handshake.PayloadSource) error {
	b := s.builder
	if !b.recordOn {
		return nil
	}

	cfg := b.recorderCfg
	if (cfg.Type == "" || cfg.Type == datarecording.BackendSQLite) && cfg.Path == "" {
		cfg.Path = "radixrunner_" + s.id
	}

	rec, err := datarecording.NewDataRecorderWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	s.exec = datarecording.NewExecRecorder(rec)
	s.exec.Start()
	s.exec.Set("Session", s.id)
	s.exec.Set("Payload", source.Describe())
	s.exec.Set("Pages", strconv.Itoa(b.pages))

	s.telemetry = datarecording.NewTelemetryRecorder(
		rec, datarecording.NewReaderFor(rec), s.id)
	s.hooks = append(s.hooks, s.telemetry)

	return nil
}

func (s *Session) buildComponents(source handshake.PayloadSource) {
	b := s.builder

	s.monitor = monitor.MakeBuilder().
		WithHeadReader(s.region).
		WithRateInterval(b.rateInterval).
		WithShadows(b.shadows...).
		Build()

	spawner := host.NewSpawner(b.loader, s.hooks...)

	s.controller = handshake.MakeBuilder().
		WithRegion(s.region).
		WithPayloadSource(source).
		WithSpawner(spawner).
		WithVerifyPolicy(b.policy).
		Build()

	for _, h := range s.hooks {
		s.controller.AcceptHook(h)
		s.monitor.AcceptHook(h)
	}

	s.info = &Info{
		ID:           s.id,
		Payload:      source.Describe(),
		Pages:        s.region.Pages(),
		RegionSize:   s.region.Size(),
		Mapped:       s.region.Mapped(),
		VerifyPolicy: b.policy,
		VerifyBudget: b.policy.Budget(),
		FrameRate:    b.fps,
		RateInterval: b.rateInterval,
		Shadows:      b.shadows,
	}
}

func (s *Session) startServer() error {
	s.server = monitoring.NewServer().
		WithPortNumber(s.builder.serverPort).
		WithSessionID(s.id)

	s.server.RegisterHandshake(s.controller)
	s.server.RegisterSampleSource(s.monitor)
	s.server.RegisterSessionRoot(s.info)

	if s.telemetry != nil {
		s.server.RegisterRateHistory(s.telemetry)
	}

	return s.server.StartServer()
}

func (s *Session) trackVerification() *monitoring.ProgressBar {
	if s.server == nil {
		return nil
	}

	bar := s.server.CreateProgressBar(
		fmt.Sprintf("Verification (up to %s)", s.info.VerifyBudget),
		uint64(s.builder.policy.Attempts))

	progress := hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos == handshake.HookPosVerifyCheck {
			bar.IncrementFinished(1)
		}
	})
	s.controller.AcceptHook(&progress)

	return bar
}

func (s *Session) newClock() monitor.FrameClock {
	if s.builder.clock != nil {
		return s.builder.clock()
	}

	return monitor.NewTickerClock(s.builder.fps)
}

// Wait blocks until ctx is done or the configured duration has passed since
// Wait was called. Without a duration it waits for ctx only.
func (s *Session) Wait(ctx context.Context) {
	if s.builder.duration <= 0 {
		<-ctx.Done()
		return
	}

	var bar *monitoring.ProgressBar
	if s.server != nil {
		bar = s.server.CreateProgressBar("Run",
			uint64(s.builder.duration/time.Second))
		defer s.server.CompleteProgressBar(bar)
	}

	start := time.Now()
	deadline := time.NewTimer(s.builder.duration)
	defer deadline.Stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			if bar != nil {
				bar.SetFinished(uint64(time.Since(start) / time.Second))
			}
		}
	}
}

// Terminate stops the worker and the monitor, flushes recordings, stops the
// server and releases the region. It is safe to call more than once.
func (s *Session) Terminate() {
	s.terminateOnce.Do(func() {
		defer close(s.done)

		if s.cancel != nil {
			s.cancel()
		}

		if s.monitorDone != nil {
			<-s.monitorDone
		}

		workerStopped := s.waitWorker()

		if s.exec != nil {
			s.exec.End()
		}

		if s.telemetry != nil {
			if err := s.telemetry.Close(); err != nil {
				log.Printf("session %s: close recording: %v", s.id, err)
			}
		}

		if s.traceWriter != nil {
			if err := s.traceWriter.Close(); err != nil {
				log.Printf("session %s: close stage trace: %v", s.id, err)
			}
		}

		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			_ = s.server.Shutdown(ctx)
		}

		if s.region == nil {
			return
		}

		if !workerStopped {
			log.Printf("session %s: worker did not stop, keeping region mapped", s.id)
			return
		}

		if err := s.region.Release(); err != nil {
			log.Printf("session %s: release region: %v", s.id, err)
		}
	})
}

func (s *Session) waitWorker() bool {
	if s.controller == nil {
		return true
	}

	w, ok := s.controller.Worker().(interface{ Done() <-chan struct{} })
	if !ok {
		return true
	}

	select {
	case <-w.Done():
		return true
	case <-time.After(workerStopTimeout):
		return false
	}
}
