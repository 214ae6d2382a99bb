// Package monitoring serves the state of a running session as JSON over
// HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/Hyphaeic/radixrunner-wasm/datarecording"
	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/monitor"
)

// DefaultRateLimit is the number of rate reports /api/rates returns when no
// limit is given.
const DefaultRateLimit = 60

// HandshakeView exposes the handshake controller.
type HandshakeView interface {
	State() handshake.State
	Status() string
	Err() error
	Worker() handshake.Worker
}

// SampleSource exposes the tick monitor.
type SampleSource interface {
	Latest() *monitor.Sample
	LatestRate() *monitor.RateReport
	Stats() monitor.Stats
}

// RateHistory returns recorded rate reports, newest first.
type RateHistory interface {
	RecentRates(ctx context.Context, limit int) ([]datarecording.RateEntry, error)
}

// Server turns a session into a web server that allows external monitoring.
type Server struct {
	sessionID   string
	handshake   HandshakeView
	samples     SampleSource
	history     RateHistory
	sessionRoot any
	portNumber  int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	httpServer *http.Server
	url        string
}

// NewServer creates a new Server.
func NewServer() *Server {
	return &Server{}
}

// WithPortNumber sets the port number of the server.
func (s *Server) WithPortNumber(portNumber int) *Server {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	s.portNumber = portNumber

	return s
}

// WithSessionID sets the id reported by /api/status.
func (s *Server) WithSessionID(id string) *Server {
	s.sessionID = id
	return s
}

// RegisterHandshake registers the handshake controller.
func (s *Server) RegisterHandshake(h HandshakeView) {
	s.handshake = h
}

// RegisterSampleSource registers the tick monitor.
func (s *Server) RegisterSampleSource(src SampleSource) {
	s.samples = src
}

// RegisterRateHistory registers where rate history is read from.
func (s *Server) RegisterRateHistory(h RateHistory) {
	s.history = h
}

// RegisterSessionRoot sets the object that /api/session serializes.
func (s *Server) RegisterSessionRoot(root any) {
	s.sessionRoot = root
}

// CreateProgressBar creates a new progress bar.
func (s *Server) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	s.progressBarsLock.Lock()
	defer s.progressBarsLock.Unlock()

	s.progressBars = append(s.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar.
func (s *Server) CompleteProgressBar(pb *ProgressBar) {
	s.progressBarsLock.Lock()
	defer s.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(s.progressBars))
	for _, b := range s.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	s.progressBars = newBars
}

// Handler returns the router of the server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Methods(http.MethodGet).Subrouter()
	api.HandleFunc("/status", s.status)
	api.HandleFunc("/sample", s.sample)
	api.HandleFunc("/rate", s.rate)
	api.HandleFunc("/stats", s.stats)
	api.HandleFunc("/rates", s.rates)
	api.HandleFunc("/session", s.session)
	api.HandleFunc("/progress", s.listProgressBars)
	api.HandleFunc("/resource", s.listResources)
	api.HandleFunc("/profile", s.collectProfile)

	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// StartServer starts listening and serving in the background.
func (s *Server) StartServer() error {
	listener, err := net.Listen("tcp", "localhost:"+strconv.Itoa(s.portNumber))
	if err != nil {
		return err
	}

	s.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Monitoring session with %s\n", s.url)

	go func() {
		err := s.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("monitoring server stopped: %v", err)
		}
	}()

	return nil
}

// URL returns the address the server listens on, once started.
func (s *Server) URL() string {
	return s.url
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

type statusRsp struct {
	Session string `json:"session"`
	State   string `json:"state"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Worker  string `json:"worker,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	if s.handshake == nil {
		http.Error(w, "no handshake registered", http.StatusServiceUnavailable)
		return
	}

	rsp := statusRsp{
		Session: s.sessionID,
		State:   s.handshake.State().String(),
		Status:  s.handshake.Status(),
	}

	if err := s.handshake.Err(); err != nil {
		rsp.Error = err.Error()
	}

	if worker := s.handshake.Worker(); worker != nil {
		rsp.Worker = worker.ID()
	}

	writeJSON(w, rsp)
}

func (s *Server) sample(w http.ResponseWriter, _ *http.Request) {
	if s.samples == nil || s.samples.Latest() == nil {
		http.Error(w, "no sample yet", http.StatusNotFound)
		return
	}

	writeJSON(w, s.samples.Latest())
}

func (s *Server) rate(w http.ResponseWriter, _ *http.Request) {
	if s.samples == nil || s.samples.LatestRate() == nil {
		http.Error(w, "no rate yet", http.StatusNotFound)
		return
	}

	writeJSON(w, s.samples.LatestRate())
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	if s.samples == nil {
		http.Error(w, "no monitor registered", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, s.samples.Stats())
}

func (s *Server) rates(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRateLimit

	if str := r.URL.Query().Get("limit"); str != "" {
		n, err := strconv.Atoi(str)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}

		limit = n
	}

	if s.history == nil {
		http.Error(w, "recording is disabled", http.StatusNotFound)
		return
	}

	rates, err := s.history.RecentRates(r.Context(), limit)
	if errors.Is(err, datarecording.ErrNoHistory) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, rates)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	if s.sessionRoot == nil {
		http.Error(w, "no session registered", http.StatusServiceUnavailable)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(s.sessionRoot)
	serializer.SetMaxDepth(1)

	if field := r.URL.Query().Get("field"); field != "" {
		err := serializer.SetEntryPoint(strings.Split(field, "."))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	buf := bytes.NewBuffer(nil)
	if err := serializer.Serialize(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write(buf.Bytes())
	dieOnErr(err)
}

func (s *Server) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	s.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(s.progressBars))
	for _, b := range s.progressBars {
		bars = append(bars, b.snapshot())
	}
	s.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (s *Server) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (s *Server) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second

	if str := r.URL.Query().Get("seconds"); str != "" {
		secs, err := strconv.ParseFloat(str, 64)
		if err != nil || secs <= 0 || secs > 60 {
			http.Error(w, "seconds must be in (0, 60]", http.StatusBadRequest)
			return
		}

		duration = time.Duration(secs * float64(time.Second))
	}

	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	select {
	case <-time.After(duration):
	case <-r.Context().Done():
	}

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
