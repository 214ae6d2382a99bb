package datarecording

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Hyphaeic/radixrunner-wasm/codec"
	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
	"github.com/Hyphaeic/radixrunner-wasm/host"
	"github.com/Hyphaeic/radixrunner-wasm/monitor"
)

// Table names written by the TelemetryRecorder.
const (
	RateTable        = "rates"
	AnomalyTable     = "anomalies"
	TransitionTable  = "transitions"
	VerifyCheckTable = "verify_checks"
	FailureTable     = "failures"
)

// ErrNoHistory is returned when the recorder has no reader to query.
var ErrNoHistory = errors.New("no recording reader configured")

// RateEntry is one rate report.
type RateEntry struct {
	Session        string
	TimeNS         int64
	Head           string
	Prev           string
	ElapsedSeconds float64
	TicksPerSecond float64
	Anomaly        bool
}

// AnomalyEntry is a non-fatal irregularity.
type AnomalyEntry struct {
	Session string
	TimeNS  int64
	Source  string
	Message string
}

// TransitionEntry is a handshake state change.
type TransitionEntry struct {
	Session string
	TimeNS  int64
	From    string
	To      string
	Status  string
	Error   string
}

// VerifyCheckEntry is one read of the head during verification.
type VerifyCheckEntry struct {
	Session string
	TimeNS  int64
	Attempt int
	Head    string
}

// FailureEntry is an error a worker host reported.
type FailureEntry struct {
	Session string
	TimeNS  int64
	Stage   string
	Message string
}

// TelemetryRecorder is a hook that turns handshake, host and monitor events
// into table rows. Per-frame samples are not recorded.
type TelemetryRecorder struct {
	recorder DataRecorder
	reader   DataReader
	session  string
	now      func() time.Time
}

// NewTelemetryRecorder creates the telemetry tables in recorder. The reader
// is optional. It must read the same database for RecentRates to work.
func NewTelemetryRecorder(
	recorder DataRecorder,
	reader DataReader,
	session string,
) *TelemetryRecorder {
	recorder.CreateTable(RateTable, RateEntry{})
	recorder.CreateTable(AnomalyTable, AnomalyEntry{})
	recorder.CreateTable(TransitionTable, TransitionEntry{})
	recorder.CreateTable(VerifyCheckTable, VerifyCheckEntry{})
	recorder.CreateTable(FailureTable, FailureEntry{})

	if reader != nil {
		reader.MapTable(RateTable, RateEntry{})
		reader.MapTable(TransitionTable, TransitionEntry{})
	}

	return &TelemetryRecorder{
		recorder: recorder,
		reader:   reader,
		session:  session,
		now:      time.Now,
	}
}

// Func records the event, if it is one the recorder tracks.
func (r *TelemetryRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case monitor.HookPosRate:
		r.recordRate(ctx.Item.(monitor.RateReport))
	case monitor.HookPosAnomaly, monitor.HookPosFault, host.HookPosAnomaly:
		r.recordAnomaly(ctx)
	case handshake.HookPosStateChange:
		r.recordTransition(ctx)
	case handshake.HookPosVerifyCheck:
		check := ctx.Item.(handshake.VerifyCheck)
		r.recorder.InsertData(VerifyCheckTable, VerifyCheckEntry{
			Session: r.session,
			TimeNS:  r.now().UnixNano(),
			Attempt: check.Attempt,
			Head:    codec.Format(check.Head),
		})
	case host.HookPosFailure:
		stage, _ := ctx.Detail.(string)
		r.recorder.InsertData(FailureTable, FailureEntry{
			Session: r.session,
			TimeNS:  r.now().UnixNano(),
			Stage:   stage,
			Message: fmt.Sprint(ctx.Item),
		})
	}
}

func (r *TelemetryRecorder) recordRate(report monitor.RateReport) {
	r.recorder.InsertData(RateTable, RateEntry{
		Session:        r.session,
		TimeNS:         report.Time.UnixNano(),
		Head:           codec.Format(report.Head),
		Prev:           codec.Format(report.Prev),
		ElapsedSeconds: report.Elapsed.Seconds(),
		TicksPerSecond: report.TicksPerSecond,
		Anomaly:        report.Anomaly,
	})
}

func (r *TelemetryRecorder) recordAnomaly(ctx hooking.HookCtx) {
	source := ctx.Pos.Name
	if named, ok := ctx.Domain.(hooking.Named); ok {
		source = named.Name() + ": " + source
	}

	r.recorder.InsertData(AnomalyTable, AnomalyEntry{
		Session: r.session,
		TimeNS:  r.now().UnixNano(),
		Source:  source,
		Message: fmt.Sprint(ctx.Item),
	})
}

func (r *TelemetryRecorder) recordTransition(ctx hooking.HookCtx) {
	t := ctx.Item.(handshake.Transition)

	entry := TransitionEntry{
		Session: r.session,
		TimeNS:  r.now().UnixNano(),
		From:    t.From.String(),
		To:      t.To.String(),
		Status:  t.Status,
	}

	if failing, ok := ctx.Domain.(interface{ Err() error }); ok && t.To == handshake.Failed {
		if err := failing.Err(); err != nil {
			entry.Error = err.Error()
		}
	}

	r.recorder.InsertData(TransitionTable, entry)

	if t.To.Terminal() {
		r.recorder.Flush()
	}
}

// RecentRates flushes pending rows and returns up to limit rate reports of
// this session, newest first.
func (r *TelemetryRecorder) RecentRates(
	ctx context.Context,
	limit int,
) ([]RateEntry, error) {
	if r.reader == nil {
		return nil, ErrNoHistory
	}

	r.recorder.Flush()

	rows, _, err := r.reader.Query(ctx, RateTable, QueryParams{
		Where:   "Session = ?",
		Args:    []any{r.session},
		OrderBy: "TimeNS DESC",
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	rates := make([]RateEntry, 0, len(rows))
	for _, row := range rows {
		rates = append(rates, *row.(*RateEntry))
	}

	return rates, nil
}

// Flush writes buffered rows.
func (r *TelemetryRecorder) Flush() {
	r.recorder.Flush()
}

// Close flushes and closes the recorder and the reader.
func (r *TelemetryRecorder) Close() error {
	err := r.recorder.Close()

	if r.reader != nil {
		if rerr := r.reader.Close(); err == nil {
			err = rerr
		}
	}

	return err
}
