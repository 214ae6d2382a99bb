package tracing

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVTraceWriter stores spans into a CSV file.
type CSVTraceWriter struct {
	path string
	file *os.File
	csv  *csv.Writer

	lock       sync.Mutex
	spans      []Span
	bufferSize int
	closeOnce  sync.Once
	closeErr   error
}

// NewCSVTraceWriter creates a writer for path.csv. With an empty path a
// unique name is picked when Init is called.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Path returns the file name the spans are written to.
func (t *CSVTraceWriter) Path() string {
	return t.path + ".csv"
}

// Init creates the CSV file. It panics if the file already exists.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "radixrunner_trace_" + xid.New().String()
	}

	filename := t.Path()

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}

	t.file = file
	t.csv = csv.NewWriter(file)

	err = t.csv.Write([]string{
		"ID", "Session", "State", "Status", "Start", "End", "DurationNS",
	})
	if err != nil {
		panic(err)
	}

	atexit.Register(func() { _ = t.Close() })
}

// Write buffers a span.
func (t *CSVTraceWriter) Write(span Span) {
	t.lock.Lock()
	t.spans = append(t.spans, span)
	full := len(t.spans) >= t.bufferSize
	t.lock.Unlock()

	if full {
		t.Flush()
	}
}

// Flush writes the buffered spans to the file.
func (t *CSVTraceWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.csv == nil {
		return
	}

	for _, span := range t.spans {
		err := t.csv.Write([]string{
			span.ID,
			span.Session,
			span.State.String(),
			span.Status,
			span.Start.Format(time.RFC3339Nano),
			span.End.Format(time.RFC3339Nano),
			strconv.FormatInt(span.Duration().Nanoseconds(), 10),
		})
		if err != nil {
			panic(err)
		}
	}

	t.spans = nil
	t.csv.Flush()
}

// Close flushes and closes the file. Calling it again has no effect.
func (t *CSVTraceWriter) Close() error {
	t.closeOnce.Do(func() {
		t.Flush()

		if t.file == nil {
			return
		}

		if err := t.csv.Error(); err != nil {
			t.closeErr = err
		}

		if err := t.file.Close(); err != nil && t.closeErr == nil {
			t.closeErr = err
		}
	})

	return t.closeErr
}
