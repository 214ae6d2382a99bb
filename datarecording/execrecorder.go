package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfo is one property of a run.
type ExecInfo struct {
	Property string
	Value    string
}

const execTableName = "exec_info"

const execTimeLayout = "2006-01-02 15:04:05.000000000"

// ExecRecorder records how the program was run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates the exec_info table in recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(execTableName, ExecInfo{})

	return &ExecRecorder{recorder: recorder}
}

// Start notes the start time, the command line and the working directory.
func (e *ExecRecorder) Start() {
	e.Set("Start Time", time.Now().Format(execTimeLayout))
	e.Set("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		cwd = filepath.Dir(os.Args[0])
	}

	e.Set("Working Directory", cwd)
}

// Set notes an extra property.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes all properties along with the end time.
func (e *ExecRecorder) End() {
	e.Set("End Time", time.Now().Format(execTimeLayout))

	for _, entry := range e.entries {
		e.recorder.InsertData(execTableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
