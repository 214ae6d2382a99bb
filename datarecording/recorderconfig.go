package datarecording

import (
	"fmt"
	"os"
)

// Recorder backends.
const (
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
)

// RecorderConfig selects and configures a DataRecorder backend.
type RecorderConfig struct {
	// Type is BackendSQLite or BackendClickHouse. Empty means SQLite.
	Type string

	// Path is the SQLite database name, without the .sqlite3 suffix.
	Path string

	// ConnStr is the ClickHouse DSN.
	ConnStr string

	BatchSize int
}

// NewDataRecorderWithConfig creates the recorder described by cfg.
func NewDataRecorderWithConfig(cfg RecorderConfig) (DataRecorder, error) {
	switch cfg.Type {
	case "", BackendSQLite:
		if cfg.Path != "" {
			filename := cfg.Path + ".sqlite3"
			if _, err := os.Stat(filename); err == nil {
				return nil, fmt.Errorf("recording file %s already exists", filename)
			}
		}

		r := New(cfg.Path)
		if cfg.BatchSize > 0 {
			r.(*sqliteWriter).batchSize = cfg.BatchSize
		}

		return r, nil
	case BackendClickHouse:
		return NewClickHouseRecorder(cfg.ConnStr, cfg.BatchSize)
	default:
		return nil, fmt.Errorf("unknown recorder type %q", cfg.Type)
	}
}
