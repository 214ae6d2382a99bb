package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// clickHouseRecorder records into a ClickHouse database. Entries are
// buffered per table and sent as one batch per table on flush.
type clickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*table
	entryCount int
	closed     bool
}

// NewClickHouseRecorder connects to the ClickHouse server described by dsn,
// for example clickhouse://localhost:9000/radixrunner?username=default.
func NewClickHouseRecorder(dsn string, batchSize int) (DataRecorder, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse ClickHouse DSN: %w", err)
	}

	opts.DialTimeout = 30 * time.Second
	opts.ConnOpenStrategy = clickhouse.ConnOpenInOrder

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: batchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { r.Flush() })

	return r, nil
}

// clickHouseColumns maps the fields of an entry to a ClickHouse column
// list.
func clickHouseColumns(sampleEntry any) (string, error) {
	if err := checkStructFields(sampleEntry); err != nil {
		return "", err
	}

	t := reflect.TypeOf(sampleEntry)
	cols := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		cols = append(cols, f.Name+" "+clickHouseType(f.Type.Kind()))
	}

	return strings.Join(cols, ",\n\t"), nil
}

func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "Int64"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "UInt64"
	case reflect.Float32, reflect.Float64:
		return "Float64"
	default:
		return "String"
	}
}

// clickHouseValues widens the fields of an entry to the column types.
func clickHouseValues(entry any) []any {
	v := reflect.ValueOf(entry)
	out := make([]any, 0, v.NumField())

	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)

		switch clickHouseType(f.Kind()) {
		case "Bool":
			out = append(out, f.Bool())
		case "Int64":
			out = append(out, f.Int())
		case "UInt64":
			out = append(out, f.Uint())
		case "Float64":
			out = append(out, f.Float())
		default:
			out = append(out, f.String())
		}
	}

	return out
}

func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	cols, err := clickHouseColumns(sampleEntry)
	if err != nil {
		panic(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree() ORDER BY tuple()",
		tableName, cols)

	if err := r.conn.Exec(context.Background(), createSQL); err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
}

func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tbl, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != tbl.structType {
		panic(fmt.Sprintf("table %s stores %s, not %T",
			tableName, tbl.structType, entry))
	}

	tbl.entries = append(tbl.entries, entry)

	r.entryCount++
	if r.entryCount >= r.batchSize {
		r.flush()
	}
}

func (r *clickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, 0, len(r.tables))
	for name := range r.tables {
		tables = append(tables, name)
	}

	return tables
}

func (r *clickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flush()
}

func (r *clickHouseRecorder) flush() {
	if r.entryCount == 0 || r.closed {
		return
	}

	ctx := context.Background()

	for tableName, tbl := range r.tables {
		if len(tbl.entries) == 0 {
			continue
		}

		batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
		if err != nil {
			panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
		}

		for _, entry := range tbl.take() {
			if err := batch.Append(clickHouseValues(entry)...); err != nil {
				panic(fmt.Errorf("failed to append to %s: %w", tableName, err))
			}
		}

		if err := batch.Send(); err != nil {
			panic(fmt.Errorf("failed to send batch: %w", err))
		}
	}

	r.entryCount = 0
}

// Close flushes remaining data and closes the connection
func (r *clickHouseRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.flush()
	r.closed = true

	err := r.conn.Close()
	if err != nil {
		return fmt.Errorf("failed to close ClickHouse connection: %w", err)
	}

	return nil
}
