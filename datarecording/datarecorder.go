// Package datarecording stores session telemetry into SQLite or ClickHouse
// tables whose columns mirror the fields of flat entry structs.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DefaultBatchSize is the number of buffered entries that triggers a flush.
const DefaultBatchSize = 100000

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns a slice containing names of all tables
	ListTables() []string

	// Flush writes all the buffered entries into the database
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// New creates a new DataRecorder that writes into path.sqlite3. An empty
// path selects a unique name. It panics if the file already exists.
func New(path string) DataRecorder {
	if path == "" {
		path = "radixrunner_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	return NewWithDB(db)
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: DefaultBatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// table buffers the entries of one table until the next flush.
type table struct {
	structType reflect.Type
	entries    []any
}

func (t *table) take() []any {
	entries := t.entries
	t.entries = nil

	return entries
}

// sqliteWriter writes entries into a SQLite database. Hooks from several
// goroutines write into it, so all access is serialized.
type sqliteWriter struct {
	*sql.DB

	mu         sync.Mutex
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// checkStructFields accepts structs whose fields are all exported and of a
// type both backends can store. uint64 is refused because database/sql
// rejects values with the high bit set.
func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("entry of type %T is not a struct", entry)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s of %T is not exported", field.Name, entry)
		}

		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("field %s of %T has unsupported type %s",
				field.Name, entry, field.Type)
		}
	}

	return nil
}

func sqliteType(kind reflect.Kind) string {
	switch kind {
	case reflect.Float32, reflect.Float64:
		return "REAL"
	case reflect.String:
		return "TEXT"
	default:
		return "INTEGER"
	}
}

func createTableSQL(tableName string, sampleEntry any) string {
	t := reflect.TypeOf(sampleEntry)
	names := structs.Names(sampleEntry)

	cols := make([]string, len(names))
	for i, name := range names {
		f, _ := t.FieldByName(name)
		cols[i] = name + " " + sqliteType(f.Type.Kind())
	}

	return "CREATE TABLE " + tableName + " (\n\t" +
		strings.Join(cols, ",\n\t") + "\n);"
}

func insertSQL(tableName string, numFields int) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", numFields), ", ")

	return "INSERT INTO " + tableName + " VALUES (" + marks + ")"
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.mustExecute(createTableSQL(tableName, sampleEntry))

	t.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, exists := t.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != tbl.structType {
		panic(fmt.Sprintf("table %s stores %s, not %T",
			tableName, tbl.structType, entry))
	}

	tbl.entries = append(tbl.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		t.flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.tables))
	for name := range t.tables {
		names = append(names, name)
	}

	return names
}

func (t *sqliteWriter) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.flush()
}

func (t *sqliteWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.flush()
	t.closed = true

	return t.DB.Close()
}

// flush writes every buffered entry in one transaction.
func (t *sqliteWriter) flush() {
	if t.entryCount == 0 || t.closed {
		return
	}

	t.mustExecute("BEGIN TRANSACTION")
	defer t.mustExecute("COMMIT TRANSACTION")

	for name, tbl := range t.tables {
		if len(tbl.entries) == 0 {
			continue
		}

		t.insertAll(name, tbl.structType.NumField(), tbl.take())
	}

	t.entryCount = 0
}

func (t *sqliteWriter) insertAll(tableName string, numFields int, entries []any) {
	stmt, err := t.Prepare(insertSQL(tableName, numFields))
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(fieldValues(entry)...); err != nil {
			panic(err)
		}
	}
}

func fieldValues(entry any) []any {
	v := reflect.ValueOf(entry)

	values := make([]any, v.NumField())
	for i := range values {
		values[i] = v.Field(i).Interface()
	}

	return values
}

func (t *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
