package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

// QueryParams selects rows from a mapped table. Where and OrderBy are raw SQL
// fragments without their keywords; Args fill the placeholders of Where. A
// zero Limit returns every row.
type QueryParams struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

func (p QueryParams) whereClause() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) tailClause() string {
	var b strings.Builder

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)

		if p.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", p.Offset)
		}
	}

	return b.String()
}

// DataReader reads rows recorded by a DataRecorder back into entry structs.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode into.
	// A table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables.
	ListTables() []string

	// Query returns pointers to entry structs of the selected rows, and the
	// number of rows matching Where regardless of Limit.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type tableMapping struct {
	entryType reflect.Type
	fieldIdx  map[string]int
}

func newTableMapping(sampleEntry any) tableMapping {
	t := reflect.TypeOf(sampleEntry)
	m := tableMapping{entryType: t, fieldIdx: make(map[string]int)}

	for i := 0; i < t.NumField(); i++ {
		m.fieldIdx[t.Field(i).Name] = i
	}

	return m
}

type sqliteReader struct {
	*sql.DB

	tables map[string]tableMapping
}

// NewReader opens a recording file for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB reads from an already open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:     db,
		tables: make(map[string]tableMapping),
	}
}

// NewReaderFor returns a reader over the database a recorder writes into, or
// nil if the recorder's backend cannot be read back.
func NewReaderFor(recorder DataRecorder) DataReader {
	w, ok := recorder.(*sqliteWriter)
	if !ok {
		return nil
	}

	return NewReaderWithDB(w.DB)
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.tables[tableName] = newTableMapping(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	mapping, ok := r.tables[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	var total int

	countSQL := "SELECT COUNT(*) FROM " + tableName + params.whereClause()
	err := r.QueryRowContext(ctx, countSQL, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	selectSQL := "SELECT * FROM " + tableName +
		params.whereClause() + params.tailClause()

	rows, err := r.QueryContext(ctx, selectSQL, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := mapping.scan(rows)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// scan decodes every row into a new entry. Columns without a matching field
// are read and dropped.
func (m tableMapping) scan(rows *sql.Rows) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(m.entryType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			idx, ok := m.fieldIdx[col]
			if !ok {
				var discard any
				targets[i] = &discard

				continue
			}

			targets[i] = entry.Elem().Field(idx).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}
