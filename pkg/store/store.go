// Package store is the SQLite-backed storage layer for occupancy sensor
// data. It owns the schema, CSV ingestion, and the named analytic operations
// the routing core calls by name. The routing core never depends on the query
// text in here.
//
// All analytic windows are anchored to the newest event timestamp in the
// dataset, not the wall clock, so a static data drop stays queryable.
package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/atlas-systems/floorsense/pkg/sqlgate"
)

const millisPerHour = 3_600_000

// Store wraps a single shared SQLite handle. The engine serializes statement
// execution per connection; concurrent callers must serialize externally.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and initializes) the database at path. Use ":memory:" for an
// ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps in-memory databases coherent and matches the
	// one-handle resource model.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS spaces (
			uuid            TEXT PRIMARY KEY,
			room_name       TEXT NOT NULL,
			space_type      TEXT NOT NULL DEFAULT '',
			sensor_name     TEXT,
			storey_floor_id INTEGER,
			storey_name     TEXT,
			code            TEXT NOT NULL,
			room_key        TEXT NOT NULL,
			room_id         TEXT NOT NULL,
			floor_n         INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			space_id   TEXT NOT NULL,
			event_ts   INTEGER NOT NULL,
			event_time TEXT,
			occupancy  TEXT NOT NULL,
			source     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_space_ts ON events(space_id, event_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(event_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_floor ON spaces(floor_n)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// ParseFunc returns a sqlgate.ParseFunc that prepares the statement against
// the live connection, syntax-checking it in the exact target dialect.
func (s *Store) ParseFunc() sqlgate.ParseFunc {
	return func(query string) error {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			return err
		}
		return stmt.Close()
	}
}

// Exec runs a statement that returns no rows. Intended for ingestion and
// test seeding, never for gated user SQL.
func (s *Store) Exec(query string, args ...any) error {
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	return nil
}

// Table is an ordered tabular query result. A nil *Table and an empty Table
// are distinct: strict mode refuses on empty, answers plainly on nil.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the table exists but has no rows.
func (t *Table) Empty() bool {
	return t != nil && len(t.Rows) == 0
}

// Query executes an already safety-gated SQL string and returns its rows.
// Callers must run the string through the gate first; this method trusts it.
func (s *Store) Query(query string, args ...any) (*Table, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	table := &Table{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return table, nil
}

// ---- floor and room identity helpers ----

var (
	floorTokenRe = regexp.MustCompile(`^\s*([+-]?\d+)\s*$`)
	roomCodeRe   = regexp.MustCompile(`^([+-]?\d+)\.([A-Za-z0-9]+)`)
	nonAlnumRe   = regexp.MustCompile(`[^A-Za-z0-9]`)
	nonDigitRe   = regexp.MustCompile(`[^0-9]`)
)

// floorWhere builds a WHERE fragment matching a floor given either a numeric
// token ("3", "-1") or a storey name ("Ground Floor").
func floorWhere(floor string) (string, []any) {
	if m := floorTokenRe.FindStringSubmatch(floor); m != nil {
		n, _ := strconv.Atoi(m[1])
		return "COALESCE(s.storey_floor_id, s.floor_n) = ?", []any{n}
	}
	return "LOWER(s.storey_name) = LOWER(?)", []any{strings.TrimSpace(floor)}
}

// parseRoomCode extracts the display code and floor number from a raw room
// label like "3.201 Meeting Room Alpha".
func parseRoomCode(label string) (code string, floor int, ok bool) {
	m := roomCodeRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return "", 0, false
	}
	floor, err := strconv.Atoi(m[1])
	if err != nil {
		return "", 0, false
	}
	return m[0], floor, true
}

// roomKey normalizes a room reference for matching: alphanumerics only,
// uppercased ("3.201" -> "3201", "9.T32" -> "9T32").
func roomKey(text string) string {
	return strings.ToUpper(nonAlnumRe.ReplaceAllString(text, ""))
}

// roomID keeps only the digits ("9.T32" -> "932").
func roomID(text string) string {
	return nonDigitRe.ReplaceAllString(text, "")
}
