package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadStats summarizes one ingestion run.
type LoadStats struct {
	Spaces        int
	SkippedSpaces int
	Events        int
}

// LoadCSV ingests a spaces export and any number of event exports, replacing
// existing data. Space rows without a parseable room code, and rows whose
// label marks hardware rather than a room (dynet, sensor), are skipped.
func (s *Store) LoadCSV(spacesPath string, eventPaths ...string) (*LoadStats, error) {
	stats := &LoadStats{}

	if _, err := s.db.Exec(`DELETE FROM events`); err != nil {
		return nil, fmt.Errorf("clearing events: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM spaces`); err != nil {
		return nil, fmt.Errorf("clearing spaces: %w", err)
	}

	if err := s.loadSpaces(spacesPath, stats); err != nil {
		return nil, err
	}
	for _, p := range eventPaths {
		if err := s.loadEvents(p, stats); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *Store) loadSpaces(path string, stats *LoadStats) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening spaces file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading spaces header: %w", err)
	}
	col := headerIndex(header)

	uuidIdx, ok := col["uuid"]
	if !ok {
		return fmt.Errorf("spaces file %s: missing uuid column", path)
	}
	nameIdx, ok := col["room_name"]
	if !ok {
		return fmt.Errorf("spaces file %s: missing room_name column", path)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ins, err := tx.Prepare(`INSERT OR REPLACE INTO spaces
		(uuid, room_name, space_type, sensor_name, storey_floor_id, storey_name, code, room_key, room_id, floor_n)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing space insert: %w", err)
	}
	defer ins.Close()

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading spaces row: %w", err)
		}

		name := strings.TrimSpace(field(rec, nameIdx))
		lower := strings.ToLower(name)
		if strings.Contains(lower, "dynet") || strings.Contains(lower, "sensor") {
			stats.SkippedSpaces++
			continue
		}
		code, floor, ok := parseRoomCode(name)
		if !ok {
			stats.SkippedSpaces++
			continue
		}

		var storeyID any
		if n, err := strconv.Atoi(strings.TrimSpace(field(rec, colIdx(col, "storey_floorid")))); err == nil {
			storeyID = n
		}
		storeyName := strings.TrimSpace(field(rec, colIdx(col, "storey_name")))
		spaceType := strings.TrimSpace(field(rec, colIdx(col, "spacetype")))
		sensorName := strings.TrimSpace(field(rec, colIdx(col, "sensor_name")))

		_, err = ins.Exec(
			strings.TrimSpace(field(rec, uuidIdx)),
			name, spaceType, nullIfEmpty(sensorName), storeyID, nullIfEmpty(storeyName),
			code, roomKey(code), roomID(code), floor,
		)
		if err != nil {
			return fmt.Errorf("inserting space %q: %w", name, err)
		}
		stats.Spaces++
	}
	return tx.Commit()
}

func (s *Store) loadEvents(path string, stats *LoadStats) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening events file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading events header: %w", err)
	}
	col := headerIndex(header)

	spaceIdx, ok := col["space_id"]
	if !ok {
		return fmt.Errorf("events file %s: missing space_id column", path)
	}
	tsIdx, ok := col["event_timestamp"]
	if !ok {
		return fmt.Errorf("events file %s: missing event_timestamp column", path)
	}
	occIdx, ok := col["occupancy"]
	if !ok {
		return fmt.Errorf("events file %s: missing occupancy column", path)
	}
	timeIdx := colIdx(col, "event_time")

	source := sourceLabel(path)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ins, err := tx.Prepare(`INSERT INTO events (space_id, event_ts, event_time, occupancy, source) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer ins.Close()

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading events row: %w", err)
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(field(rec, tsIdx)), 10, 64)
		if err != nil {
			continue
		}
		_, err = ins.Exec(
			strings.TrimSpace(field(rec, spaceIdx)),
			ts,
			strings.TrimSpace(field(rec, timeIdx)),
			strings.ToLower(strings.TrimSpace(field(rec, occIdx))),
			source,
		)
		if err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
		stats.Events++
	}
	return tx.Commit()
}

// sourceLabel derives a short tag ("office", "meeting") from an export path.
func sourceLabel(path string) string {
	base := strings.ToLower(path)
	switch {
	case strings.Contains(base, "meeting"):
		return "meeting"
	case strings.Contains(base, "office"):
		return "office"
	default:
		return ""
	}
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// colIdx returns the index for name, or -1 so field() yields "".
func colIdx(col map[string]int, name string) int {
	if i, ok := col[name]; ok {
		return i
	}
	return -1
}

// field returns rec[i] or "" when the row is short or the column is absent.
func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
