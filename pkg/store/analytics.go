package store

import (
	"fmt"
)

// Defaults for analytic windows when the caller passes zero values.
const (
	DefaultWindowDays    = 7
	DefaultUnderusedDays = 30
	DefaultThreshold     = 0.10
	DefaultBusiestLimit  = 5
	DefaultPeakLimit     = 5
)

// ListFloors returns the distinct floors known to the dataset.
func (s *Store) ListFloors() (*Table, error) {
	return s.Query(`
		SELECT DISTINCT COALESCE(s.storey_floor_id, s.floor_n) AS floor,
		       COALESCE(s.storey_name, '') AS storey_name
		FROM spaces s
		ORDER BY floor`)
}

// RoomsOnFloor lists the rooms on one floor by display code.
func (s *Store) RoomsOnFloor(floor string) (*Table, error) {
	where, args := floorWhere(floor)
	return s.Query(fmt.Sprintf(`
		SELECT DISTINCT s.code, s.room_name, s.space_type
		FROM spaces s
		WHERE %s
		ORDER BY s.code`, where), args...)
}

// FindRooms fuzzy-matches rooms by code or name fragment.
func (s *Store) FindRooms(text string) (*Table, error) {
	key := roomKey(text)
	return s.Query(`
		SELECT DISTINCT s.code, s.room_name, COALESCE(s.storey_name, '') AS storey_name
		FROM spaces s
		WHERE (? <> '' AND s.room_key LIKE '%' || ? || '%')
		   OR LOWER(s.room_name) LIKE '%' || LOWER(?) || '%'
		ORDER BY s.code
		LIMIT 20`, key, key, text)
}

// SensorsForRoom lists the sensors attached to a room reference ("3.201",
// "room 9.T32", or a digits-only shorthand).
func (s *Store) SensorsForRoom(room string) (*Table, error) {
	key := roomKey(room)
	id := roomID(room)
	return s.Query(`
		SELECT DISTINCT s.code, s.room_name, s.sensor_name
		FROM spaces s
		WHERE s.sensor_name IS NOT NULL
		  AND (s.room_key = ? OR (? <> '' AND s.room_id = ?))
		ORDER BY s.sensor_name`, key, id, id)
}

// RoomStatus returns the most recent occupancy event for a room reference.
func (s *Store) RoomStatus(room string) (*Table, error) {
	key := roomKey(room)
	id := roomID(room)
	return s.Query(`
		SELECT s.code, s.room_name, e.occupancy, e.event_time
		FROM events e
		JOIN spaces s ON s.uuid = e.space_id
		WHERE s.room_key = ? OR (? <> '' AND s.room_id = ?)
		ORDER BY e.event_ts DESC
		LIMIT 1`, key, id, id)
}

// StatusFloorNow reports the latest known state of every room on a floor.
func (s *Store) StatusFloorNow(floor string) (*Table, error) {
	where, args := floorWhere(floor)
	return s.Query(fmt.Sprintf(`
		SELECT code, room_name, occupancy, event_time
		FROM (
			SELECT s.code, s.room_name, e.occupancy, e.event_time,
			       ROW_NUMBER() OVER (PARTITION BY s.uuid ORDER BY e.event_ts DESC) AS rn
			FROM events e
			JOIN spaces s ON s.uuid = e.space_id
			WHERE %s
		)
		WHERE rn = 1
		ORDER BY code`, where), args...)
}

// FreeMeetingRoomsNow lists meeting rooms whose latest event is unoccupied.
// An empty floor means building-wide.
func (s *Store) FreeMeetingRoomsNow(floor string) (*Table, error) {
	where := "1 = 1"
	var args []any
	if floor != "" {
		where, args = floorWhere(floor)
	}
	return s.Query(fmt.Sprintf(`
		SELECT code, room_name, event_time
		FROM (
			SELECT s.code, s.room_name, e.event_time,
			       LOWER(e.occupancy) AS occupancy,
			       ROW_NUMBER() OVER (PARTITION BY s.uuid ORDER BY e.event_ts DESC) AS rn
			FROM events e
			JOIN spaces s ON s.uuid = e.space_id
			WHERE %s
			  AND (LOWER(s.space_type) LIKE '%%meeting%%' OR LOWER(s.room_name) LIKE '%%meeting%%')
		)
		WHERE rn = 1 AND occupancy = 'unoccupied'
		ORDER BY code`, where), args...)
}

// PeakHoursFloor ranks the busiest hour buckets on a floor over a window of
// days (anchored to the newest event).
func (s *Store) PeakHoursFloor(floor string, days, limit int) (*Table, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if limit <= 0 {
		limit = DefaultPeakLimit
	}
	where, args := floorWhere(floor)
	args = append(args, days, limit)
	return s.Query(fmt.Sprintf(`
		SELECT datetime((e.event_ts / %d) * 3600, 'unixepoch') AS hour,
		       ROUND(AVG(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1.0 ELSE 0.0 END) * 100.0, 1) AS occ_rate_percent
		FROM events e
		JOIN spaces s ON s.uuid = e.space_id
		WHERE %s
		  AND e.event_ts >= (SELECT MAX(event_ts) FROM events) - ? * 86400000
		GROUP BY e.event_ts / %d
		ORDER BY occ_rate_percent DESC, hour
		LIMIT ?`, millisPerHour, where, millisPerHour), args...)
}

// UtilizationFloor summarizes one floor: room count and the share of
// room-hours with at least one occupied reading.
func (s *Store) UtilizationFloor(floor string, days int) (*Table, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	where, args := floorWhere(floor)
	args = append(args, days)
	return s.Query(fmt.Sprintf(`
		WITH windowed AS (
			SELECT s.uuid, e.event_ts / %d AS hour_bucket, e.occupancy
			FROM events e
			JOIN spaces s ON s.uuid = e.space_id
			WHERE %s
			  AND e.event_ts >= (SELECT MAX(event_ts) FROM events) - ? * 86400000
		),
		hourly AS (
			SELECT uuid, hour_bucket,
			       MAX(CASE WHEN LOWER(occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM windowed
			GROUP BY uuid, hour_bucket
		)
		SELECT COUNT(DISTINCT uuid) AS rooms,
		       COALESCE(ROUND(AVG(occ) * 100.0, 1), 0.0) AS avg_utilization_percent
		FROM hourly`, millisPerHour, where), args...)
}

// UtilizationByFloor compares average hourly utilization across all floors.
// Floors with no events in the window report 0.
func (s *Store) UtilizationByFloor(days int) (*Table, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	return s.Query(fmt.Sprintf(`
		WITH floors AS (
			SELECT DISTINCT COALESCE(storey_floor_id, floor_n) AS floor FROM spaces
		),
		windowed AS (
			SELECT COALESCE(s.storey_floor_id, s.floor_n) AS floor,
			       s.uuid,
			       e.event_ts / %d AS hour_bucket,
			       e.occupancy
			FROM events e
			JOIN spaces s ON s.uuid = e.space_id
			WHERE e.event_ts >= (SELECT MAX(event_ts) FROM events) - ? * 86400000
		),
		hourly AS (
			SELECT floor, uuid, hour_bucket,
			       MAX(CASE WHEN LOWER(occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM windowed
			GROUP BY floor, uuid, hour_bucket
		),
		stats AS (
			SELECT floor, ROUND(AVG(occ) * 100.0, 1) AS occ_rate_percent
			FROM hourly
			GROUP BY floor
		)
		SELECT f.floor, COALESCE(st.occ_rate_percent, 0.0) AS occ_rate_percent
		FROM floors f
		LEFT JOIN stats st ON st.floor = f.floor
		ORDER BY f.floor`, millisPerHour), days)
}

// UtilizationOverview compares each floor's utilization over the last 7 days
// against the last 30, both anchored to the newest event. Floors with no
// events in a window report 0.
func (s *Store) UtilizationOverview() (*Table, error) {
	return s.Query(fmt.Sprintf(`
		WITH floors AS (
			SELECT DISTINCT COALESCE(storey_floor_id, floor_n) AS floor FROM spaces
		),
		anchor AS (
			SELECT MAX(event_ts) AS ts FROM events
		),
		hourly AS (
			SELECT COALESCE(s.storey_floor_id, s.floor_n) AS floor,
			       s.uuid,
			       e.event_ts / %d AS hour_bucket,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN spaces s ON s.uuid = e.space_id
			WHERE e.event_ts >= (SELECT ts FROM anchor) - 30 * 86400000
			GROUP BY floor, s.uuid, hour_bucket
		),
		stats AS (
			SELECT floor,
			       ROUND(AVG(CASE WHEN hour_bucket >= ((SELECT ts FROM anchor) - 7 * 86400000) / %d
			                      THEN occ END) * 100.0, 1) AS occ_7d,
			       ROUND(AVG(occ) * 100.0, 1) AS occ_30d
			FROM hourly
			GROUP BY floor
		)
		SELECT f.floor,
		       COALESCE(st.occ_7d, 0.0) AS occ_rate_7d_percent,
		       COALESCE(st.occ_30d, 0.0) AS occ_rate_30d_percent
		FROM floors f
		LEFT JOIN stats st ON st.floor = f.floor
		ORDER BY f.floor`, millisPerHour, millisPerHour))
}

// BusiestRooms ranks rooms by share of occupied hours within the window. An
// empty floor means building-wide.
func (s *Store) BusiestRooms(floor string, days, limit int) (*Table, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if limit <= 0 {
		limit = DefaultBusiestLimit
	}
	where := "1 = 1"
	var args []any
	if floor != "" {
		where, args = floorWhere(floor)
	}
	args = append(args, days, limit)
	return s.Query(fmt.Sprintf(`
		WITH hourly AS (
			SELECT s.code, s.room_name, e.event_ts / %d AS hour_bucket,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN spaces s ON s.uuid = e.space_id
			WHERE %s
			  AND e.event_ts >= (SELECT MAX(event_ts) FROM events) - ? * 86400000
			GROUP BY s.code, s.room_name, hour_bucket
		)
		SELECT code, room_name, ROUND(AVG(occ) * 100.0, 1) AS occ_rate_percent
		FROM hourly
		GROUP BY code, room_name
		ORDER BY occ_rate_percent DESC, code
		LIMIT ?`, millisPerHour, where), args...)
}

// UnderusedRooms lists rooms whose occupied share over a full hour grid falls
// below threshold. Rooms that never reported an event in the window count as
// 0% rather than disappearing, so a silent sensor surfaces instead of hiding.
func (s *Store) UnderusedRooms(floor string, days int, threshold float64) (*Table, error) {
	if days <= 0 {
		days = DefaultUnderusedDays
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	table, err := s.roomOccRateGrid(floor, days)
	if err != nil {
		return nil, err
	}
	filtered := &Table{Columns: table.Columns, Rows: [][]any{}}
	for _, row := range table.Rows {
		if pct, ok := asFloat(row[2]); ok && pct < threshold*100.0 {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	// Ascending: the most underused first.
	reverseRows(filtered.Rows)
	return filtered, nil
}

// AllRoomsOccRate returns the per-room occupied share over a full hour grid,
// busiest first. Used by data profiles and diagnostics.
func (s *Store) AllRoomsOccRate(floor string, days int) (*Table, error) {
	if days <= 0 {
		days = DefaultUnderusedDays
	}
	return s.roomOccRateGrid(floor, days)
}

// roomOccRateGrid computes per-room occupancy over a dense hour grid spanning
// the window. A recursive CTE enumerates every hour so rooms with no events
// average against the full grid, not just the hours they reported.
func (s *Store) roomOccRateGrid(floor string, days int) (*Table, error) {
	where := "1 = 1"
	var args []any
	if floor != "" {
		where, args = floorWhere(floor)
	}
	args = append([]any{days}, args...)
	return s.Query(fmt.Sprintf(`
		WITH RECURSIVE win AS (
			SELECT MAX(event_ts) / %d AS end_h,
			       (MAX(event_ts) - ? * 86400000) / %d AS start_h
			FROM events
		),
		rooms AS (
			SELECT s.uuid, s.code, s.room_name
			FROM spaces s
			WHERE %s
		),
		ticks(h) AS (
			SELECT start_h FROM win WHERE start_h IS NOT NULL
			UNION ALL
			SELECT h + 1 FROM ticks WHERE h < (SELECT end_h FROM win)
		),
		hourly AS (
			SELECT e.space_id AS uuid, e.event_ts / %d AS h,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN rooms r ON r.uuid = e.space_id
			WHERE e.event_ts / %d BETWEEN (SELECT start_h FROM win) AND (SELECT end_h FROM win)
			GROUP BY e.space_id, h
		)
		SELECT r.code, r.room_name,
		       ROUND(AVG(COALESCE(ho.occ, 0)) * 100.0, 1) AS occ_rate_percent
		FROM rooms r
		CROSS JOIN ticks t
		LEFT JOIN hourly ho ON ho.uuid = r.uuid AND ho.h = t.h
		GROUP BY r.code, r.room_name
		ORDER BY occ_rate_percent DESC, r.code`,
		millisPerHour, millisPerHour, where, millisPerHour, millisPerHour), args...)
}

// FacilityZone is one two-character zone's activity profile, the input to
// placement scoring.
type FacilityZone struct {
	Floor       int
	Zone        string
	PeopleHours float64
	RoomsInZone int
	QuietCount  int
	RefreshSeen int
	SampleRooms string
}

// FacilityFeatures aggregates occupied hours per floor/zone. The zone is the
// first two characters of the code after the dot, a proxy for physical
// proximity in the numbering scheme. hours limits the window to the last N
// hours when positive, otherwise days applies.
func (s *Store) FacilityFeatures(floor string, hours, days int) ([]FacilityZone, error) {
	if days <= 0 {
		days = 14
	}
	windowMillis := int64(days) * 24 * millisPerHour
	if hours > 0 {
		windowMillis = int64(hours) * millisPerHour
	}

	where := "1 = 1"
	var args []any
	if floor != "" {
		where, args = floorWhere(floor)
	}
	args = append([]any{windowMillis}, args...)

	table, err := s.Query(fmt.Sprintf(`
		WITH win AS (
			SELECT MAX(event_ts) AS end_ts, MAX(event_ts) - ? AS start_ts FROM events
		),
		rooms AS (
			SELECT s.uuid, s.room_name, s.space_type,
			       COALESCE(s.storey_floor_id, s.floor_n) AS floor,
			       UPPER(SUBSTR(s.code, INSTR(s.code, '.') + 1, 2)) AS zone
			FROM spaces s
			WHERE %s AND INSTR(s.code, '.') > 0
		),
		hourly AS (
			SELECT r.uuid, e.event_ts / %d AS h,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN rooms r ON r.uuid = e.space_id
			WHERE e.event_ts BETWEEN (SELECT start_ts FROM win) AND (SELECT end_ts FROM win)
			GROUP BY r.uuid, h
		)
		SELECT r.floor, r.zone,
		       COALESCE(SUM(ho.occ), 0) AS people_hours,
		       COUNT(DISTINCT r.uuid) AS rooms_in_zone,
		       COUNT(DISTINCT CASE
		           WHEN LOWER(r.room_name) LIKE '%%quiet%%'
		             OR LOWER(r.room_name) LIKE '%%focus%%'
		             OR LOWER(r.room_name) LIKE '%%library%%'
		             OR LOWER(r.space_type) LIKE '%%quiet%%'
		           THEN r.uuid END) AS quiet_count,
		       COUNT(DISTINCT CASE
		           WHEN LOWER(r.room_name) LIKE '%%coffee%%'
		             OR LOWER(r.room_name) LIKE '%%pantry%%'
		             OR LOWER(r.room_name) LIKE '%%kitchen%%'
		             OR LOWER(r.space_type) LIKE '%%refresh%%'
		           THEN r.uuid END) AS refresh_seen,
		       GROUP_CONCAT(DISTINCT r.room_name) AS sample_rooms
		FROM rooms r
		LEFT JOIN hourly ho ON ho.uuid = r.uuid
		GROUP BY r.floor, r.zone
		ORDER BY r.floor, r.zone`, where, millisPerHour), args...)
	if err != nil {
		return nil, err
	}

	zones := make([]FacilityZone, 0, len(table.Rows))
	for _, row := range table.Rows {
		z := FacilityZone{}
		if n, ok := asInt(row[0]); ok {
			z.Floor = n
		}
		z.Zone, _ = row[1].(string)
		if f, ok := asFloat(row[2]); ok {
			z.PeopleHours = f
		}
		if n, ok := asInt(row[3]); ok {
			z.RoomsInZone = n
		}
		if n, ok := asInt(row[4]); ok {
			z.QuietCount = n
		}
		if n, ok := asInt(row[5]); ok {
			z.RefreshSeen = n
		}
		z.SampleRooms, _ = row[6].(string)
		zones = append(zones, z)
	}
	return zones, nil
}

// DataProfile summarizes what the dataset covers: spaces, events, the time
// range, and per-source counts.
func (s *Store) DataProfile() (*Table, error) {
	return s.Query(`
		SELECT (SELECT COUNT(*) FROM spaces) AS spaces,
		       (SELECT COUNT(DISTINCT floor_n) FROM spaces) AS floors,
		       (SELECT COUNT(*) FROM events) AS events,
		       (SELECT COUNT(*) FROM events WHERE source = 'office') AS office_events,
		       (SELECT COUNT(*) FROM events WHERE source = 'meeting') AS meeting_events,
		       (SELECT MIN(event_time) FROM events) AS first_event,
		       (SELECT MAX(event_time) FROM events) AS last_event`)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func reverseRows(rows [][]any) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
