// Package grounding builds and loads the dataset context pack: a compact
// JSON description of the schema, floors, and time range that keeps the
// language-model planner anchored to tables and codes that actually exist.
package grounding

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atlas-systems/floorsense/pkg/store"
)

// Pack is the serialized grounding document.
type Pack struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Schema      []TableDoc `json:"schema"`
	Floors      []FloorDoc `json:"floors"`
	SpaceTypes  []string   `json:"space_types,omitempty"`
	FirstEvent  string     `json:"first_event"`
	LastEvent   string     `json:"last_event"`
	EventCount  int64      `json:"event_count"`
}

// TableDoc documents one queryable table for the planner.
type TableDoc struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Notes   string   `json:"notes,omitempty"`
}

// FloorDoc summarizes one floor.
type FloorDoc struct {
	Floor       int      `json:"floor"`
	StoreyName  string   `json:"storey_name,omitempty"`
	Rooms       int      `json:"rooms"`
	SampleCodes []string `json:"sample_codes,omitempty"`
}

// schemaDocs is static: the planner only ever sees these two tables.
func schemaDocs() []TableDoc {
	return []TableDoc{
		{
			Name:    "spaces",
			Columns: []string{"uuid", "room_name", "space_type", "sensor_name", "storey_floor_id", "storey_name", "code", "room_key", "room_id", "floor_n"},
			Notes:   "one row per room; code is the display code like 3.201, floor_n its leading integer",
		},
		{
			Name:    "events",
			Columns: []string{"space_id", "event_ts", "event_time", "occupancy", "source"},
			Notes:   "event_ts is epoch milliseconds; occupancy is 'occupied' or 'unoccupied'; join space_id to spaces.uuid",
		},
	}
}

// Build derives a fresh pack from the live store.
func Build(s *store.Store) (*Pack, error) {
	pack := &Pack{
		GeneratedAt: time.Now().UTC(),
		Schema:      schemaDocs(),
	}

	floors, err := s.Query(`
		SELECT COALESCE(storey_floor_id, floor_n) AS floor,
		       COALESCE(MAX(storey_name), '') AS storey_name,
		       COUNT(*) AS rooms
		FROM spaces
		GROUP BY floor
		ORDER BY floor`)
	if err != nil {
		return nil, fmt.Errorf("profiling floors: %w", err)
	}
	for _, row := range floors.Rows {
		doc := FloorDoc{}
		if n, ok := toInt(row[0]); ok {
			doc.Floor = n
		}
		doc.StoreyName, _ = row[1].(string)
		if n, ok := toInt(row[2]); ok {
			doc.Rooms = n
		}
		codes, err := s.Query(`
			SELECT code FROM spaces s
			WHERE COALESCE(s.storey_floor_id, s.floor_n) = ?
			ORDER BY code LIMIT 5`, doc.Floor)
		if err != nil {
			return nil, fmt.Errorf("sampling codes: %w", err)
		}
		for _, c := range codes.Rows {
			if code, ok := c[0].(string); ok {
				doc.SampleCodes = append(doc.SampleCodes, code)
			}
		}
		pack.Floors = append(pack.Floors, doc)
	}

	types, err := s.Query(`
		SELECT DISTINCT space_type FROM spaces
		WHERE space_type != '' ORDER BY space_type`)
	if err != nil {
		return nil, fmt.Errorf("profiling space types: %w", err)
	}
	for _, row := range types.Rows {
		if st, ok := row[0].(string); ok {
			pack.SpaceTypes = append(pack.SpaceTypes, st)
		}
	}

	profile, err := s.Query(`
		SELECT COUNT(*), COALESCE(MIN(event_time), ''), COALESCE(MAX(event_time), '')
		FROM events`)
	if err != nil {
		return nil, fmt.Errorf("profiling events: %w", err)
	}
	if len(profile.Rows) == 1 {
		if n, ok := toInt(profile.Rows[0][0]); ok {
			pack.EventCount = int64(n)
		}
		pack.FirstEvent, _ = profile.Rows[0][1].(string)
		pack.LastEvent, _ = profile.Rows[0][2].(string)
	}
	return pack, nil
}

// Load reads a pack from disk.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grounding pack: %w", err)
	}
	pack := &Pack{}
	if err := json.Unmarshal(data, pack); err != nil {
		return nil, fmt.Errorf("parsing grounding pack: %w", err)
	}
	return pack, nil
}

// Save writes the pack as indented JSON.
func (p *Pack) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding grounding pack: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing grounding pack: %w", err)
	}
	return nil
}

// PromptContext renders the pack as plain text for a system prompt.
func (p *Pack) PromptContext() string {
	var b strings.Builder
	b.WriteString("Dataset context:\n")
	for _, t := range p.Schema {
		fmt.Fprintf(&b, "table %s(%s)", t.Name, strings.Join(t.Columns, ", "))
		if t.Notes != "" {
			fmt.Fprintf(&b, " -- %s", t.Notes)
		}
		b.WriteString("\n")
	}
	if len(p.SpaceTypes) > 0 {
		fmt.Fprintf(&b, "space types: %s\n", strings.Join(p.SpaceTypes, ", "))
	}
	for _, f := range p.Floors {
		fmt.Fprintf(&b, "floor %d: %d rooms", f.Floor, f.Rooms)
		if f.StoreyName != "" {
			fmt.Fprintf(&b, " (%s)", f.StoreyName)
		}
		if len(f.SampleCodes) > 0 {
			fmt.Fprintf(&b, ", e.g. %s", strings.Join(f.SampleCodes, " "))
		}
		b.WriteString("\n")
	}
	if p.EventCount > 0 {
		fmt.Fprintf(&b, "%d events from %s to %s\n", p.EventCount, p.FirstEvent, p.LastEvent)
	}
	return b.String()
}

func toInt(v any) (int, bool) {
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
