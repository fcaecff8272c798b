package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atlas-systems/floorsense/pkg/sqlgate"
)

// Event timestamps are hour-aligned epoch millis so the hour-bucket math in
// the analytics queries is exact.
var baseTS = int64(1_700_000_000_000) - 1_700_000_000_000%millisPerHour

func hourTS(i int) int64 {
	return baseTS + int64(i)*millisPerHour
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seed loads a small two-and-a-half floor building:
//
//	u1 1.101 meeting room, occupied h0,h1, unoccupied h2
//	u2 1.102 office, occupied h0..h2
//	u3 2.201 quiet room, occupied h1, unoccupied h2
//	u4 2.2C5 coffee corner, no events
//	u5 3.301 storage, no events
func seed(t *testing.T, s *Store) {
	t.Helper()

	spaces := []struct {
		uuid, name, typ, sensor string
		floor                   int
	}{
		{"u1", "1.101 Meeting Room North", "meeting room", "S-101", 1},
		{"u2", "1.102 Office East", "office", "S-102", 1},
		{"u3", "2.201 Quiet Room", "quiet", "S-201", 2},
		{"u4", "2.2C5 Coffee Corner", "refreshment", "S-2C5", 2},
		{"u5", "3.301 Storage", "storage", "S-301", 3},
	}
	for _, sp := range spaces {
		code, floor, ok := parseRoomCode(sp.name)
		if !ok || floor != sp.floor {
			t.Fatalf("parseRoomCode(%q) = %q/%d/%v", sp.name, code, floor, ok)
		}
		_, err := s.db.Exec(`INSERT INTO spaces
			(uuid, room_name, space_type, sensor_name, storey_floor_id, storey_name, code, room_key, room_id, floor_n)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sp.uuid, sp.name, sp.typ, sp.sensor, sp.floor, "", code, roomKey(code), roomID(code), floor)
		if err != nil {
			t.Fatalf("seeding space %s: %v", sp.uuid, err)
		}
	}

	events := []struct {
		space string
		hour  int
		occ   string
	}{
		{"u1", 0, "occupied"},
		{"u1", 1, "occupied"},
		{"u1", 2, "unoccupied"},
		{"u2", 0, "occupied"},
		{"u2", 1, "occupied"},
		{"u2", 2, "occupied"},
		{"u3", 1, "occupied"},
		{"u3", 2, "unoccupied"},
	}
	for _, e := range events {
		_, err := s.db.Exec(`INSERT INTO events (space_id, event_ts, event_time, occupancy, source)
			VALUES (?, ?, ?, ?, 'office')`,
			e.space, hourTS(e.hour), "", e.occ)
		if err != nil {
			t.Fatalf("seeding event: %v", err)
		}
	}
}

func TestListFloors(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.ListFloors()
	if err != nil {
		t.Fatalf("ListFloors: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("got %d floors, want 3: %v", len(table.Rows), table.Rows)
	}
	if f, _ := asInt(table.Rows[0][0]); f != 1 {
		t.Errorf("first floor = %v, want 1", table.Rows[0][0])
	}
}

func TestRoomsOnFloor(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.RoomsOnFloor("2")
	if err != nil {
		t.Fatalf("RoomsOnFloor: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rooms on floor 2, want 2: %v", len(table.Rows), table.Rows)
	}
	if table.Rows[0][0] != "2.201" {
		t.Errorf("first room = %v, want 2.201", table.Rows[0][0])
	}
}

func TestRoomsOnFloor_NamedStorey(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.RoomsOnFloor("Penthouse")
	if err != nil {
		t.Fatalf("RoomsOnFloor: %v", err)
	}
	if !table.Empty() {
		t.Errorf("unknown storey name should yield empty table, got %v", table.Rows)
	}
}

func TestFindRooms(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.FindRooms("quiet")
	if err != nil {
		t.Fatalf("FindRooms: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "2.201" {
		t.Errorf("FindRooms(quiet) = %v, want 2.201", table.Rows)
	}
}

func TestRoomStatus(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.RoomStatus("1.101")
	if err != nil {
		t.Fatalf("RoomStatus: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(table.Rows))
	}
	if table.Rows[0][2] != "unoccupied" {
		t.Errorf("latest occupancy = %v, want unoccupied", table.Rows[0][2])
	}
}

func TestSensorsForRoom(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	for _, ref := range []string{"1.101", "1101", "room 1.101"} {
		table, err := s.SensorsForRoom(ref)
		if err != nil {
			t.Fatalf("SensorsForRoom(%q): %v", ref, err)
		}
		if len(table.Rows) != 1 || table.Rows[0][2] != "S-101" {
			t.Errorf("SensorsForRoom(%q) = %v, want S-101", ref, table.Rows)
		}
	}
}

func TestStatusFloorNow(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.StatusFloorNow("1")
	if err != nil {
		t.Fatalf("StatusFloorNow: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2: %v", len(table.Rows), table.Rows)
	}
	// Latest state wins, not the majority.
	if table.Rows[0][0] != "1.101" || table.Rows[0][2] != "unoccupied" {
		t.Errorf("room 1.101 latest = %v, want unoccupied", table.Rows[0])
	}
	if table.Rows[1][2] != "occupied" {
		t.Errorf("room 1.102 latest = %v, want occupied", table.Rows[1])
	}
}

func TestFreeMeetingRoomsNow(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.FreeMeetingRoomsNow("")
	if err != nil {
		t.Fatalf("FreeMeetingRoomsNow: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "1.101" {
		t.Errorf("free meeting rooms = %v, want just 1.101", table.Rows)
	}

	table, err = s.FreeMeetingRoomsNow("2")
	if err != nil {
		t.Fatalf("FreeMeetingRoomsNow(2): %v", err)
	}
	if !table.Empty() {
		t.Errorf("floor 2 has no meeting rooms, got %v", table.Rows)
	}
}

func TestPeakHoursFloor(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.PeakHoursFloor("1", 1, 5)
	if err != nil {
		t.Fatalf("PeakHoursFloor: %v", err)
	}
	if table.Empty() {
		t.Fatal("expected peak hours, got none")
	}
	if pct, _ := asFloat(table.Rows[0][1]); pct != 100.0 {
		t.Errorf("top hour rate = %v, want 100", table.Rows[0][1])
	}
}

func TestUtilizationByFloor_FillsSilentFloors(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.UtilizationByFloor(1)
	if err != nil {
		t.Fatalf("UtilizationByFloor: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("got %d floors, want 3: %v", len(table.Rows), table.Rows)
	}
	// Floor 3 has a room but no events and must still appear, at zero.
	last := table.Rows[2]
	if f, _ := asInt(last[0]); f != 3 {
		t.Fatalf("last floor = %v, want 3", last[0])
	}
	if pct, _ := asFloat(last[1]); pct != 0.0 {
		t.Errorf("silent floor rate = %v, want 0", last[1])
	}
}

func TestUtilizationFloor(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.UtilizationFloor("1", 1)
	if err != nil {
		t.Fatalf("UtilizationFloor: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(table.Rows))
	}
	if rooms, _ := asInt(table.Rows[0][0]); rooms != 2 {
		t.Errorf("rooms = %v, want 2", table.Rows[0][0])
	}
	// u1: 2 of 3 reported hours occupied, u2: 3 of 3. Average 5/6.
	if pct, _ := asFloat(table.Rows[0][1]); pct != 83.3 {
		t.Errorf("utilization = %v, want 83.3", table.Rows[0][1])
	}
}

func TestBusiestRooms(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.BusiestRooms("", 1, 5)
	if err != nil {
		t.Fatalf("BusiestRooms: %v", err)
	}
	if table.Empty() {
		t.Fatal("expected busiest rooms")
	}
	if table.Rows[0][0] != "1.102" {
		t.Errorf("busiest room = %v, want 1.102", table.Rows[0])
	}
}

func TestUnderusedRooms_SilentRoomsSurface(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.UnderusedRooms("", 1, 0.5)
	if err != nil {
		t.Fatalf("UnderusedRooms: %v", err)
	}

	found := map[string]float64{}
	for _, row := range table.Rows {
		code, _ := row[0].(string)
		pct, _ := asFloat(row[2])
		found[code] = pct
	}
	// Rooms with zero events in the window must show up as 0%, not vanish.
	if pct, ok := found["2.2C5"]; !ok || pct != 0.0 {
		t.Errorf("silent room 2.2C5 = %v/%v, want 0.0", pct, ok)
	}
	if pct, ok := found["3.301"]; !ok || pct != 0.0 {
		t.Errorf("silent room 3.301 = %v/%v, want 0.0", pct, ok)
	}
	// The grid spans 25 hour ticks; 3 occupied hours is 12%, still below 50%.
	if pct, ok := found["1.102"]; !ok || pct != 12.0 {
		t.Errorf("room 1.102 grid rate = %v/%v, want 12.0", pct, ok)
	}
}

func TestUnderusedRooms_ThresholdFilters(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.UnderusedRooms("", 1, 0.05)
	if err != nil {
		t.Fatalf("UnderusedRooms: %v", err)
	}
	for _, row := range table.Rows {
		if pct, _ := asFloat(row[2]); pct >= 5.0 {
			t.Errorf("row above threshold leaked through: %v", row)
		}
	}
}

func TestFacilityFeatures(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	zones, err := s.FacilityFeatures("", 0, 1)
	if err != nil {
		t.Fatalf("FacilityFeatures: %v", err)
	}

	byKey := map[string]FacilityZone{}
	for _, z := range zones {
		byKey[formatZoneKey(z.Floor, z.Zone)] = z
	}

	z10, ok := byKey["1/10"]
	if !ok {
		t.Fatalf("zone 1/10 missing: %v", zones)
	}
	if z10.PeopleHours != 5 {
		t.Errorf("zone 1/10 people-hours = %v, want 5", z10.PeopleHours)
	}
	if z10.RoomsInZone != 2 {
		t.Errorf("zone 1/10 rooms = %d, want 2", z10.RoomsInZone)
	}

	z20, ok := byKey["2/20"]
	if !ok || z20.QuietCount != 1 {
		t.Errorf("zone 2/20 quiet count = %+v, want 1", z20)
	}
	z2c, ok := byKey["2/2C"]
	if !ok || z2c.RefreshSeen != 1 {
		t.Errorf("zone 2/2C refresh count = %+v, want 1", z2c)
	}
}

func formatZoneKey(floor int, zone string) string {
	return string(rune('0'+floor)) + "/" + zone
}

func TestUtilizationOverview(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	// An occupied hour ten days back lands in the 30-day window only.
	_, err := s.db.Exec(`INSERT INTO events (space_id, event_ts, event_time, occupancy, source)
		VALUES ('u3', ?, '', 'occupied', 'office')`, hourTS(2)-10*86_400_000)
	if err != nil {
		t.Fatalf("seeding old event: %v", err)
	}

	table, err := s.UtilizationOverview()
	if err != nil {
		t.Fatalf("UtilizationOverview: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("got %d rows, want 3: %v", len(table.Rows), table.Rows)
	}
	check := func(row []any, floor int, want7, want30 float64) {
		t.Helper()
		if f, _ := asInt(row[0]); f != floor {
			t.Fatalf("floor = %v, want %d", row[0], floor)
		}
		if got, _ := asFloat(row[1]); got != want7 {
			t.Errorf("floor %d 7d rate = %v, want %v", floor, row[1], want7)
		}
		if got, _ := asFloat(row[2]); got != want30 {
			t.Errorf("floor %d 30d rate = %v, want %v", floor, row[2], want30)
		}
	}
	check(table.Rows[0], 1, 83.3, 83.3)
	check(table.Rows[1], 2, 50.0, 66.7)
	// Floor 3 never reported; both windows fill with zero.
	check(table.Rows[2], 3, 0.0, 0.0)
}

func TestDataProfile(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	table, err := s.DataProfile()
	if err != nil {
		t.Fatalf("DataProfile: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(table.Rows))
	}
	if n, _ := asInt(table.Rows[0][0]); n != 5 {
		t.Errorf("spaces = %v, want 5", table.Rows[0][0])
	}
	if n, _ := asInt(table.Rows[0][2]); n != 8 {
		t.Errorf("events = %v, want 8", table.Rows[0][2])
	}
}

func TestParseFuncRejectsBadSyntax(t *testing.T) {
	s := newTestStore(t)

	gate := sqlgate.New(sqlgate.WithParser(s.ParseFunc()))
	if _, err := gate.EnsureSafe("SELECT uuid FROM spaces"); err != nil {
		t.Fatalf("valid statement rejected: %v", err)
	}
	if _, err := gate.EnsureSafe("SELECT uuid FORM spaces"); err == nil {
		t.Error("syntactically broken statement passed the gate")
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()

	spacesCSV := filepath.Join(dir, "spaces.csv")
	writeFile(t, spacesCSV, `uuid,room_name,spaceType,sensor_name,storey_floorId,storey_name
u1,1.101 Meeting Room,meeting room,S-101,1,First
u2,Dynet Controller 7,controller,S-X,1,First
u3,Lobby,common,S-L,0,Ground
u4,2.201 Quiet Room,quiet,S-201,2,Second
`)
	eventsCSV := filepath.Join(dir, "office_events.csv")
	writeFile(t, eventsCSV, `space_id,event_timestamp,event_time,occupancy
u1,1700000000000,2023-11-14 22:13,Occupied
u1,1700003600000,2023-11-14 23:13,Unoccupied
u4,not-a-number,2023-11-14 22:13,Occupied
`)

	s := newTestStore(t)
	stats, err := s.LoadCSV(spacesCSV, eventsCSV)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	// "Dynet Controller 7" and "Lobby" carry no parseable room code.
	if stats.Spaces != 2 || stats.SkippedSpaces != 2 {
		t.Errorf("spaces = %d skipped = %d, want 2/2", stats.Spaces, stats.SkippedSpaces)
	}
	// The malformed timestamp row is dropped.
	if stats.Events != 2 {
		t.Errorf("events = %d, want 2", stats.Events)
	}

	table, err := s.RoomStatus("1.101")
	if err != nil {
		t.Fatalf("RoomStatus: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][2] != "unoccupied" {
		t.Errorf("status after ingest = %v, want unoccupied", table.Rows)
	}
}

func TestParseRoomCode(t *testing.T) {
	tests := []struct {
		in    string
		code  string
		floor int
		ok    bool
	}{
		{"3.201 Meeting Room", "3.201", 3, true},
		{"-1.P05 Parking", "-1.P05", -1, true},
		{"9.T32", "9.T32", 9, true},
		{"Lobby", "", 0, false},
		{"", "", 0, false},
	}
	for _, tt := range tests {
		code, floor, ok := parseRoomCode(tt.in)
		if code != tt.code || floor != tt.floor || ok != tt.ok {
			t.Errorf("parseRoomCode(%q) = %q/%d/%v, want %q/%d/%v",
				tt.in, code, floor, ok, tt.code, tt.floor, tt.ok)
		}
	}
}

func TestRoomKeyAndID(t *testing.T) {
	if got := roomKey("9.t32"); got != "9T32" {
		t.Errorf("roomKey = %q, want 9T32", got)
	}
	if got := roomID("9.T32"); got != "932" {
		t.Errorf("roomID = %q, want 932", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
