package router

import (
	"context"
	"strings"
	"testing"

	"github.com/atlas-systems/floorsense/pkg/adapter"
	"github.com/atlas-systems/floorsense/pkg/config"
	"github.com/atlas-systems/floorsense/pkg/decision"
	"github.com/atlas-systems/floorsense/pkg/dispatch"
	"github.com/atlas-systems/floorsense/pkg/planner"
	"github.com/atlas-systems/floorsense/pkg/store"
)

const hourMillis = int64(3_600_000)

var baseTS = int64(1_700_000_000_000) - 1_700_000_000_000%hourMillis

func newRouter(t *testing.T, pipeline config.Pipeline, opts ...Option) *Router {
	t.Helper()

	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	spaces := []struct {
		uuid, name, typ string
		floor           int
	}{
		{"u1", "1.101 Meeting Room", "meeting room", 1},
		{"u2", "1.102 Office East", "office", 1},
		{"u3", "2.201 Open Desk", "desk", 2},
	}
	for _, sp := range spaces {
		code := sp.name[:5]
		key := strings.ReplaceAll(code, ".", "")
		if err := s.Exec(`INSERT INTO spaces
			(uuid, room_name, space_type, sensor_name, storey_floor_id, storey_name, code, room_key, room_id, floor_n)
			VALUES (?, ?, ?, ?, ?, '', ?, ?, ?, ?)`,
			sp.uuid, sp.name, sp.typ, "S-"+sp.uuid, sp.floor, code, key, key, sp.floor); err != nil {
			t.Fatalf("seeding space: %v", err)
		}
	}
	events := []struct {
		space string
		hour  int
		occ   string
	}{
		{"u1", 0, "occupied"},
		{"u1", 1, "unoccupied"},
		{"u2", 0, "occupied"},
		{"u2", 1, "occupied"},
		{"u3", 0, "unoccupied"},
		{"u3", 1, "unoccupied"},
	}
	for _, e := range events {
		if err := s.Exec(`INSERT INTO events (space_id, event_ts, event_time, occupancy, source)
			VALUES (?, ?, '', ?, 'office')`,
			e.space, baseTS+int64(e.hour)*hourMillis, e.occ); err != nil {
			t.Fatalf("seeding event: %v", err)
		}
	}

	d, err := dispatch.New(s, nil)
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}
	return New(pipeline, s, d, opts...)
}

func TestInfer_FastIntentWins(t *testing.T) {
	r := newRouter(t, config.DefaultPipeline())

	d, err := r.Infer(context.Background(), "list floors")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if d.Mode != decision.ModeTool || d.Name != "list_floors" {
		t.Errorf("decision = %s/%s, want tool/list_floors", d.Mode, d.Name)
	}
	if !strings.HasPrefix(d.Trace, "fast_intent") {
		t.Errorf("trace = %q, want fast_intent stage", d.Trace)
	}
}

func TestInfer_TemplatedSQL(t *testing.T) {
	r := newRouter(t, config.DefaultPipeline())

	d, err := r.Infer(context.Background(), "compare floors 1 and 2")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if d.Mode != decision.ModeSQL {
		t.Fatalf("mode = %s, want sql", d.Mode)
	}
	if !strings.HasPrefix(d.Trace, "fast_sql") {
		t.Errorf("trace = %q, want fast_sql stage", d.Trace)
	}
}

func TestInfer_Escalation(t *testing.T) {
	r := newRouter(t, config.DefaultPipeline())

	d, err := r.Infer(context.Background(), "why is floor 2 always empty")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if d.Mode != decision.ModeAgent {
		t.Errorf("mode = %s, want agent", d.Mode)
	}
}

func TestInfer_DisabledStagesFallThrough(t *testing.T) {
	pipeline := config.DefaultPipeline()
	pipeline.FastIntents = false
	pipeline.FastSQL = false
	pipeline.LLMRouting = false
	r := newRouter(t, pipeline)

	d, err := r.Infer(context.Background(), "list floors")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if d.Mode != decision.ModeText || d.Text != planner.RefusalText {
		t.Errorf("decision = %+v, want refusal with every stage off", d)
	}
}

func TestInfer_PlannerStage(t *testing.T) {
	mock := adapter.NewMock().EnqueueText(`{"tool": "list_floors", "args": {}}`)
	pipeline := config.DefaultPipeline()
	pipeline.FastIntents = false
	pipeline.FastSQL = false

	r := newRouter(t, pipeline)
	r.AttachPlanner(planner.New(mock, r.Gate()))

	d, err := r.Infer(context.Background(), "enumerate the storeys please")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if d.Mode != decision.ModeTool || d.Name != "list_floors" {
		t.Errorf("decision = %+v, want planner tool pick", d)
	}
}

func TestAnswer_ToolPath(t *testing.T) {
	r := newRouter(t, config.DefaultPipeline())

	ans, err := r.Answer(context.Background(), "rooms on floor 1")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Table == nil || len(ans.Table.Rows) != 2 {
		t.Errorf("rooms table = %+v, want 2 rows", ans.Table)
	}
	if ans.Evidence == nil || ans.Evidence.ID == "" {
		t.Error("tool answer missing evidence")
	}
}

func TestAnswer_CompareFloorsEndToEnd(t *testing.T) {
	r := newRouter(t, config.DefaultPipeline())

	ans, err := r.Answer(context.Background(), "compare floors 1 and 2 last 7 days")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Table == nil || len(ans.Table.Rows) != 2 {
		t.Fatalf("comparison table = %+v, want one row per floor", ans.Table)
	}
	// An hour counts as busy for a floor when any room reported occupied.
	// Floor 1 had someone in both hours; floor 2 never did.
	rate := func(row []any) float64 {
		f, _ := row[1].(float64)
		return f
	}
	if rate(ans.Table.Rows[0]) != 100.0 {
		t.Errorf("floor 1 rate = %v, want 100", ans.Table.Rows[0][1])
	}
	if rate(ans.Table.Rows[1]) != 0.0 {
		t.Errorf("floor 2 rate = %v, want 0", ans.Table.Rows[1][1])
	}
}

func TestAnswer_StrictModeRefusesEmptyTables(t *testing.T) {
	r := newRouter(t, config.DefaultPipeline())

	ans, err := r.Answer(context.Background(), "rooms on floor 9")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Text != StrictRefusal {
		t.Errorf("text = %q, want strict refusal", ans.Text)
	}
}

func TestAnswer_StrictModeRefusesEmptyPlacement(t *testing.T) {
	// A dataset with no events yields no candidate zones even after the
	// dispatcher widens the window; strict mode must refuse, not answer with
	// a bare title.
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	d, err := dispatch.New(s, nil)
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}
	r := New(config.DefaultPipeline(), s, d)

	ans, err := r.Answer(context.Background(), "where should we place coffee machines")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Decision.Name != "plan_coffee_machines" {
		t.Fatalf("decision = %+v, want plan_coffee_machines", ans.Decision)
	}
	if len(ans.Suggestions) != 0 {
		t.Errorf("suggestions = %+v, want none", ans.Suggestions)
	}
	if ans.Text != StrictRefusal {
		t.Errorf("text = %q, want strict refusal", ans.Text)
	}
}

func TestAnswer_LaxModeKeepsEmptyTables(t *testing.T) {
	pipeline := config.DefaultPipeline()
	pipeline.StrictMode = false
	r := newRouter(t, pipeline)

	ans, err := r.Answer(context.Background(), "rooms on floor 9")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Text == StrictRefusal {
		t.Error("lax mode should not refuse on empty tables")
	}
	if ans.Table == nil {
		t.Error("empty table should still be returned")
	}
}

func TestAnswer_AgentSurfacesNote(t *testing.T) {
	r := newRouter(t, config.DefaultPipeline())

	ans, err := r.Answer(context.Background(), "explain the occupancy trend on floor 1")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Decision.Mode != decision.ModeAgent || ans.Text != AgentNote {
		t.Errorf("answer = %+v, want agent note", ans)
	}
}

func TestResolve_UnknownMode(t *testing.T) {
	r := newRouter(t, config.DefaultPipeline())

	if _, err := r.Resolve(context.Background(), &decision.Decision{Mode: "teleport"}); err == nil {
		t.Error("unknown mode should error")
	}
}
