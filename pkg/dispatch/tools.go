package dispatch

import (
	"context"
	"fmt"

	"github.com/atlas-systems/floorsense/pkg/placement"
	"github.com/atlas-systems/floorsense/pkg/store"
)

// Schema building blocks. Floors may arrive as "3", "Ground Floor", or a
// bare number depending on which stage produced the call.
var (
	floorProp = map[string]any{
		"type":        []any{"string", "integer"},
		"description": "floor number or storey name; omit for building-wide",
	}
	roomProp = map[string]any{
		"type":        "string",
		"description": "room code like 3.201, or a digits-only shorthand",
	}
	daysProp = map[string]any{
		"type":        "integer",
		"minimum":     1,
		"description": "lookback window in days, anchored to the newest event",
	}
)

func objSchema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		s["required"] = req
	}
	return s
}

func (d *Dispatcher) registry() []*Tool {
	return []*Tool{
		{
			Name:        "list_floors",
			Description: "List every floor in the building.",
			Schema:      objSchema(map[string]any{}),
			Run: func(_ context.Context, _ Args) (*Result, error) {
				table, err := d.store.ListFloors()
				if err != nil {
					return nil, err
				}
				return &Result{Title: "Floors", Table: table}, nil
			},
		},
		{
			Name:        "rooms_on_floor",
			Description: "List the rooms on one floor.",
			Schema:      objSchema(map[string]any{"floor": floorProp}, "floor"),
			Run: func(_ context.Context, args Args) (*Result, error) {
				floor := args.String("floor", "")
				table, err := d.store.RoomsOnFloor(floor)
				if err != nil {
					return nil, err
				}
				return &Result{Title: fmt.Sprintf("Rooms on floor %s", floor), Table: table}, nil
			},
		},
		{
			Name:        "find_rooms",
			Description: "Find rooms by code fragment or name fragment.",
			Schema: objSchema(map[string]any{
				"query": map[string]any{"type": "string", "description": "code or name fragment"},
			}, "query"),
			Run: func(_ context.Context, args Args) (*Result, error) {
				q := args.String("query", "")
				table, err := d.store.FindRooms(q)
				if err != nil {
					return nil, err
				}
				return &Result{Title: fmt.Sprintf("Rooms matching %q", q), Table: table}, nil
			},
		},
		{
			Name:        "sensors_for_room",
			Description: "List the occupancy sensors attached to a room.",
			Schema:      objSchema(map[string]any{"room": roomProp}, "room"),
			Run: func(_ context.Context, args Args) (*Result, error) {
				room := args.String("room", "")
				table, err := d.store.SensorsForRoom(room)
				if err != nil {
					return nil, err
				}
				return &Result{Title: fmt.Sprintf("Sensors for %s", room), Table: table}, nil
			},
		},
		{
			Name:        "room_status",
			Description: "Latest occupancy state of one room.",
			Schema:      objSchema(map[string]any{"room": roomProp}, "room"),
			Run: func(_ context.Context, args Args) (*Result, error) {
				room := args.String("room", "")
				table, err := d.store.RoomStatus(room)
				if err != nil {
					return nil, err
				}
				return &Result{Title: fmt.Sprintf("Status of %s", room), Table: table}, nil
			},
		},
		{
			Name:        "status_floor_now",
			Description: "Latest occupancy state of every room on a floor.",
			Schema:      objSchema(map[string]any{"floor": floorProp}, "floor"),
			Run: func(_ context.Context, args Args) (*Result, error) {
				floor := args.String("floor", "")
				table, err := d.store.StatusFloorNow(floor)
				if err != nil {
					return nil, err
				}
				return &Result{Title: fmt.Sprintf("Floor %s right now", floor), Table: table}, nil
			},
		},
		{
			Name:        "free_meeting_rooms_now",
			Description: "Meeting rooms whose latest reading is unoccupied, optionally on one floor.",
			Schema:      objSchema(map[string]any{"floor": floorProp}),
			Run: func(_ context.Context, args Args) (*Result, error) {
				table, err := d.store.FreeMeetingRoomsNow(args.String("floor", ""))
				if err != nil {
					return nil, err
				}
				return &Result{Title: "Free meeting rooms", Table: table}, nil
			},
		},
		{
			Name:        "peak_hours_floor",
			Description: "The busiest hours on a floor over a window of days.",
			Schema: objSchema(map[string]any{
				"floor": floorProp,
				"days":  daysProp,
				"limit": map[string]any{"type": "integer", "minimum": 1},
			}, "floor"),
			Run: func(_ context.Context, args Args) (*Result, error) {
				floor := args.String("floor", "")
				table, err := d.store.PeakHoursFloor(floor, args.Int("days", 0), args.Int("limit", 0))
				if err != nil {
					return nil, err
				}
				return &Result{Title: fmt.Sprintf("Peak hours on floor %s", floor), Table: table}, nil
			},
		},
		{
			Name:        "busiest_rooms",
			Description: "Rooms ranked by share of occupied hours, busiest first.",
			Schema: objSchema(map[string]any{
				"floor": floorProp,
				"days":  daysProp,
				"limit": map[string]any{"type": "integer", "minimum": 1},
			}),
			Run: func(_ context.Context, args Args) (*Result, error) {
				table, err := d.store.BusiestRooms(args.String("floor", ""), args.Int("days", 0), args.Int("limit", 0))
				if err != nil {
					return nil, err
				}
				return &Result{Title: "Busiest rooms", Table: table}, nil
			},
		},
		{
			Name:        "underused_rooms",
			Description: "Rooms below an occupancy threshold, including rooms with no events at all.",
			Schema: objSchema(map[string]any{
				"floor": floorProp,
				"days":  daysProp,
				"threshold": map[string]any{
					"type":        "number",
					"minimum":     0,
					"maximum":     1,
					"description": "occupancy share, e.g. 0.15 for 15%",
				},
			}),
			Run: func(_ context.Context, args Args) (*Result, error) {
				table, err := d.store.UnderusedRooms(
					args.String("floor", ""),
					args.Int("days", 0),
					args.Float("threshold", 0))
				if err != nil {
					return nil, err
				}
				return &Result{Title: "Underused rooms", Table: table}, nil
			},
		},
		{
			Name:        "utilization_floor",
			Description: "Average hourly utilization of one floor.",
			Schema:      objSchema(map[string]any{"floor": floorProp, "days": daysProp}, "floor"),
			Run: func(_ context.Context, args Args) (*Result, error) {
				floor := args.String("floor", "")
				table, err := d.store.UtilizationFloor(floor, args.Int("days", 0))
				if err != nil {
					return nil, err
				}
				return &Result{Title: fmt.Sprintf("Utilization of floor %s", floor), Table: table}, nil
			},
		},
		{
			Name:        "utilization_by_floor",
			Description: "Average hourly utilization of every floor, silent floors included at zero.",
			Schema:      objSchema(map[string]any{"days": daysProp}),
			Run: func(_ context.Context, args Args) (*Result, error) {
				table, err := d.store.UtilizationByFloor(args.Int("days", 0))
				if err != nil {
					return nil, err
				}
				return &Result{Title: "Utilization by floor", Table: table}, nil
			},
		},
		{
			Name:        "plan_coffee_machines",
			Description: "Suggest zones for new coffee machines based on recent activity.",
			Schema: objSchema(map[string]any{
				"floor": floorProp,
				"k":     map[string]any{"type": "integer", "minimum": 1, "description": "number of suggestions"},
				"hours": map[string]any{"type": "integer", "minimum": 1, "description": "window in hours; overrides days"},
				"days":  daysProp,
				"avoid_quiet": map[string]any{
					"type":        "boolean",
					"description": "penalize zones dense with quiet rooms",
				},
				"quiet_weight": map[string]any{
					"type":        "number",
					"minimum":     0,
					"maximum":     1,
					"description": "strength of the quiet-zone penalty",
				},
				"downweight_refreshment": map[string]any{
					"type":        "boolean",
					"description": "penalize zones that already have a coffee point",
				},
				"refresh_weight": map[string]any{
					"type":        "number",
					"minimum":     0,
					"maximum":     1,
					"description": "multiplier for zones with an existing coffee point",
				},
			}),
			Run: func(_ context.Context, args Args) (*Result, error) {
				opts := placement.Options{
					Floor:                 args.String("floor", ""),
					K:                     args.Int("k", 0),
					Hours:                 args.Int("hours", 0),
					Days:                  args.Int("days", 0),
					AvoidQuiet:            args.Bool("avoid_quiet", true),
					QuietWeight:           args.Float("quiet_weight", 0),
					DownweightRefreshment: args.Bool("downweight_refreshment", true),
					RefreshWeight:         args.Float("refresh_weight", 0),
				}
				zones, err := d.store.FacilityFeatures(opts.Floor, opts.Hours, opts.Days)
				if err != nil {
					return nil, err
				}
				active := activeZones(zones)
				return &Result{
					Title:       "Coffee machine placement",
					Suggestions: placement.Score(active, opts),
				}, nil
			},
		},
		{
			Name:        "data_profile_summary",
			Description: "Counts and time range of the loaded dataset.",
			Schema:      objSchema(map[string]any{}),
			Run: func(_ context.Context, _ Args) (*Result, error) {
				table, err := d.store.DataProfile()
				if err != nil {
					return nil, err
				}
				return &Result{Title: "Data profile", Table: table}, nil
			},
		},
		{
			Name:        "data_overview",
			Description: "Each floor's 7-day utilization next to its 30-day utilization.",
			Schema:      objSchema(map[string]any{}),
			Run: func(_ context.Context, _ Args) (*Result, error) {
				table, err := d.store.UtilizationOverview()
				if err != nil {
					return nil, err
				}
				return &Result{Title: "Utilization overview", Table: table}, nil
			},
		},
	}
}

// activeZones drops zones with no recorded people-hours so the widening
// retry, not zero-score padding, handles sparse windows.
func activeZones(zones []store.FacilityZone) []store.FacilityZone {
	out := zones[:0:0]
	for _, z := range zones {
		if z.PeopleHours > 0 {
			out = append(out, z)
		}
	}
	return out
}
