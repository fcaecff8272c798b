// Package intent recognizes common question shapes deterministically so that
// most turns never touch a language model. Matching is literal keyword sets
// over normalized text (EN/NL/AR) with small numeric extractors on top.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/atlas-systems/floorsense/pkg/decision"
)

// Default argument values applied when the question leaves a numeric
// parameter unspecified.
const (
	DefaultUtilizationDays = 7
	DefaultUnderusedDays   = 30
	DefaultCoffeeDays      = 14
	DefaultThreshold       = 0.10
	DefaultBusiestLimit    = 5
	DefaultCoffeeK         = 2
	DefaultQuietWeight     = 0.6
	DefaultRefreshWeight   = 0.5
)

var utilizationFloorRe = regexp.MustCompile(`\b(utilization|bezetting|benutting)\b.*\b(floor|level|storey|verdiep|etage)\b`)

// matcher pairs an intent name with its predicate-plus-builder. Matchers are
// evaluated strictly in list order; the first one that fires wins. Keep the
// ordering explicit; reordering silently changes routing.
type matcher struct {
	name  string
	match func(qn string) *decision.Decision
}

// Classifier runs the ordered matcher battery over a question.
type Classifier struct {
	matchers []matcher
}

// NewClassifier builds the classifier with the standard priority list:
// list-floors, rooms-on-floor, free-meeting-rooms, utilization-by-floor,
// utilization-of-floor, busiest-rooms, underused-rooms, coffee-placement.
func NewClassifier() *Classifier {
	return &Classifier{matchers: []matcher{
		{"list_floors", matchListFloors},
		{"rooms_on_floor", matchRoomsOnFloor},
		{"free_meeting_rooms_now", matchFreeMeetingRooms},
		{"utilization_by_floor", matchUtilizationByFloor},
		{"utilization_floor", matchUtilizationFloor},
		{"busiest_rooms", matchBusiestRooms},
		{"underused_rooms", matchUnderusedRooms},
		{"plan_coffee_machines", matchCoffeePlacement},
	}}
}

// Classify returns a fully populated decision for a recognized question, or
// nil when nothing matches. It never fails on malformed input.
func (c *Classifier) Classify(question string) *decision.Decision {
	qn := Normalize(question)
	if qn == "" {
		return nil
	}
	for _, m := range c.matchers {
		if d := m.match(qn); d != nil {
			return d
		}
	}
	return nil
}

func matchListFloors(qn string) *decision.Decision {
	if _, ok := shortFloorAsks[qn]; ok {
		d := decision.Tool("list_floors", nil, "fast_intent: list_floors (short ask)")
		return &d
	}
	if containsAny(qn, listVerbs) && containsAny(qn, floorWords) {
		d := decision.Tool("list_floors", nil, "fast_intent: list_floors")
		return &d
	}
	return nil
}

func matchRoomsOnFloor(qn string) *decision.Decision {
	if !containsAny(qn, roomWords) {
		return nil
	}
	// "free meeting rooms now on floor 2" names a floor and rooms but belongs
	// to the free-meeting-rooms matcher further down the list.
	if containsAny(qn, freeWords) && containsAny(qn, meetingRoomWords) && containsAny(qn, nowWords) {
		return nil
	}
	// Ranking and utilization questions name rooms and a floor as well; those
	// belong to matchers further down the list.
	if asksBusiest(qn) || asksUnderused(qn) || asksUtilization(qn) {
		return nil
	}
	if m := floorKeywordRe.FindStringSubmatch(qn); m != nil {
		d := decision.Tool("rooms_on_floor", map[string]any{"floor": m[1]},
			fmt.Sprintf("fast_intent: rooms_on_floor floor=%s", m[1]))
		return &d
	}
	if fl, ok := FloorFromRoomCode(qn); ok {
		d := decision.Tool("rooms_on_floor", map[string]any{"floor": fl},
			fmt.Sprintf("fast_intent: rooms_on_floor floor=%s (room code)", fl))
		return &d
	}
	return nil
}

func matchFreeMeetingRooms(qn string) *decision.Decision {
	if !containsAny(qn, freeWords) || !containsAny(qn, meetingRoomWords) || !containsAny(qn, nowWords) {
		return nil
	}
	fl, ok := ParseFloor(qn)
	if !ok {
		return nil
	}
	d := decision.Tool("free_meeting_rooms_now", map[string]any{"floor": fl},
		fmt.Sprintf("fast_intent: free_meeting_rooms_now floor=%s", fl))
	return &d
}

func matchUtilizationByFloor(qn string) *decision.Decision {
	if !strings.Contains(qn, "utilization") {
		return nil
	}
	if !strings.Contains(qn, "by floor") && !strings.Contains(qn, "per floor") && !strings.Contains(qn, "per verdieping") {
		return nil
	}
	days := ParseWindow(qn).Days
	if days == 0 {
		days = DefaultUtilizationDays
	}
	d := decision.Tool("utilization_by_floor", map[string]any{"days": days},
		fmt.Sprintf("fast_intent: utilization_by_floor days=%d", days))
	return &d
}

func matchUtilizationFloor(qn string) *decision.Decision {
	if !utilizationFloorRe.MatchString(qn) {
		return nil
	}
	fl, ok := ParseFloor(qn)
	if !ok {
		return nil
	}
	days := ParseWindow(qn).Days
	if days == 0 {
		days = DefaultUtilizationDays
	}
	d := decision.Tool("utilization_floor", map[string]any{"floor": fl, "days": days},
		fmt.Sprintf("fast_intent: utilization_floor floor=%s days=%d", fl, days))
	return &d
}

func asksBusiest(qn string) bool {
	return strings.Contains(qn, "busiest") || strings.Contains(qn, "top rooms") ||
		strings.Contains(qn, "drukste") || strings.Contains(qn, "الاكثر ازدحاما")
}

func asksUnderused(qn string) bool {
	return strings.Contains(qn, "underused") ||
		(strings.Contains(qn, "least") && strings.Contains(qn, "used")) ||
		strings.Contains(qn, "onderbenut") || strings.Contains(qn, "اقل استخداما")
}

func asksUtilization(qn string) bool {
	return strings.Contains(qn, "utilization") || strings.Contains(qn, "bezetting") ||
		strings.Contains(qn, "benutting")
}

func matchBusiestRooms(qn string) *decision.Decision {
	if !asksBusiest(qn) {
		return nil
	}
	days := ParseWindow(qn).Days
	if days == 0 {
		days = DefaultUtilizationDays
	}
	args := map[string]any{"days": days, "limit": DefaultBusiestLimit}
	if fl, ok := ParseFloor(qn); ok {
		args["floor"] = fl
	}
	d := decision.Tool("busiest_rooms", args, fmt.Sprintf("fast_intent: busiest_rooms %v", args))
	return &d
}

func matchUnderusedRooms(qn string) *decision.Decision {
	if !asksUnderused(qn) {
		return nil
	}
	days := ParseWindow(qn).Days
	if days == 0 {
		days = DefaultUnderusedDays
	}
	thr, ok := ParseThreshold(qn)
	if !ok {
		thr = DefaultThreshold
	}
	args := map[string]any{"days": days, "threshold": thr}
	if fl, ok := ParseFloor(qn); ok {
		args["floor"] = fl
	}
	d := decision.Tool("underused_rooms", args, fmt.Sprintf("fast_intent: underused_rooms %v", args))
	return &d
}

func matchCoffeePlacement(qn string) *decision.Decision {
	if !containsAny(qn, coffeeWords) || !containsAny(qn, machineWords) {
		return nil
	}
	win := ParseWindow(qn)
	days := win.Days
	if days == 0 {
		days = DefaultCoffeeDays
	}
	k, ok := ParseInt(qn)
	if !ok {
		k = DefaultCoffeeK
	}
	avoidQuiet := !strings.Contains(qn, "ignore quiet") &&
		!strings.Contains(qn, "dont avoid quiet") &&
		!strings.Contains(qn, "don't avoid quiet") &&
		!strings.Contains(qn, "negeer rustig")
	args := map[string]any{
		"k":                      k,
		"days":                   days,
		"avoid_quiet":            avoidQuiet,
		"quiet_weight":           DefaultQuietWeight,
		"downweight_refreshment": true,
		"refresh_weight":         DefaultRefreshWeight,
	}
	if win.Hours > 0 {
		args["hours"] = win.Hours
	}
	if fl, ok := ParseFloor(qn); ok {
		args["floor"] = fl
	}
	d := decision.Tool("plan_coffee_machines", args, fmt.Sprintf("fast_intent: plan_coffee_machines %v", args))
	return &d
}
