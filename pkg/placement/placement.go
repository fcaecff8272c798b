// Package placement scores building zones as candidate spots for shared
// amenities such as coffee machines. Scoring is deterministic: activity
// drives the score up, quiet-room density and existing refreshment points
// push it down.
package placement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atlas-systems/floorsense/pkg/store"
)

// Defaults applied when Options fields are zero.
const (
	DefaultK             = 2
	DefaultDays          = 14
	DefaultQuietWeight   = 0.6
	DefaultRefreshWeight = 0.5
)

// Options tunes one placement run.
type Options struct {
	Floor string // empty means building-wide
	K     int    // number of suggestions
	Hours int    // window in hours; overrides Days when positive
	Days  int    // window in days

	AvoidQuiet  bool    // penalize zones dense with quiet rooms
	QuietWeight float64 // penalty strength, 0..1

	DownweightRefreshment bool    // penalize zones that already have a coffee point
	RefreshWeight         float64 // multiplier applied to such zones, 0..1
}

func (o Options) withDefaults() Options {
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.Days <= 0 && o.Hours <= 0 {
		o.Days = DefaultDays
	}
	if o.QuietWeight <= 0 {
		o.QuietWeight = DefaultQuietWeight
	}
	if o.RefreshWeight <= 0 {
		o.RefreshWeight = DefaultRefreshWeight
	}
	return o
}

// Suggestion is one ranked zone.
type Suggestion struct {
	Floor       int     `json:"floor"`
	Zone        string  `json:"zone"`
	Score       float64 `json:"score"`
	PeopleHours float64 `json:"people_hours"`
	RoomsInZone int     `json:"rooms_in_zone"`
	QuietCount  int     `json:"quiet_count"`
	RefreshSeen int     `json:"refresh_seen"`
	SampleRooms string  `json:"sample_rooms"`
	Rationale   string  `json:"rationale"`
}

// Score ranks zones for a new amenity and returns the top K. Zones with no
// recorded activity never rank above active ones but are kept so a small
// building still gets K answers.
func Score(zones []store.FacilityZone, opts Options) []Suggestion {
	opts = opts.withDefaults()

	out := make([]Suggestion, 0, len(zones))
	for _, z := range zones {
		s := Suggestion{
			Floor:       z.Floor,
			Zone:        z.Zone,
			PeopleHours: z.PeopleHours,
			RoomsInZone: z.RoomsInZone,
			QuietCount:  z.QuietCount,
			RefreshSeen: z.RefreshSeen,
			SampleRooms: z.SampleRooms,
		}

		score := z.PeopleHours
		var notes []string
		if opts.AvoidQuiet && z.RoomsInZone > 0 && z.QuietCount > 0 {
			quietShare := float64(z.QuietCount) / float64(z.RoomsInZone)
			score *= 1 - opts.QuietWeight*quietShare
			notes = append(notes, fmt.Sprintf("%d quiet room(s) nearby", z.QuietCount))
		}
		if opts.DownweightRefreshment && z.RefreshSeen > 0 {
			score *= opts.RefreshWeight
			notes = append(notes, "already has a refreshment point")
		}

		s.Score = score
		s.Rationale = rationale(z, notes)
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Floor != out[j].Floor {
			return out[i].Floor < out[j].Floor
		}
		return out[i].Zone < out[j].Zone
	})

	if len(out) > opts.K {
		out = out[:opts.K]
	}
	return out
}

func rationale(z store.FacilityZone, notes []string) string {
	base := fmt.Sprintf("%.0f people-hours across %d room(s)", z.PeopleHours, z.RoomsInZone)
	if len(notes) == 0 {
		return base
	}
	return base + "; " + strings.Join(notes, "; ")
}
