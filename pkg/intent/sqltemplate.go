package intent

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/atlas-systems/floorsense/pkg/decision"
	"github.com/atlas-systems/floorsense/pkg/sqlgate"
)

var compareFloorsRe = regexp.MustCompile(`compare\s+floors?\s+([+-]?\d+)\s+(?:and|&)\s+([+-]?\d+)`)

const compareFloorsSQL = `WITH max_ts AS (SELECT MAX(event_ts) AS ts FROM events),
windowed AS (
    SELECT s.floor_n AS floor,
           e.event_ts / 3600000 AS hour_bucket,
           e.occupancy
    FROM events e
    JOIN spaces s ON e.space_id = s.uuid
    WHERE e.event_ts >= (SELECT ts FROM max_ts) - %d * 86400000
),
hourly AS (
    SELECT floor, hour_bucket,
           MAX(CASE WHEN LOWER(occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
    FROM windowed
    GROUP BY floor, hour_bucket
)
SELECT floor, ROUND(AVG(occ) * 100.0, 1) AS occ_rate_percent
FROM hourly
WHERE floor IN (%d, %d)
GROUP BY floor
ORDER BY floor`

// SQLTemplates recognizes question shapes that are naturally expressed as
// ad-hoc SQL rather than a fixed tool. Every emitted statement passes the
// safety gate before it leaves this package.
type SQLTemplates struct {
	gate *sqlgate.Gate
}

// NewSQLTemplates creates the template matcher backed by the given gate.
func NewSQLTemplates(gate *sqlgate.Gate) *SQLTemplates {
	return &SQLTemplates{gate: gate}
}

// Match returns a gated SQL decision for a recognized shape, or nil.
// Currently recognized: "compare floors X and Y [over/last N days]".
func (t *SQLTemplates) Match(question string) *decision.Decision {
	qn := Normalize(question)

	m := compareFloorsRe.FindStringSubmatch(qn)
	if m == nil {
		return nil
	}
	f1, err1 := strconv.Atoi(m[1])
	f2, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return nil
	}
	days := ParseWindow(qn).Days
	if days == 0 {
		days = DefaultUtilizationDays
	}

	sql := fmt.Sprintf(compareFloorsSQL, days, f1, f2)
	safe, err := t.gate.EnsureSafe(sql)
	if err != nil {
		// Template bug, not user error; decline so later stages can try.
		return nil
	}
	d := decision.SQLQuery(safe, fmt.Sprintf("fast_sql: compare floors %d vs %d days=%d", f1, f2, days))
	return &d
}
