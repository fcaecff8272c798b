package intent

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	floorKeywordRe = regexp.MustCompile(`(?:floor|level|storey|verdiep(?:ing)?|etage|الدور|طابق|دور)\s*([+-]?\d+)`)
	loneNumberRe   = regexp.MustCompile(`\b([+-]?\d{1,2})\b`)
	roomCodeRe     = regexp.MustCompile(`\b(\d)\.([0-9a-z]{2,3})\b`)
	windowRe       = regexp.MustCompile(`(?:last|past)\s+(\d+)\s*(day|days|week|weeks|month|months)`)
	nowRe          = regexp.MustCompile(`\b(?:now|right now|currently|this moment)\b`)
	thresholdRe    = regexp.MustCompile(`(?:<|below|under)\s*(\d+)\s*%?`)
	firstIntRe     = regexp.MustCompile(`(-?\d+)`)
)

// ParseFloor extracts a floor number from normalized text.
//
// The explicit form ("floor 3", "level -1", "verdieping 4", "الدور 1") is tried
// first. The fallback grabs a lone one-or-two-digit token; it is deliberately
// permissive and can misfire on unrelated numbers in short queries.
func ParseFloor(qn string) (string, bool) {
	if m := floorKeywordRe.FindStringSubmatch(qn); m != nil {
		return m[1], true
	}
	if m := loneNumberRe.FindStringSubmatch(qn); m != nil {
		return m[1], true
	}
	return "", false
}

// FloorFromRoomCode infers a floor from a room code like "3.201" or "9.t32":
// the leading digit is the floor.
func FloorFromRoomCode(qn string) (string, bool) {
	if m := roomCodeRe.FindStringSubmatch(qn); m != nil {
		return m[1], true
	}
	return "", false
}

// Window is a relative time window extracted from a question. Zero values
// mean "unspecified"; callers apply intent-specific defaults.
type Window struct {
	Days  int
	Hours int
}

// ParseWindow maps relative-time phrasing to an explicit window:
// "now"/"currently" becomes one hour, "last N days/weeks/months" becomes a
// day count (weeks ×7, months ×30), and bare "last week"/"last month" map to
// 7 and 30 days.
func ParseWindow(qn string) Window {
	if nowRe.MatchString(qn) {
		return Window{Hours: 1}
	}
	if m := windowRe.FindStringSubmatch(qn); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			switch {
			case strings.HasPrefix(m[2], "week"):
				return Window{Days: n * 7}
			case strings.HasPrefix(m[2], "month"):
				return Window{Days: n * 30}
			default:
				return Window{Days: n}
			}
		}
	}
	if strings.Contains(qn, "last week") || strings.Contains(qn, "past week") {
		return Window{Days: 7}
	}
	if strings.Contains(qn, "last month") || strings.Contains(qn, "past month") {
		return Window{Days: 30}
	}
	return Window{}
}

// ParseThreshold maps "below/under N%" to a fraction.
func ParseThreshold(qn string) (float64, bool) {
	if m := thresholdRe.FindStringSubmatch(qn); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return float64(n) / 100.0, true
		}
	}
	return 0, false
}

// ParseInt returns the first integer token in the text.
func ParseInt(qn string) (int, bool) {
	if m := firstIntRe.FindStringSubmatch(qn); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	return 0, false
}
