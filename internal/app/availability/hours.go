// Package availability decides whether a resource is open from its free-text
// business hours. Parsing is heuristic and fails open: anything it cannot
// interpret counts as open so resources are never hidden by odd formatting.
package availability

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sifan077/ResourceHub/internal/app/model"
)

var alwaysOpenMarkers = []string{"24/7", "24 hours", "all day"}

// timeRange matches "9", "9:30", "9:30am", "9 pm" etc. on both sides of a dash.
const timeRange = `(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*-\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`

const dayName = `(mon|tue|wed|thu|fri|sat|sun)[a-z]*`

var (
	directPatterns = buildDirectPatterns()
	rangePattern   = regexp.MustCompile(`(?i)` + dayName + `\s*(?:-|–|to|through|thru)\s*` + dayName + `[^\d]*` + timeRange)
)

func buildDirectPatterns() map[time.Weekday]*regexp.Regexp {
	out := make(map[time.Weekday]*regexp.Regexp, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		out[d] = regexp.MustCompile(`(?i)` + name + `[^\d]*` + timeRange)
	}
	return out
}

var weekdayPrefixes = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// IsOpenNow reports whether hours describe the resource as open at now. The
// caller chooses the time zone by converting now before the call.
func IsOpenNow(hours string, now time.Time) bool {
	text := strings.ToLower(strings.TrimSpace(hours))
	if text == "" {
		return true
	}

	for _, marker := range alwaysOpenMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}

	start, end, ok := hoursForDay(text, now.Weekday())
	if !ok {
		return true
	}

	clock := now.Hour()*100 + now.Minute()
	return clock >= start && clock <= end
}

// FilterOpen keeps the resources that are open at now, preserving order.
func FilterOpen(resources []model.Resource, now time.Time) []model.Resource {
	out := make([]model.Resource, 0, len(resources))
	for _, r := range resources {
		if IsOpenNow(r.Hours, now) {
			out = append(out, r)
		}
	}
	return out
}

// hoursForDay returns the HHMM bounds that apply to day. A direct mention of the
// day wins over a day range such as "Monday-Friday".
func hoursForDay(text string, day time.Weekday) (int, int, bool) {
	if m := directPatterns[day].FindStringSubmatch(text); m != nil {
		return bounds(m[1:7])
	}

	for _, m := range rangePattern.FindAllStringSubmatch(text, -1) {
		from, okFrom := weekdayPrefixes[strings.ToLower(m[1])]
		to, okTo := weekdayPrefixes[strings.ToLower(m[2])]
		if !okFrom || !okTo || !withinDays(day, from, to) {
			continue
		}
		return bounds(m[3:9])
	}

	return 0, 0, false
}

// withinDays handles ranges that wrap the week, e.g. "Friday-Monday".
func withinDays(day, from, to time.Weekday) bool {
	if from <= to {
		return day >= from && day <= to
	}
	return day >= from || day <= to
}

// bounds converts {startHour, startMin, startMarker, endHour, endMin, endMarker}.
func bounds(groups []string) (int, int, bool) {
	start, ok := toHHMM(groups[0], groups[1], groups[2])
	if !ok {
		return 0, 0, false
	}
	end, ok := toHHMM(groups[3], groups[4], groups[5])
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// toHHMM applies 12-hour conversion only when a marker is present; "9-5"
// stays 900-500.
func toHHMM(hour, minute, marker string) (int, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return 0, false
	}
	m := 0
	if minute != "" {
		if m, err = strconv.Atoi(minute); err != nil {
			return 0, false
		}
	}

	value := h*100 + m
	switch strings.ToLower(marker) {
	case "pm":
		if h != 12 {
			value += 1200
		}
	case "am":
		if h == 12 {
			value -= 1200
		}
	}
	return value, true
}
