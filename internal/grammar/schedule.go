package grammar

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	dateTimeLayout = "2006-01-02 15:04"
	clockLayout    = "15:04"
)

// parseStrictSchedule handles the canonical "start UTC – end UTC" range. The
// end may be a bare clock time, in which case it inherits the start's date
// and rolls to the next day if it would not otherwise come after the start.
func parseStrictSchedule(startStr, endStr string) (start, end time.Time, minutes int, err error) {
	start, err = parseTimestamp(startStr, time.Time{})
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("invalid start time format: %s", strings.TrimSpace(startStr))
	}

	end, err = parseTimestamp(endStr, start)
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("invalid end time format: %s", strings.TrimSpace(endStr))
	}

	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}

	minutes = int(end.Sub(start).Minutes())
	return start, end, minutes, nil
}

// parseTimestamp reads either "2006-01-02 15:04" or, when a reference date
// is available, a bare "15:04" clock on the reference's day. Always UTC.
func parseTimestamp(value string, reference time.Time) (time.Time, error) {
	cleaned := strings.Join(strings.Fields(value), " ")
	parts := strings.Split(cleaned, " ")

	if len(parts) >= 2 {
		ts, err := time.ParseInLocation(dateTimeLayout, strings.Join(parts[:2], " "), time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return ts, nil
	}

	if reference.IsZero() {
		return time.Time{}, fmt.Errorf("time %q missing date and no reference available", cleaned)
	}
	clock, err := time.Parse(clockLayout, parts[0])
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(reference.Year(), reference.Month(), reference.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}

// parseFlexibleSchedule reads a single embedded Discord rich-timestamp token
// plus a free-text duration hint from the scheduling line.
func parseFlexibleSchedule(body string) (start, end time.Time, minutes int, err error) {
	m := timestampPattern.FindStringSubmatch(body)
	if m == nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("unable to locate Discord timestamp in schedule")
	}

	unix, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("invalid Discord timestamp %q", m[1])
	}

	start = time.Unix(unix, 0).UTC()
	minutes = guessDurationMinutes(body)
	end = start.Add(time.Duration(minutes) * time.Minute)
	return start, end, minutes, nil
}

// guessDurationMinutes reads an hour count or hour range ("3-4 hours",
// averaged) from free text, defaulting to 3h, clamped to the allowed window.
func guessDurationMinutes(text string) int {
	minutes := 3 * 60
	if m := hourRangePattern.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hours := float64(lo)
		if m[2] != "" {
			hi, _ := strconv.Atoi(m[2])
			hours = (float64(lo) + float64(hi)) / 2
		}
		minutes = int(math.Round(hours * 60))
	}

	if minutes < MinDurationMinutes {
		minutes = MinDurationMinutes
	}
	if minutes > MaxDurationMinutes {
		minutes = MaxDurationMinutes
	}
	return minutes
}
