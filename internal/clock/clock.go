// Package clock converts between the minutes-since-epoch timestamps stored
// in data.log entries (spec.md §3) and the "YYYY-MM-DD HH:MM" strings used
// in briefings (spec.md §6). Local-timezone acquisition and display nuance
// is an external-collaborator concern per spec.md §1 ("local-time
// formatting" is explicitly out of scope); this package does the one thing
// the core genuinely needs — a deterministic, UTC-based calendar
// conversion — using [time], not a hand-rolled civil-calendar algorithm.
package clock

import "time"

// NowMinutes returns the current time as minutes since the Unix epoch,
// truncated to fit the entry header's signed 32-bit field (spec.md §3).
func NowMinutes() int32 {
	return int32(time.Now().Unix() / 60) //nolint:gosec // wraps in year ~6053
}

// MinutesToDate formats minutes-since-epoch as "YYYY-MM-DD HH:MM" in UTC.
func MinutesToDate(minutes int32) string {
	t := time.Unix(int64(minutes)*60, 0).UTC()

	return t.Format("2006-01-02 15:04")
}

// ParseDate parses a "YYYY-MM-DD" or "YYYY-MM-DD HH:MM" string (as found in
// a legacy markdown "## DATE" section header) into minutes-since-epoch. ok
// is false for anything that doesn't match either layout.
func ParseDate(s string) (minutes int32, ok bool) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return int32(t.Unix() / 60), true //nolint:gosec // wraps in year ~6053
		}
	}

	return 0, false
}

// DaysSinceEpoch floors minutes to whole days since the epoch (spec.md §6:
// "Day bucketing uses floor(minutes / 1440)").
func DaysSinceEpoch(minutes int32) int64 {
	return int64(minutes) / 1440
}

// NowDays returns the current day bucket (floor(now_minutes/1440)).
func NowDays() int64 {
	return DaysSinceEpoch(NowMinutes())
}
