package pipeline

import (
	"fmt"
	"time"
)

// Mode is a named preset used to bound event queries.
type Mode string

const (
	ModeUpcoming  Mode = "upcoming"
	ModeThisMonth Mode = "this_month"
	ModeThisYear  Mode = "this_year"
	ModeAllTime   Mode = "all_time"
	ModeRange     Mode = "range"
)

// ParseMode converts a user-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeUpcoming, ModeThisMonth, ModeThisYear, ModeAllTime, ModeRange:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown window mode %q", s)
}

// Window is a half-open [Min, Max) query bound in UTC. A zero value on
// either side means that side is unbounded.
type Window struct {
	Min time.Time
	Max time.Time
}

// ResolveWindow turns a window mode and a reference instant into concrete
// UTC bounds. from and to are only consulted for ModeRange, where from is
// expanded to the start of its day and to to the last millisecond of its
// day. Instants are truncated to whole seconds, matching the RFC 3339
// wire format the backends send.
func ResolveWindow(mode Mode, ref time.Time, from, to time.Time) (Window, error) {
	ref = ref.UTC().Truncate(time.Second)

	switch mode {
	case ModeUpcoming:
		return Window{Min: ref}, nil

	case ModeThisMonth:
		min := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Min: min, Max: min.AddDate(0, 1, 0)}, nil

	case ModeThisYear:
		min := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Window{Min: min, Max: min.AddDate(1, 0, 0)}, nil

	case ModeAllTime:
		return Window{}, nil

	case ModeRange:
		if from.IsZero() || to.IsZero() {
			return Window{}, fmt.Errorf("range mode requires both from and to dates")
		}
		f := from.UTC()
		t := to.UTC()
		min := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
		max := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, 1).Add(-time.Millisecond)
		if max.Before(min) {
			return Window{}, fmt.Errorf("range end %s is before range start %s",
				to.Format("2006-01-02"), from.Format("2006-01-02"))
		}
		return Window{Min: min, Max: max}, nil
	}

	return Window{}, fmt.Errorf("unknown window mode %q", mode)
}
