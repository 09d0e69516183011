package caldav

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"calview/internal/models"
	"calview/internal/pipeline"
)

const (
	// openEndedHorizon bounds recurrence expansion when the query window
	// has no upper bound.
	openEndedHorizon = 365 * 24 * time.Hour

	// maxOccurrences caps expansion per event so a runaway rule cannot
	// flood the merge set.
	maxOccurrences = 500
)

// expansionRange converts a query window into the concrete range used
// for the CalDAV time-range filter and recurrence expansion. A fully
// unbounded window becomes one horizon on each side of now, so future
// and recent past events are both reachable.
func expansionRange(window pipeline.Window) (time.Time, time.Time) {
	start := window.Min
	end := window.Max
	if start.IsZero() && end.IsZero() {
		now := time.Now().UTC()
		return now.Add(-openEndedHorizon), now.Add(openEndedHorizon)
	}
	if start.IsZero() {
		start = end.Add(-openEndedHorizon)
	}
	if end.IsZero() {
		end = start.Add(openEndedHorizon)
	}
	return start, end
}

// expandRecurring turns a recurring VEVENT into concrete instances
// inside the window, honoring EXDATE. The base event's duration is
// preserved per instance. An unparseable rule degrades to the base
// event so data is never silently dropped.
func expandRecurring(ev models.RawEvent, comp *ical.Component, window pipeline.Window) []models.RawEvent {
	rawRule := textProp(comp, ical.PropRecurrenceRule)
	if rawRule == "" {
		return []models.RawEvent{ev}
	}

	start := ev.Start.Resolve()
	end := ev.End.Resolve()
	if start.IsZero() {
		return []models.RawEvent{ev}
	}
	duration := end.Sub(start)

	rule, err := rrule.StrToRRule(rawRule)
	if err != nil {
		return []models.RawEvent{ev}
	}
	rule.DTStart(start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range exDates(comp, start.Location()) {
		set.ExDate(ex)
	}

	rangeStart, rangeEnd := expansionRange(window)
	occurrences := set.Between(rangeStart.In(start.Location()), rangeEnd.In(start.Location()), true)
	if len(occurrences) > maxOccurrences {
		occurrences = occurrences[:maxOccurrences]
	}

	out := make([]models.RawEvent, 0, len(occurrences))
	for _, occStart := range occurrences {
		instance := ev
		instance.ID = ev.ID + "-" + occStart.UTC().Format("20060102T150405Z")
		if ev.Start.IsAllDay() {
			day := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			instance.Start = models.NewDate(day.Format("2006-01-02"), ev.Start.Zone)
			instance.End = models.NewDate(day.AddDate(0, 0, 1).Format("2006-01-02"), ev.End.Zone)
		} else {
			instance.Start = models.NewTimestamp(occStart)
			instance.End = models.NewTimestamp(occStart.Add(duration))
		}
		out = append(out, instance)
	}
	return out
}

// exDates collects the EXDATE exception timestamps of a VEVENT, aligned
// to the given location.
func exDates(comp *ical.Component, loc *time.Location) []time.Time {
	var out []time.Time
	for _, p := range comp.Props.Values("EXDATE") {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, ok := parseICSTime(part, loc); ok {
				out = append(out, t.In(loc))
			}
		}
	}
	return out
}

// parseICSTime parses the basic ICS date and date-time forms used by
// EXDATE values.
func parseICSTime(v string, loc *time.Location) (time.Time, bool) {
	layouts := []struct {
		layout string
		utc    bool
	}{
		{"20060102T150405Z", true},
		{"20060102T150405", false},
		{"20060102", false},
	}
	for _, l := range layouts {
		if l.utc {
			if t, err := time.Parse(l.layout, v); err == nil {
				return t, true
			}
			continue
		}
		if t, err := time.ParseInLocation(l.layout, v, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
