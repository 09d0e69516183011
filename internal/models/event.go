package models

import "time"

// EventTime is the timing of one end of an event. Providers express it
// either as an all-day date or as a concrete timestamp; exactly one of
// Date and DateTime is set.
type EventTime struct {
	// DateTime is the instant for timed events. Zero for all-day events.
	DateTime time.Time
	// Date is the all-day date in "2006-01-02" form. Empty for timed events.
	Date string
	// Zone is the declared IANA timezone name. Empty means UTC.
	Zone string
}

// NewTimestamp returns an EventTime backed by a concrete instant.
func NewTimestamp(t time.Time) EventTime {
	return EventTime{DateTime: t}
}

// NewDate returns an all-day EventTime for the given date in the given zone.
func NewDate(date, zone string) EventTime {
	return EventTime{Date: date, Zone: zone}
}

// IsAllDay reports whether this time carries only a date.
func (t EventTime) IsAllDay() bool {
	return t.DateTime.IsZero() && t.Date != ""
}

// IsZero reports whether neither representation is present.
func (t EventTime) IsZero() bool {
	return t.DateTime.IsZero() && t.Date == ""
}

// Resolve returns the effective instant, preferring the timestamp over
// the date. An all-day date resolves to midnight in its declared zone
// (UTC when unspecified). Malformed values resolve to the zero time
// rather than failing.
func (t EventTime) Resolve() time.Time {
	if !t.DateTime.IsZero() {
		return t.DateTime
	}
	if t.Date == "" {
		return time.Time{}
	}
	loc := time.UTC
	if t.Zone != "" {
		if l, err := time.LoadLocation(t.Zone); err == nil {
			loc = l
		}
	}
	day, err := time.ParseInLocation("2006-01-02", t.Date, loc)
	if err != nil {
		return time.Time{}
	}
	return day
}

// Attendee is a single event attendee as reported by the provider.
type Attendee struct {
	Email          string
	ResponseStatus string
}

// RawEvent is the provider-neutral event record decoded once at each
// backend boundary. The pipeline treats it as read-only.
type RawEvent struct {
	ID          string
	Summary     string
	Start       EventTime
	End         EventTime
	Description string
	Location    string
	Attendees   []Attendee
	Recurrence  []string
	Organizer   string // organizer email, empty if absent
	Conference  string // first conference entry point URI, empty if absent
	ColorID     string

	// CalendarID tags the event with the calendar it was fetched from.
	// Set by the fetcher, not by the backend decode.
	CalendarID string
}

// NormalizedEvent is the fixed display schema derived from a RawEvent.
// It lives for a single render cycle and is never written back.
type NormalizedEvent struct {
	ID              string
	Title           string
	Start           time.Time
	End             time.Time
	AllDay          bool
	CalendarID      string
	CalendarName    string
	Color           string
	Description     string
	Location        string
	OrganizerEmail  string
	AttendeeSummary string
	ConferenceURI   string
}

// CalendarInfo describes one calendar visible to the authenticated account.
type CalendarInfo struct {
	ID      string
	Summary string
	Primary bool
}
