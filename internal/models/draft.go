package models

import (
	"errors"

	"calview/internal/calerr"
)

// EventDraft is the write-path input for creating or updating an event.
type EventDraft struct {
	Summary     string
	Description string
	Location    string
	Start       EventTime
	End         EventTime
	Attendees   []string // attendee emails
}

// Validate checks the draft before it is sent to a backend. It returns
// a validation-kind error so callers can surface it without touching
// the displayed data.
func (d *EventDraft) Validate() error {
	if d.Start.IsZero() {
		return calerr.New(calerr.KindValidation, "validate draft", "", errors.New("start time is required"))
	}
	if d.End.IsZero() {
		return calerr.New(calerr.KindValidation, "validate draft", "", errors.New("end time is required"))
	}
	start := d.Start.Resolve()
	end := d.End.Resolve()
	if start.IsZero() || end.IsZero() {
		return calerr.New(calerr.KindValidation, "validate draft", "", errors.New("start or end time is malformed"))
	}
	if end.Before(start) {
		return calerr.New(calerr.KindValidation, "validate draft", "", errors.New("end time is before start time"))
	}
	return nil
}
