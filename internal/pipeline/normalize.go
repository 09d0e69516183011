package pipeline

import (
	"fmt"
	"strings"

	"calview/internal/models"
)

// palette holds the colors handed out to calendars that carry no
// explicit color, first seen first assigned.
var palette = []string{
	"#3788d8", // default widget blue
	"#d83737",
	"#2e9e44",
	"#b26ad1",
	"#e8833a",
	"#17a2b8",
	"#d6408b",
	"#7a7d2c",
	"#5c6bc0",
	"#795548",
}

// eventColors maps the provider's numeric event color ids to their hex
// values so presenters get a usable color either way.
var eventColors = map[string]string{
	"1":  "#a4bdfc",
	"2":  "#7ae7bf",
	"3":  "#dbadff",
	"4":  "#ff887c",
	"5":  "#fbd75b",
	"6":  "#ffb878",
	"7":  "#46d6db",
	"8":  "#e1e1e1",
	"9":  "#5484ed",
	"10": "#51b749",
	"11": "#dc2127",
}

// Normalizer maps raw events into the fixed display schema. Color
// assignment is per run: the same calendar id always receives the same
// palette color within one Normalizer's lifetime.
type Normalizer struct {
	names  map[string]string // calendar id -> display name
	colors map[string]string // calendar id -> assigned color
}

// NewNormalizer creates a Normalizer for a single pipeline run. names
// maps calendar ids to display names and may be nil.
func NewNormalizer(names map[string]string) *Normalizer {
	return &Normalizer{
		names:  names,
		colors: make(map[string]string),
	}
}

// Normalize converts one raw event. It never fails: missing optional
// fields degrade to safe defaults.
func (n *Normalizer) Normalize(ev models.RawEvent) models.NormalizedEvent {
	title := ev.Summary
	if title == "" {
		title = "No Title"
	}

	// An unrecognized color id keeps the calendar's color so presenters
	// always receive a hex value.
	color := n.calendarColor(ev.CalendarID)
	if hex, ok := eventColors[ev.ColorID]; ok {
		color = hex
	}

	return models.NormalizedEvent{
		ID:              ev.ID,
		Title:           title,
		Start:           ev.Start.Resolve(),
		End:             ev.End.Resolve(),
		AllDay:          ev.Start.IsAllDay(),
		CalendarID:      ev.CalendarID,
		CalendarName:    n.names[ev.CalendarID],
		Color:           color,
		Description:     ev.Description,
		Location:        ev.Location,
		OrganizerEmail:  ev.Organizer,
		AttendeeSummary: attendeeSummary(ev.Attendees),
		ConferenceURI:   ev.Conference,
	}
}

// NormalizeAll converts a merged sequence, preserving order.
func (n *Normalizer) NormalizeAll(events []models.RawEvent) []models.NormalizedEvent {
	out := make([]models.NormalizedEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, n.Normalize(ev))
	}
	return out
}

// Colors returns the calendar-id to color mapping assigned so far.
func (n *Normalizer) Colors() map[string]string {
	out := make(map[string]string, len(n.colors))
	for id, c := range n.colors {
		out[id] = c
	}
	return out
}

func (n *Normalizer) calendarColor(calendarID string) string {
	if c, ok := n.colors[calendarID]; ok {
		return c
	}
	c := palette[len(n.colors)%len(palette)]
	n.colors[calendarID] = c
	return c
}

func attendeeSummary(attendees []models.Attendee) string {
	if len(attendees) == 0 {
		return ""
	}
	parts := make([]string, 0, len(attendees))
	for _, a := range attendees {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Email, a.ResponseStatus))
	}
	return strings.Join(parts, ", ")
}
