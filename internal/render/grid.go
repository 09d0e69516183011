// Package render adapts pipeline output for the presenters: a calendar
// grid widget payload and a tabular/CSV view.
package render

import (
	"encoding/json"
	"io"
	"time"

	"calview/internal/models"
)

// GridEvent is the JSON shape consumed by the calendar grid widget.
type GridEvent struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Start  string    `json:"start"`
	End    string    `json:"end"`
	AllDay bool      `json:"allDay,omitempty"`
	Color  string    `json:"color,omitempty"`
	Extra  GridExtra `json:"extendedProps"`
}

// GridExtra carries the detail fields the widget shows on click.
type GridExtra struct {
	CalendarID   string `json:"calendarId"`
	CalendarName string `json:"calendarName,omitempty"`
	Description  string `json:"description,omitempty"`
	Location     string `json:"location,omitempty"`
	Organizer    string `json:"organizer,omitempty"`
	Attendees    string `json:"attendees,omitempty"`
	Conference   string `json:"conference,omitempty"`
}

// GridPayload is the full widget input: events plus the calendar-id to
// color legend.
type GridPayload struct {
	Events []GridEvent       `json:"events"`
	Colors map[string]string `json:"colors"`
}

// ToGrid converts normalized events into the widget payload. All-day
// events render date-only start/end so the widget places them in the
// all-day lane.
func ToGrid(events []models.NormalizedEvent, colors map[string]string) GridPayload {
	out := make([]GridEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, GridEvent{
			ID:     ev.ID,
			Title:  ev.Title,
			Start:  gridTime(ev.Start, ev.AllDay),
			End:    gridTime(ev.End, ev.AllDay),
			AllDay: ev.AllDay,
			Color:  ev.Color,
			Extra: GridExtra{
				CalendarID:   ev.CalendarID,
				CalendarName: ev.CalendarName,
				Description:  ev.Description,
				Location:     ev.Location,
				Organizer:    ev.OrganizerEmail,
				Attendees:    ev.AttendeeSummary,
				Conference:   ev.ConferenceURI,
			},
		})
	}
	return GridPayload{Events: out, Colors: colors}
}

// WriteGridJSON writes the widget payload as indented JSON.
func WriteGridJSON(w io.Writer, events []models.NormalizedEvent, colors map[string]string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ToGrid(events, colors))
}

func gridTime(t time.Time, allDay bool) string {
	if t.IsZero() {
		return ""
	}
	if allDay {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
