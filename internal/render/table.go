package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"calview/internal/models"
)

// tableHeader matches the column set of the exported events table.
var tableHeader = []string{"Id", "Title", "Start", "End", "Calendar", "Location", "Organizer", "Attendees", "Description"}

// Row flattens one normalized event into table cells, in header order.
func Row(ev models.NormalizedEvent) []string {
	name := ev.CalendarName
	if name == "" {
		name = ev.CalendarID
	}
	return []string{
		ev.ID,
		ev.Title,
		tableTime(ev.Start, ev.AllDay),
		tableTime(ev.End, ev.AllDay),
		name,
		ev.Location,
		ev.OrganizerEmail,
		ev.AttendeeSummary,
		ev.Description,
	}
}

// WriteCSV writes the events as CSV with a header row, the export the
// tabular view offers for download.
func WriteCSV(w io.Writer, events []models.NormalizedEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, ev := range events {
		if err := cw.Write(Row(ev)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes a plain-text table for terminal display.
func WriteTable(w io.Writer, events []models.NormalizedEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No events found.")
		return err
	}

	widths := make([]int, len(tableHeader))
	rows := make([][]string, 0, len(events))
	for i, h := range tableHeader {
		widths[i] = len(h)
	}
	for _, ev := range events {
		row := Row(ev)
		for i, cell := range row {
			if r := []rune(cell); len(r) > 40 {
				cell = string(r[:37]) + "..."
				row[i] = cell
			}
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
		rows = append(rows, row)
	}

	writeRow := func(cells []string) error {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
		return err
	}

	if err := writeRow(tableHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func tableTime(t time.Time, allDay bool) string {
	if t.IsZero() {
		return ""
	}
	if allDay {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
