package pipeline

import (
	"strings"

	"calview/internal/models"
)

// ApplyFilters selects events matching the given keyword and attendee
// substring. Keyword search is normally pushed down to the backend's
// native query; this client-side pass covers backends without one. The
// attendee filter keeps an event iff at least one attendee email
// contains the substring, case-insensitive. Selection is
// order-preserving.
func ApplyFilters(events []models.RawEvent, keyword, attendee string) []models.RawEvent {
	if keyword == "" && attendee == "" {
		return events
	}

	keyword = strings.ToLower(keyword)
	attendee = strings.ToLower(attendee)

	filtered := make([]models.RawEvent, 0, len(events))
	for _, ev := range events {
		if keyword != "" && !matchesKeyword(ev, keyword) {
			continue
		}
		if attendee != "" && !matchesAttendee(ev, attendee) {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered
}

func matchesKeyword(ev models.RawEvent, keyword string) bool {
	return strings.Contains(strings.ToLower(ev.Summary), keyword) ||
		strings.Contains(strings.ToLower(ev.Description), keyword) ||
		strings.Contains(strings.ToLower(ev.Location), keyword)
}

func matchesAttendee(ev models.RawEvent, attendee string) bool {
	for _, a := range ev.Attendees {
		if strings.Contains(strings.ToLower(a.Email), attendee) {
			return true
		}
	}
	return false
}
