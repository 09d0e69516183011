// Package caldav provides the calendar capability surface on top of any
// CalDAV server, so the pipeline can aggregate CalDAV calendars the same
// way it aggregates Google ones.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"calview/internal/calerr"
	"calview/internal/models"
	"calview/internal/pipeline"
)

// customTransport adds Basic Auth and a User-Agent to every request.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calview/1.0")
	return t.Transport.RoundTrip(req)
}

// Client talks to a CalDAV server. Calendar ids are the server-relative
// calendar collection paths returned by ListCalendars.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
}

// NewClient creates a CalDAV client for the given endpoint with Basic
// Auth credentials.
func NewClient(logger *slog.Logger, endpoint, username, password string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("caldav endpoint is empty")
	}
	httpClient := &http.Client{Transport: &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	return &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
	}, nil
}

// ListCalendars discovers the account's calendar collections.
func (c *Client) ListCalendars(ctx context.Context) ([]models.CalendarInfo, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, classify("list calendars", "", err)
	}
	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, classify("list calendars", "", err)
	}
	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, classify("list calendars", "", err)
	}

	infos := make([]models.CalendarInfo, 0, len(calendars))
	for _, cal := range calendars {
		infos = append(infos, models.CalendarInfo{ID: cal.Path, Summary: cal.Name})
	}
	return infos, nil
}

// ListEvents queries one calendar collection for VEVENTs inside the
// window and decodes them into raw events. Recurring events are expanded
// into concrete instances within the window. The keyword parameter is
// ignored; CalDAV has no native text search, so keyword filtering stays
// client-side in the pipeline.
func (c *Client) ListEvents(ctx context.Context, calendarID string, window pipeline.Window, maxResults int64, keyword string) ([]models.RawEvent, error) {
	_ = keyword

	rangeStart, rangeEnd := expansionRange(window)

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: rangeStart,
				End:   rangeEnd,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return nil, classify("list events", calendarID, err)
	}

	var events []models.RawEvent
	for _, obj := range objects {
		for _, comp := range obj.Data.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev := decodeVEvent(comp)
			if len(ev.Recurrence) > 0 {
				events = append(events, expandRecurring(ev, comp, window)...)
			} else {
				events = append(events, ev)
			}
		}
	}

	events = orderAndClamp(events, window, maxResults)
	c.logger.Info("Fetched events from CalDAV server", "count", len(events), "calendarID", calendarID)
	return events, nil
}

// orderAndClamp sorts by effective start when the window has a lower
// bound, then applies the per-calendar result cap. Recurrence expansion
// interleaves instances out of order, so the sort must come before the
// cap or the cap could drop the earliest events.
func orderAndClamp(events []models.RawEvent, window pipeline.Window, maxResults int64) []models.RawEvent {
	if !window.Min.IsZero() {
		sort.SliceStable(events, func(a, b int) bool {
			return events[a].Start.Resolve().Before(events[b].Start.Resolve())
		})
	}
	if maxResults > 0 && int64(len(events)) > maxResults {
		events = events[:maxResults]
	}
	return events
}

// CreateEvent stores a new VEVENT built from the draft and returns its
// decoded form. The generated UID doubles as the event id.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, draft *models.EventDraft) (models.RawEvent, error) {
	if err := draft.Validate(); err != nil {
		return models.RawEvent{}, err
	}

	uid := uuid.New().String()
	cal := draftCalendar(uid, draft)
	objPath := path.Join(calendarID, uid+".ics")

	if _, err := c.caldavClient.PutCalendarObject(ctx, objPath, cal); err != nil {
		return models.RawEvent{}, classify("create event", calendarID, err)
	}
	c.logger.Info("Created event", "calendarID", calendarID, "eventID", uid)
	return decodeVEvent(cal.Children[0]), nil
}

// UpdateEvent replaces the VEVENT stored under eventID.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, draft *models.EventDraft) (models.RawEvent, error) {
	if err := draft.Validate(); err != nil {
		return models.RawEvent{}, err
	}

	cal := draftCalendar(eventID, draft)
	objPath := path.Join(calendarID, eventID+".ics")

	if _, err := c.caldavClient.PutCalendarObject(ctx, objPath, cal); err != nil {
		return models.RawEvent{}, classify("update event", calendarID, err)
	}
	c.logger.Info("Updated event", "calendarID", calendarID, "eventID", eventID)
	return decodeVEvent(cal.Children[0]), nil
}

// DeleteEvent removes the VEVENT stored under eventID.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	objPath := path.Join(calendarID, eventID+".ics")
	if err := c.webdavClient.RemoveAll(ctx, objPath); err != nil {
		return classify("delete event", calendarID, err)
	}
	c.logger.Info("Deleted event", "calendarID", calendarID, "eventID", eventID)
	return nil
}

// draftCalendar builds a single-VEVENT VCALENDAR from a draft.
func draftCalendar(uid string, draft *models.EventDraft) *ical.Calendar {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, draft.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, draft.Start.Resolve())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, draft.End.Resolve())

	if draft.Description != "" {
		ve.Props.SetText(ical.PropDescription, draft.Description)
	}
	if draft.Location != "" {
		ve.Props.SetText(ical.PropLocation, draft.Location)
	}
	for _, attendee := range draft.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calview//EN")
	cal.Children = append(cal.Children, ve)
	return cal
}

// decodeVEvent maps one VEVENT component into the provider-neutral
// event shape. Missing properties degrade to zero values.
func decodeVEvent(comp *ical.Component) models.RawEvent {
	ev := models.RawEvent{
		ID:          textProp(comp, ical.PropUID),
		Summary:     textProp(comp, ical.PropSummary),
		Description: textProp(comp, ical.PropDescription),
		Location:    textProp(comp, ical.PropLocation),
		Start:       decodeEventTime(comp, ical.PropDateTimeStart),
		End:         decodeEventTime(comp, ical.PropDateTimeEnd),
	}

	if org := textProp(comp, ical.PropOrganizer); org != "" {
		ev.Organizer = strings.TrimPrefix(org, "mailto:")
	}
	for _, p := range comp.Props.Values(ical.PropAttendee) {
		ev.Attendees = append(ev.Attendees, models.Attendee{
			Email:          strings.TrimPrefix(p.Value, "mailto:"),
			ResponseStatus: partStat(p.Params.Get("PARTSTAT")),
		})
	}
	if rule := textProp(comp, ical.PropRecurrenceRule); rule != "" {
		ev.Recurrence = []string{"RRULE:" + rule}
	}
	if u := textProp(comp, "URL"); u != "" {
		ev.Conference = u
	}
	return ev
}

func textProp(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}

// decodeEventTime reads DTSTART/DTEND into the date-or-timestamp union.
// All-day values carry VALUE=DATE or a bare YYYYMMDD value.
func decodeEventTime(comp *ical.Component, name string) models.EventTime {
	prop := comp.Props.Get(name)
	if prop == nil {
		return models.EventTime{}
	}
	if strings.EqualFold(prop.Params.Get("VALUE"), "DATE") || !strings.Contains(prop.Value, "T") {
		day, err := time.Parse("20060102", prop.Value)
		if err != nil {
			return models.EventTime{}
		}
		return models.NewDate(day.Format("2006-01-02"), prop.Params.Get("TZID"))
	}
	t, err := comp.Props.DateTime(name, time.UTC)
	if err != nil {
		return models.EventTime{}
	}
	return models.NewTimestamp(t)
}

// partStat converts an iCalendar participation status to the response
// status vocabulary the rest of the pipeline uses.
func partStat(s string) string {
	switch strings.ToUpper(s) {
	case "ACCEPTED":
		return "accepted"
	case "DECLINED":
		return "declined"
	case "TENTATIVE":
		return "tentative"
	case "NEEDS-ACTION", "":
		return "needsAction"
	default:
		return strings.ToLower(s)
	}
}

// classify maps a CalDAV transport error into the shared taxonomy. The
// webdav client reports HTTP failures as formatted strings rather than
// typed errors, so the status code is recovered from the message.
func classify(op, calendarID string, err error) error {
	msg := err.Error()
	for _, code := range []int{
		http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusGone,
		http.StatusBadRequest, http.StatusConflict,
		http.StatusPreconditionFailed, http.StatusUnprocessableEntity,
	} {
		if strings.Contains(msg, fmt.Sprintf("%d %s", code, http.StatusText(code))) {
			return calerr.FromHTTPStatus(op, calendarID, code, err)
		}
	}
	return calerr.New(calerr.KindNetwork, op, calendarID, err)
}
