package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"calview/internal/calerr"
	"calview/internal/models"
	"calview/internal/pipeline"
)

// CalendarClient provides the pipeline's calendar capability surface on
// top of the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewServiceAccountClient creates a client authenticated with a service
// account JSON key file.
func NewServiceAccountClient(ctx context.Context, logger *slog.Logger, credentialsPath string) (*CalendarClient, error) {
	return newClient(ctx, logger,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(calendar.CalendarScope))
}

// NewClient creates a client authenticated with a previously saved OAuth
// token. It supports multiple accounts via token files like
// token-personal.json; accountName selects the file.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := fmt.Sprintf("token-%s.json", accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	return newClient(ctx, logger, option.WithHTTPClient(config.Client(ctx, token)))
}

func newClient(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// ListCalendars returns the calendars visible to the authenticated account.
func (c *CalendarClient) ListCalendars(ctx context.Context) ([]models.CalendarInfo, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, calerr.FromGoogleAPI("list calendars", "", err)
	}

	calendars := make([]models.CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, models.CalendarInfo{
			ID:      item.Id,
			Summary: item.Summary,
			Primary: item.Primary,
		})
	}
	return calendars, nil
}

// ListEvents fetches the events of one calendar inside the window,
// expanded to single instances and ordered by start time when the window
// has a lower bound. keyword is passed through as the API's native text
// search.
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID string, window pipeline.Window, maxResults int64, keyword string) ([]models.RawEvent, error) {
	c.logger.Debug("Fetching events", "calendarID", calendarID, "timeMin", window.Min, "timeMax", window.Max)

	call := c.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		Context(ctx)

	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}
	if !window.Min.IsZero() {
		call = call.TimeMin(window.Min.Format(time.RFC3339)).OrderBy("startTime")
	}
	if !window.Max.IsZero() {
		call = call.TimeMax(window.Max.Format(time.RFC3339))
	}
	if keyword != "" {
		call = call.Q(keyword)
	}

	result, err := call.Do()
	if err != nil {
		return nil, calerr.FromGoogleAPI("list events", calendarID, err)
	}

	events := make([]models.RawEvent, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, toRawEvent(item))
	}
	c.logger.Info("Fetched events from Google Calendar", "count", len(events), "calendarID", calendarID)
	return events, nil
}

// CreateEvent inserts a new event built from the draft.
func (c *CalendarClient) CreateEvent(ctx context.Context, calendarID string, draft *models.EventDraft) (models.RawEvent, error) {
	if err := draft.Validate(); err != nil {
		return models.RawEvent{}, err
	}

	created, err := c.service.Events.Insert(calendarID, toGoogleEvent(draft)).Context(ctx).Do()
	if err != nil {
		return models.RawEvent{}, calerr.FromGoogleAPI("create event", calendarID, err)
	}
	c.logger.Info("Created event", "calendarID", calendarID, "eventID", created.Id)
	return toRawEvent(created), nil
}

// UpdateEvent replaces an existing event with the draft's contents.
func (c *CalendarClient) UpdateEvent(ctx context.Context, calendarID, eventID string, draft *models.EventDraft) (models.RawEvent, error) {
	if err := draft.Validate(); err != nil {
		return models.RawEvent{}, err
	}

	updated, err := c.service.Events.Update(calendarID, eventID, toGoogleEvent(draft)).Context(ctx).Do()
	if err != nil {
		return models.RawEvent{}, calerr.FromGoogleAPI("update event", calendarID, err)
	}
	c.logger.Info("Updated event", "calendarID", calendarID, "eventID", eventID)
	return toRawEvent(updated), nil
}

// DeleteEvent removes an event by id.
func (c *CalendarClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return calerr.FromGoogleAPI("delete event", calendarID, err)
	}
	c.logger.Info("Deleted event", "calendarID", calendarID, "eventID", eventID)
	return nil
}

// toRawEvent decodes a Google Calendar event into the provider-neutral
// shape. Optional fields degrade to zero values.
func toRawEvent(item *calendar.Event) models.RawEvent {
	ev := models.RawEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Recurrence:  item.Recurrence,
		ColorID:     item.ColorId,
		Start:       toEventTime(item.Start),
		End:         toEventTime(item.End),
	}

	if item.Organizer != nil {
		ev.Organizer = item.Organizer.Email
	}
	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, models.Attendee{
			Email:          a.Email,
			ResponseStatus: a.ResponseStatus,
		})
	}
	if item.ConferenceData != nil && len(item.ConferenceData.EntryPoints) > 0 {
		ev.Conference = item.ConferenceData.EntryPoints[0].Uri
	}
	return ev
}

func toEventTime(edt *calendar.EventDateTime) models.EventTime {
	if edt == nil {
		return models.EventTime{}
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return models.EventTime{}
		}
		return models.NewTimestamp(t)
	}
	return models.NewDate(edt.Date, edt.TimeZone)
}

func toGoogleEvent(draft *models.EventDraft) *calendar.Event {
	event := &calendar.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Location:    draft.Location,
		Start:       toEventDateTime(draft.Start),
		End:         toEventDateTime(draft.End),
	}
	for _, email := range draft.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}
	return event
}

func toEventDateTime(t models.EventTime) *calendar.EventDateTime {
	if t.IsAllDay() {
		return &calendar.EventDateTime{Date: t.Date, TimeZone: t.Zone}
	}
	return &calendar.EventDateTime{
		DateTime: t.DateTime.Format(time.RFC3339),
		TimeZone: "UTC",
	}
}
