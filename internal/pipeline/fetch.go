package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"calview/internal/calerr"
	"calview/internal/models"
)

// Client is the capability surface the fetcher needs from a calendar
// backend. Both the Google and CalDAV backends satisfy it.
type Client interface {
	// ListEvents returns the events of one calendar inside the window,
	// ordered by start time ascending when the window has a lower bound.
	// keyword is the backend's native text search, empty to disable.
	ListEvents(ctx context.Context, calendarID string, window Window, maxResults int64, keyword string) ([]models.RawEvent, error)
}

// Warning records a per-calendar failure that degraded to an empty
// result instead of aborting the run.
type Warning struct {
	CalendarID string
	Err        error
}

func (w Warning) String() string {
	return fmt.Sprintf("calendar %q: %v", w.CalendarID, w.Err)
}

// Fetcher queries one calendar at a time through the Client and merges
// the results. Per-calendar failures never abort the other calendars;
// only auth failures are fatal to the run.
type Fetcher struct {
	client  Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewFetcher creates a Fetcher. timeout bounds each per-calendar call;
// zero means no per-calendar deadline.
func NewFetcher(client Client, logger *slog.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{client: client, logger: logger, timeout: timeout}
}

// FetchAll issues one list call per calendar id, tags every event with
// its source calendar and merges the results. Calls run concurrently;
// a timeout or failure on one calendar does not cancel its siblings.
// When the window has a lower bound, the merged sequence is stably
// sorted by effective start instant. maxPerCalendar bounds each
// per-calendar request, not the total.
func (f *Fetcher) FetchAll(ctx context.Context, calendarIDs []string, window Window, maxPerCalendar int64, keyword string) ([]models.RawEvent, []Warning, error) {
	perCalendar := make([][]models.RawEvent, len(calendarIDs))
	errs := make([]error, len(calendarIDs))

	var wg sync.WaitGroup
	for i, calID := range calendarIDs {
		wg.Add(1)
		go func(i int, calID string) {
			defer wg.Done()

			callCtx := ctx
			if f.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, f.timeout)
				defer cancel()
			}

			events, err := f.client.ListEvents(callCtx, calID, window, maxPerCalendar, keyword)
			if err != nil {
				errs[i] = err
				return
			}
			for j := range events {
				events[j].CalendarID = calID
			}
			perCalendar[i] = events
		}(i, calID)
	}
	wg.Wait()

	var merged []models.RawEvent
	var warnings []Warning
	for i, calID := range calendarIDs {
		if err := errs[i]; err != nil {
			if calerr.IsAuth(err) {
				return nil, nil, err
			}
			f.logger.Warn("Skipping calendar after fetch failure", "calendarID", calID, "error", err)
			warnings = append(warnings, Warning{CalendarID: calID, Err: err})
			continue
		}
		merged = append(merged, perCalendar[i]...)
	}

	// Per-calendar server order is only meaningful per calendar; once a
	// lower bound exists the merged set is re-sorted by effective start.
	if !window.Min.IsZero() {
		sort.SliceStable(merged, func(a, b int) bool {
			return merged[a].Start.Resolve().Before(merged[b].Start.Resolve())
		})
	}

	return merged, warnings, nil
}
