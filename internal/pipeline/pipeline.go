// Package pipeline implements the event aggregation pipeline: resolve a
// time window, fetch the selected calendars, filter, and normalize the
// raw events into the display schema. Every run starts from a clean
// slate; nothing outlives a single request/response cycle.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calview/internal/models"
)

// Options configures one pipeline run.
type Options struct {
	CalendarIDs []string
	// CalendarNames maps calendar ids to display names, as returned by
	// the backend's calendar listing. May be nil.
	CalendarNames map[string]string

	Mode Mode
	// From and To are only consulted when Mode is ModeRange.
	From time.Time
	To   time.Time

	// MaxPerCalendar bounds the raw count requested per calendar, before
	// any client-side filtering. Zero means the backend default.
	MaxPerCalendar int64

	Keyword  string
	Attendee string

	// NativeKeyword pushes the keyword into the backend query instead of
	// filtering client-side. Backends without text search leave it off.
	NativeKeyword bool

	// PerCalendarTimeout bounds each calendar's fetch; a timed-out
	// calendar degrades to empty with a warning. Zero disables it.
	PerCalendarTimeout time.Duration
}

// Result is the output of one run: the display events, the calendar-id
// to color mapping for the presenters, and the per-calendar warnings.
type Result struct {
	Events   []models.NormalizedEvent
	Colors   map[string]string
	Warnings []Warning
}

// Run executes the pipeline against the given backend. The reference
// instant for window resolution is time.Now; see RunAt for tests.
func Run(ctx context.Context, client Client, logger *slog.Logger, opts Options) (Result, error) {
	return RunAt(ctx, client, logger, opts, time.Now())
}

// RunAt is Run with an explicit reference instant.
func RunAt(ctx context.Context, client Client, logger *slog.Logger, opts Options, ref time.Time) (Result, error) {
	window, err := ResolveWindow(opts.Mode, ref, opts.From, opts.To)
	if err != nil {
		return Result{}, fmt.Errorf("resolve window: %w", err)
	}

	nativeKeyword := ""
	if opts.NativeKeyword {
		nativeKeyword = opts.Keyword
	}

	fetcher := NewFetcher(client, logger, opts.PerCalendarTimeout)
	raw, warnings, err := fetcher.FetchAll(ctx, opts.CalendarIDs, window, opts.MaxPerCalendar, nativeKeyword)
	if err != nil {
		return Result{}, fmt.Errorf("fetch events: %w", err)
	}

	clientSideKeyword := opts.Keyword
	if opts.NativeKeyword {
		clientSideKeyword = ""
	}
	raw = ApplyFilters(raw, clientSideKeyword, opts.Attendee)

	normalizer := NewNormalizer(opts.CalendarNames)
	events := normalizer.NormalizeAll(raw)

	logger.Info("Pipeline run finished",
		"calendars", len(opts.CalendarIDs),
		"events", len(events),
		"warnings", len(warnings))

	return Result{
		Events:   events,
		Colors:   normalizer.Colors(),
		Warnings: warnings,
	}, nil
}
