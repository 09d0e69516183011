package caldav

import (
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"calview/internal/models"
	"calview/internal/pipeline"
)

func vevent(uid string) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	return ve
}

func TestDecodeVEvent(t *testing.T) {
	t.Run("TimedEvent", func(t *testing.T) {
		ve := vevent("ev1")
		ve.Props.SetText(ical.PropSummary, "Team sync")
		ve.Props.SetText(ical.PropLocation, "Room 1")
		ve.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC))
		ve.Props.SetDateTime(ical.PropDateTimeEnd, time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC))

		org := ical.NewProp(ical.PropOrganizer)
		org.SetText("mailto:boss@corp.com")
		ve.Props.Add(org)

		att := ical.NewProp(ical.PropAttendee)
		att.SetText("mailto:a@corp.com")
		att.Params = ical.Params{"PARTSTAT": []string{"ACCEPTED"}}
		ve.Props.Add(att)

		got := decodeVEvent(ve)
		if got.ID != "ev1" || got.Summary != "Team sync" {
			t.Errorf("identity fields wrong: %+v", got)
		}
		want := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
		if !got.Start.Resolve().Equal(want) {
			t.Errorf("Start = %v, want %v", got.Start.Resolve(), want)
		}
		if got.Organizer != "boss@corp.com" {
			t.Errorf("Organizer = %q", got.Organizer)
		}
		if len(got.Attendees) != 1 || got.Attendees[0].ResponseStatus != "accepted" {
			t.Errorf("Attendees = %v", got.Attendees)
		}
	})

	t.Run("AllDayEvent", func(t *testing.T) {
		ve := vevent("ev2")
		start := ical.NewProp(ical.PropDateTimeStart)
		start.Value = "20240501"
		start.Params = ical.Params{"VALUE": []string{"DATE"}}
		ve.Props.Add(start)

		got := decodeVEvent(ve)
		if !got.Start.IsAllDay() {
			t.Fatal("all-day event not detected")
		}
		want := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
		if !got.Start.Resolve().Equal(want) {
			t.Errorf("Start = %v, want %v", got.Start.Resolve(), want)
		}
	})

	t.Run("MissingPropsDegrade", func(t *testing.T) {
		got := decodeVEvent(vevent("bare"))
		if got.Summary != "" || got.Organizer != "" || len(got.Attendees) != 0 {
			t.Errorf("expected zero values: %+v", got)
		}
		if !got.Start.IsZero() {
			t.Errorf("Start = %+v, want zero", got.Start)
		}
	})
}

func TestPartStat(t *testing.T) {
	cases := map[string]string{
		"ACCEPTED":     "accepted",
		"DECLINED":     "declined",
		"TENTATIVE":    "tentative",
		"NEEDS-ACTION": "needsAction",
		"":             "needsAction",
		"DELEGATED":    "delegated",
	}
	for in, want := range cases {
		if got := partStat(in); got != want {
			t.Errorf("partStat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExpandRecurring(t *testing.T) {
	newRecurring := func(exdate string) (*ical.Component, models.RawEvent) {
		ve := vevent("rec1")
		ve.Props.SetText(ical.PropSummary, "Daily standup")
		ve.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC))
		ve.Props.SetDateTime(ical.PropDateTimeEnd, time.Date(2024, time.May, 1, 9, 15, 0, 0, time.UTC))
		rr := ical.NewProp(ical.PropRecurrenceRule)
		rr.Value = "FREQ=DAILY;COUNT=10"
		ve.Props.Add(rr)
		if exdate != "" {
			ex := ical.NewProp("EXDATE")
			ex.Value = exdate
			ve.Props.Add(ex)
		}
		return ve, decodeVEvent(ve)
	}

	window := pipeline.Window{
		Min: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Max: time.Date(2024, time.May, 3, 23, 59, 59, 0, time.UTC),
	}

	t.Run("ExpandsWithinWindow", func(t *testing.T) {
		ve, ev := newRecurring("")
		got := expandRecurring(ev, ve, window)
		if len(got) != 3 {
			t.Fatalf("got %d instances, want 3 (May 1-3)", len(got))
		}
		for i, inst := range got {
			wantStart := time.Date(2024, time.May, 1+i, 9, 0, 0, 0, time.UTC)
			if !inst.Start.Resolve().Equal(wantStart) {
				t.Errorf("instance %d start = %v, want %v", i, inst.Start.Resolve(), wantStart)
			}
			if d := inst.End.Resolve().Sub(inst.Start.Resolve()); d != 15*time.Minute {
				t.Errorf("instance %d duration = %v, want 15m", i, d)
			}
		}
		if got[0].ID == got[1].ID {
			t.Error("instance ids are not distinct")
		}
	})

	t.Run("HonorsExDate", func(t *testing.T) {
		ve, ev := newRecurring("20240502T090000Z")
		got := expandRecurring(ev, ve, window)
		if len(got) != 2 {
			t.Fatalf("got %d instances, want 2 after EXDATE", len(got))
		}
		for _, inst := range got {
			if inst.Start.Resolve().Day() == 2 {
				t.Error("excluded occurrence still present")
			}
		}
	})

	t.Run("UnparseableRuleDegradesToBaseEvent", func(t *testing.T) {
		ve := vevent("bad")
		ve.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC))
		ve.Props.SetDateTime(ical.PropDateTimeEnd, time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC))
		ve.Props.SetText(ical.PropRecurrenceRule, "FREQ=SOMETIMES")
		ev := decodeVEvent(ve)

		got := expandRecurring(ev, ve, window)
		if len(got) != 1 || got[0].ID != "bad" {
			t.Errorf("got %v, want the base event unchanged", got)
		}
	})
}

func TestExpansionRange(t *testing.T) {
	t.Run("BoundedWindowPassesThrough", func(t *testing.T) {
		min := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
		max := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
		start, end := expansionRange(pipeline.Window{Min: min, Max: max})
		if !start.Equal(min) || !end.Equal(max) {
			t.Errorf("range = %v..%v, want %v..%v", start, end, min, max)
		}
	})

	t.Run("OpenEndedGetsHorizon", func(t *testing.T) {
		min := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
		start, end := expansionRange(pipeline.Window{Min: min})
		if !start.Equal(min) {
			t.Errorf("start = %v, want %v", start, min)
		}
		if !end.Equal(min.Add(openEndedHorizon)) {
			t.Errorf("end = %v, want one horizon past start", end)
		}
	})

	t.Run("OpenStartGetsHorizonBeforeEnd", func(t *testing.T) {
		max := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
		start, end := expansionRange(pipeline.Window{Max: max})
		if !end.Equal(max) {
			t.Errorf("end = %v, want %v", end, max)
		}
		if !start.Equal(max.Add(-openEndedHorizon)) {
			t.Errorf("start = %v, want one horizon before end", start)
		}
	})

	t.Run("UnboundedWindowSpansPastAndFuture", func(t *testing.T) {
		start, end := expansionRange(pipeline.Window{})
		now := time.Now().UTC()
		if !start.Before(now) {
			t.Errorf("start = %v, want before now", start)
		}
		if !end.After(now) {
			t.Errorf("end = %v, want after now so future events stay reachable", end)
		}
		if span := end.Sub(start); span != 2*openEndedHorizon {
			t.Errorf("span = %v, want one horizon on each side of now", span)
		}
	})
}

func TestOrderAndClamp(t *testing.T) {
	at := func(id string, start time.Time) models.RawEvent {
		return models.RawEvent{
			ID:    id,
			Start: models.NewTimestamp(start),
			End:   models.NewTimestamp(start.Add(time.Hour)),
		}
	}
	base := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	// Expansion interleaves instances out of start order.
	events := []models.RawEvent{
		at("plus2", base.Add(2*time.Hour)),
		at("plus0", base),
		at("plus1", base.Add(time.Hour)),
	}
	window := pipeline.Window{Min: base}

	t.Run("SortsBeforeCapping", func(t *testing.T) {
		got := orderAndClamp(append([]models.RawEvent(nil), events...), window, 2)
		if len(got) != 2 || got[0].ID != "plus0" || got[1].ID != "plus1" {
			t.Fatalf("got %v, want the two earliest events", got)
		}
	})

	t.Run("SortsWithoutCap", func(t *testing.T) {
		got := orderAndClamp(append([]models.RawEvent(nil), events...), window, 0)
		want := []string{"plus0", "plus1", "plus2"}
		for i := range want {
			if got[i].ID != want[i] {
				t.Fatalf("order = %v, want %v", got, want)
			}
		}
	})

	t.Run("NoLowerBoundPreservesOrder", func(t *testing.T) {
		got := orderAndClamp(append([]models.RawEvent(nil), events...), pipeline.Window{}, 2)
		if len(got) != 2 || got[0].ID != "plus2" || got[1].ID != "plus0" {
			t.Fatalf("got %v, want first two in server order", got)
		}
	})
}
