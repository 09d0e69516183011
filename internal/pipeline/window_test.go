package pipeline

import (
	"testing"
	"time"
)

func TestResolveWindow(t *testing.T) {
	ref := time.Date(2024, time.February, 15, 13, 45, 12, 500_000_000, time.UTC)

	t.Run("Upcoming", func(t *testing.T) {
		w, err := ResolveWindow(ModeUpcoming, ref, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2024, time.February, 15, 13, 45, 12, 0, time.UTC)
		if !w.Min.Equal(want) {
			t.Errorf("Min = %v, want %v (fractional seconds truncated)", w.Min, want)
		}
		if !w.Max.IsZero() {
			t.Errorf("Max = %v, want open-ended", w.Max)
		}
	})

	t.Run("ThisMonth", func(t *testing.T) {
		w, err := ResolveWindow(ModeThisMonth, ref, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := w.Min; !got.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Min = %v, want first instant of February", got)
		}
		if got := w.Max; !got.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Max = %v, want first instant of March", got)
		}
	})

	t.Run("ThisMonthSpansExactMonth", func(t *testing.T) {
		// 2024 is a leap year; February has 29 days.
		refs := map[time.Time]time.Duration{
			time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC): 29 * 24 * time.Hour,
			time.Date(2023, time.February, 3, 0, 0, 0, 0, time.UTC):     28 * 24 * time.Hour,
			time.Date(2024, time.December, 31, 12, 0, 0, 0, time.UTC):   31 * 24 * time.Hour,
		}
		for r, wantSpan := range refs {
			w, err := ResolveWindow(ModeThisMonth, r, time.Time{}, time.Time{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if span := w.Max.Sub(w.Min); span != wantSpan {
				t.Errorf("ref %v: span = %v, want %v", r, span, wantSpan)
			}
			if w.Min.Day() != 1 {
				t.Errorf("ref %v: Min day = %d, want 1", r, w.Min.Day())
			}
		}
	})

	t.Run("ThisYear", func(t *testing.T) {
		w, err := ResolveWindow(ModeThisYear, ref, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !w.Min.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Min = %v, want Jan 1 2024", w.Min)
		}
		if !w.Max.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Max = %v, want Jan 1 2025", w.Max)
		}
	})

	t.Run("AllTime", func(t *testing.T) {
		w, err := ResolveWindow(ModeAllTime, ref, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !w.Min.IsZero() || !w.Max.IsZero() {
			t.Errorf("window = %+v, want both bounds unbounded", w)
		}
	})

	t.Run("ExplicitRange", func(t *testing.T) {
		from := time.Date(2024, time.May, 1, 10, 30, 0, 0, time.UTC)
		to := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)
		w, err := ResolveWindow(ModeRange, ref, from, to)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !w.Min.Equal(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Min = %v, want start of May 1", w.Min)
		}
		wantMax := time.Date(2024, time.May, 2, 23, 59, 59, 999_000_000, time.UTC)
		if !w.Max.Equal(wantMax) {
			t.Errorf("Max = %v, want %v", w.Max, wantMax)
		}
	})

	t.Run("RangeMissingBounds", func(t *testing.T) {
		if _, err := ResolveWindow(ModeRange, ref, time.Time{}, time.Time{}); err == nil {
			t.Error("expected error for range mode without bounds")
		}
	})

	t.Run("RangeInverted", func(t *testing.T) {
		from := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
		if _, err := ResolveWindow(ModeRange, ref, from, to); err == nil {
			t.Error("expected error for inverted range")
		}
	})

	t.Run("Pure", func(t *testing.T) {
		for _, mode := range []Mode{ModeUpcoming, ModeThisMonth, ModeThisYear, ModeAllTime} {
			a, err := ResolveWindow(mode, ref, time.Time{}, time.Time{})
			if err != nil {
				t.Fatalf("mode %s: unexpected error: %v", mode, err)
			}
			b, err := ResolveWindow(mode, ref, time.Time{}, time.Time{})
			if err != nil {
				t.Fatalf("mode %s: unexpected error: %v", mode, err)
			}
			if !a.Min.Equal(b.Min) || !a.Max.Equal(b.Max) {
				t.Errorf("mode %s: two calls with same inputs disagree: %+v vs %+v", mode, a, b)
			}
		}
	})

	t.Run("UnknownMode", func(t *testing.T) {
		if _, err := ResolveWindow(Mode("tomorrow"), ref, time.Time{}, time.Time{}); err == nil {
			t.Error("expected error for unknown mode")
		}
	})
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"upcoming", "this_month", "this_year", "all_time", "range"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q) = %v, want nil", valid, err)
		}
	}
	if _, err := ParseMode("next_week"); err == nil {
		t.Error("expected error for unknown mode string")
	}
}
