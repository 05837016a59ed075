package calendar

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func equalTimeRange(a, b TimeRange) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

//
// NewTimeRange
//

func TestNewTimeRange_Valid(t *testing.T) {
	start := mustTime(t, 2025, 1, 6, 8, 0)
	end := mustTime(t, 2025, 1, 6, 8, 30)

	tr, err := NewTimeRange(start, end)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !tr.Start.Equal(start) || !tr.End.Equal(end) {
		t.Fatalf("unexpected range %+v", tr)
	}
}

func TestNewTimeRange_Invalid(t *testing.T) {
	if _, err := NewTimeRange(time.Time{}, time.Time{}); err == nil {
		t.Fatalf("expected error for zero times, got nil")
	}

	start := mustTime(t, 2025, 1, 6, 9, 0)
	if _, err := NewTimeRange(start, start); err == nil {
		t.Fatalf("expected error when end == start, got nil")
	}
}

//
// SlotsBetween
//

func TestSlotsBetween_DefaultStep(t *testing.T) {
	day := mustTime(t, 2025, 1, 6, 0, 0)

	slots := SlotsBetween(day, 8, 14, 0)
	if len(slots) != 12 {
		t.Fatalf("expected 12 slots for 8..14 with 30m step, got %d", len(slots))
	}
	if !slots[0].Equal(mustTime(t, 2025, 1, 6, 8, 0)) {
		t.Fatalf("expected first slot at 08:00, got %v", slots[0])
	}
	if !slots[len(slots)-1].Equal(mustTime(t, 2025, 1, 6, 13, 30)) {
		t.Fatalf("expected last slot at 13:30, got %v", slots[len(slots)-1])
	}
}

func TestSlotsBetween_Restartable(t *testing.T) {
	day := mustTime(t, 2025, 1, 6, 0, 0)

	first := SlotsBetween(day, 8, 10, 30*time.Minute)
	second := SlotsBetween(day, 8, 10, 30*time.Minute)

	if len(first) != len(second) {
		t.Fatalf("expected equal lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("slot %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

//
// Containment predicates
//

func TestWithinHalfOpen_Boundaries(t *testing.T) {
	start := mustTime(t, 2025, 1, 6, 8, 0)
	end := mustTime(t, 2025, 1, 6, 12, 0)

	if !WithinHalfOpen(start, start, end) {
		t.Fatalf("start boundary must be inside")
	}
	if WithinHalfOpen(end, start, end) {
		t.Fatalf("end boundary must be outside")
	}
	if !WithinHalfOpen(mustTime(t, 2025, 1, 6, 11, 30), start, end) {
		t.Fatalf("interior point must be inside")
	}
	if WithinHalfOpen(mustTime(t, 2025, 1, 6, 7, 59), start, end) {
		t.Fatalf("point before start must be outside")
	}
}

func TestWithinClosed_Boundaries(t *testing.T) {
	start := mustTime(t, 2025, 1, 6, 0, 0)
	end := mustTime(t, 2025, 1, 10, 0, 0)

	if !WithinClosed(start, start, end) {
		t.Fatalf("start boundary must be inside")
	}
	if !WithinClosed(end, start, end) {
		t.Fatalf("end boundary must be inside")
	}
	if WithinClosed(mustTime(t, 2025, 1, 11, 0, 0), start, end) {
		t.Fatalf("point after end must be outside")
	}
}

func TestSameDay(t *testing.T) {
	a := mustTime(t, 2025, 1, 6, 8, 0)
	b := mustTime(t, 2025, 1, 6, 23, 30)
	c := mustTime(t, 2025, 1, 7, 0, 0)

	if !SameDay(a, b) {
		t.Fatalf("same calendar day expected")
	}
	if SameDay(a, c) {
		t.Fatalf("different calendar days expected")
	}
}

func TestDateUTC_NormalizesZones(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2025, 1, 6, 0, 30, 0, 0, loc)

	got := DateUTC(local)
	want := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

//
// SplitToTimeSlots
//

func TestSplitToTimeSlots_Basic(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 6, 10, 0),
		End:   mustTime(t, 2025, 1, 6, 12, 0),
	}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if !equalTimeRange(slots[0], TimeRange{Start: mustTime(t, 2025, 1, 6, 10, 0), End: mustTime(t, 2025, 1, 6, 10, 30)}) {
		t.Fatalf("unexpected first slot %+v", slots[0])
	}
}

func TestSplitToTimeSlots_TailDropped(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 6, 10, 0),
		End:   mustTime(t, 2025, 1, 6, 11, 10),
	}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
}

func TestSplitToTimeSlots_InvalidDuration(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2025, 1, 6, 10, 0),
		End:   mustTime(t, 2025, 1, 6, 11, 0),
	}

	if _, err := SplitToTimeSlots(tr, 0); err == nil {
		t.Fatalf("expected error for zero slot duration, got nil")
	}
}

//
// RangesOverlap
//

func TestRangesOverlap_Touching(t *testing.T) {
	a := TimeRange{Start: mustTime(t, 2025, 1, 6, 8, 0), End: mustTime(t, 2025, 1, 6, 8, 30)}
	b := TimeRange{Start: mustTime(t, 2025, 1, 6, 8, 30), End: mustTime(t, 2025, 1, 6, 9, 0)}

	if RangesOverlap(a, b, false) {
		t.Fatalf("touching half-open ranges must not overlap")
	}
	if !RangesOverlap(a, b, true) {
		t.Fatalf("touching closed ranges must overlap")
	}
}

func TestRangesOverlap_Proper(t *testing.T) {
	a := TimeRange{Start: mustTime(t, 2025, 1, 6, 8, 0), End: mustTime(t, 2025, 1, 6, 9, 0)}
	b := TimeRange{Start: mustTime(t, 2025, 1, 6, 8, 30), End: mustTime(t, 2025, 1, 6, 9, 30)}
	c := TimeRange{Start: mustTime(t, 2025, 1, 6, 10, 0), End: mustTime(t, 2025, 1, 6, 11, 0)}

	if !RangesOverlap(a, b, false) {
		t.Fatalf("expected overlap")
	}
	if !RangesOverlap(b, a, false) {
		t.Fatalf("overlap must be symmetric")
	}
	if RangesOverlap(a, c, false) {
		t.Fatalf("disjoint ranges must not overlap")
	}
}
