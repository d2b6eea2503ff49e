package timeline

import (
	"context"
	"sort"
	"testing"
	"time"

	"tessera/models"
	"tessera/overlap"
)

func day(hour, min int) time.Time {
	return time.Date(2024, 1, 1, hour, min, 0, 0, time.UTC)
}

func sweepOver(t *testing.T, reservations []models.Reservation, start, end time.Time, step time.Duration) []Slot {
	t.Helper()
	sorted := make([]models.Reservation, len(reservations))
	copy(sorted, reservations)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End.Before(sorted[j].End)
	})
	slots, err := Sweep(context.Background(), overlap.NewSliceSeq(sorted), start, end, step)
	if err != nil {
		t.Fatal(err)
	}
	return slots
}

// The reference scenario: 1-day window at 1-hour steps, one
// reservation 09:00-10:30. Slot 9 fully booked, slot 10 half booked,
// everything else free and collapsed into two pruned spans.
func TestSweepReferenceScenario(t *testing.T) {
	reservations := []models.Reservation{{
		ReservationID: "r1",
		Start:         day(9, 0),
		End:           day(10, 30),
		Owners:        []string{"alice"},
		Reservables:   []string{"room-a"},
	}}
	slots := sweepOver(t, reservations, day(0, 0), day(24, 0), time.Hour)

	if len(slots) != 24 {
		t.Fatalf("got %d slots, want 24", len(slots))
	}
	for i, s := range slots {
		var want float64
		switch i {
		case 9:
			want = 0.0
		case 10:
			want = 0.5
		default:
			want = 1.0
		}
		if s.FreeFraction != want {
			t.Errorf("slot %d: freeFraction = %v, want %v", i, s.FreeFraction, want)
		}
	}
	if !slots[9].Busy() || !slots[10].Busy() {
		t.Error("slots 9 and 10 must be busy")
	}
	if slots[9].ReservationIDs[0] != "r1" || slots[9].OwnerIDs[0] != "alice" {
		t.Errorf("slot 9 contributors wrong: %+v", slots[9])
	}

	pruned := Prune(slots)
	if len(pruned) != 4 {
		t.Fatalf("got %d pruned entries, want 4: %+v", len(pruned), pruned)
	}
	if !pruned[0].Start.Equal(day(0, 0)) || !pruned[0].End.Equal(day(9, 0)) || pruned[0].Span != 9 {
		t.Errorf("first pruned span wrong: %+v", pruned[0])
	}
	if !pruned[3].Start.Equal(day(11, 0)) || !pruned[3].End.Equal(day(24, 0)) || pruned[3].Span != 13 {
		t.Errorf("last pruned span wrong: %+v", pruned[3])
	}
}

func TestSweepEmptyIsOnePrunedSpan(t *testing.T) {
	slots := sweepOver(t, nil, day(0, 0), day(24, 0), time.Hour)
	pruned := Prune(slots)
	if len(pruned) != 1 {
		t.Fatalf("got %d pruned entries, want 1", len(pruned))
	}
	p := pruned[0]
	if !p.Start.Equal(day(0, 0)) || !p.End.Equal(day(24, 0)) || p.Span != 24 || p.FreeFraction != 1 {
		t.Errorf("pruned span wrong: %+v", p)
	}
}

func TestSweepFullWindowReservation(t *testing.T) {
	reservations := []models.Reservation{{
		ReservationID: "r1",
		Start:         day(0, 0).Add(-time.Hour),
		End:           day(24, 0).Add(time.Hour),
		Reservables:   []string{"room-a"},
	}}
	slots := sweepOver(t, reservations, day(0, 0), day(24, 0), time.Hour)
	for i, s := range slots {
		if s.FreeFraction != 0 {
			t.Errorf("slot %d: freeFraction = %v, want 0", i, s.FreeFraction)
		}
		if !s.Busy() {
			t.Errorf("slot %d must be busy", i)
		}
	}
}

// A reservation ending exactly on a slot boundary expires in that
// slot, not the following one.
func TestSweepBoundaryExpiry(t *testing.T) {
	reservations := []models.Reservation{{
		ReservationID: "r1",
		Start:         day(9, 0),
		End:           day(10, 0),
		Reservables:   []string{"room-a"},
	}}
	slots := sweepOver(t, reservations, day(0, 0), day(24, 0), time.Hour)
	if slots[9].FreeFraction != 0 || !slots[9].Busy() {
		t.Errorf("slot 9 should be fully booked: %+v", slots[9])
	}
	if slots[10].FreeFraction != 1 || slots[10].Busy() {
		t.Errorf("slot 10 should be untouched: %+v", slots[10])
	}
}

// Overlapping reservations count once: free fraction is union
// occupancy.
func TestSweepUnionOccupancy(t *testing.T) {
	reservations := []models.Reservation{
		{ReservationID: "r1", Start: day(9, 0), End: day(9, 40), Reservables: []string{"room-a"}},
		{ReservationID: "r2", Start: day(9, 20), End: day(9, 50), Reservables: []string{"room-a"}},
	}
	slots := sweepOver(t, reservations, day(0, 0), day(24, 0), time.Hour)
	// Union is 09:00-09:50, so 10 minutes of the hour are free.
	want := float64(10*60) / float64(3600)
	if slots[9].FreeFraction != want {
		t.Errorf("slot 9: freeFraction = %v, want %v", slots[9].FreeFraction, want)
	}
	if len(slots[9].ReservationIDs) != 2 {
		t.Errorf("slot 9 should list both reservations: %+v", slots[9].ReservationIDs)
	}
}

// Gaps between reservations inside one slot are credited as free time.
func TestSweepIntraSlotGap(t *testing.T) {
	reservations := []models.Reservation{
		{ReservationID: "r1", Start: day(9, 0), End: day(9, 10), Reservables: []string{"room-a"}},
		{ReservationID: "r2", Start: day(9, 30), End: day(9, 40), Reservables: []string{"room-a"}},
	}
	slots := sweepOver(t, reservations, day(0, 0), day(24, 0), time.Hour)
	// Busy 20 minutes, free 40.
	want := float64(40*60) / float64(3600)
	if slots[9].FreeFraction != want {
		t.Errorf("slot 9: freeFraction = %v, want %v", slots[9].FreeFraction, want)
	}
}

// Conservation: the busy time summed over all slots equals the length
// of the union of the window-clipped reservations.
func TestSweepConservation(t *testing.T) {
	cases := [][]models.Reservation{
		{
			{ReservationID: "a", Start: day(1, 15), End: day(3, 45)},
			{ReservationID: "b", Start: day(2, 0), End: day(2, 30)},
			{ReservationID: "c", Start: day(5, 0), End: day(5, 5)},
		},
		{
			{ReservationID: "a", Start: day(0, 0).Add(-2 * time.Hour), End: day(1, 30)},
			{ReservationID: "b", Start: day(1, 30), End: day(2, 45)},
			{ReservationID: "c", Start: day(22, 10), End: day(24, 0).Add(time.Hour)},
		},
		{
			{ReservationID: "a", Start: day(8, 0), End: day(12, 0)},
			{ReservationID: "b", Start: day(9, 0), End: day(10, 0)},
			{ReservationID: "c", Start: day(11, 0), End: day(14, 0)},
			{ReservationID: "d", Start: day(13, 59), End: day(14, 1)},
		},
	}

	windowStart, windowEnd := day(0, 0), day(24, 0)
	step := time.Hour
	for i, reservations := range cases {
		slots := sweepOver(t, reservations, windowStart, windowEnd, step)
		var busy time.Duration
		for _, s := range slots {
			busy += time.Duration(float64(step) * (1 - s.FreeFraction))
		}
		want := unionLength(reservations, windowStart, windowEnd)
		if diff := busy - want; diff < -time.Second || diff > time.Second {
			t.Errorf("case %d: busy total %v, want %v", i, busy, want)
		}
	}
}

func unionLength(reservations []models.Reservation, windowStart, windowEnd time.Time) time.Duration {
	type iv struct{ start, end time.Time }
	var clipped []iv
	for _, r := range reservations {
		start, end := r.Start, r.End
		if start.Before(windowStart) {
			start = windowStart
		}
		if end.After(windowEnd) {
			end = windowEnd
		}
		if start.Before(end) {
			clipped = append(clipped, iv{start, end})
		}
	}
	sort.Slice(clipped, func(i, j int) bool { return clipped[i].start.Before(clipped[j].start) })
	var total time.Duration
	var cur *iv
	for i := range clipped {
		if cur == nil || clipped[i].start.After(cur.end) {
			if cur != nil {
				total += cur.end.Sub(cur.start)
			}
			c := clipped[i]
			cur = &c
			continue
		}
		if clipped[i].end.After(cur.end) {
			cur.end = clipped[i].end
		}
	}
	if cur != nil {
		total += cur.end.Sub(cur.start)
	}
	return total
}

// Expanding a pruned list reproduces the original busy bitmap.
func TestPruneRoundTrip(t *testing.T) {
	reservations := []models.Reservation{
		{ReservationID: "a", Start: day(3, 0), End: day(4, 30)},
		{ReservationID: "b", Start: day(9, 0), End: day(10, 0)},
		{ReservationID: "c", Start: day(15, 45), End: day(16, 15)},
	}
	slots := sweepOver(t, reservations, day(0, 0), day(24, 0), time.Hour)
	expanded := Expand(Prune(slots), time.Hour)

	if len(expanded) != len(slots) {
		t.Fatalf("expanded %d slots, want %d", len(expanded), len(slots))
	}
	for i := range slots {
		if expanded[i].Busy() != slots[i].Busy() {
			t.Errorf("slot %d: busy %v after round trip, want %v", i, expanded[i].Busy(), slots[i].Busy())
		}
		if !expanded[i].Start.Equal(slots[i].Start) || !expanded[i].End.Equal(slots[i].End) {
			t.Errorf("slot %d: bounds changed after round trip", i)
		}
	}
}
