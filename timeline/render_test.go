package timeline

import (
	"context"
	"testing"
	"time"

	"tessera/models"
	"tessera/overlap"
	"tessera/timegrid"
)

func testRenderer(reservations []models.Reservation) *Renderer {
	grid := timegrid.NewGrid(timegrid.DefaultLevels(), time.UTC)
	return NewRenderer(grid, &overlap.MemoryStore{Reservations: reservations})
}

func TestRenderDeterministicOrderAndWindow(t *testing.T) {
	reservations := []models.Reservation{{
		ReservationID: "r1",
		Start:         day(9, 0), End: day(10, 30),
		Owners:      []string{"alice"},
		Reservables: []string{"id-a"},
	}}
	rd := testRenderer(reservations)

	reservables := []models.Reservable{
		{ReservableID: "id-b", Slug: "room-b"},
		{ReservableID: "id-a", Slug: "room-a"},
	}
	view, err := rd.Render(context.Background(), reservables, day(13, 45), 1)
	if err != nil {
		t.Fatal(err)
	}

	if !view.Window.Start.Equal(day(0, 0)) || !view.Window.End.Equal(day(24, 0)) {
		t.Errorf("window = %+v, want the enclosing day", view.Window)
	}
	if len(view.PerReservable) != 2 {
		t.Fatalf("got %d timelines, want 2", len(view.PerReservable))
	}
	if view.PerReservable[0].Reservable.Slug != "room-a" || view.PerReservable[1].Reservable.Slug != "room-b" {
		t.Errorf("timelines not ordered by slug: %s, %s",
			view.PerReservable[0].Reservable.Slug, view.PerReservable[1].Reservable.Slug)
	}

	// room-a carries the reservation, room-b is a single free span.
	if len(view.PerReservable[0].Slots) != 4 {
		t.Errorf("room-a pruned slots = %d, want 4", len(view.PerReservable[0].Slots))
	}
	bSlots := view.PerReservable[1].Slots
	if len(bSlots) != 1 || bSlots[0].FreeFraction != 1 || bSlots[0].Span != 24 {
		t.Errorf("room-b should collapse to one free span: %+v", bSlots)
	}
}

func TestRenderZoomNavigation(t *testing.T) {
	rd := testRenderer(nil)
	reservables := []models.Reservable{{ReservableID: "id-a", Slug: "room-a"}}

	view, err := rd.Render(context.Background(), reservables, day(0, 0), 1)
	if err != nil {
		t.Fatal(err)
	}
	// Level 1 is a 1-day window; level 0 ranges are 4h each.
	if len(view.ZoomInRanges) != 6 {
		t.Errorf("got %d zoom-in ranges, want 6", len(view.ZoomInRanges))
	}
	if len(view.ZoomOutRanges) == 0 {
		t.Error("zoom-out ranges missing")
	}
	// The single pruned free span touches every zoom-in range.
	for i, zr := range view.ZoomInRanges {
		if zr.Count != 1 {
			t.Errorf("zoom-in range %d count = %d, want 1", i, zr.Count)
		}
	}

	view, err = rd.Render(context.Background(), reservables, day(0, 0), 0)
	if err != nil {
		t.Fatal(err)
	}
	if view.ZoomInRanges != nil {
		t.Error("finest level must not offer zoom-in")
	}

	view, err = rd.Render(context.Background(), reservables, day(0, 0), 99)
	if err != nil {
		t.Fatal(err)
	}
	if view.Zoom != 3 {
		t.Errorf("zoom not clamped: %d", view.Zoom)
	}
	if view.ZoomOutRanges != nil {
		t.Error("coarsest level must not offer zoom-out")
	}
}

func TestRenderNoReservables(t *testing.T) {
	rd := testRenderer(nil)
	view, err := rd.Render(context.Background(), nil, day(0, 0), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.PerReservable) != 0 {
		t.Errorf("expected empty per-reservable list, got %d", len(view.PerReservable))
	}
}
