package timeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"tessera/models"
	"tessera/overlap"
	"tessera/timegrid"
)

// ReservableTimeline is the rendered, pruned slot list of one
// reservable.
type ReservableTimeline struct {
	Reservable models.Reservable `json:"reservable"`
	Slots      []Slot            `json:"slots"`
}

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// View is the full timeline response for one window and zoom level.
type View struct {
	PerReservable []ReservableTimeline  `json:"perReservable"`
	ZoomInRanges  []ZoomRange           `json:"zoomInRanges,omitempty"`
	ZoomOutRanges []ZoomRange           `json:"zoomOutRanges,omitempty"`
	Window        Window                `json:"window"`
	Zoom          int                   `json:"zoom"`
	Labels        timegrid.LabelFormats `json:"labelFmts"`
}

// Renderer ties the time grid to the overlap store. It holds no
// mutable state; one renderer serves concurrent requests.
type Renderer struct {
	Grid  *timegrid.Grid
	Store overlap.Store
}

func NewRenderer(grid *timegrid.Grid, store overlap.Store) *Renderer {
	return &Renderer{Grid: grid, Store: store}
}

// Render sweeps every reservable over the window enclosing
// requestedStart at the given zoom level. Reservables are processed
// independently and in parallel; output order is by slug so responses
// are deterministic.
func (rd *Renderer) Render(ctx context.Context, reservables []models.Reservable, requestedStart time.Time, zoom int) (*View, error) {
	zoom = rd.Grid.ClampZoom(zoom)
	level := rd.Grid.Levels[zoom]
	start := rd.Grid.RoundTime(requestedStart, level.TimeRange)
	end := start.Add(level.TimeRange)

	sorted := make([]models.Reservable, len(reservables))
	copy(sorted, reservables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slug < sorted[j].Slug })

	per := make([]ReservableTimeline, len(sorted))
	errs := make([]error, len(sorted))

	var wg sync.WaitGroup
	for i, r := range sorted {
		wg.Add(1)
		go func(i int, r models.Reservable) {
			defer wg.Done()
			seq, err := rd.Store.FindOverlapping(ctx, start, end, []string{r.ReservableID}, "")
			if err != nil {
				errs[i] = err
				return
			}
			slots, err := Sweep(ctx, seq, start, end, level.Step)
			if err != nil {
				errs[i] = err
				return
			}
			per[i] = ReservableTimeline{Reservable: r, Slots: Prune(slots)}
		}(i, r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	view := &View{
		PerReservable: per,
		Window:        Window{Start: start, End: end},
		Zoom:          zoom,
		Labels:        level.Labels,
	}

	var allPruned []Slot
	for _, p := range per {
		allPruned = append(allPruned, p.Slots...)
	}
	if zoom > 0 {
		view.ZoomInRanges = NavigationRanges(allPruned, start, end, rd.Grid.Levels[zoom-1].TimeRange)
	}
	if zoom < len(rd.Grid.Levels)-1 {
		view.ZoomOutRanges = NavigationRanges(allPruned, start, end, rd.Grid.Levels[zoom+1].TimeRange)
	}

	return view, nil
}
