// Package timeline renders per-reservable occupancy timelines: a
// sweep over the ordered overlap query feeding a min-heap of running
// reservations, one slot per zoom-level step, with fully-free runs
// collapsed into pruned spans.
package timeline

import (
	"container/heap"
	"context"
	"sort"
	"time"

	"tessera/overlap"
)

// Slot is one rendered timeline bucket. A pruned free span covers
// Span consecutive steps with FreeFraction 1 and no reservations;
// occupied slots always have Span 1.
type Slot struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Span           int       `json:"span"`
	FreeFraction   float64   `json:"freeFraction"`
	ReservationIDs []string  `json:"reservationIds,omitempty"`
	OwnerIDs       []string  `json:"ownerIds,omitempty"`
}

// Busy reports whether at least one reservation touches the slot.
func (s Slot) Busy() bool { return len(s.ReservationIDs) > 0 }

// running is a heap entry: a reservation admitted to the sweep that
// has not yet expired. Ordered by end time.
type running struct {
	id     string
	end    time.Time
	owners []string
}

type runHeap []running

func (h runHeap) Len() int           { return len(h) }
func (h runHeap) Less(i, j int) bool { return h[i].end.Before(h[j].end) }
func (h runHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x any)        { *h = append(*h, x.(running)) }
func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Sweep consumes a (start, end)-ordered reservation sequence and
// produces one slot per step across [windowStart, windowEnd). All
// interval arithmetic is in whole seconds; the free fraction becomes a
// float only at the final ratio.
//
// Free time is union occupancy: overlapping reservations are counted
// once. A reservation ending exactly at a slot's end expires in that
// slot, not the next.
func Sweep(ctx context.Context, seq overlap.Seq, windowStart, windowEnd time.Time, step time.Duration) ([]Slot, error) {
	defer seq.Close(ctx)

	stepSec := int64(step / time.Second)
	total := int64(windowEnd.Sub(windowStart) / time.Second)
	numSlots := int(total / stepSec)
	if total%stepSec != 0 {
		numSlots++
	}

	slots := make([]Slot, 0, numSlots)
	h := &runHeap{}

	// One-item lookahead over the ordered sequence.
	var pending *running
	var pendingStart time.Time
	advance := func() error {
		pending = nil
		if seq.Next(ctx) {
			r := seq.Reservation()
			pending = &running{id: r.ReservationID, end: r.End, owners: r.Owners}
			pendingStart = r.Start
		}
		return seq.Err()
	}
	if err := advance(); err != nil {
		return nil, err
	}

	// busyUntil is the union-coverage watermark: the latest end time
	// among all admitted reservations. Correct because admissions come
	// ordered by start.
	var busyUntil time.Time

	for i := 0; i < numSlots; i++ {
		slotStart := windowStart.Add(time.Duration(i) * step)
		slotEnd := slotStart.Add(step)

		// Drop reservations that expired in a strictly earlier slot.
		for h.Len() > 0 && !(*h)[0].end.After(slotStart) {
			heap.Pop(h)
		}

		free := int64(0)
		cursor := slotStart
		if busyUntil.After(cursor) {
			cursor = minTime(busyUntil, slotEnd)
		}

		for pending != nil && pendingStart.Before(slotEnd) {
			if pendingStart.After(cursor) {
				free += int64(pendingStart.Sub(cursor) / time.Second)
				cursor = pendingStart
			}
			if pending.end.After(busyUntil) {
				busyUntil = pending.end
			}
			if busyUntil.After(cursor) {
				cursor = minTime(busyUntil, slotEnd)
			}
			heap.Push(h, *pending)
			if err := advance(); err != nil {
				return nil, err
			}
		}

		if slotEnd.After(cursor) {
			free += int64(slotEnd.Sub(cursor) / time.Second)
		}

		slot := Slot{
			Start:        slotStart,
			End:          slotEnd,
			Span:         1,
			FreeFraction: float64(free) / float64(stepSec),
		}
		// Everything still in the heap touches this slot: admitted
		// (start < slotEnd) and not expired (end > slotStart).
		if h.Len() > 0 {
			ids := make([]string, 0, h.Len())
			ownerSet := make(map[string]bool)
			for _, r := range *h {
				ids = append(ids, r.id)
				for _, o := range r.owners {
					ownerSet[o] = true
				}
			}
			sort.Strings(ids)
			owners := make([]string, 0, len(ownerSet))
			for o := range ownerSet {
				owners = append(owners, o)
			}
			sort.Strings(owners)
			slot.ReservationIDs = ids
			slot.OwnerIDs = owners
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// Prune merges runs of entirely-free slots into single spans. Long
// free stretches dominate real calendars; collapsing keeps responses
// small.
func Prune(slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		n := len(out)
		if s.FreeFraction == 1 && !s.Busy() &&
			n > 0 && out[n-1].FreeFraction == 1 && !out[n-1].Busy() {
			out[n-1].End = s.End
			out[n-1].Span += s.Span
			continue
		}
		out = append(out, s)
	}
	return out
}

// Expand is Prune's inverse: pruned spans back to per-step slots.
func Expand(pruned []Slot, step time.Duration) []Slot {
	var out []Slot
	for _, s := range pruned {
		if s.Span <= 1 {
			out = append(out, s)
			continue
		}
		start := s.Start
		for i := 0; i < s.Span; i++ {
			out = append(out, Slot{
				Start:        start,
				End:          start.Add(step),
				Span:         1,
				FreeFraction: 1,
			})
			start = start.Add(step)
		}
	}
	return out
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
