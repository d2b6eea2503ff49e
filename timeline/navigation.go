package timeline

import "time"

// ZoomRange is one client-side drill-in/out affordance: a contiguous
// range at the adjacent zoom level and how many pruned entries of the
// current view fall inside it.
type ZoomRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

// NavigationRanges partitions the window into contiguous ranges of
// width rangeWidth (the adjacent zoom level's window width) and counts
// the pruned entries intersecting each. Entries straddling a boundary
// count in every range they touch.
func NavigationRanges(pruned []Slot, windowStart, windowEnd time.Time, rangeWidth time.Duration) []ZoomRange {
	var out []ZoomRange
	for start := windowStart; start.Before(windowEnd); start = start.Add(rangeWidth) {
		end := start.Add(rangeWidth)
		count := 0
		for _, s := range pruned {
			if s.Start.Before(end) && start.Before(s.End) {
				count++
			}
		}
		out = append(out, ZoomRange{Start: start, End: end, Count: count})
	}
	return out
}
