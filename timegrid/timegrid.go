// Package timegrid holds the zoom-level table and the time rounding
// rules shared by the overlap query and the timeline renderer.
package timegrid

import (
	"os"
	"time"
)

// LabelFormats are purely presentational hints echoed to the client;
// the server never interprets them.
type LabelFormats struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	ZoomIn  string `json:"zoom_in,omitempty"`
	ZoomOut string `json:"zoom_out,omitempty"`
}

// ZoomLevel describes one timeline resolution: the total window width
// and the bucket width.
type ZoomLevel struct {
	TimeRange time.Duration `json:"timeRange"`
	Step      time.Duration `json:"step"`
	Labels    LabelFormats  `json:"labels"`
}

// Grid is an immutable ordered zoom-level table bound to a timezone.
// Injected at startup so tests can run with synthetic levels.
type Grid struct {
	Levels []ZoomLevel
	Loc    *time.Location
}

// DefaultLevels is the production table, index 0 = finest.
func DefaultLevels() []ZoomLevel {
	return []ZoomLevel{
		{TimeRange: 4 * time.Hour, Step: 5 * time.Minute,
			Labels: LabelFormats{Start: "H:i", End: "H:i", ZoomOut: "D d.m. H:i"}},
		{TimeRange: 24 * time.Hour, Step: time.Hour,
			Labels: LabelFormats{Start: "D d.m.", End: "H:i", ZoomIn: "H:i", ZoomOut: "D d.m."}},
		{TimeRange: 7 * 24 * time.Hour, Step: 4 * time.Hour,
			Labels: LabelFormats{Start: "d.m.", End: "d.m.", ZoomIn: "D d.m.", ZoomOut: "d.m."}},
		{TimeRange: 28 * 24 * time.Hour, Step: 4 * time.Hour,
			Labels: LabelFormats{Start: "d.m.", End: "d.m.", ZoomIn: "d.m."}},
	}
}

// NewGrid builds a grid over the given levels; nil levels means the
// default table, nil loc means the deployment timezone.
func NewGrid(levels []ZoomLevel, loc *time.Location) *Grid {
	if levels == nil {
		levels = DefaultLevels()
	}
	if loc == nil {
		loc = Location()
	}
	return &Grid{Levels: levels, Loc: loc}
}

// Location returns the deployment timezone (TIMEZONE env), UTC if unset
// or unknown.
func Location() *time.Location {
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.UTC
}

// ClampZoom clamps z into the valid level range.
func (g *Grid) ClampZoom(z int) int {
	if z < 0 {
		return 0
	}
	if z >= len(g.Levels) {
		return len(g.Levels) - 1
	}
	return z
}

// Exact threshold cutoffs for RoundTime. Not approximations.
const (
	week  = 7 * 24 * time.Hour
	month = 27 * 24 * time.Hour
	year  = 365 * 24 * time.Hour
)

// RoundTime rounds t down to the enclosing bucket boundary for the
// given bucket width, in the grid's timezone:
//
//   - delta < 1 week: nearest multiple of delta measured from the
//     epoch, shifted so day-aligned deltas land on local midnight
//   - 1 week <= delta < 27 days: start of the ISO week (Monday 00:00)
//   - 27 days <= delta < 365 days: first of the month
//   - delta >= 365 days: January 1 of the year
func (g *Grid) RoundTime(t time.Time, delta time.Duration) time.Time {
	lt := t.In(g.Loc)
	switch {
	case delta < week:
		// Across a DST transition the zone offset at the bucket
		// boundary can differ from the offset at t; re-round with the
		// boundary's offset until they agree so day-aligned buckets
		// land on local midnight on transition days too.
		step := int64(delta / time.Second)
		_, off := lt.Zone()
		rounded := lt
		for i := 0; i < 3; i++ {
			sec := lt.Unix() + int64(off)
			sec -= sec % step
			rounded = time.Unix(sec-int64(off), 0).In(g.Loc)
			_, roff := rounded.Zone()
			if roff == off {
				break
			}
			off = roff
		}
		return rounded
	case delta < month:
		day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, g.Loc)
		monday := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -monday)
	case delta < year:
		return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, g.Loc)
	default:
		return time.Date(lt.Year(), time.January, 1, 0, 0, 0, 0, g.Loc)
	}
}

// Accepted input formats, tried in order; the first successful parse
// wins. (The legacy implementation kept the last successful parse; that
// was a latent bug, not a contract.)
var timeFormats = []string{
	"2006-01-02 15:04:05",
	"02.01.2006",
	"2006-01-02",
	"2006-01-02 15:04",
}

// ParseTimeString parses s against the fixed format list in the grid's
// timezone. On total failure it deliberately falls back to the current
// time instead of erroring; callers treating "now" as a default window
// start rely on this.
func (g *Grid) ParseTimeString(s string) time.Time {
	for _, layout := range timeFormats {
		if ts, err := time.ParseInLocation(layout, s, g.Loc); err == nil {
			return ts
		}
	}
	return time.Now().In(g.Loc)
}
