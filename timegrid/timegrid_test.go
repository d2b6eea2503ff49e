package timegrid

import (
	"testing"
	"time"
)

func utcGrid() *Grid {
	return NewGrid(DefaultLevels(), time.UTC)
}

func TestClampZoom(t *testing.T) {
	g := utcGrid()
	cases := []struct{ in, want int }{
		{-5, 0},
		{0, 0},
		{2, 2},
		{3, 3},
		{4, 3},
		{99, 3},
	}
	for _, c := range cases {
		if got := g.ClampZoom(c.in); got != c.want {
			t.Errorf("ClampZoom(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRoundTimeSubWeek(t *testing.T) {
	g := utcGrid()
	cases := []struct {
		name  string
		in    string
		delta time.Duration
		want  string
	}{
		{"five minutes", "2024-01-01T09:03:17Z", 5 * time.Minute, "2024-01-01T09:00:00Z"},
		{"one hour", "2024-01-01T09:59:59Z", time.Hour, "2024-01-01T09:00:00Z"},
		{"four hours", "2024-01-01T15:00:00Z", 4 * time.Hour, "2024-01-01T12:00:00Z"},
		{"one day", "2024-03-05T23:10:00Z", 24 * time.Hour, "2024-03-05T00:00:00Z"},
		{"already aligned", "2024-01-01T08:00:00Z", time.Hour, "2024-01-01T08:00:00Z"},
	}
	for _, c := range cases {
		in, _ := time.Parse(time.RFC3339, c.in)
		want, _ := time.Parse(time.RFC3339, c.want)
		got := g.RoundTime(in, c.delta)
		if !got.Equal(want) {
			t.Errorf("%s: RoundTime = %v, want %v", c.name, got, want)
		}
	}
}

func TestRoundTimeWeekMonthYear(t *testing.T) {
	g := utcGrid()
	// 2024-03-07 is a Thursday; its ISO week starts Monday 2024-03-04.
	in, _ := time.Parse(time.RFC3339, "2024-03-07T13:45:00Z")

	got := g.RoundTime(in, 7*24*time.Hour)
	if want, _ := time.Parse(time.RFC3339, "2024-03-04T00:00:00Z"); !got.Equal(want) {
		t.Errorf("week rounding = %v, want %v", got, want)
	}

	got = g.RoundTime(in, 28*24*time.Hour)
	if want, _ := time.Parse(time.RFC3339, "2024-03-01T00:00:00Z"); !got.Equal(want) {
		t.Errorf("month rounding = %v, want %v", got, want)
	}

	got = g.RoundTime(in, 366*24*time.Hour)
	if want, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z"); !got.Equal(want) {
		t.Errorf("year rounding = %v, want %v", got, want)
	}
}

// A Monday must round to itself at week granularity.
func TestRoundTimeWeekOnMonday(t *testing.T) {
	g := utcGrid()
	in, _ := time.Parse(time.RFC3339, "2024-03-04T00:00:00Z")
	if got := g.RoundTime(in, 7*24*time.Hour); !got.Equal(in) {
		t.Errorf("monday week rounding = %v, want %v", got, in)
	}
}

func TestRoundTimeIdempotent(t *testing.T) {
	g := utcGrid()
	deltas := []time.Duration{
		5 * time.Minute, time.Hour, 4 * time.Hour, 24 * time.Hour,
		7 * 24 * time.Hour, 28 * 24 * time.Hour, 400 * 24 * time.Hour,
	}
	times := []string{
		"2024-01-01T00:00:00Z",
		"2024-02-29T23:59:59Z",
		"2023-12-31T12:34:56Z",
		"2024-07-15T04:05:06Z",
	}
	for _, d := range deltas {
		for _, s := range times {
			in, _ := time.Parse(time.RFC3339, s)
			once := g.RoundTime(in, d)
			twice := g.RoundTime(once, d)
			if !once.Equal(twice) {
				t.Errorf("RoundTime not idempotent for %v at %v: %v != %v", d, in, once, twice)
			}
		}
	}
}

func TestRoundTimeZoned(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Ljubljana")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	g := NewGrid(DefaultLevels(), loc)

	// 2024-06-10 10:30 CEST rounds to local midnight at day granularity.
	in := time.Date(2024, 6, 10, 10, 30, 0, 0, loc)
	got := g.RoundTime(in, 24*time.Hour)
	want := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("zoned day rounding = %v, want %v", got, want)
	}
}

// Day buckets must start at local midnight even on DST transition
// days, where midnight's zone offset differs from the offset later in
// the day.
func TestRoundTimeDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Ljubljana")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	g := NewGrid(DefaultLevels(), loc)

	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		// 2024-03-31: clocks jump 02:00 CET -> 03:00 CEST.
		{"spring forward",
			time.Date(2024, 3, 31, 12, 0, 0, 0, loc),
			time.Date(2024, 3, 31, 0, 0, 0, 0, loc)},
		// 2024-10-27: clocks fall back 03:00 CEST -> 02:00 CET.
		{"fall back",
			time.Date(2024, 10, 27, 12, 0, 0, 0, loc),
			time.Date(2024, 10, 27, 0, 0, 0, 0, loc)},
	}
	for _, c := range cases {
		got := g.RoundTime(c.in, 24*time.Hour)
		if !got.Equal(c.want) {
			t.Errorf("%s: day rounding = %v, want %v", c.name, got, c.want)
		}
		if twice := g.RoundTime(got, 24*time.Hour); !twice.Equal(got) {
			t.Errorf("%s: not idempotent: once=%v twice=%v", c.name, got, twice)
		}
	}

	// Sub-day buckets stay aligned through the transition too.
	in := time.Date(2024, 3, 31, 3, 30, 0, 0, loc)
	got := g.RoundTime(in, time.Hour)
	if want := time.Date(2024, 3, 31, 3, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("hour rounding across spring forward = %v, want %v", got, want)
	}
}

func TestParseTimeString(t *testing.T) {
	g := utcGrid()
	cases := []struct {
		in   string
		want string
	}{
		{"2024-01-02 15:04:05", "2024-01-02T15:04:05Z"},
		{"02.03.2024", "2024-03-02T00:00:00Z"},
		{"2024-01-02", "2024-01-02T00:00:00Z"},
		{"2024-01-02 15:04", "2024-01-02T15:04:00Z"},
	}
	for _, c := range cases {
		want, _ := time.Parse(time.RFC3339, c.want)
		if got := g.ParseTimeString(c.in); !got.Equal(want) {
			t.Errorf("ParseTimeString(%q) = %v, want %v", c.in, got, want)
		}
	}
}

func TestParseTimeStringFallsBackToNow(t *testing.T) {
	g := utcGrid()
	before := time.Now().Add(-time.Second)
	got := g.ParseTimeString("not a time")
	after := time.Now().Add(time.Second)
	if got.Before(before) || got.After(after) {
		t.Errorf("fallback should be now, got %v", got)
	}
}
