package chart

import (
	"math"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
)

func TestScale(t *testing.T) {
	s := NewScale(0, 1000, 0, 100)

	if v := s.Map(250); v != 25 {
		t.Errorf("Map(250) = %v, want 25", v)
	}
	if v := s.Invert(25); v != 250 {
		t.Errorf("Invert(25) = %v, want 250", v)
	}

	flat := NewScale(5, 5, 0, 100)
	if v := flat.Map(5); v != 50 {
		t.Errorf("degenerate Map = %v, want 50", v)
	}

	inverted := NewScale(0, 10, 100, 0)
	if v := inverted.Map(10); v != 0 {
		t.Errorf("inverted Map(10) = %v, want 0", v)
	}
}

func TestZoomTransformClamp(t *testing.T) {
	tests := []struct {
		name string
		in   ZoomTransform
		out  ZoomTransform
	}{
		{"identity", Identity, Identity},
		{"zoom out past 1", ZoomTransform{K: 0.5, X: 10}, ZoomTransform{K: 1, X: 0}},
		{"zoom in past 100", ZoomTransform{K: 500, X: -100}, ZoomTransform{K: 100, X: -100}},
		{"pan past start", ZoomTransform{K: 2, X: 30}, ZoomTransform{K: 2, X: 0}},
		{"pan past end", ZoomTransform{K: 2, X: -150}, ZoomTransform{K: 2, X: -100}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.in.Clamp(100); got != test.out {
				t.Errorf("Clamp = %+v, want %+v", got, test.out)
			}
		})
	}
}

func TestViewport(t *testing.T) {
	full := NewScale(0, 1000, 0, 100)

	visible, tf := Viewport(full, 250, 500)
	if tf != (ZoomTransform{K: 4, X: -100}) {
		t.Errorf("transform = %+v", tf)
	}
	if visible.Domain != [2]float64{250, 500} {
		t.Errorf("visible domain = %v", visible.Domain)
	}

	// Narrower than the zoom limit allows.
	visible, tf = Viewport(full, 500, 501)
	if tf.K != MaxZoom {
		t.Errorf("K = %v, want %v", tf.K, MaxZoom)
	}
	if span := visible.Domain[1] - visible.Domain[0]; math.Abs(span-10) > 1e-9 {
		t.Errorf("visible span = %v, want 10", span)
	}
	if !visible.Contains(500.5) {
		t.Errorf("visible %v does not contain the window", visible.Domain)
	}

	for _, window := range [][2]float64{{0, 0}, {500, 250}} {
		visible, tf = Viewport(full, window[0], window[1])
		if tf != Identity || visible != full {
			t.Errorf("window %v: got %+v %v, want the full view", window, tf, visible.Domain)
		}
	}
}

func TestTicks(t *testing.T) {
	tests := []struct {
		lo, hi float64
		n      int
		want   []float64
	}{
		{0, 10, 5, []float64{0, 2, 4, 6, 8, 10}},
		{-3, 7, 5, []float64{-2, 0, 2, 4, 6}},
		{0, 1, 5, []float64{0, 0.2, 0.4, 0.6, 0.8, 1}},
		{0, 1000, 3, []float64{0, 500, 1000}},
		{3, 3, 5, []float64{3}},
		{0, 10, 0, nil},
	}

	for _, test := range tests {
		got := Ticks(test.lo, test.hi, test.n)
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("Ticks(%v, %v, %d) = %v, want %v", test.lo, test.hi, test.n, got, test.want)
		}
	}
}

func TestTimeTicks(t *testing.T) {
	lo := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	hi := lo.Add(3 * time.Hour)

	got := TimeTicks(lo, hi, 4, time.UTC)
	want := []time.Time{
		time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC),
	}

	if len(got) != len(want) {
		t.Fatalf("TimeTicks = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("tick %d = %v, want %v", i, got[i], want[i])
		}
	}

	days := TimeTicks(lo, lo.Add(10*24*time.Hour), 5, time.UTC)
	for _, tick := range days {
		if tick.Hour() != 0 || tick.Minute() != 0 {
			t.Errorf("day tick %v is not at midnight", tick)
		}
	}
	if len(days) == 0 || len(days) > 5 {
		t.Errorf("got %d day ticks", len(days))
	}
}

func TestFormatDate(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	past := time.Date(2024, 2, 1, 13, 5, 0, 0, time.UTC)

	tests := []struct {
		name string
		d    time.Time
		opts DateOpts
		want string
	}{
		{"now", now.Add(-30 * time.Second), DateOpts{}, "Now"},
		{"today", time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC), DateOpts{}, "Today"},
		{"yesterday", time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC), DateOpts{}, "Yesterday"},
		{"date", past, DateOpts{}, "Feb 1"},
		{"year", past, DateOpts{IncludeYear: true}, "Feb 1, 2024"},
		{"hour", past, DateOpts{IncludeYear: true, IncludeHour: true}, "Feb 1, 1PM"},
		{"minute", past, DateOpts{IncludeHour: true, IncludeMinute: true}, "Feb 1, 1:05PM"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := FormatDate(test.d, now, test.opts); got != test.want {
				t.Errorf("FormatDate = %q, want %q", got, test.want)
			}
		})
	}

	start := past.Add(-time.Hour)
	if got := FormatDateInRange(past, start, past.Add(time.Minute), now); got != "Feb 1, 1:05PM" {
		t.Errorf("short range = %q", got)
	}
	if got := FormatDateInRange(past, start, past.AddDate(0, 0, 30), now); got != "Feb 1" {
		t.Errorf("month range = %q", got)
	}
	if got := FormatDateInRange(past, start.AddDate(-1, 0, 0), past, now); got != "Feb 1, 2024" {
		t.Errorf("year range = %q", got)
	}
}

func TestRightmostVisibleDate(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	end := now.Add(48 * time.Hour)
	early := now.Add(-time.Hour)
	late := now.Add(time.Hour)

	if got := RightmostVisibleDate(&end, &late, now); !got.Equal(end) {
		t.Errorf("with contract end = %v", got)
	}
	if got := RightmostVisibleDate(nil, &late, now); !got.Equal(late) {
		t.Errorf("with late activity = %v", got)
	}
	if got := RightmostVisibleDate(nil, &early, now); !got.Equal(now) {
		t.Errorf("with early activity = %v", got)
	}
	if got := RightmostVisibleDate(nil, nil, now); !got.Equal(now) {
		t.Errorf("without anything = %v", got)
	}
}

func TestTooltipPosition(t *testing.T) {
	tests := []struct {
		mouseX, mouseY float64
		want           TooltipPos
	}{
		{10, 50, TooltipPos{Left: 16, Bottom: 56}},
		{95, 50, TooltipPos{Left: 80, Bottom: 56}},
		{10, 5, TooltipPos{Left: 16, Bottom: 80}},
		{-20, 100, TooltipPos{Left: 0, Bottom: 6}},
	}

	for _, test := range tests {
		got := TooltipPosition(test.mouseX, test.mouseY, 100, 100, 20, 20)
		if got != test.want {
			t.Errorf("TooltipPosition(%v, %v) = %+v, want %+v", test.mouseX, test.mouseY, got, test.want)
		}
	}

	// A tooltip larger than its container sticks to the far edge.
	if got := TooltipPosition(10, 10, 10, 10, 20, 20); got != (TooltipPos{Left: -10, Bottom: -10}) {
		t.Errorf("oversized tooltip = %+v", got)
	}
}

func TestHovers(t *testing.T) {
	points := []fundboard.HistoryPoint{{X: 0, Y: 0}, {X: 40, Y: 1}, {X: 100, Y: 2}}
	x := NewScale(0, 100, 0, 100)
	y := NewScale(0, 2, 100, 0)

	hovers := Hovers(points, x, y, 100, 100)
	if len(hovers) != 3 {
		t.Fatalf("got %d hovers", len(hovers))
	}

	bands := [][2]float64{{0, 20}, {20, 70}, {70, 100}}
	for i, band := range bands {
		if got := [2]float64{hovers[i].X0, hovers[i].X1}; got != band {
			t.Errorf("hover %d band = %v, want %v", i, got, band)
		}
	}

	if hovers[0].Prev != nil || hovers[0].Next == nil || hovers[0].Next.X != 40 {
		t.Errorf("first hover neighbors = %v %v", hovers[0].Prev, hovers[0].Next)
	}
	if hovers[2].Next != nil || hovers[2].Prev.X != 40 {
		t.Errorf("last hover neighbors = %v %v", hovers[2].Prev, hovers[2].Next)
	}
	if hovers[1].Y != 50 {
		t.Errorf("middle hover y = %v, want 50", hovers[1].Y)
	}
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func minutePoints(ys ...float64) []fundboard.HistoryPoint {
	points := make([]fundboard.HistoryPoint, len(ys))
	for i, y := range ys {
		points[i] = fundboard.HistoryPoint{
			X: float64(t0.Add(time.Duration(i) * time.Minute).UnixMilli()),
			Y: y,
		}
	}
	return points
}

func TestChartUndrawable(t *testing.T) {
	c := New(minutePoints(1, 2, 3), Options{Width: 0, Height: 100})
	if svg := c.SVG(); svg != "" {
		t.Errorf("zero-width chart rendered %q", svg)
	}

	c = New(nil, Options{Width: 100, Height: -1})
	if svg := c.SVG(); svg != "" {
		t.Errorf("negative-height chart rendered %q", svg)
	}
}

func TestChartSVG(t *testing.T) {
	points := minutePoints(5, -5, 10, 20)
	now := t0.Add(3 * time.Minute)

	c := New(points, Options{
		Width:  400,
		Height: 200,
		Now:    now,
		Hover:  2,
	})

	if c.IsCompressed {
		t.Error("short history must not be compressed")
	}
	if c.Full.Domain != [2]float64{points[0].X, points[3].X} {
		t.Errorf("full domain = %v", c.Full.Domain)
	}
	if c.Zoomed() {
		t.Error("chart without a window must not be zoomed")
	}

	svg := string(c.SVG())

	for _, want := range []string{
		`<svg class="chart"`,
		`id="chart-clip"`,
		`id="chart-mask"`,
		`<linearGradient id="chart-gradient"`,
		`stop-color="` + PositiveColor + `"`,
		`stop-color="` + NegativeColor + `"`,
		`class="hover open"`,
		`class="x-axis"`,
		`class="area"`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG is missing %s", want)
		}
	}

	if n := strings.Count(svg, `class="hover`) - strings.Count(svg, `class="hover-`); n != len(c.Hovers) {
		t.Errorf("rendered %d hovers, want %d", n, len(c.Hovers))
	}
	if strings.Contains(svg, "stroke-dasharray") {
		t.Error("a zero threshold must not be highlighted")
	}
}

func TestChartThreshold(t *testing.T) {
	c := New(minutePoints(-20, -10, 5), Options{
		Width:             300,
		Height:            100,
		Now:               t0,
		Color:             "#000",
		NegativeThreshold: -5,
	})

	var found bool
	for _, tick := range c.YTicks {
		if tick.Value == -5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("threshold is not a tick: %v", c.YTicks)
	}

	svg := string(c.SVG())
	if !strings.Contains(svg, `stroke="`+NegativeColor+`" stroke-opacity="1" stroke-dasharray="10,5"`) {
		t.Error("threshold gridline is not highlighted")
	}
	if strings.Contains(svg, "linearGradient") {
		t.Error("a fixed color must not use a gradient")
	}
}

func TestChartStopsWithThreshold(t *testing.T) {
	tests := []struct {
		name   string
		ys     []float64
		colors int
	}{
		{"above zero", []float64{0, 500, 1500}, 1},
		{"sign change", []float64{-10, 10, 30, -30}, 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			points := minutePoints(test.ys...)
			c := New(points, Options{
				Width:             300,
				Height:            100,
				Now:               msTime(points[len(points)-1].X),
				NegativeThreshold: 1000,
			})

			colors := map[string]bool{}
			for _, stop := range c.Stops {
				colors[stop.Color] = true
			}
			if len(colors) != test.colors {
				t.Fatalf("got %d colors, want %d: %v", len(colors), test.colors, c.Stops)
			}

			for i := 1; i < len(c.Stops); i++ {
				if c.Stops[i].Color == c.Stops[i-1].Color {
					continue
				}

				x := c.Stops[i].X
				ok := false

				for j := 1; j < len(c.Points); j++ {
					prev, curr := c.Points[j-1], c.Points[j]
					if c.signColor(prev) == c.signColor(curr) {
						continue
					}
					lo, hi := c.Visible.Map(prev.X), c.Visible.Map(curr.X)
					if x >= lo && x <= hi {
						ok = true
						break
					}
				}

				if !ok {
					t.Errorf("boundary at %.2f is not between two differently colored points", x)
				}
			}
		})
	}
}

func TestChartCompressed(t *testing.T) {
	ys := make([]float64, 3000)
	for i := range ys {
		ys[i] = float64(i % 7)
	}
	points := minutePoints(ys...)

	c := New(points, Options{Width: 800, Height: 200, Now: t0})
	if !c.IsCompressed {
		t.Fatal("long history must be compressed")
	}
	if max := 4*fundboard.CompressBins + 1; len(c.Points) > max {
		t.Errorf("drew %d points, want at most %d", len(c.Points), max)
	}
}

func TestChartZoom(t *testing.T) {
	points := minutePoints(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	now := t0.Add(9 * time.Minute)
	opts := Options{Width: 500, Height: 100, Now: now}

	c := New(points, opts)
	start := points[0].X

	in := c.ZoomIn(2)
	if in != (Window{From: start + 135000, To: start + 405000}) {
		t.Errorf("ZoomIn = %+v", in)
	}
	if out := c.ZoomOut(2); out != (Window{From: start, To: start + 540000}) {
		t.Errorf("ZoomOut past the full view = %+v", out)
	}

	opts.From, opts.To = in.From, in.To
	zoomed := New(points, opts)

	if !zoomed.Zoomed() {
		t.Fatal("chart with a window must be zoomed")
	}
	if zoomed.Transform != (ZoomTransform{K: 2, X: -250}) {
		t.Errorf("transform = %+v", zoomed.Transform)
	}
	if pan := zoomed.Pan(0.5); pan != (Window{From: start + 270000, To: start + 540000}) {
		t.Errorf("Pan = %+v", pan)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		query string
		want  Window
	}{
		{"from=100&to=200", Window{From: 100, To: 200}},
		{"from=100&to=200&reset=1", Window{}},
		{"from=200&to=100", Window{}},
		{"from=abc&to=100", Window{}},
		{"", Window{}},
	}

	for _, test := range tests {
		q, _ := url.ParseQuery(test.query)
		if got := ParseWindow(q); got != test.want {
			t.Errorf("ParseWindow(%q) = %+v, want %+v", test.query, got, test.want)
		}
	}

	if q := (Window{From: 1, To: 2}).Query().Encode(); q != "from=1&to=2" {
		t.Errorf("Query = %q", q)
	}
}

func TestSparkline(t *testing.T) {
	svg := string(Sparkline("p1", minutePoints(1, 2, 3), t0.Add(2*time.Minute)))

	if !strings.Contains(svg, `id="p1-clip"`) {
		t.Error("sparkline does not use its ID")
	}
	if strings.Contains(svg, "x-axis") || strings.Contains(svg, "tooltip") {
		t.Error("sparkline must be bare")
	}
}
