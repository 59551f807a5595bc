// Package chart renders funding history charts as SVG on the server. Zooming
// and panning are done through query parameters, and tooltips are shown with
// CSS hover.
package chart

import (
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
)

// Colors of values above and below the negative threshold.
const (
	PositiveColor = "#0d9488"
	NegativeColor = "#FF2400"
)

// Options configures a chart.
type Options struct {
	// ID prefixes the IDs of the chart's SVG definitions. Charts on the same
	// page must have different IDs.
	ID string
	// Width and Height are the size of the plot in pixels.
	Width, Height float64
	// From and To are the visible window in Unix milliseconds. Zero values
	// show everything.
	From, To float64
	// Now is the current time; the zero value means time.Now().
	Now time.Time
	// End is the funding deadline, if any. The x axis ends there.
	End *time.Time
	// NegativeThreshold is the y value whose gridline is highlighted. Zero
	// highlights nothing. It does not affect the series colors, which are
	// picked by sign.
	NegativeThreshold float64
	// NoGridlines draws a bare y axis.
	NoGridlines bool
	// Bare draws only the series, without axes or tooltips.
	Bare bool
	// Color colors the whole series. Empty colors by sign.
	Color string
	// Hover is the 1-based index of a tooltip to show open. Zero shows none.
	Hover int
	// FormatY formats y values. The default is store.FormatMoney.
	FormatY func(float64) string
}

// Tick is an axis tick.
type Tick struct {
	// Pos is the tick's pixel position along its axis.
	Pos   float64
	Value float64
	Label string
}

// Chart is a chart prepared for rendering.
type Chart struct {
	Options
	// Full is the x scale of the whole history, Visible that of the window.
	Full    Scale
	Visible Scale
	Y       Scale
	// Transform is the zoom that turns Full into Visible.
	Transform ZoomTransform

	// Points are the points drawn, after compression.
	Points       []fundboard.HistoryPoint
	IsCompressed bool

	XTicks []Tick
	YTicks []Tick
	Stops  []fundboard.ColorStop
	Hovers []Hover
}

// New prepares a chart of points, which must be sorted by x.
func New(points []fundboard.HistoryPoint, opts Options) *Chart {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.FormatY == nil {
		opts.FormatY = store.FormatMoney
	}
	if opts.ID == "" {
		opts.ID = "chart"
	}

	c := &Chart{Options: opts}
	if !c.Drawable() {
		return c
	}

	var last *time.Time
	start := opts.Now.Add(-24 * time.Hour)
	if len(points) > 0 {
		t := msTime(points[len(points)-1].X)
		last = &t
		start = msTime(points[0].X)
	}

	end := RightmostVisibleDate(opts.End, last, opts.Now)
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	c.Full = NewScale(timeMs(start), timeMs(end), 0, opts.Width)
	c.Visible, c.Transform = Viewport(c.Full, opts.From, opts.To)

	compressed := fundboard.CompressPoints(points, c.Visible.Domain[0], c.Visible.Domain[1])
	c.Points = compressed.Points
	c.IsCompressed = compressed.IsCompressed

	// Hold the last value until the end of the axis.
	if n := len(c.Points); n > 0 && c.Points[n-1].X < c.Full.Domain[1] {
		c.Points = append(c.Points[:n:n], fundboard.HistoryPoint{
			X: c.Full.Domain[1],
			Y: c.Points[n-1].Y,
		})
	}

	c.Y = c.yScale()
	c.XTicks = c.xTicks()
	c.YTicks = c.yTicks()

	if c.Color == "" && len(c.Points) > 0 {
		c.Stops = fundboard.ComputeColorStops(
			c.Points,
			c.signColor,
			func(p fundboard.HistoryPoint) float64 { return c.Visible.Map(p.X) },
		)
	}

	c.Hovers = Hovers(c.Points, c.Visible, c.Y, c.Width, c.Height)

	return c
}

// Drawable returns false if the chart has no area to draw in.
func (c *Chart) Drawable() bool {
	return c.Width > 0 && c.Height > 0
}

func (c *Chart) signColor(p fundboard.HistoryPoint) string {
	if p.Y >= 0 {
		return PositiveColor
	}
	return NegativeColor
}

func (c *Chart) yScale() Scale {
	lo := math.Min(0, c.NegativeThreshold)
	hi := math.Max(0, c.NegativeThreshold)

	for _, p := range c.Points {
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
	}

	if lo == hi {
		hi = lo + 1
	}

	// Leave headroom above the highest point.
	hi += (hi - lo) * 0.1

	return NewScale(lo, hi, c.Height, 0)
}

func (c *Chart) xTicks() []Tick {
	start := msTime(c.Visible.Domain[0])
	end := msTime(c.Visible.Domain[1])

	n := int(c.Width / 100)
	if n < 2 {
		n = 2
	}

	times := TimeTicks(start, end, n, c.Now.Location())
	ticks := make([]Tick, len(times))

	for i, t := range times {
		ticks[i] = Tick{
			Pos:   c.Visible.Map(timeMs(t)),
			Value: timeMs(t),
			Label: FormatDateInRange(t, start, end, c.Now),
		}
	}

	return ticks
}

func (c *Chart) yTicks() []Tick {
	values := Ticks(c.Y.Domain[0], c.Y.Domain[1], 5)

	if c.NegativeThreshold != 0 && c.Y.Contains(c.NegativeThreshold) {
		values = insertSorted(values, c.NegativeThreshold)
	}

	ticks := make([]Tick, len(values))
	for i, v := range values {
		ticks[i] = Tick{
			Pos:   c.Y.Map(v),
			Value: v,
			Label: c.FormatY(v),
		}
	}

	return ticks
}

func insertSorted(values []float64, v float64) []float64 {
	for i, x := range values {
		switch {
		case x == v:
			return values
		case x > v:
			values = append(values[:i+1], values[i:]...)
			values[i] = v
			return values
		}
	}
	return append(values, v)
}

// seriesColor returns the color of the series' stroke and area: the fixed color,
// or a reference to the sign gradient.
func (c *Chart) seriesColor() string {
	if c.Color != "" {
		return c.Color
	}
	if len(c.Stops) == 1 {
		return c.Stops[0].Color
	}
	return "url(#" + c.ID + "-gradient)"
}

// XAt formats the x of a point as a date within the visible range.
func (c *Chart) XAt(p fundboard.HistoryPoint) string {
	return FormatDateInRange(
		msTime(p.X), msTime(c.Visible.Domain[0]), msTime(c.Visible.Domain[1]), c.Now,
	)
}

// SVG renders the chart. An undrawable chart renders nothing.
func (c *Chart) SVG() template.HTML {
	if !c.Drawable() {
		return ""
	}

	var b svgBuilder
	b.Grow(16 * 1024)

	b.WriteString(`<svg class="chart" xmlns="http://www.w3.org/2000/svg"`)
	b.attr("width", c.Width)
	b.attr("height", c.Height)
	b.WriteString(` viewBox="0 0 `)
	b.num(c.Width)
	b.WriteByte(' ')
	b.num(c.Height)
	b.WriteString(`" overflow="visible">`)

	c.writeDefs(&b)
	if !c.Bare {
		c.writeXAxis(&b)
		c.writeYAxis(&b)
	}

	b.WriteString(`<g clip-path="url(#` + c.ID + `-clip)"><g mask="url(#` + c.ID + `-mask)">`)
	c.writeSeries(&b)
	b.WriteString(`</g></g>`)

	if !c.Bare {
		c.writeHovers(&b)
	}

	b.WriteString(`</svg>`)

	return template.HTML(b.String())
}

func (c *Chart) writeDefs(b *svgBuilder) {
	b.WriteString(`<defs>`)

	b.WriteString(`<filter id="` + c.ID + `-blur"><feGaussianBlur stdDeviation="8"/></filter>`)

	b.WriteString(`<mask id="` + c.ID + `-mask"><rect`)
	b.attr("x", -8)
	b.attr("y", -8)
	b.attr("width", c.Width+16)
	b.attr("height", c.Height+16)
	b.WriteString(` fill="white" filter="url(#` + c.ID + `-blur)"/></mask>`)

	b.WriteString(`<clipPath id="` + c.ID + `-clip"><rect`)
	b.attr("x", -32)
	b.attr("y", -32)
	b.attr("width", c.Width+64)
	b.attr("height", c.Height+64)
	b.WriteString(`/></clipPath>`)

	if len(c.Stops) > 1 {
		b.WriteString(`<linearGradient id="` + c.ID + `-gradient" gradientUnits="userSpaceOnUse" x1="0" y1="0" y2="0"`)
		b.attr("x2", c.Width)
		b.WriteString(`>`)

		for _, stop := range c.Stops {
			b.WriteString(`<stop`)
			b.attr("offset", clamp(stop.X/c.Width, 0, 1))
			b.WriteString(` stop-color="` + stop.Color + `"/>`)
		}

		b.WriteString(`</linearGradient>`)
	}

	b.WriteString(`</defs>`)
}

func (c *Chart) writeXAxis(b *svgBuilder) {
	b.WriteString(`<g class="x-axis" fill="none" font-size="10" text-anchor="middle" transform="translate(0,`)
	b.num(c.Height)
	b.WriteString(`)">`)

	for _, tick := range c.XTicks {
		b.WriteString(`<g class="tick" transform="translate(`)
		b.num(tick.Pos)
		b.WriteString(`,0)"><line stroke="currentColor" y2="6"/><text fill="currentColor" y="9" dy="0.71em">`)
		b.text(tick.Label)
		b.WriteString(`</text></g>`)
	}

	b.WriteString(`</g>`)
}

func (c *Chart) writeYAxis(b *svgBuilder) {
	b.WriteString(`<g class="y-axis" fill="none" font-size="10" text-anchor="start" transform="translate(`)
	b.num(c.Width)
	b.WriteString(`,0)">`)

	for _, tick := range c.YTicks {
		b.WriteString(`<g class="tick" transform="translate(0,`)
		b.num(tick.Pos)
		b.WriteString(`)">`)

		threshold := c.NegativeThreshold != 0 && tick.Value == c.NegativeThreshold

		switch {
		case c.NoGridlines:
			b.WriteString(`<line stroke="currentColor" x2="6"/>`)
			b.WriteString(`<text fill="currentColor" x="9" dy="0.32em">`)
		case threshold:
			color := PositiveColor
			if c.NegativeThreshold < 0 {
				color = NegativeColor
			}

			b.WriteString(`<line stroke="` + color + `" stroke-opacity="1" stroke-dasharray="10,5"`)
			b.attr("x2", c.Width)
			b.WriteString(` transform="translate(-`)
			b.num(c.Width)
			b.WriteString(`,0)"/>`)
			b.WriteString(`<text fill="` + color + `" font-weight="bold" x="9" dy="0.32em">`)
		default:
			b.WriteString(`<line stroke="currentColor" stroke-opacity="0.1"`)
			b.attr("x2", c.Width)
			b.WriteString(` transform="translate(-`)
			b.num(c.Width)
			b.WriteString(`,0)"/>`)
			b.WriteString(`<text fill="currentColor" x="9" dy="0.32em">`)
		}

		b.text(tick.Label)
		b.WriteString(`</text></g>`)
	}

	b.WriteString(`</g>`)
}

func (c *Chart) writeSeries(b *svgBuilder) {
	if len(c.Points) == 0 {
		return
	}

	color := c.seriesColor()
	base := c.Y.Map(clamp(0, c.Y.Domain[0], c.Y.Domain[1]))

	b.WriteString(`<g class="series">`)

	// Area, closed along the baseline.
	b.WriteString(`<path class="area" opacity="0.2" fill="` + color + `" d="`)
	c.linePath(b)
	b.WriteByte('L')
	b.num(c.Visible.Map(c.Points[len(c.Points)-1].X))
	b.WriteByte(',')
	b.num(base)
	b.WriteByte('L')
	b.num(c.Visible.Map(c.Points[0].X))
	b.WriteByte(',')
	b.num(base)
	b.WriteString(`Z"/>`)

	// Top stroke.
	b.WriteString(`<path class="line" fill="none" stroke="` + color + `" d="`)
	c.linePath(b)
	b.WriteString(`"/>`)

	// A little extension so that the current value is always visible.
	last := c.Points[len(c.Points)-1]
	lastX := c.Visible.Map(last.X)
	lastY := c.Y.Map(last.Y)

	b.WriteString(`<path class="extension" fill="none" stroke="` + color + `" d="M`)
	b.num(lastX)
	b.WriteByte(',')
	b.num(lastY)
	b.WriteByte('L')
	b.num(lastX + 2)
	b.WriteByte(',')
	b.num(lastY)
	b.WriteString(`"/>`)

	b.WriteString(`</g>`)
}

// linePath writes the path data of the series as a step-after curve, since
// the funding total only changes at each donation.
func (c *Chart) linePath(b *svgBuilder) {
	for i, p := range c.Points {
		x := c.Visible.Map(p.X)
		y := c.Y.Map(p.Y)

		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteByte('H')
			b.num(x)
			b.WriteByte('V')
			b.num(y)
			continue
		}

		b.num(x)
		b.WriteByte(',')
		b.num(y)
	}
}

func (c *Chart) writeHovers(b *svgBuilder) {
	b.WriteString(`<g class="hover-layer">`)

	for i, hover := range c.Hovers {
		if hover.X1 <= hover.X0 {
			continue
		}

		class := "hover"
		if i+1 == c.Hover {
			class += " open"
		}

		b.WriteString(`<g class="` + class + `">`)

		b.WriteString(`<rect class="hover-band" fill="transparent" y="0"`)
		b.attr("x", hover.X0)
		b.attr("width", hover.X1-hover.X0)
		b.attr("height", c.Height)
		b.WriteString(`/>`)

		// Slice marker.
		color := c.seriesColor()
		if len(c.Stops) > 0 {
			color = c.signColor(hover.Nearest)
		}

		b.WriteString(`<g class="hover-marker"><line stroke="white" stroke-width="1"`)
		b.attr("x1", hover.X)
		b.attr("x2", hover.X)
		b.attr("y1", c.Height)
		b.attr("y2", hover.Y)
		b.WriteString(`/><circle stroke="white" stroke-width="1" r="5" fill="` + color + `"`)
		b.attr("cx", hover.X)
		b.attr("cy", hover.Y)
		b.WriteString(`/></g>`)

		c.writeTooltip(b, hover)

		b.WriteString(`</g>`)
	}

	b.WriteString(`</g>`)
}

func (c *Chart) writeTooltip(b *svgBuilder, hover Hover) {
	b.WriteString(`<g class="tooltip" transform="translate(`)
	b.num(hover.Pos.Left)
	b.WriteByte(',')
	b.num(hover.Pos.Top(c.Height, TooltipHeight))
	b.WriteString(`)"><rect rx="4"`)
	b.attr("width", TooltipWidth)
	b.attr("height", TooltipHeight)
	b.WriteString(`/>`)

	b.WriteString(`<text x="12" y="22" font-weight="bold">`)
	b.text(c.FormatY(hover.Nearest.Y))
	b.WriteString(`</text><text x="12" y="42">`)
	b.text(c.XAt(hover.Nearest))

	if ev := hover.Nearest.Obj; ev != nil && ev.Amount != 0 {
		b.text(" · +" + c.FormatY(ev.Amount))
	}

	b.WriteString(`</text></g>`)
}

type svgBuilder struct {
	strings.Builder
}

// num writes a pixel coordinate.
func (b *svgBuilder) num(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	b.WriteString(strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64))
}

func (b *svgBuilder) attr(name string, f float64) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	b.num(f)
	b.WriteByte('"')
}

func (b *svgBuilder) text(s string) {
	template.HTMLEscape(&b.Builder, []byte(s))
}
