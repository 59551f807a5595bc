package chart

import (
	"math"

	"git.unix.lgbt/diamondburned/fundboard"
)

// Size of the rendered tooltip box.
const (
	TooltipWidth  = 176
	TooltipHeight = 56
)

// TooltipPos places a tooltip inside its container, measured from the
// container's left and bottom edges.
type TooltipPos struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
}

// Top converts the position to a distance from the top edge.
func (p TooltipPos) Top(h, tth float64) float64 {
	return h - p.Bottom - tth
}

// TooltipPosition places a ttw by tth tooltip 6 pixels right of and above the
// mouse, clamped to the w by h container.
func TooltipPosition(mouseX, mouseY, w, h, ttw, tth float64) TooltipPos {
	return TooltipPos{
		Left:   clamp(mouseX+6, 0, w-ttw),
		Bottom: clamp(h-mouseY+6, 0, h-tth),
	}
}

// clamp bounds v to [lo, hi]. hi wins if the bounds cross.
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Hover is the tooltip for the part of the chart closest to one point.
type Hover struct {
	// X0 and X1 are the pixel band that shows this tooltip.
	X0, X1 float64
	// X and Y are the pixel position of Nearest.
	X, Y float64
	Pos  TooltipPos

	Prev    *fundboard.HistoryPoint
	Next    *fundboard.HistoryPoint
	Nearest fundboard.HistoryPoint
}

// Hovers computes one hover band per point. Each band extends halfway to its
// neighbors and the outer bands reach the chart edges. Points must be sorted
// by x.
func Hovers(points []fundboard.HistoryPoint, x, y Scale, w, h float64) []Hover {
	hovers := make([]Hover, len(points))

	for i, p := range points {
		px := x.Map(p.X)
		py := y.Map(p.Y)

		hover := Hover{
			X0:      0,
			X1:      w,
			X:       px,
			Y:       py,
			Pos:     TooltipPosition(px, py, w, h, TooltipWidth, TooltipHeight),
			Nearest: p,
		}

		if i > 0 {
			prev := points[i-1]
			hover.Prev = &prev
			hover.X0 = (x.Map(prev.X) + px) / 2
		}
		if i < len(points)-1 {
			next := points[i+1]
			hover.Next = &next
			hover.X1 = (px + x.Map(next.X)) / 2
		}

		hover.X0 = clamp(hover.X0, 0, w)
		hover.X1 = clamp(hover.X1, 0, w)

		hovers[i] = hover
	}

	return hovers
}
