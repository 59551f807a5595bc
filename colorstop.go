package fundboard

// ColorStop marks where a line's stroke changes color.
type ColorStop struct {
	X     float64 `json:"x"`
	Color string  `json:"color"`
}

// ColorBySign returns a color function that picks pos for non-negative values
// and neg otherwise.
func ColorBySign[T any](pos, neg string) func(Point[T]) string {
	return func(p Point[T]) string {
		if p.Y >= 0 {
			return pos
		}
		return neg
	}
}

// ComputeColorStops computes the stops of a piecewise-constant gradient that
// colors each point with pc. px projects a point's x into the gradient's
// coordinate space. Every color change produces two stops at the same x: one
// closing the previous color and one opening the next, so the boundary stays
// sharp.
//
// The change is assumed to be a sign change of y, so the boundary is placed
// where the line between the two points crosses zero, assuming linear
// interpolation. A flat segment has no crossing; its midpoint is used instead.
func ComputeColorStops[T any](data []Point[T], pc func(Point[T]) string, px func(Point[T]) float64) []ColorStop {
	if len(data) == 0 {
		return []ColorStop{}
	}

	segments := []ColorStop{{X: px(data[0]), Color: pc(data[0])}}

	for i := 1; i < len(data); i++ {
		prev := data[i-1]
		curr := data[i]

		color := pc(curr)
		if pc(prev) == color {
			continue
		}

		segments = append(segments, ColorStop{
			X:     px(prev.At(zeroCrossing(prev, curr))),
			Color: color,
		})
	}

	stops := make([]ColorStop, 1, 2*len(segments)-1)
	stops[0] = segments[0]

	for _, s := range segments[1:] {
		stops = append(stops,
			ColorStop{X: s.X, Color: stops[len(stops)-1].Color},
			s,
		)
	}

	return stops
}

// zeroCrossing returns the x where the line through prev and curr meets y=0.
func zeroCrossing[T any](prev, curr Point[T]) float64 {
	if prev.Y == curr.Y {
		return (prev.X + curr.X) / 2
	}
	return prev.X + prev.Y*(curr.X-prev.X)/(prev.Y-curr.Y)
}
