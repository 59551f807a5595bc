package chart

import "math"

// Scale linearly maps values in Domain to pixels in Range.
type Scale struct {
	Domain [2]float64
	Range  [2]float64
}

// NewScale creates a scale mapping [d0, d1] to [r0, r1].
func NewScale(d0, d1, r0, r1 float64) Scale {
	return Scale{
		Domain: [2]float64{d0, d1},
		Range:  [2]float64{r0, r1},
	}
}

// Map maps v from the domain into the range. A degenerate domain maps
// everything to the middle of the range.
func (s Scale) Map(v float64) float64 {
	span := s.Domain[1] - s.Domain[0]
	if span == 0 {
		return (s.Range[0] + s.Range[1]) / 2
	}
	return s.Range[0] + (v-s.Domain[0])/span*(s.Range[1]-s.Range[0])
}

// Invert maps px from the range back into the domain.
func (s Scale) Invert(px float64) float64 {
	span := s.Range[1] - s.Range[0]
	if span == 0 {
		return (s.Domain[0] + s.Domain[1]) / 2
	}
	return s.Domain[0] + (px-s.Range[0])/span*(s.Domain[1]-s.Domain[0])
}

// Width returns the size of the range.
func (s Scale) Width() float64 {
	return math.Abs(s.Range[1] - s.Range[0])
}

// Rescale returns the scale after applying t to its range, keeping the range
// and changing the domain. It is d3's transform.rescaleX.
func (s Scale) Rescale(t ZoomTransform) Scale {
	return Scale{
		Domain: [2]float64{
			s.Invert(t.InvertX(s.Range[0])),
			s.Invert(t.InvertX(s.Range[1])),
		},
		Range: s.Range,
	}
}

// Contains returns true if v is within the domain, inclusive.
func (s Scale) Contains(v float64) bool {
	lo, hi := s.Domain[0], s.Domain[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo <= v && v <= hi
}

// Zoom limits.
const (
	MinZoom = 1
	MaxZoom = 100
)

// ZoomTransform is a horizontal zoom: a screen x is K*x + X for a base x.
type ZoomTransform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
}

// Identity is the transform of an unzoomed chart.
var Identity = ZoomTransform{K: 1}

// ApplyX maps a base x to the screen.
func (t ZoomTransform) ApplyX(x float64) float64 {
	return x*t.K + t.X
}

// InvertX maps a screen x back to the base.
func (t ZoomTransform) InvertX(x float64) float64 {
	return (x - t.X) / t.K
}

// Clamp limits the scale to [MinZoom, MaxZoom] and the translation so that
// [0, w] never shows anything outside of the base [0, w].
func (t ZoomTransform) Clamp(w float64) ZoomTransform {
	if math.IsNaN(t.K) || t.K < MinZoom {
		t.K = MinZoom
	}
	if t.K > MaxZoom {
		t.K = MaxZoom
	}

	// InvertX(0) >= 0 and InvertX(w) <= w.
	if math.IsNaN(t.X) || t.X > 0 {
		t.X = 0
	}
	if lo := w * (1 - t.K); t.X < lo {
		t.X = lo
	}

	return t
}

// ScaleBy zooms by k around the screen x cx, then clamps to w.
func (t ZoomTransform) ScaleBy(k, cx, w float64) ZoomTransform {
	base := t.InvertX(cx)
	t.K *= k
	t.X = cx - base*t.K
	return t.Clamp(w)
}

// TranslateBy pans by dx screen pixels, then clamps to w.
func (t ZoomTransform) TranslateBy(dx, w float64) ZoomTransform {
	t.X += dx
	return t.Clamp(w)
}

// IsIdentity returns true if t does not zoom or pan.
func (t ZoomTransform) IsIdentity() bool {
	return t.K == 1 && t.X == 0
}

// Viewport returns the transform that shows the domain [from, to] of full
// and the rescaled scale. The transform is clamped like a user zoom would be,
// so the result may show more than asked for. An empty or inverted window
// gives the full view.
func Viewport(full Scale, from, to float64) (Scale, ZoomTransform) {
	w := full.Width()
	if w == 0 || !(from < to) {
		return full, Identity
	}

	x0 := full.Map(from) - full.Range[0]
	x1 := full.Map(to) - full.Range[0]
	if x1 <= x0 {
		return full, Identity
	}

	k := w / (x1 - x0)
	t := ZoomTransform{K: k, X: -x0 * k}

	// Clamping K changes where the window starts; keep it centered.
	if k > MaxZoom || k < MinZoom {
		center := (x0 + x1) / 2
		t = ZoomTransform{K: math.Max(MinZoom, math.Min(k, MaxZoom))}
		t.X = w/2 - center*t.K
	}

	t = t.Clamp(w)
	return full.Rescale(ZoomTransform{K: t.K, X: t.X + full.Range[0]*(1-t.K)}), t
}
