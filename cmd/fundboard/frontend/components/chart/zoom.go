package chart

import (
	"net/url"
	"strconv"
)

// Window is a visible x range in Unix milliseconds.
type Window struct {
	From, To float64
}

// Query encodes the window as the from and to query parameters.
func (w Window) Query() url.Values {
	return url.Values{
		"from": {strconv.FormatInt(int64(w.From), 10)},
		"to":   {strconv.FormatInt(int64(w.To), 10)},
	}
}

// ParseWindow reads the from and to query parameters. A reset parameter or a
// missing bound gives the zero window, which shows everything.
func ParseWindow(q url.Values) Window {
	if q.Get("reset") != "" {
		return Window{}
	}

	from, err1 := strconv.ParseInt(q.Get("from"), 10, 64)
	to, err2 := strconv.ParseInt(q.Get("to"), 10, 64)
	if err1 != nil || err2 != nil || from >= to {
		return Window{}
	}

	return Window{From: float64(from), To: float64(to)}
}

func (c *Chart) window(t ZoomTransform) Window {
	t = t.Clamp(c.Width)
	visible := c.Full.Rescale(t)
	return Window{From: visible.Domain[0], To: visible.Domain[1]}
}

// ZoomIn returns the window after zooming in by k around the center.
func (c *Chart) ZoomIn(k float64) Window {
	return c.window(c.Transform.ScaleBy(k, c.Width/2, c.Width))
}

// ZoomOut returns the window after zooming out by k around the center.
func (c *Chart) ZoomOut(k float64) Window {
	return c.window(c.Transform.ScaleBy(1/k, c.Width/2, c.Width))
}

// Pan returns the window after panning by frac of the chart width. Positive
// values move toward later times.
func (c *Chart) Pan(frac float64) Window {
	return c.window(c.Transform.TranslateBy(-frac*c.Width, c.Width))
}

// Zoomed returns true if the chart shows less than the whole history.
func (c *Chart) Zoomed() bool {
	return !c.Transform.IsIdentity()
}
