package fundboard

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Point is a single time-series sample. X is usually a Unix timestamp in
// milliseconds and Y the value at that time. Obj optionally carries the
// payload that produced the sample.
type Point[T any] struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Obj *T      `json:"obj,omitempty"`
}

// At returns a copy of the point moved to x.
func (p Point[T]) At(x float64) Point[T] {
	p.X = x
	return p
}

// SerializedPoint is the compact wire form of a Point. It encodes to a JSON
// tuple of either [x, y] or [x, y, obj]; obj is omitted when nil.
type SerializedPoint[T any] struct {
	X   float64
	Y   float64
	Obj *T
}

// MarshalJSON implements json.Marshaler.
func (p SerializedPoint[T]) MarshalJSON() ([]byte, error) {
	if p.Obj == nil {
		return json.Marshal([2]float64{p.X, p.Y})
	}
	return json.Marshal([]interface{}{p.X, p.Y, p.Obj})
}

var jsonNull = []byte("null")

// UnmarshalJSON implements json.Unmarshaler. A null third element is dropped
// rather than kept as an explicit empty payload.
func (p *SerializedPoint[T]) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return errors.Wrap(err, "point is not a tuple")
	}

	if len(raw) < 2 || len(raw) > 3 {
		return fmt.Errorf("point tuple has %d elements, want 2 or 3", len(raw))
	}

	*p = SerializedPoint[T]{}

	if err := json.Unmarshal(raw[0], &p.X); err != nil {
		return errors.Wrap(err, "bad x")
	}
	if err := json.Unmarshal(raw[1], &p.Y); err != nil {
		return errors.Wrap(err, "bad y")
	}

	if len(raw) == 3 && !bytes.Equal(bytes.TrimSpace(raw[2]), jsonNull) {
		var obj T
		if err := json.Unmarshal(raw[2], &obj); err != nil {
			return errors.Wrap(err, "bad obj")
		}
		p.Obj = &obj
	}

	return nil
}

// UnserializePoints converts compact tuples into points.
func UnserializePoints[T any](points []SerializedPoint[T]) []Point[T] {
	out := make([]Point[T], len(points))
	for i, p := range points {
		out[i] = Point[T]{X: p.X, Y: p.Y, Obj: p.Obj}
	}
	return out
}

// SerializePoints converts points into compact tuples.
func SerializePoints[T any](points []Point[T]) []SerializedPoint[T] {
	out := make([]SerializedPoint[T], len(points))
	for i, p := range points {
		out[i] = SerializedPoint[T]{X: p.X, Y: p.Y, Obj: p.Obj}
	}
	return out
}

// MultiSerializedPoints maps a series ID to its [x, y] tuples. Payloads are
// never carried in the multi-series form.
type MultiSerializedPoints map[string][][2]float64

// UnserializeMultiPoints converts every series in data into points.
func UnserializeMultiPoints[T any](data MultiSerializedPoints) map[string][]Point[T] {
	out := make(map[string][]Point[T], len(data))
	for id, tuples := range data {
		points := make([]Point[T], len(tuples))
		for i, t := range tuples {
			points[i] = Point[T]{X: t[0], Y: t[1]}
		}
		out[id] = points
	}
	return out
}

// SerializeMultiPoints converts every series in data into [x, y] tuples,
// dropping payloads.
func SerializeMultiPoints[T any](data map[string][]Point[T]) MultiSerializedPoints {
	out := make(MultiSerializedPoints, len(data))
	for id, points := range data {
		tuples := make([][2]float64, len(points))
		for i, p := range points {
			tuples[i] = [2]float64{p.X, p.Y}
		}
		out[id] = tuples
	}
	return out
}
