package fundboard

import (
	"math"
	"sort"
)

// Constants used by CompressPoints.
const (
	// CompressBuffer is the number of points kept on each side of the
	// visible range so that panning does not immediately run out of data.
	CompressBuffer = 100
	// CompressThreshold is the slice length at which binning kicks in.
	CompressThreshold = 1500
	// CompressBins is the number of bins used once compressing.
	CompressBins = 500
)

// DefaultBinAvgLimit is the default number of points returned by BinAvg.
const DefaultBinAvgLimit = 100

// binWidth returns ceil((max-min)/bins), or 1 if that isn't a positive
// number. The latter happens when all points share the same x or when the
// input isn't sorted.
func binWidth(min, max float64, bins int) float64 {
	w := math.Ceil((max - min) / float64(bins))
	if !(w > 0) || math.IsInf(w, 0) {
		return 1
	}
	return w
}

// binIndex returns the bin that x falls in, or -1 if it falls outside of all
// bins. Bins are half-open: [start, end).
func binIndex(x, min, width float64, bins int) int {
	ix := math.Floor((x - min) / width)
	if ix < 0 || ix >= float64(bins) || math.IsNaN(ix) {
		return -1
	}
	return int(ix)
}

// MaxMinBin reduces points into at most 3 points per bin while keeping the
// visual extremes of each bin: the minimum, the maximum and the median by y.
// Points must be sorted by x. Empty bins get a single synthetic point that
// carries the last seen value, so gaps render as flat lines instead of long
// diagonals.
//
// If there are fewer than 2 points or bins is not positive, then points is
// returned as-is.
func MaxMinBin[T any](points []Point[T], bins int) []Point[T] {
	if len(points) < 2 || bins <= 0 {
		return points
	}

	min := points[0].X
	max := points[len(points)-1].X
	width := binWidth(min, max, bins)

	binned := make([][]Point[T], bins)
	for _, p := range points {
		if ix := binIndex(p.X, min, width, bins); ix != -1 {
			binned[ix] = append(binned[ix], p)
		}
	}

	result := make([]Point[T], 0, 3*bins)
	lastInBin := points[0]

	for i, bin := range binned {
		switch {
		case len(bin) == 0:
			binEnd := min + float64(i+1)*width
			result = append(result, lastInBin.At(binEnd))

		case len(bin) <= 3:
			lastInBin = bin[len(bin)-1]
			result = append(result, bin...)

		default:
			lastInBin = bin[len(bin)-1]

			sort.SliceStable(bin, func(i, j int) bool { return bin[i].Y < bin[j].Y })
			reps := [3]Point[T]{
				bin[0],          // min
				bin[len(bin)-1], // max
				bin[len(bin)/2], // median
			}
			sort.SliceStable(reps[:], func(i, j int) bool { return reps[i].X < reps[j].X })

			result = append(result, reps[:]...)
		}
	}

	return result
}

// CompressedPoints is the result of CompressPoints.
type CompressedPoints[T any] struct {
	Points       []Point[T] `json:"points"`
	IsCompressed bool       `json:"isCompressed"`
}

// firstIndexAtLeast returns the first index whose x is at least x, or
// len(points) if there is none. Points must be sorted by x.
func firstIndexAtLeast[T any](points []Point[T], x float64) int {
	return sort.Search(len(points), func(i int) bool { return points[i].X >= x })
}

// CompressPoints returns the points within [min, max] plus CompressBuffer
// points on each side. The returned slice shares the backing array of points
// when it is not compressed. Once the slice reaches CompressThreshold points,
// it is reduced with MaxMinBin into CompressBins bins, so zooming in reveals
// more detail.
func CompressPoints[T any](points []Point[T], min, max float64) CompressedPoints[T] {
	start := firstIndexAtLeast(points, min) - CompressBuffer
	if start < 0 {
		start = 0
	}

	end := firstIndexAtLeast(points, max) + CompressBuffer
	if end > len(points) {
		end = len(points)
	}
	if end < start {
		end = start
	}

	visible := points[start:end]

	if len(visible) < CompressThreshold {
		return CompressedPoints[T]{Points: visible}
	}

	return CompressedPoints[T]{
		Points:       MaxMinBin(visible, CompressBins),
		IsCompressed: true,
	}
}

// BinAvg averages sorted points into exactly limit points placed at the end
// of each bin. Empty bins carry the previous bin's mean forward. If there are
// no more than limit points, or limit is not positive, sorted is returned
// as-is. Payloads are not carried over.
func BinAvg[T any](sorted []Point[T], limit int) []Point[T] {
	if len(sorted) <= limit || limit <= 0 {
		return sorted
	}

	min := sorted[0].X
	max := sorted[len(sorted)-1].X
	width := binWidth(min, max, limit)

	sums := make([]float64, limit)
	counts := make([]int, limit)

	for _, p := range sorted {
		if ix := binIndex(p.X, min, width, limit); ix != -1 {
			sums[ix] += p.Y
			counts[ix]++
		}
	}

	points := make([]Point[T], limit)
	lastAvgY := sorted[0].Y

	for i := range points {
		if counts[i] > 0 {
			lastAvgY = sums[i] / float64(counts[i])
		}
		points[i] = Point[T]{
			X: min + float64(i+1)*width,
			Y: lastAvgY,
		}
	}

	return points
}
