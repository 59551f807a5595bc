package chart

import (
	"math"
	"time"
)

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Ticks returns about n round values spanning [lo, hi], in ascending order.
// Steps are 1, 2 or 5 times a power of ten.
func Ticks(lo, hi float64, n int) []float64 {
	if n <= 0 || math.IsNaN(lo) || math.IsNaN(hi) {
		return nil
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		return []float64{lo}
	}

	step := (hi - lo) / float64(n)
	power := math.Floor(math.Log10(step))
	err := step / math.Pow(10, power)

	factor := 1.0
	switch {
	case err >= e10:
		factor = 10
	case err >= e5:
		factor = 5
	case err >= e2:
		factor = 2
	}

	var ticks []float64

	if power >= 0 {
		inc := factor * math.Pow(10, power)
		for i := math.Ceil(lo / inc); i <= math.Floor(hi/inc); i++ {
			ticks = append(ticks, i*inc)
		}
	} else {
		// Divide by the inverse so values like 0.3 come out exact.
		inv := math.Pow(10, -power) / factor
		for i := math.Ceil(lo * inv); i <= math.Floor(hi*inv); i++ {
			ticks = append(ticks, i/inv)
		}
	}

	return ticks
}

// timeSteps are the intervals that time ticks may be spaced by.
var timeSteps = []time.Duration{
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	3 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
	2 * 24 * time.Hour,
	7 * 24 * time.Hour,
	30 * 24 * time.Hour,
	90 * 24 * time.Hour,
	365 * 24 * time.Hour,
}

// TimeTicks returns at most n times spanning [lo, hi], spaced by the smallest
// interval in timeSteps that fits. Ticks fall on multiples of the interval in
// loc; days and longer start at midnight.
func TimeTicks(lo, hi time.Time, n int, loc *time.Location) []time.Time {
	if n <= 0 || !lo.Before(hi) {
		return nil
	}

	span := hi.Sub(lo)

	step := timeSteps[len(timeSteps)-1]
	for _, s := range timeSteps {
		if span/s <= time.Duration(n) {
			step = s
			break
		}
	}

	// Fall back to evenly spaced ticks past a year each.
	if span/step > time.Duration(n) {
		step = span / time.Duration(n)
	}

	var ticks []time.Time
	for t := alignTime(lo, step, loc); !t.After(hi); t = t.Add(step) {
		if !t.Before(lo) {
			ticks = append(ticks, t)
		}
	}

	return ticks
}

// alignTime returns the last multiple of step at or before t. Steps of a day
// or more are aligned to midnight in loc.
func alignTime(t time.Time, step time.Duration, loc *time.Location) time.Time {
	t = t.In(loc)

	if step < 24*time.Hour {
		_, offset := t.Zone()
		shift := time.Duration(offset) * time.Second
		return t.Add(shift).Truncate(step).Add(-shift)
	}

	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
