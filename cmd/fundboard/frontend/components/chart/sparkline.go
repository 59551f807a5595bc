package chart

import (
	"html/template"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
)

// Sparkline sizes.
const (
	SparklineWidth  = 120
	SparklineHeight = 32
)

// Sparkline renders a thumbnail of the whole history without axes or
// tooltips. Long histories are averaged down with BinAvg first.
func Sparkline(id string, points []fundboard.HistoryPoint, now time.Time) template.HTML {
	return New(fundboard.BinAvg(points, fundboard.DefaultBinAvgLimit), Options{
		ID:     id,
		Width:  SparklineWidth,
		Height: SparklineHeight,
		Now:    now,
		Bare:   true,
	}).SVG()
}
