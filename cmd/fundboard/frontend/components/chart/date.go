package chart

import "time"

// RightmostVisibleDate returns where the chart's x axis should end: the
// contract end if there is one, otherwise the last activity or now,
// whichever is later. Server and database clocks may disagree, so the last
// activity can be after now.
func RightmostVisibleDate(contractEnd, lastActivity *time.Time, now time.Time) time.Time {
	switch {
	case contractEnd != nil:
		return *contractEnd
	case lastActivity != nil && lastActivity.After(now):
		return *lastActivity
	default:
		return now
	}
}

// DateOpts controls how much of a date FormatDate shows. The most precise
// option wins.
type DateOpts struct {
	IncludeYear   bool
	IncludeHour   bool
	IncludeMinute bool
}

// FormatDate formats d relative to now: "Now" within a minute, "Today" or
// "Yesterday" on those days, and a short date otherwise.
func FormatDate(d, now time.Time, opts DateOpts) string {
	d = d.In(now.Location())

	if diff := d.Sub(now); diff > -time.Minute && diff < time.Minute {
		return "Now"
	}

	switch {
	case sameDay(now, d):
		return "Today"
	case sameDay(now, d.AddDate(0, 0, 1)):
		return "Yesterday"
	}

	layout := "Jan 2"
	switch {
	case opts.IncludeMinute:
		layout += ", 3:04PM"
	case opts.IncludeHour:
		layout += ", 3PM"
	case opts.IncludeYear:
		layout += ", 2006"
	}

	return d.Format(layout)
}

// FormatDateInRange formats d with as much precision as the range
// [start, end] needs: minutes under two hours, hours under eight days, and
// the year when the range spans years.
func FormatDateInRange(d, start, end, now time.Time) string {
	return FormatDate(d, now, DateOpts{
		IncludeYear:   start.Year() != end.Year(),
		IncludeHour:   start.AddDate(0, 0, 8).After(end),
		IncludeMinute: end.Sub(start) < 2*time.Hour,
	})
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// msTime converts Unix milliseconds to a time.
func msTime(ms float64) time.Time {
	return time.UnixMilli(int64(ms))
}

// timeMs converts a time to Unix milliseconds.
func timeMs(t time.Time) float64 {
	return float64(t.UnixMilli())
}
