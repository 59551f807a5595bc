// Package home renders the front page feed.
package home

import (
	"html/template"
	"io"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/components/chart"
	_ "git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/components/errbox"
	"git.unix.lgbt/diamondburned/fundboard/internal/feed"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
)

var home = frontend.Templater.Register("home", "pages/home/home.html")

// HistoryFunc returns the funding history of a project for its sparkline. It
// returns nil if there is none.
type HistoryFunc func(projectID string) []fundboard.HistoryPoint

// RenderData is the data of the front page.
type RenderData struct {
	Params feed.Params
	// Feed is nil if it failed to load, in which case Error is set.
	Feed  *feed.Feed
	Error error
	Now   time.Time
	// History is optional.
	History HistoryFunc
}

// Tab is a link to a feed tab.
type Tab struct {
	Name   string
	Href   string
	Active bool
}

// Tabs returns the tab links in display order.
func (r *RenderData) Tabs() []Tab {
	tabs := make([]Tab, len(feed.Tabs))
	for i, tab := range feed.Tabs {
		tabs[i] = Tab{
			Name:   title(string(tab)),
			Href:   href(feed.Params{Page: 1, Tab: tab}),
			Active: tab == r.Params.Tab,
		}
	}
	return tabs
}

// PrevHref returns the link to the previous page, or an empty string on the
// first page.
func (r *RenderData) PrevHref() string {
	if r.Feed == nil {
		return ""
	}
	if p, ok := r.Feed.PrevPage(); ok {
		return href(p)
	}
	return ""
}

// NextHref returns the link to the next page, or an empty string if the
// current page is the last.
func (r *RenderData) NextHref() string {
	if r.Feed == nil || !r.Feed.HasNext() {
		return ""
	}
	return href(r.Feed.NextPage())
}

// Sparkline renders the project's funding thumbnail.
func (r *RenderData) Sparkline(p store.Project) template.HTML {
	if r.History == nil {
		return ""
	}

	points := r.History(p.ID)
	if len(points) == 0 {
		return ""
	}

	return chart.Sparkline("spark-"+p.ID, points, r.Now)
}

// Progress returns how much of its goal the project has raised in percent,
// capped at 100.
func Progress(p store.Project) float64 {
	if p.FundingGoal <= 0 {
		return 0
	}

	pc := p.Raised / p.FundingGoal * 100
	if pc > 100 {
		pc = 100
	}

	return pc
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func href(p feed.Params) string {
	if q := p.Query(); q != "" {
		return "/projects?" + q
	}
	return "/projects"
}

func init() {
	frontend.Templater.Func("progress", Progress)
}

// Render renders the front page.
func Render(w io.Writer, data *RenderData) {
	if data.Now.IsZero() {
		data.Now = time.Now()
	}

	home.Execute(w, data)
}
