// Package project renders a project's page: its funding chart and its comment
// threads.
package project

import (
	"html/template"
	"io"
	"net/url"
	"strconv"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/components/chart"
	_ "git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/components/errbox"
	"git.unix.lgbt/diamondburned/fundboard/internal/composer"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
)

var project = frontend.Templater.Register("project", "pages/project/project.html")

// Chart size in pixels. The SVG scales to the page width.
const (
	ChartWidth  = 800
	ChartHeight = 300
)

// Zoom and pan steps of the chart controls.
const (
	ZoomStep = 2
	PanStep  = 0.5
)

// RenderData is the data of a project page.
type RenderData struct {
	Project       store.Project
	Threads       fundboard.Threads
	Contributions map[string]string
	History       []fundboard.HistoryPoint
	// Window is the visible part of the chart; the zero value shows all.
	Window chart.Window
	// Hover is the 1-based index of the open tooltip.
	Hover int
	Now   time.Time

	// User is the signed in user, or nil.
	User *fundboard.Profile
	// ReplyTo is the comment being replied to, or nil.
	ReplyTo *fundboard.Comment
	// Draft is what the composer starts with.
	Draft fundboard.Doc
	// Error is shown above the composer.
	Error error

	chart *chart.Chart
}

// Chart returns the funding chart.
func (d *RenderData) Chart() *chart.Chart {
	if d.chart == nil {
		d.chart = chart.New(d.History, chart.Options{
			ID:                "funding",
			Width:             ChartWidth,
			Height:            ChartHeight,
			From:              d.Window.From,
			To:                d.Window.To,
			Now:               d.Now,
			NegativeThreshold: d.Project.MinFunding,
			Hover:             d.Hover,
		})
	}
	return d.chart
}

// Href returns the link to the project page with the given query.
func (d *RenderData) Href(q url.Values) string {
	u := "/projects/" + url.PathEscape(d.Project.Slug)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (d *RenderData) ZoomInHref() string  { return d.Href(d.Chart().ZoomIn(ZoomStep).Query()) }
func (d *RenderData) ZoomOutHref() string { return d.Href(d.Chart().ZoomOut(ZoomStep).Query()) }
func (d *RenderData) PanLeftHref() string { return d.Href(d.Chart().Pan(-PanStep).Query()) }

func (d *RenderData) PanRightHref() string {
	return d.Href(d.Chart().Pan(PanStep).Query())
}

// ResetHref returns the link that shows the whole history, or an empty string
// if it is already shown.
func (d *RenderData) ResetHref() string {
	if !d.Chart().Zoomed() {
		return ""
	}
	return d.Href(url.Values{"reset": {"1"}})
}

// HistoryHref returns the link to the JSON history.
func (d *RenderData) HistoryHref() string {
	return "/projects/" + url.PathEscape(d.Project.Slug) + "/history"
}

// CommentItem is what the comment component renders.
type CommentItem struct {
	Comment      fundboard.Comment
	Contribution string
	ReplyHref    string
}

// Item prepares a comment for rendering.
func (d *RenderData) Item(c fundboard.Comment) CommentItem {
	item := CommentItem{
		Comment:      c,
		Contribution: d.Contributions[c.Commenter],
	}

	if d.User != nil {
		q := url.Values{"reply": {c.ID}}
		item.ReplyHref = d.Href(q) + "#composer"
	}

	return item
}

// CommentCount returns the number of comments on the project.
func (d *RenderData) CommentCount() int {
	return d.Threads.Len()
}

// ParentID is the comment that a posted comment will be stored under.
func (d *RenderData) ParentID() string {
	return composer.ResolveParent(d.ReplyTo)
}

// DraftText returns the composer's text.
func (d *RenderData) DraftText() string {
	return d.Draft.PlainText()
}

// Progress returns how much of its goal the project has raised in percent.
func (d *RenderData) Progress() string {
	if d.Project.FundingGoal <= 0 {
		return ""
	}
	return strconv.FormatFloat(d.Project.Raised/d.Project.FundingGoal*100, 'f', 0, 64) + "%"
}

// ChartSVG renders the funding chart.
func (d *RenderData) ChartSVG() template.HTML {
	return d.Chart().SVG()
}

// Render renders the project page.
func Render(w io.Writer, data *RenderData) {
	if data.Now.IsZero() {
		data.Now = time.Now()
	}

	project.Execute(w, data)
}
