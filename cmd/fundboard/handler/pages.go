package handler

import (
	"log"
	"net/http"
	"strconv"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/components/chart"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/pages/home"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/pages/project"
	"git.unix.lgbt/diamondburned/fundboard/internal/composer"
	"git.unix.lgbt/diamondburned/fundboard/internal/feed"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/go-chi/chi"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func (h *handler) feed(w http.ResponseWriter, r *http.Request) {
	params := feed.ParseParams(r.URL.Query())
	f, err := h.loader.Load(r.Context(), params)

	if wantsJSON(r) {
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=UTF-8")

	if err != nil {
		log.Println("failed to load feed:", err)
		w.WriteHeader(http.StatusInternalServerError)
	}

	mw := minifier.Writer("text/html", w)
	defer mw.Close()

	home.Render(mw, &home.RenderData{
		Params:  params,
		Feed:    f,
		Error:   err,
		Now:     h.now(),
		History: h.sparklineHistory,
	})
}

// sparklineHistory reads a project's recorded history. Projects without one
// get no sparkline.
func (h *handler) sparklineHistory(projectID string) []fundboard.HistoryPoint {
	if h.history == nil {
		return nil
	}

	points, err := h.history.Points(projectID, zeroTime, zeroTime)
	if err != nil {
		log.Println("failed to read sparkline history:", err)
		return nil
	}

	return points
}

type projectPage struct {
	project       store.Project
	comments      []fundboard.Comment
	contributions map[string]string
	history       []fundboard.HistoryPoint
}

// loadProjectPage loads everything on a project's page concurrently.
func (h *handler) loadProjectPage(r *http.Request, slug string) (*projectPage, error) {
	ctx := r.Context()

	p, err := h.store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get project %q", slug)
	}

	page := projectPage{project: p}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		page.comments, err = h.store.ListComments(ctx, p.ID)
		return errors.Wrap(err, "comments")
	})

	g.Go(func() (err error) {
		page.contributions, err = h.store.CommenterContributions(ctx, p.ID)
		return errors.Wrap(err, "contributions")
	})

	g.Go(func() (err error) {
		page.history, err = h.loadHistory(ctx, p.ID, zeroTime)
		return errors.Wrap(err, "history")
	})

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to load project")
	}

	return &page, nil
}

func (h *handler) project(w http.ResponseWriter, r *http.Request) {
	dura, err := parseDuration(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	page, err := h.loadProjectPage(r, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}

	threads := fundboard.ThreadComments(page.comments)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, struct {
			Project       store.Project     `json:"project"`
			Threads       fundboard.Threads `json:"threads"`
			Contributions map[string]string `json:"contributions"`
		}{page.project, threads, page.contributions})
		return
	}

	now := h.now()
	q := r.URL.Query()

	data := project.RenderData{
		Project:       page.project,
		Threads:       threads,
		Contributions: page.contributions,
		History:       page.history,
		Window:        chart.ParseWindow(q),
		Now:           now,
	}

	if dura > 0 && data.Window == (chart.Window{}) {
		data.Window = chart.Window{
			From: float64(now.Add(-dura).UnixMilli()),
			To:   float64(now.UnixMilli()),
		}
	}

	if hover, err := strconv.Atoi(q.Get("hover")); err == nil && hover > 0 {
		data.Hover = hover
	}

	if msg := q.Get("error"); msg != "" {
		data.Error = errors.New(msg)
	}

	if err := h.loadComposer(r, &data, page.comments); err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=UTF-8")

	mw := minifier.Writer("text/html", w)
	defer mw.Close()

	project.Render(mw, &data)
}

// loadComposer fills in the signed in user and their draft. Pages viewed
// without a session have no composer.
func (h *handler) loadComposer(r *http.Request, data *project.RenderData, comments []fundboard.Comment) error {
	user, err := h.sessionUser(r)
	if err != nil {
		if err == errNoSession {
			return nil
		}
		return err
	}

	data.User = &user

	if id := r.URL.Query().Get("reply"); id != "" {
		for i, c := range comments {
			if c.ID == id {
				data.ReplyTo = &comments[i]
				break
			}
		}
	}

	c := composer.New(nil, userDrafts{h.drafts, user.ID})

	data.Draft, err = c.Load(data.Project.ID, data.ReplyTo)
	return err
}
