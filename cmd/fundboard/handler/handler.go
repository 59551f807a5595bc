// Package handler serves the fundboard website and its JSON API.
package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/pages/errpage"
	"git.unix.lgbt/diamondburned/fundboard/internal/badgerlog"
	"git.unix.lgbt/diamondburned/fundboard/internal/cache"
	"git.unix.lgbt/diamondburned/fundboard/internal/composer"
	"git.unix.lgbt/diamondburned/fundboard/internal/config"
	"git.unix.lgbt/diamondburned/fundboard/internal/feed"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/diamondburned/tmplutil"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
)

var minifier = minify.New()

func init() {
	minifier.Add("text/html", html.DefaultMinifier)
	minifier.AddFunc("text/css", css.Minify)
}

// RevalidateProjectsPath is the endpoint that drops the cached project
// listing.
const RevalidateProjectsPath = "/api/revalidate/projects"

// Options is the handler's dependencies.
type Options struct {
	Store *store.Store
	// History is optional. Without it, histories are computed from the
	// project's donations on every request.
	History *fundboard.History
	// Drafts keeps the drafts of comments posted from HTML forms. Nil keeps
	// them in memory.
	Drafts fundboard.Drafts
	Config config.Config
	// Now overrides the clock.
	Now func() time.Time
}

type handler struct {
	store   *store.Store
	history *fundboard.History
	drafts  fundboard.Drafts
	loader  *feed.Loader
	limits  *limiterPool
	session string
	now     func() time.Time
	started time.Time
}

// New creates the HTTP handler.
func New(opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Drafts == nil {
		opts.Drafts = &fundboard.MemDrafts{}
	}
	if opts.Config.SessionHeader == "" {
		opts.Config.SessionHeader = config.Defaults["session.header"].(string)
	}

	h := &handler{
		store:   opts.Store,
		history: opts.History,
		drafts:  opts.Drafts,
		loader:  feed.NewLoader(opts.Store, cache.New(), opts.Config.ProjectsTTL),
		limits:  newLimiterPool(opts.Config.CommentRate, opts.Config.CommentBurst, opts.Now),
		session: opts.Config.SessionHeader,
		now:     opts.Now,
		started: opts.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if opts.Config.LogLevel >= badgerlog.InfoLevel {
		r.Use(middleware.Logger)
	}

	r.Mount("/static", http.StripPrefix("/static", frontend.MountStatic()))
	r.Get("/status", h.status)
	r.Post(composer.PostCommentPath, h.postComment)
	r.Post(RevalidateProjectsPath, h.revalidateProjects)

	r.Group(func(r chi.Router) {
		r.Use(tmplutil.AlwaysFlush)
		r.Use(middleware.NoCache)
		r.Use(middleware.Compress(5))

		r.Get("/", h.feed)
		r.Get("/projects", h.feed)
		r.Get("/projects/{slug}", h.project)
		r.Get("/projects/{slug}/history", h.projectHistory)
	})

	return r
}

type jsonError struct {
	Error string
}

// wantsJSON returns true if the first type in the Accept header is JSON.
func wantsJSON(r *http.Request) bool {
	accept, _, _ := strings.Cut(r.Header.Get("Accept"), ",")
	accept, _, _ = strings.Cut(accept, ";")
	return strings.TrimSpace(accept) == "application/json"
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	frontend.WriteJSON(w, v)
}

func writeJSONError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(jsonError{Error: err.Error()})
}

// writeError responds with an error in the format that the client asked for.
func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	if code >= 500 {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}

	if wantsJSON(r) {
		writeJSONError(w, code, err)
		return
	}

	errpage.Respond(w, code, err)
}

// statusOf returns the HTTP status code of an error.
func statusOf(err error) int {
	switch errors.Cause(err) {
	case store.ErrNotFound, fundboard.ErrNoHistory:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

const maxTime = 365 * 24 * time.Hour // max 1yr

// parseDuration parses the t parameter. Zero is returned if there is none.
func parseDuration(r *http.Request) (time.Duration, error) {
	t := r.FormValue("t")
	if t == "" {
		return 0, nil
	}

	dura, err := config.ParseDuration(t)
	if err != nil {
		return 0, err
	}

	if dura > maxTime {
		return 0, fmt.Errorf("duration %v is over bound %v", dura, maxTime)
	}

	return dura, nil
}
