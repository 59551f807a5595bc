package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/internal/composer"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// maxCommentBody caps the size of a comment submission.
const maxCommentBody = 64 << 10

var (
	errNoSession   = errors.New("not signed in")
	errRateLimited = errors.New("too many comments, slow down")
)

// limiterIdle is how long a user's limiter is kept after its last use. It is
// stretched to the time a limiter takes to refill if that is longer.
const limiterIdle = 10 * time.Minute

type userLimiter struct {
	*rate.Limiter
	last time.Time
}

// limiterPool keeps a rate limiter per user. Limiters unused for the idle
// duration have refilled and are dropped. Callers only ask for users that
// sessionUser has matched to a profile.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
	swept    time.Time
	now      func() time.Time
}

func newLimiterPool(limit rate.Limit, burst int, now func() time.Time) *limiterPool {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	idle := limiterIdle
	if limit != rate.Inf {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}

	return &limiterPool{
		limiters: make(map[string]*userLimiter),
		limit:    limit,
		burst:    burst,
		idle:     idle,
		swept:    now(),
		now:      now,
	}
}

// Allow reports whether the user may post now.
func (p *limiterPool) Allow(userID string) bool {
	if p.limit == rate.Inf {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.swept) >= p.idle {
		p.sweep(now)
	}

	l, ok := p.limiters[userID]
	if !ok {
		l = &userLimiter{Limiter: rate.NewLimiter(p.limit, p.burst)}
		p.limiters[userID] = l
	}

	l.last = now
	return l.AllowN(now, 1)
}

func (p *limiterPool) sweep(now time.Time) {
	for id, l := range p.limiters {
		if now.Sub(l.last) >= p.idle {
			delete(p.limiters, id)
		}
	}
	p.swept = now
}

// Len returns the number of users with a limiter.
func (p *limiterPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

// sessionUser returns the profile of the signed in user. errNoSession is
// returned if there is none.
func (h *handler) sessionUser(r *http.Request) (fundboard.Profile, error) {
	id := strings.TrimSpace(r.Header.Get(h.session))
	if id == "" {
		return fundboard.Profile{}, errNoSession
	}

	p, err := h.store.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Cause(err) == store.ErrNotFound {
			return p, errNoSession
		}
		return p, err
	}

	return p, nil
}

// requestError is an error with the status code it should be answered with.
type requestError struct {
	code int
	err  error
}

func (err *requestError) Error() string { return err.err.Error() }

func errorCode(err error) int {
	var rerr *requestError
	if errors.As(err, &rerr) {
		return rerr.code
	}
	return statusOf(err)
}

// commentPoster stores comments on behalf of a user. It is the server side of
// composer.Poster.
type commentPoster struct {
	h    *handler
	user fundboard.Profile
}

var _ composer.Poster = commentPoster{}

// PostComment validates and stores a comment. Replies to replies are stored
// under the same root.
func (p commentPoster) PostComment(ctx context.Context, req composer.Request) (composer.Response, error) {
	if req.Content.IsBlank() {
		return composer.Response{}, &requestError{http.StatusBadRequest, composer.ErrEmptyComment}
	}

	if _, err := p.h.store.GetProject(ctx, req.ProjectID); err != nil {
		return composer.Response{}, errors.Wrap(err, "failed to get project")
	}

	var parent string

	if req.ReplyingTo != "" {
		target, err := p.h.store.GetComment(ctx, req.ReplyingTo)
		if err != nil {
			if errors.Cause(err) == store.ErrNotFound {
				err = errors.New("reply target not found")
				return composer.Response{}, &requestError{http.StatusBadRequest, err}
			}
			return composer.Response{}, err
		}

		if target.ProjectID != req.ProjectID {
			err := errors.New("reply target is on another project")
			return composer.Response{}, &requestError{http.StatusBadRequest, err}
		}

		parent = composer.ResolveParent(&target)
	}

	if !p.h.limits.Allow(p.user.ID) {
		return composer.Response{}, &requestError{http.StatusTooManyRequests, errRateLimited}
	}

	c, err := p.h.store.InsertComment(ctx, fundboard.Comment{
		ProjectID:  req.ProjectID,
		Commenter:  p.user.ID,
		ReplyingTo: parent,
		Content:    req.Content,
		CreatedAt:  p.h.now(),
	})
	if err != nil {
		return composer.Response{}, err
	}

	return composer.Response{ID: c.ID}, nil
}

func (h *handler) postComment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCommentBody)

	user, err := h.sessionUser(r)
	if err != nil {
		code := http.StatusUnauthorized
		if err != errNoSession {
			code = http.StatusInternalServerError
		}
		writeError(w, r, code, err)
		return
	}

	ctype := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ctype, "application/json") {
		h.postCommentForm(w, r, user)
		return
	}

	var req composer.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request"))
		return
	}

	resp, err := commentPoster{h, user}.PostComment(r.Context(), req)
	if err != nil {
		writeJSONError(w, errorCode(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// postCommentForm posts a comment from the project page's form. The text is
// kept as a draft until the comment is stored, then the user is sent back to
// the project page.
func (h *handler) postCommentForm(w http.ResponseWriter, r *http.Request, user fundboard.Profile) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	projectID := r.PostForm.Get("projectId")

	p, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		writeError(w, r, statusOf(err), errors.Wrap(err, "failed to get project"))
		return
	}

	var target *fundboard.Comment
	if id := r.PostForm.Get("replyingTo"); id != "" {
		c, err := h.store.GetComment(ctx, id)
		if err != nil {
			code := statusOf(err)
			if code == http.StatusNotFound {
				code = http.StatusBadRequest
			}
			writeError(w, r, code, errors.Wrap(err, "failed to get reply target"))
			return
		}
		target = &c
	}

	c := composer.New(commentPoster{h, user}, userDrafts{h.drafts, user.ID})
	if _, err := c.Load(p.ID, target); err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	doc := fundboard.NewTextDoc(strings.ReplaceAll(r.PostForm.Get("content"), "\r\n", "\n"))

	q := url.Values{}
	if target != nil {
		q.Set("reply", target.ID)
	}

	resp, err := c.Submit(ctx, doc)
	switch {
	case err == nil:
		q.Del("reply")
	case errors.Cause(err) == composer.ErrEmptyComment:
		q.Set("error", composer.ErrEmptyComment.Error())
	default:
		code := errorCode(err)
		if code >= 500 {
			writeError(w, r, code, err)
			return
		}
		q.Set("error", errors.Cause(err).Error())
	}

	u := "/projects/" + url.PathEscape(p.Slug)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	if resp.ID != "" {
		u += "#comment-" + resp.ID
	} else {
		u += "#composer"
	}

	http.Redirect(w, r, u, http.StatusSeeOther)
}

// userDrafts keeps a user's drafts apart from other users'.
type userDrafts struct {
	fundboard.Drafts
	user string
}

func (d userDrafts) key(key string) string { return d.user + "/" + key }

func (d userDrafts) Get(key string) (fundboard.Doc, bool, error) {
	return d.Drafts.Get(d.key(key))
}

func (d userDrafts) Put(key string, doc fundboard.Doc) error {
	return d.Drafts.Put(d.key(key), doc)
}

func (d userDrafts) Clear(key string) error {
	return d.Drafts.Clear(d.key(key))
}

func (h *handler) revalidateProjects(w http.ResponseWriter, r *http.Request) {
	n := h.loader.InvalidateProjects()
	writeJSON(w, http.StatusOK, struct {
		Revalidated bool `json:"revalidated"`
		Dropped     int  `json:"dropped"`
	}{true, n})
}
