// Package composer writes and submits comments. It keeps an unsent comment as
// a draft until the server accepts it.
package composer

import (
	"context"
	"sync"

	"git.unix.lgbt/diamondburned/fundboard"
	"github.com/pkg/errors"
)

var (
	// ErrEmptyComment is returned when submitting a comment without text.
	ErrEmptyComment = errors.New("comment is empty")
	// ErrSubmitting is returned when a comment is submitted while the
	// previous one is still in flight.
	ErrSubmitting = errors.New("comment is already being submitted")
)

// ResolveParent returns the ID that a reply to target should be stored under.
// Replies to replies go to the same root, so threads stay two levels deep. A
// nil target is a root comment.
func ResolveParent(target *fundboard.Comment) string {
	switch {
	case target == nil:
		return ""
	case target.IsReply():
		return target.ReplyingTo
	default:
		return target.ID
	}
}

// Request is the body of a comment submission.
type Request struct {
	Content    fundboard.Doc `json:"content"`
	ProjectID  string        `json:"projectId"`
	ReplyingTo string        `json:"replyingTo,omitempty"`
}

// Response is the server's answer to a successful submission.
type Response struct {
	ID string `json:"id"`
}

// Poster submits comments. *Client implements it.
type Poster interface {
	PostComment(ctx context.Context, req Request) (Response, error)
}

// Composer is the state of a comment editor bound to a project and an
// optional reply target.
type Composer struct {
	// OnSubmit is called after the server accepts a comment, so the caller
	// can refresh what it shows.
	OnSubmit func(Response)

	poster Poster
	drafts fundboard.Drafts

	mu         sync.Mutex
	projectID  string
	target     *fundboard.Comment
	key        string
	doc        fundboard.Doc
	submitting bool
}

// New creates a composer that posts with poster and keeps drafts in drafts.
func New(poster Poster, drafts fundboard.Drafts) *Composer {
	return &Composer{
		poster: poster,
		drafts: drafts,
		doc:    emptyDoc(),
	}
}

func emptyDoc() fundboard.Doc {
	return fundboard.Doc{Type: fundboard.DocType}
}

// Load binds the composer to a project and reply target. A saved draft is
// restored if there is one; otherwise replies start with a mention of the
// target's author.
func (c *Composer) Load(projectID string, target *fundboard.Comment) (fundboard.Doc, error) {
	var targetID string
	if target != nil {
		targetID = target.ID
	}

	key := fundboard.DraftKey(projectID, targetID)

	doc, ok, err := c.drafts.Get(key)
	if err != nil {
		return fundboard.Doc{}, errors.Wrap(err, "failed to load draft")
	}

	if !ok {
		if target != nil {
			doc = fundboard.ReplyPrompt(*target)
		} else {
			doc = emptyDoc()
		}
	}

	c.mu.Lock()
	c.projectID = projectID
	c.target = target
	c.key = key
	c.doc = doc
	c.mu.Unlock()

	return doc, nil
}

// Doc returns the document being edited.
func (c *Composer) Doc() fundboard.Doc {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doc
}

// Key returns the draft key of the loaded project and target.
func (c *Composer) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.key
}

// Submitting returns true while a submission is in flight.
func (c *Composer) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.submitting
}

// Save replaces the edited document and persists it as the draft.
func (c *Composer) Save(doc fundboard.Doc) error {
	c.mu.Lock()
	if c.key == "" {
		c.mu.Unlock()
		return errors.New("composer is not loaded")
	}
	c.doc = doc
	key := c.key
	c.mu.Unlock()

	return errors.Wrap(c.drafts.Put(key, doc), "failed to save draft")
}

// Submit sends doc as a single request without retrying. On success the
// editor and the draft are cleared and OnSubmit is called. On failure the
// draft is kept so the comment can be sent again.
func (c *Composer) Submit(ctx context.Context, doc fundboard.Doc) (Response, error) {
	c.mu.Lock()

	if c.key == "" {
		c.mu.Unlock()
		return Response{}, errors.New("composer is not loaded")
	}
	if c.submitting {
		c.mu.Unlock()
		return Response{}, ErrSubmitting
	}
	if doc.IsBlank() {
		c.mu.Unlock()
		return Response{}, ErrEmptyComment
	}

	c.submitting = true
	c.doc = doc

	key := c.key
	req := Request{
		Content:    doc,
		ProjectID:  c.projectID,
		ReplyingTo: ResolveParent(c.target),
	}

	c.mu.Unlock()

	resp, err := c.poster.PostComment(ctx, req)

	c.mu.Lock()
	c.submitting = false
	if err == nil {
		c.doc = emptyDoc()
	}
	c.mu.Unlock()

	if err != nil {
		if derr := c.drafts.Put(key, doc); derr != nil {
			return Response{}, errors.Wrapf(err, "failed to post comment (draft not saved: %v)", derr)
		}
		return Response{}, errors.Wrap(err, "failed to post comment")
	}

	if err := c.drafts.Clear(key); err != nil {
		return resp, errors.Wrap(err, "comment posted but draft not cleared")
	}

	if c.OnSubmit != nil {
		c.OnSubmit(resp)
	}

	return resp, nil
}
