// Package feed loads the paginated multi-tab feed shown on the front page.
package feed

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/fundboard/internal/cache"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// PageSize is the number of rows per page on every tab.
const PageSize = 20

// Tab selects which part of the feed is shown.
type Tab string

const (
	ProjectsTab  Tab = "projects"
	CommentsTab  Tab = "comments"
	DonationsTab Tab = "donations"
	BidsTab      Tab = "bids"
)

// Tabs lists all tabs in display order.
var Tabs = []Tab{ProjectsTab, CommentsTab, DonationsTab, BidsTab}

// ParseTab parses a tab name. Unknown or empty names are the projects tab.
func ParseTab(s string) Tab {
	switch tab := Tab(strings.ToLower(strings.TrimSpace(s))); tab {
	case ProjectsTab, CommentsTab, DonationsTab, BidsTab:
		return tab
	default:
		return ProjectsTab
	}
}

// Params are the feed page's query parameters.
type Params struct {
	// Page is 1-based.
	Page int `json:"page"`
	Tab  Tab `json:"tab"`
}

// ParseParams parses the p and tab query parameters. Missing or invalid page
// numbers are page 1.
func ParseParams(q url.Values) Params {
	page, err := strconv.Atoi(q.Get("p"))
	if err != nil || page < 1 {
		page = 1
	}

	return Params{
		Page: page,
		Tab:  ParseTab(q.Get("tab")),
	}
}

// Start returns the offset of the page's first row.
func (p Params) Start() int {
	return (p.Page - 1) * PageSize
}

// Query encodes the parameters back into a query string.
func (p Params) Query() string {
	q := url.Values{}
	if p.Tab != ProjectsTab {
		q.Set("tab", string(p.Tab))
	}
	if p.Page > 1 {
		q.Set("p", strconv.Itoa(p.Page))
	}
	return q.Encode()
}

// Feed is one page of the feed.
type Feed struct {
	Params
	Projects  []store.Project     `json:"projects"`
	Comments  []store.FullComment `json:"comments"`
	Donations []store.Txn         `json:"donations"`
	Bids      []store.Bid         `json:"bids"`
	Causes    []store.Cause       `json:"causes"`
}

// HasNext returns true if the current tab filled its page, so a next page may
// exist. The projects tab is never paginated.
func (f *Feed) HasNext() bool {
	switch f.Tab {
	case CommentsTab:
		return len(f.Comments) == PageSize
	case DonationsTab:
		return len(f.Donations) == PageSize
	case BidsTab:
		return len(f.Bids) == PageSize
	default:
		return false
	}
}

// PrevPage returns the parameters of the previous page, or false on the
// first page.
func (f *Feed) PrevPage() (Params, bool) {
	if f.Page <= 1 {
		return f.Params, false
	}
	return Params{Page: f.Page - 1, Tab: f.Tab}, true
}

// NextPage returns the parameters of the next page.
func (f *Feed) NextPage() Params {
	return Params{Page: f.Page + 1, Tab: f.Tab}
}

// Source is the data the feed reads from. *store.Store implements it.
type Source interface {
	ListProjects(ctx context.Context) ([]store.Project, error)
	RecentComments(ctx context.Context, limit, offset int) ([]store.FullComment, error)
	RecentTxns(ctx context.Context, limit, offset int) ([]store.Txn, error)
	RecentBids(ctx context.Context, limit, offset int) ([]store.Bid, error)
	ListSimpleCauses(ctx context.Context) ([]store.Cause, error)
}

var _ Source = (*store.Store)(nil)

// Project listing cache parameters.
const (
	ProjectsKey        = "list-projects"
	ProjectsTag        = "projects"
	DefaultProjectsTTL = 30 * time.Second
)

// Loader loads feed pages. The project listing is cached.
type Loader struct {
	src          Source
	cache        *cache.Cache
	listProjects func(context.Context) ([]store.Project, error)
}

// NewLoader creates a new loader. The project listing is cached in c for ttl;
// a zero ttl uses DefaultProjectsTTL.
func NewLoader(src Source, c *cache.Cache, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultProjectsTTL
	}

	opts := cache.Options{
		TTL:  ttl,
		Tags: []string{ProjectsTag},
	}

	return &Loader{
		src:          src,
		cache:        c,
		listProjects: cache.Memoize(c, ProjectsKey, opts, src.ListProjects),
	}
}

// ListProjects returns the cached project listing.
func (l *Loader) ListProjects(ctx context.Context) ([]store.Project, error) {
	return l.listProjects(ctx)
}

// InvalidateProjects drops the cached project listing.
func (l *Loader) InvalidateProjects() int {
	return l.cache.InvalidateTag(ProjectsTag)
}

// Load loads one page of the feed. All reads run concurrently; the first
// failure cancels the rest and is returned. Projects are only loaded on the
// projects tab.
func (l *Loader) Load(ctx context.Context, p Params) (*Feed, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Tab == "" {
		p.Tab = ProjectsTab
	}

	f := Feed{
		Params:   p,
		Projects: []store.Project{},
	}

	g, ctx := errgroup.WithContext(ctx)
	start := p.Start()

	if p.Tab == ProjectsTab {
		g.Go(func() (err error) {
			f.Projects, err = l.ListProjects(ctx)
			return errors.Wrap(err, "projects")
		})
	}

	g.Go(func() (err error) {
		f.Comments, err = l.src.RecentComments(ctx, PageSize, start)
		return errors.Wrap(err, "comments")
	})

	g.Go(func() (err error) {
		f.Donations, err = l.src.RecentTxns(ctx, PageSize, start)
		return errors.Wrap(err, "donations")
	})

	g.Go(func() (err error) {
		f.Bids, err = l.src.RecentBids(ctx, PageSize, start)
		return errors.Wrap(err, "bids")
	})

	g.Go(func() (err error) {
		f.Causes, err = l.src.ListSimpleCauses(ctx)
		return errors.Wrap(err, "causes")
	})

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to load feed")
	}

	return &f, nil
}
