package store

import (
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
)

// Cause is a category that projects can belong to.
type Cause struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// ProjectRef is the part of a project that feed rows link to.
type ProjectRef struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// Project is a fundable project.
type Project struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Blurb       string            `json:"blurb,omitempty"`
	CreatorID   string            `json:"creator"`
	Stage       string            `json:"stage"`
	FundingGoal float64           `json:"funding_goal"`
	MinFunding  float64           `json:"min_funding"`
	CreatedAt   time.Time         `json:"created_at"`
	Creator     fundboard.Profile `json:"profiles"`
	Causes      []Cause           `json:"causes"`
	// Raised is the sum of all donations to the project.
	Raised float64 `json:"raised"`
}

// Ref returns the project's reference.
func (p Project) Ref() ProjectRef {
	return ProjectRef{ID: p.ID, Slug: p.Slug, Title: p.Title}
}

// Txn is a donation. FromID is empty for donations made by the platform.
type Txn struct {
	ID        string            `json:"id"`
	FromID    string            `json:"from_id,omitempty"`
	ToID      string            `json:"to_id,omitempty"`
	ProjectID string            `json:"project,omitempty"`
	Amount    float64           `json:"amount"`
	CreatedAt time.Time         `json:"created_at"`
	From      fundboard.Profile `json:"profiles"`
	Project   ProjectRef        `json:"projects"`
}

// Bid is an offer to buy or sell a share of a project.
type Bid struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project"`
	BidderID  string            `json:"bidder"`
	Amount    float64           `json:"amount"`
	Valuation float64           `json:"valuation"`
	Type      string            `json:"type"`
	CreatedAt time.Time         `json:"created_at"`
	Bidder    fundboard.Profile `json:"profiles"`
	Project   ProjectRef        `json:"projects"`
}

// FullComment is a comment along with the project it was left on.
type FullComment struct {
	fundboard.Comment
	Project ProjectRef `json:"projects"`
}
