package store

import (
	"context"
	"math"

	"git.unix.lgbt/diamondburned/fundboard"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const selectTxn = `
SELECT t.id, COALESCE(t.from_id, ''), COALESCE(t.to_id, ''), COALESCE(t.project, ''), t.amount, t.created_at,
       COALESCE(pr.id, ''), COALESCE(pr.username, ''), COALESCE(pr.full_name, ''), COALESCE(pr.avatar_url, ''),
       COALESCE(p.id, ''), COALESCE(p.slug, ''), COALESCE(p.title, '')
  FROM txns t
  LEFT JOIN profiles pr ON pr.id = t.from_id
  LEFT JOIN projects p ON p.id = t.project`

func scanTxn(row scanner) (Txn, error) {
	var t Txn
	var createdAt int64

	err := row.Scan(
		&t.ID, &t.FromID, &t.ToID, &t.ProjectID, &t.Amount, &createdAt,
		&t.From.ID, &t.From.Username, &t.From.FullName, &t.From.AvatarURL,
		&t.Project.ID, &t.Project.Slug, &t.Project.Title,
	)
	if err != nil {
		return t, err
	}

	t.CreatedAt = fromUnixMillis(createdAt)
	return t, nil
}

func (s *Store) listTxns(ctx context.Context, query string, args ...interface{}) ([]Txn, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list txns")
	}
	defer rows.Close()

	txns := []Txn{}
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan txn")
		}
		txns = append(txns, t)
	}

	return txns, errors.Wrap(rows.Err(), "failed to list txns")
}

// RecentTxns lists donations to projects, newest first.
func (s *Store) RecentTxns(ctx context.Context, limit, offset int) ([]Txn, error) {
	return s.listTxns(ctx, selectTxn+`
 WHERE t.project IS NOT NULL
 ORDER BY t.created_at DESC, t.id
 LIMIT ? OFFSET ?`, limit, offset)
}

// ProjectTxns lists a project's donations, oldest first.
func (s *Store) ProjectTxns(ctx context.Context, projectID string) ([]Txn, error) {
	return s.listTxns(ctx, selectTxn+`
 WHERE t.project = ?
 ORDER BY t.created_at, t.id`, projectID)
}

// InsertTxn stores a new donation. The ID and creation time are filled in if
// they are missing.
func (s *Store) InsertTxn(ctx context.Context, t Txn) (Txn, error) {
	if math.IsNaN(t.Amount) || t.Amount <= 0 {
		return t, errors.Errorf("invalid amount %v", t.Amount)
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}

	_, err := s.exec(ctx, `
INSERT INTO txns (id, from_id, to_id, project, amount, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(t.FromID), nullString(t.ToID), nullString(t.ProjectID), t.Amount, unixMillis(t.CreatedAt),
	)
	if err != nil {
		return t, errors.Wrap(err, "failed to insert txn")
	}

	return t, nil
}

// CommenterContributions maps the project's commenters who donated to the
// project to a short description of their contribution, such as
// "donated $1,200".
func (s *Store) CommenterContributions(ctx context.Context, projectID string) (map[string]string, error) {
	rows, err := s.query(ctx, `
SELECT t.from_id, SUM(t.amount)
  FROM txns t
 WHERE t.project = ?
   AND t.from_id IN (SELECT c.commenter FROM comments c WHERE c.project = ?)
 GROUP BY t.from_id`, projectID, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sum contributions")
	}
	defer rows.Close()

	contributions := make(map[string]string)
	for rows.Next() {
		var id string
		var amount float64
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, errors.Wrap(err, "failed to scan contribution")
		}
		contributions[id] = "donated " + FormatMoney(amount)
	}

	return contributions, errors.Wrap(rows.Err(), "failed to sum contributions")
}

// FormatMoney formats a dollar amount rounded to whole dollars, like $1,200.
func FormatMoney(amount float64) string {
	s := "$" + humanize.Comma(int64(math.Round(math.Abs(amount))))
	if amount < 0 {
		s = "-" + s
	}
	return s
}

const selectBid = `
SELECT b.id, b.project, b.bidder, b.amount, b.valuation, b.bid_type, b.created_at,
       pr.id, pr.username, pr.full_name, pr.avatar_url,
       p.id, p.slug, p.title
  FROM bids b
  JOIN profiles pr ON pr.id = b.bidder
  JOIN projects p ON p.id = b.project`

// RecentBids lists bids across all projects, newest first.
func (s *Store) RecentBids(ctx context.Context, limit, offset int) ([]Bid, error) {
	rows, err := s.query(ctx, selectBid+`
 ORDER BY b.created_at DESC, b.id
 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bids")
	}
	defer rows.Close()

	bids := []Bid{}
	for rows.Next() {
		var b Bid
		var createdAt int64

		err := rows.Scan(
			&b.ID, &b.ProjectID, &b.BidderID, &b.Amount, &b.Valuation, &b.Type, &createdAt,
			&b.Bidder.ID, &b.Bidder.Username, &b.Bidder.FullName, &b.Bidder.AvatarURL,
			&b.Project.ID, &b.Project.Slug, &b.Project.Title,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan bid")
		}

		b.CreatedAt = fromUnixMillis(createdAt)
		bids = append(bids, b)
	}

	return bids, errors.Wrap(rows.Err(), "failed to list bids")
}

// InsertBid stores a new bid.
func (s *Store) InsertBid(ctx context.Context, b Bid) (Bid, error) {
	if b.ProjectID == "" || b.BidderID == "" {
		return b, errors.New("bid project and bidder are required")
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Type == "" {
		b.Type = "buy"
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}

	_, err := s.exec(ctx, `
INSERT INTO bids (id, project, bidder, amount, valuation, bid_type, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ProjectID, b.BidderID, b.Amount, b.Valuation, b.Type, unixMillis(b.CreatedAt),
	)
	if err != nil {
		return b, errors.Wrap(err, "failed to insert bid")
	}

	return b, nil
}

// CumulativeHistory turns donations, oldest first, into the project's funding
// history: each point is the total raised after that donation.
func CumulativeHistory(txns []Txn) []fundboard.HistoryPoint {
	points := make([]fundboard.HistoryPoint, len(txns))
	var total float64

	for i, t := range txns {
		total += t.Amount
		points[i] = fundboard.HistoryPoint{
			X: float64(t.CreatedAt.UnixMilli()),
			Y: total,
			Obj: &fundboard.HistoryEvent{
				TxnID:  t.ID,
				From:   t.From.Username,
				Amount: t.Amount,
			},
		}
	}

	return points
}

// PlatformDonor names donations made by the platform in DonorHistories.
const PlatformDonor = "fundboard"

// DonorHistories splits donations, oldest first, into one cumulative history
// per donor username.
func DonorHistories(txns []Txn) map[string][]fundboard.HistoryPoint {
	byDonor := make(map[string][]Txn)
	for _, t := range txns {
		donor := t.From.Username
		if donor == "" {
			donor = PlatformDonor
		}
		byDonor[donor] = append(byDonor[donor], t)
	}

	histories := make(map[string][]fundboard.HistoryPoint, len(byDonor))
	for donor, txns := range byDonor {
		histories[donor] = CumulativeHistory(txns)
	}

	return histories
}
