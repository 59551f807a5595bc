package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"git.unix.lgbt/diamondburned/fundboard"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const selectComment = `
SELECT c.id, c.project, c.commenter, COALESCE(c.replying_to, ''), c.content, c.created_at,
       pr.id, pr.username, pr.full_name, pr.avatar_url
  FROM comments c
  JOIN profiles pr ON pr.id = c.commenter`

func scanComment(row scanner, dst *fundboard.Comment, extra ...interface{}) error {
	var content string
	var createdAt int64

	dest := []interface{}{
		&dst.ID, &dst.ProjectID, &dst.Commenter, &dst.ReplyingTo, &content, &createdAt,
		&dst.Author.ID, &dst.Author.Username, &dst.Author.FullName, &dst.Author.AvatarURL,
	}

	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(content), &dst.Content); err != nil {
		return errors.Wrapf(err, "comment %s has invalid content", dst.ID)
	}

	dst.CreatedAt = fromUnixMillis(createdAt)
	return nil
}

// ListComments lists all comments on a project, oldest first, along with
// their authors and reactions.
func (s *Store) ListComments(ctx context.Context, projectID string) ([]fundboard.Comment, error) {
	rows, err := s.query(ctx, selectComment+` WHERE c.project = ? ORDER BY c.created_at, c.id`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}

	comments := []fundboard.Comment{}
	index := make(map[string]int)

	for rows.Next() {
		var c fundboard.Comment
		if err := scanComment(rows, &c); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan comment")
		}
		index[c.ID] = len(comments)
		comments = append(comments, c)
	}

	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}

	rows, err = s.query(ctx, `
SELECT r.comment_id, r.reactor_id, r.reaction
  FROM comment_rxns r
  JOIN comments c ON c.id = r.comment_id
 WHERE c.project = ?
 ORDER BY r.comment_id, r.reactor_id, r.reaction`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reactions")
	}
	defer rows.Close()

	for rows.Next() {
		var commentID string
		var r fundboard.Reaction
		if err := rows.Scan(&commentID, &r.Reactor, &r.Reaction); err != nil {
			return nil, errors.Wrap(err, "failed to scan reaction")
		}
		if i, ok := index[commentID]; ok {
			comments[i].Reactions = append(comments[i].Reactions, r)
		}
	}

	return comments, errors.Wrap(rows.Err(), "failed to list reactions")
}

// GetComment returns a single comment without its reactions.
func (s *Store) GetComment(ctx context.Context, id string) (fundboard.Comment, error) {
	var c fundboard.Comment

	if err := scanComment(s.queryRow(ctx, selectComment+` WHERE c.id = ?`, id), &c); err != nil {
		if err == sql.ErrNoRows {
			return c, ErrNotFound
		}
		return c, errors.Wrap(err, "failed to get comment")
	}

	return c, nil
}

// RecentComments lists comments across all projects, newest first.
func (s *Store) RecentComments(ctx context.Context, limit, offset int) ([]FullComment, error) {
	rows, err := s.query(ctx, `
SELECT c.id, c.project, c.commenter, COALESCE(c.replying_to, ''), c.content, c.created_at,
       pr.id, pr.username, pr.full_name, pr.avatar_url,
       p.id, p.slug, p.title
  FROM comments c
  JOIN profiles pr ON pr.id = c.commenter
  JOIN projects p ON p.id = c.project
 ORDER BY c.created_at DESC, c.id
 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent comments")
	}
	defer rows.Close()

	comments := []FullComment{}
	for rows.Next() {
		var c FullComment
		if err := scanComment(rows, &c.Comment, &c.Project.ID, &c.Project.Slug, &c.Project.Title); err != nil {
			return nil, errors.Wrap(err, "failed to scan comment")
		}
		comments = append(comments, c)
	}

	return comments, errors.Wrap(rows.Err(), "failed to list recent comments")
}

// InsertComment stores a new comment. The ID and creation time are filled in
// if they are missing. The stored comment is returned.
func (s *Store) InsertComment(ctx context.Context, c fundboard.Comment) (fundboard.Comment, error) {
	if c.ProjectID == "" || c.Commenter == "" {
		return c, errors.New("comment project and commenter are required")
	}
	if c.Content.IsBlank() {
		return c, errors.New("comment is empty")
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	content, err := json.Marshal(c.Content)
	if err != nil {
		return c, errors.Wrap(err, "failed to marshal content")
	}

	_, err = s.exec(ctx, `
INSERT INTO comments (id, project, commenter, replying_to, content, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Commenter, nullString(c.ReplyingTo), string(content), unixMillis(c.CreatedAt),
	)
	if err != nil {
		return c, errors.Wrap(err, "failed to insert comment")
	}

	return c, nil
}

// React adds a reaction to a comment. Reacting twice is not an error.
func (s *Store) React(ctx context.Context, commentID string, r fundboard.Reaction) error {
	if strings.TrimSpace(r.Reaction) == "" {
		return errors.New("reaction is empty")
	}

	_, err := s.exec(ctx, `
INSERT INTO comment_rxns (comment_id, reactor_id, reaction) VALUES (?, ?, ?)
ON CONFLICT DO NOTHING`,
		commentID, r.Reactor, r.Reaction,
	)

	return errors.Wrap(err, "failed to react")
}
