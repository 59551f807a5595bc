package store

import (
	"context"
	"database/sql"
	"strings"

	"git.unix.lgbt/diamondburned/fundboard"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const selectProject = `
SELECT p.id, p.slug, p.title, p.blurb, p.creator, p.stage, p.funding_goal, p.min_funding, p.created_at,
       pr.id, pr.username, pr.full_name, pr.avatar_url,
       COALESCE((SELECT SUM(t.amount) FROM txns t WHERE t.project = p.id), 0)
  FROM projects p
  JOIN profiles pr ON pr.id = p.creator`

func scanProject(row scanner) (Project, error) {
	var p Project
	var createdAt int64

	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Blurb, &p.CreatorID, &p.Stage, &p.FundingGoal, &p.MinFunding, &createdAt,
		&p.Creator.ID, &p.Creator.Username, &p.Creator.FullName, &p.Creator.AvatarURL,
		&p.Raised,
	)
	if err != nil {
		return p, err
	}

	p.CreatedAt = fromUnixMillis(createdAt)
	p.Causes = []Cause{}
	return p, nil
}

// ListProjects lists all projects, newest first, along with their creators
// and causes.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.query(ctx, selectProject+` ORDER BY p.created_at DESC, p.id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan project")
		}
		projects = append(projects, p)
	}

	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}

	causes, err := s.projectCauses(ctx, "")
	if err != nil {
		return nil, err
	}

	for i, p := range projects {
		if c, ok := causes[p.ID]; ok {
			projects[i].Causes = c
		}
	}

	return projects, nil
}

// GetProjectBySlug returns the project with the given slug. ErrNotFound is
// returned if there is none.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (Project, error) {
	return s.getProject(ctx, `p.slug = ?`, slug)
}

// GetProject returns the project with the given ID.
func (s *Store) GetProject(ctx context.Context, id string) (Project, error) {
	return s.getProject(ctx, `p.id = ?`, id)
}

func (s *Store) getProject(ctx context.Context, where, arg string) (Project, error) {
	p, err := scanProject(s.queryRow(ctx, selectProject+` WHERE `+where, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return Project{}, ErrNotFound
		}
		return Project{}, errors.Wrap(err, "failed to get project")
	}

	causes, err := s.projectCauses(ctx, p.ID)
	if err != nil {
		return Project{}, err
	}

	if c, ok := causes[p.ID]; ok {
		p.Causes = c
	}

	return p, nil
}

// projectCauses maps project IDs to their causes. If projectID is empty, then
// all projects are included.
func (s *Store) projectCauses(ctx context.Context, projectID string) (map[string][]Cause, error) {
	q := `
SELECT pc.project_id, c.slug, c.title
  FROM project_causes pc
  JOIN causes c ON c.slug = pc.cause_slug`

	var args []interface{}
	if projectID != "" {
		q += ` WHERE pc.project_id = ?`
		args = append(args, projectID)
	}

	rows, err := s.query(ctx, q+` ORDER BY c.title`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list project causes")
	}
	defer rows.Close()

	causes := make(map[string][]Cause)
	for rows.Next() {
		var id string
		var c Cause
		if err := rows.Scan(&id, &c.Slug, &c.Title); err != nil {
			return nil, errors.Wrap(err, "failed to scan cause")
		}
		causes[id] = append(causes[id], c)
	}

	return causes, errors.Wrap(rows.Err(), "failed to list project causes")
}

// ListSimpleCauses lists every cause by title.
func (s *Store) ListSimpleCauses(ctx context.Context) ([]Cause, error) {
	rows, err := s.query(ctx, `SELECT slug, title FROM causes ORDER BY title`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list causes")
	}
	defer rows.Close()

	causes := []Cause{}
	for rows.Next() {
		var c Cause
		if err := rows.Scan(&c.Slug, &c.Title); err != nil {
			return nil, errors.Wrap(err, "failed to scan cause")
		}
		causes = append(causes, c)
	}

	return causes, errors.Wrap(rows.Err(), "failed to list causes")
}

// UpsertProfile inserts or updates a profile.
func (s *Store) UpsertProfile(ctx context.Context, p fundboard.Profile) error {
	if p.ID == "" || p.Username == "" {
		return errors.New("profile ID and username are required")
	}

	_, err := s.exec(ctx, `
INSERT INTO profiles (id, username, full_name, avatar_url) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    username = excluded.username,
    full_name = excluded.full_name,
    avatar_url = excluded.avatar_url`,
		p.ID, p.Username, p.FullName, p.AvatarURL,
	)

	return errors.Wrap(err, "failed to upsert profile")
}

// GetProfile returns the profile with the given ID.
func (s *Store) GetProfile(ctx context.Context, id string) (fundboard.Profile, error) {
	var p fundboard.Profile

	err := s.queryRow(ctx, `SELECT id, username, full_name, avatar_url FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return p, ErrNotFound
		}
		return p, errors.Wrap(err, "failed to get profile")
	}

	return p, nil
}

// UpsertCause inserts or updates a cause.
func (s *Store) UpsertCause(ctx context.Context, c Cause) error {
	if c.Slug == "" {
		return errors.New("cause slug is required")
	}

	_, err := s.exec(ctx, `
INSERT INTO causes (slug, title) VALUES (?, ?)
ON CONFLICT (slug) DO UPDATE SET title = excluded.title`,
		c.Slug, c.Title,
	)

	return errors.Wrap(err, "failed to upsert cause")
}

// UpsertProject inserts or updates a project and replaces its causes. A new
// ID is generated if p has none. The stored project is returned.
func (s *Store) UpsertProject(ctx context.Context, p Project) (Project, error) {
	if strings.TrimSpace(p.Slug) == "" || p.CreatorID == "" {
		return p, errors.New("project slug and creator are required")
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Stage == "" {
		p.Stage = "active"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO projects (id, slug, title, blurb, creator, stage, funding_goal, min_funding, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    slug = excluded.slug,
    title = excluded.title,
    blurb = excluded.blurb,
    stage = excluded.stage,
    funding_goal = excluded.funding_goal,
    min_funding = excluded.min_funding`),
			p.ID, p.Slug, p.Title, p.Blurb, p.CreatorID, p.Stage, p.FundingGoal, p.MinFunding,
			unixMillis(p.CreatedAt),
		)
		if err != nil {
			return errors.Wrap(err, "failed to upsert project")
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM project_causes WHERE project_id = ?`), p.ID); err != nil {
			return errors.Wrap(err, "failed to clear project causes")
		}

		for _, c := range p.Causes {
			_, err := tx.ExecContext(ctx,
				s.rebind(`INSERT INTO project_causes (project_id, cause_slug) VALUES (?, ?)`),
				p.ID, c.Slug,
			)
			if err != nil {
				return errors.Wrapf(err, "failed to add cause %q", c.Slug)
			}
		}

		return nil
	})
	if err != nil {
		return p, err
	}

	return p, nil
}
