// Package postgres serves the profiles and projects tables from PostgreSQL.
// Ownership is enforced in every statement: a caller only ever reads or
// writes rows whose owner column equals its own user id.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

const (
	profileColumns = `id, email, name, academic_level, research_interests, created_at, updated_at`
	projectColumns = `id, title, description, status, tags, user_id, created_at, updated_at`
)

// Rows implements remote.Rows on a *sql.DB.
type Rows struct {
	db *sql.DB
}

var _ remote.Rows = (*Rows)(nil)

func New(db *sql.DB) *Rows {
	return &Rows{db: db}
}

// mapErr translates driver errors into the remote error set.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return remote.ErrNotFound
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", remote.ErrDuplicate, pgErr.Constraint)
		case "42501":
			return remote.ErrPolicyViolation
		}
		return errors.New(pgErr.Message)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*authdomain.UserProfile, error) {
	var (
		p         authdomain.UserProfile
		name      sql.NullString
		level     sql.NullString
		interests pq.StringArray
	)
	if err := row.Scan(&p.ID, &p.Email, &name, &level, &interests, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if name.Valid {
		p.Name = &name.String
	}
	if level.Valid {
		l := authdomain.AcademicLevel(level.String)
		p.AcademicLevel = &l
	}
	if interests != nil {
		p.ResearchInterests = []string(interests)
	}
	return &p, nil
}

func scanProject(row scanner) (projectdomain.ResearchProject, error) {
	var (
		p    projectdomain.ResearchProject
		desc sql.NullString
		tags pq.StringArray
	)
	if err := row.Scan(&p.ID, &p.Title, &desc, &p.Status, &tags, &p.UserID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	if tags != nil {
		p.Tags = []string(tags)
	}
	return p, nil
}

// setList builds the SET clause of a partial update.
type setList struct {
	cols []string
	args []any
}

func (s *setList) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setList) arg(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

func (s *setList) clause() string {
	return strings.Join(append(s.cols, "updated_at = now()"), ", ")
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (r *Rows) GetProfile(ctx context.Context, session *authdomain.Session, id string) (*authdomain.UserProfile, error) {
	owner, err := remote.Owner(session)
	if err != nil {
		return nil, err
	}
	if id != owner {
		return nil, remote.ErrNotFound
	}

	const q = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1;`
	p, err := scanProfile(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (r *Rows) InsertProfile(ctx context.Context, session *authdomain.Session, np authdomain.NewProfile) (*authdomain.UserProfile, error) {
	owner, err := remote.Owner(session)
	if err != nil {
		return nil, err
	}
	if np.ID != owner {
		return nil, remote.ErrPolicyViolation
	}
	var level any
	if np.AcademicLevel != nil {
		level = string(*np.AcademicLevel)
	}
	interests := np.ResearchInterests
	if interests == nil {
		interests = []string{}
	}

	const q = `
INSERT INTO profiles (id, email, name, academic_level, research_interests)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + profileColumns + `;
`
	p, err := scanProfile(r.db.QueryRowContext(ctx, q, np.ID, np.Email, nullable(np.Name), level, pq.Array(interests)))
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (r *Rows) UpdateProfile(ctx context.Context, session *authdomain.Session, id string, u authdomain.ProfileUpdate) (*authdomain.UserProfile, error) {
	owner, err := remote.Owner(session)
	if err != nil {
		return nil, err
	}
	if id != owner {
		return nil, remote.ErrNotFound
	}

	var set setList
	if u.Name != nil {
		set.add("name", *u.Name)
	}
	if u.AcademicLevel != nil {
		set.add("academic_level", string(*u.AcademicLevel))
	}
	if u.ResearchInterests != nil {
		set.add("research_interests", pq.Array(*u.ResearchInterests))
	}
	q := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = %s RETURNING %s;`,
		set.clause(), set.arg(id), profileColumns)

	p, err := scanProfile(r.db.QueryRowContext(ctx, q, set.args...))
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (r *Rows) ListProjects(ctx context.Context, session *authdomain.Session) ([]projectdomain.ResearchProject, error) {
	owner, err := remote.Owner(session)
	if err != nil {
		return nil, err
	}

	const q = `
SELECT ` + projectColumns + `
FROM projects
WHERE user_id = $1
ORDER BY updated_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]projectdomain.ResearchProject, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Rows) InsertProject(ctx context.Context, session *authdomain.Session, np projectdomain.NewProject) (*projectdomain.ResearchProject, error) {
	owner, err := remote.Owner(session)
	if err != nil {
		return nil, err
	}
	if np.UserID != owner {
		return nil, remote.ErrPolicyViolation
	}
	status := np.Status
	if status == "" {
		status = projectdomain.StatusDraft
	}
	tags := np.Tags
	if tags == nil {
		tags = []string{}
	}

	const q = `
INSERT INTO projects (id, title, description, status, tags, user_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + projectColumns + `;
`
	p, err := scanProject(r.db.QueryRowContext(ctx, q,
		uuid.New().String(), np.Title, nullable(np.Description), string(status), pq.Array(tags), owner))
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *Rows) UpdateProject(ctx context.Context, session *authdomain.Session, id string, u projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error) {
	owner, err := remote.Owner(session)
	if err != nil {
		return nil, err
	}

	var set setList
	if u.Title != nil {
		set.add("title", *u.Title)
	}
	if u.Description != nil {
		set.add("description", *u.Description)
	}
	if u.Status != nil {
		set.add("status", string(*u.Status))
	}
	if u.Tags != nil {
		set.add("tags", pq.Array(*u.Tags))
	}
	clause := set.clause()
	q := fmt.Sprintf(`UPDATE projects SET %s WHERE id = %s AND user_id = %s RETURNING %s;`,
		clause, set.arg(id), set.arg(owner), projectColumns)

	p, err := scanProject(r.db.QueryRowContext(ctx, q, set.args...))
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *Rows) DeleteProject(ctx context.Context, session *authdomain.Session, id string) error {
	owner, err := remote.Owner(session)
	if err != nil {
		return err
	}

	const q = `DELETE FROM projects WHERE id = $1 AND user_id = $2;`
	result, err := r.db.ExecContext(ctx, q, id, owner)
	if err != nil {
		return mapErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return remote.ErrNotFound
	}
	return nil
}
