package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migration is one idempotent schema step.
type Migration struct {
	Name string
	SQL  string
}

// Migrations creates the profiles and projects tables. Every statement can be
// re-run against an already migrated database.
var Migrations = []Migration{
	{
		Name: "create_profiles",
		SQL: `
CREATE TABLE IF NOT EXISTS profiles (
	id                 TEXT PRIMARY KEY,
	email              TEXT NOT NULL,
	name               TEXT,
	academic_level     TEXT CHECK (academic_level IN ('undergraduate', 'graduate', 'phd', 'professor', 'researcher')),
	research_interests TEXT[] NOT NULL DEFAULT '{}',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_projects",
		SQL: `
CREATE TABLE IF NOT EXISTS projects (
	id          UUID PRIMARY KEY,
	title       TEXT NOT NULL CHECK (char_length(title) BETWEEN 1 AND 100),
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'completed', 'archived')),
	tags        TEXT[] NOT NULL DEFAULT '{}',
	user_id     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "index_projects_owner_updated",
		SQL:  `CREATE INDEX IF NOT EXISTS projects_user_updated_idx ON projects (user_id, updated_at DESC);`,
	},
}

// Migrate applies every migration in one transaction.
func (d *DB) Migrate(ctx context.Context) error {
	if d == nil || d.Pool == nil {
		return errors.New("database not configured")
	}

	tx, err := d.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range Migrations {
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				return fmt.Errorf("migration %s: %s (SQLSTATE %s)", m.Name, pgErr.Message, pgErr.Code)
			}
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
