// Package db owns the pgx connection pool of the PostgreSQL remote. Row access
// goes through database/sql in internal/remote/postgres; this pool runs schema
// migrations and answers readiness checks.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

type Options struct {
	DSN         string
	MaxConns    int
	MinConns    int
	PingTimeout time.Duration
}

// Config parses the DSN and applies pool sizing. It does not connect.
func Config(opt Options) (*pgxpool.Config, error) {
	if opt.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	cfg, err := pgxpool.ParseConfig(opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if opt.MaxConns > 0 {
		cfg.MaxConns = int32(opt.MaxConns)
	}
	if opt.MinConns > 0 && int32(opt.MinConns) <= cfg.MaxConns {
		cfg.MinConns = int32(opt.MinConns)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	return cfg, nil
}

func Open(ctx context.Context, opt Options) (*DB, error) {
	cfg, err := Config(opt)
	if err != nil {
		return nil, err
	}
	if opt.PingTimeout == 0 {
		opt.PingTimeout = 3 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	// Fail fast
	pingCtx, cancel := context.WithTimeout(ctx, opt.PingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Ping reports whether the database answers within the context deadline.
func (d *DB) Ping(ctx context.Context) error {
	if d == nil || d.Pool == nil {
		return errors.New("database not configured")
	}
	return d.Pool.Ping(ctx)
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}
