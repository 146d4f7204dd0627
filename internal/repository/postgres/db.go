// Package postgres implements the manifest and submission repositories on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"borderdesk/internal/config"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	return db, nil
}

// Pinger reports whether the database is reachable. It backs the readiness probe.
type Pinger struct {
	db *sqlx.DB
}

// NewPinger wraps db for readiness checks.
func NewPinger(db *sqlx.DB) *Pinger {
	return &Pinger{db: db}
}

// Ping checks the connection.
func (p *Pinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
