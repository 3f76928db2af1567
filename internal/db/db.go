package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/farxc/accurate-sales-etl/internal/config"
)

const pingTimeout = 5 * time.Second

// New opens the Postgres pool used by the sink, ingestion history and the
// postgres credential backend. The connection is verified before returning.
func New(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	idleTime, err := time.ParseDuration(cfg.MaxIdleTime)
	if err != nil {
		return nil, fmt.Errorf("parse postgres max_idle_time %q: %w", cfg.MaxIdleTime, err)
	}

	db, err := sqlx.Open("postgres", cfg.Addr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(idleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}
