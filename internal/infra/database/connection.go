package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// NewDBConnection opens the pool and proves it with a ping.
func NewDBConnection(connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// InitSchema creates the tables on boot if they don't exist yet.
func InitSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			identity         TEXT PRIMARY KEY,
			state            TEXT NOT NULL,
			signal           JSONB NOT NULL,
			contacts         JSONB NOT NULL DEFAULT '[]',
			draft_subject    TEXT NOT NULL DEFAULT '',
			draft_body       TEXT NOT NULL DEFAULT '',
			draft_version    INT NOT NULL DEFAULT 0,
			draft_history    JSONB NOT NULL DEFAULT '[]',
			regenerate_count INT NOT NULL DEFAULT 0,
			card_channel     TEXT NOT NULL DEFAULT '',
			card_ts          TEXT NOT NULL DEFAULT '',
			enrollment_ref   TEXT NOT NULL DEFAULT '',
			last_error       TEXT NOT NULL DEFAULT '',
			last_attempt_at  TIMESTAMPTZ,
			version          INT NOT NULL DEFAULT 1,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_state ON leads(state)`,
		`CREATE TABLE IF NOT EXISTS company_cache (
			domain     TEXT PRIMARY KEY,
			contacts   JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
