package database

import (
	"context"
	"fmt"
)

// EnsureSchema creates the session table if it does not exist. The gateway
// owns only session state; every content table lives in the upstream API's
// database.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			user_record   JSONB,
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions (updated_at);
	`)
	if err != nil {
		return fmt.Errorf("ensure sessions schema: %w", err)
	}
	return nil
}
