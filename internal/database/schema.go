package database

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    api_key TEXT NOT NULL DEFAULT '',
    searched_channels TEXT NOT NULL DEFAULT 'null',
    channel_table TEXT NOT NULL DEFAULT 'null',
    current_channel TEXT NOT NULL DEFAULT 'null',
    video_channel_id TEXT NOT NULL DEFAULT '',
    video_channel_title TEXT NOT NULL DEFAULT '',
    video_table TEXT NOT NULL DEFAULT 'null',
    flash TEXT NOT NULL DEFAULT 'null',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

// createSchema creates the sessions table. The database lives in memory
// and starts empty on every Open, so there is nothing to migrate.
func createSchema(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
