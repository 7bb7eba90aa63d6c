package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/TobiSchelling/ytanalytics/internal/session"
)

var _ session.Store = (*DB)(nil)

// Load returns the stored state for a session, or nil if there is none.
func (db *DB) Load(ctx context.Context, id string) (*session.State, error) {
	row := db.conn.QueryRowContext(ctx, `
SELECT id, api_key, searched_channels, channel_table, current_channel,
       video_channel_id, video_channel_title, video_table, flash,
       created_at, updated_at
FROM sessions WHERE id = ?`, id)

	var r sessionRow
	err := row.Scan(
		&r.ID, &r.APIKey, &r.SearchedChannels, &r.ChannelTable, &r.CurrentChannel,
		&r.VideoChannelID, &r.VideoChannelTitle, &r.VideoTable, &r.Flash,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toState()
}

// Save inserts or replaces the state of a session and stamps UpdatedAt.
func (db *DB) Save(ctx context.Context, st *session.State) error {
	now := time.Now().UTC()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	r, err := rowFromState(st)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, `
INSERT INTO sessions (id, api_key, searched_channels, channel_table, current_channel,
                      video_channel_id, video_channel_title, video_table, flash,
                      created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    api_key = excluded.api_key,
    searched_channels = excluded.searched_channels,
    channel_table = excluded.channel_table,
    current_channel = excluded.current_channel,
    video_channel_id = excluded.video_channel_id,
    video_channel_title = excluded.video_channel_title,
    video_table = excluded.video_table,
    flash = excluded.flash,
    updated_at = excluded.updated_at`,
		r.ID, r.APIKey, r.SearchedChannels, r.ChannelTable, r.CurrentChannel,
		r.VideoChannelID, r.VideoChannelTitle, r.VideoTable, r.Flash,
		r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// Delete removes a session.
func (db *DB) Delete(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

// PurgeIdle removes sessions not saved since olderThan and reports how many.
func (db *DB) PurgeIdle(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", olderThan.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountSessions returns the number of stored sessions.
func (db *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}
