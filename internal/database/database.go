package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps an in-memory SQLite database holding dashboard sessions. Nothing
// is written to disk; the contents vanish when the process exits.
type DB struct {
	conn *sql.DB
}

// Open creates a fresh in-memory database with the current schema.
func Open() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so the pool is pinned to a single long-lived connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	if err := createSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection and discards its contents.
func (db *DB) Close() error {
	return db.conn.Close()
}
