// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported SQL dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Open connects to the database for dialect and verifies the connection.
// SQLite connections are limited to one so writers never contend for the
// database lock, and foreign keys are switched on.
func Open(dialect, dsn string) (*sql.DB, error) {
	switch dialect {
	case DialectPostgres:
	case DialectSQLite:
		dsn = withSQLitePragmas(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dialect)
	}

	conn, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect string) error {
	ddl, err := Schema(dialect)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Schema renders the DDL for dialect
func Schema(dialect string) (string, error) {
	var r *strings.Replacer
	switch dialect {
	case DialectPostgres:
		r = strings.NewReplacer("{{timestamp}}", "TIMESTAMPTZ", "{{now}}", "NOW()")
	case DialectSQLite:
		r = strings.NewReplacer("{{timestamp}}", "TIMESTAMP", "{{now}}", "CURRENT_TIMESTAMP")
	default:
		return "", fmt.Errorf("unsupported database type %q", dialect)
	}
	return r.Replace(schema), nil
}

const schema = `
-- Sessions
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    upload_phase_open BOOLEAN NOT NULL DEFAULT TRUE,
    voting_phase_open BOOLEAN NOT NULL DEFAULT TRUE,
    max_uploads INTEGER NOT NULL CHECK (max_uploads >= 1),
    max_votes INTEGER NOT NULL CHECK (max_votes >= 1),
    created_at {{timestamp}} NOT NULL DEFAULT {{now}}
);

CREATE INDEX IF NOT EXISTS idx_sessions_owner_id ON sessions(owner_id);

-- Participants
CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    identity TEXT NOT NULL,
    display_name TEXT NOT NULL,
    is_owner BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at {{timestamp}} NOT NULL DEFAULT {{now}},
    UNIQUE (session_id, identity)
);

-- Images
CREATE TABLE IF NOT EXISTS images (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    participant_id TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    created_at {{timestamp}} NOT NULL DEFAULT {{now}}
);

CREATE INDEX IF NOT EXISTS idx_images_session_id ON images(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_images_uploader ON images(session_id, participant_id);

-- Votes
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    participant_id TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
    image_id TEXT NOT NULL REFERENCES images(id) ON DELETE CASCADE,
    created_at {{timestamp}} NOT NULL DEFAULT {{now}},
    UNIQUE (session_id, participant_id, image_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_image_id ON votes(session_id, image_id);
CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes(session_id, participant_id);
`
