// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates its schema.

# Connections

Open accepts the "postgres" (lib/pq) and "sqlite" (modernc.org/sqlite)
dialects:

	conn, err := db.Open(db.DialectSQLite, "file:doudou.db")

SQLite connections get foreign_keys and busy_timeout pragmas and are capped
at one open connection. ":memory:" gives each Open a private database.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn, db.DialectSQLite); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - sessions: name, owner, phase gates and per-participant limits
  - participants: one row per (session, identity)
  - images: uploaded images and their public URL
  - votes: one row per (session, participant, image)

# Relationships

	sessions 1──* participants
	sessions 1──* images
	participants 1──* images
	images 1──* votes
	participants 1──* votes

All foreign keys use ON DELETE CASCADE.

# Constraints

  - sessions.code UNIQUE
  - participants (session_id, identity) UNIQUE
  - votes (session_id, participant_id, image_id) UNIQUE
  - sessions.max_uploads and max_votes >= 1
*/
package db
