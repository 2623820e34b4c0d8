// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store implements engine.Store.

  - Memory: maps behind one RWMutex, for development and tests
  - SQL: database/sql over PostgreSQL (lib/pq) or SQLite (modernc.org/sqlite)

# Atomic quotas

AddImage and AddVote check the quota and insert in one transaction. On
PostgreSQL the participant row is locked with SELECT ... FOR UPDATE first;
SQLite connections are opened with a single connection so writers are
already serialized. The UNIQUE (session_id, participant_id, image_id)
constraint on votes backstops duplicate votes.

# Errors

sql.ErrNoRows becomes the matching engine NotFound error. Unique violations
(PostgreSQL 23505, SQLITE_CONSTRAINT_UNIQUE) become ErrCodeTaken or
ErrAlreadyVoted. Everything else is logged and wrapped in
engine.ErrUpstreamFailure.
*/
package store
