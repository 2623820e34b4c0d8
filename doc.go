// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the DouDou API server.

DouDou runs photo sessions: an owner opens a session and shares its code,
participants upload a limited number of images, then vote for their
favourites with a limited number of votes. Results and every change are
pushed to clients over a WebSocket.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	IDENTITY_SALT=... DATABASE_URL=file:doudou.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -identity-salt ...

A .env file in the working directory is loaded if present.

# Configuration

Required settings:

  - IDENTITY_SALT (-identity-salt): Secret for identity token HMAC
  - DATABASE_URL (-d): Connection string, unless DATABASE_TYPE is memory

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres or memory (default: sqlite)
  - BASE_URL (-base-url): Public URL used in share links and image URLs
  - IDENTITY_MODE (-identity-mode): token or header (default: token)
  - BLOB_DIR (-blob-dir): Where uploaded images are written
  - MAX_UPLOAD_SIZE, UPLOAD_SLOT_TTL, RESULTS_CACHE_TTL, RATE_LIMIT, RATE_BURST

See package cliparse for the full list.

# Architecture

  - engine: Session phases, upload admission, vote ledger, results
  - store: Session store over SQL (Postgres, SQLite) or memory
  - blob: Image storage on an afero filesystem
  - realtime: Event broker and WebSocket delivery
  - projection: Client-side reducer over snapshot and events
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, rate limiting, JSON helpers
  - models: Request, response, domain and event types
  - auth: Identity tokens, session codes, display names
  - db: Connections and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
