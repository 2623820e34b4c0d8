// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the DouDou API.

# Handler Types

Each handler is a struct over the engine and the identity provider:

  - IdentityHandler: anonymous identity tokens
  - SessionHandler: create, join, snapshot and phase toggles
  - UploadHandler: upload slots, image uploads and image listing
  - VoteHandler: cast, retract and list votes
  - ResultsHandler: leaderboard with podium and runners-up
  - RealtimeHandler: WebSocket change stream

Handlers are created via constructor functions:

	sessionHandler := handlers.NewSessionHandler(eng, identity, cfg)

# Identity

Every session route resolves the caller with an auth.IdentityProvider. In
token mode clients first call POST /identity and send the token back in the
X-Identity-Token header (or the doudou_identity cookie). Requests without a
valid identity get 401.

# Session Lifecycle

	POST /sessions                       → Create (returns session_code, share_url)
	POST /sessions/{code}/join           → Join
	GET  /sessions/{code}                → GetSnapshot
	POST /sessions/{code}/uploads/toggle → ToggleUploads (owner only)
	POST /sessions/{code}/voting/toggle  → ToggleVoting (owner only)

# Uploads

	POST /sessions/{code}/uploads/slot → RequestSlot (returns upload_url)
	PUT  /uploads/{token}              → Upload (raw body or multipart "file")

The slot token is single use. Quota is only consumed once the Blob Store
accepted the image.

# Votes and Results

	POST   /sessions/{code}/images/{imageID}/vote → Cast
	DELETE /sessions/{code}/images/{imageID}/vote → Retract
	GET    /sessions/{code}/votes/me              → MyVotes
	GET    /sessions/{code}/results               → GetResults

# Errors

Engine errors map to statuses by kind: not_found 404, forbidden 403,
phase_closed, quota_exceeded and already_voted 409, invalid_input 400,
upstream_failure 502. Oversized images get 413. The JSON body carries the
kind in "code" and a user-facing "message".
*/
package handlers
