// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the DouDou API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{
		Engine:   eng,
		Broker:   broker,
		Blobs:    blobs,
		Identity: identity,
		Tokens:   tokens,
		Limiter:  limiter,
		Config:   cfg,
	})

# Endpoints

Health:

	GET /health

Identity (token mode only):

	POST /identity - Issue an anonymous identity token

Sessions:

	POST /sessions                       - Create session
	GET  /me/sessions                    - Sessions the caller owns
	POST /sessions/{code}/join           - Join by code
	GET  /sessions/{code}                - Snapshot for the caller
	POST /sessions/{code}/uploads/toggle - Open or close uploads (owner)
	POST /sessions/{code}/voting/toggle  - Open or close voting (owner)

Uploads:

	POST /sessions/{code}/uploads/slot - Request an upload slot
	PUT  /uploads/{token}              - Upload the image
	GET  /sessions/{code}/images       - List images
	GET  /blobs/{key...}               - Download a stored image

Votes and results:

	POST   /sessions/{code}/images/{imageID}/vote - Cast vote
	DELETE /sessions/{code}/images/{imageID}/vote - Retract vote
	GET    /sessions/{code}/votes/me              - Caller's votes
	GET    /sessions/{code}/results               - Leaderboard and podium

Realtime:

	GET /sessions/{code}/events?tables=images,votes - WebSocket change stream

# Rate Limiting

Every write goes through Deps.Limiter, a per-client token bucket. A nil
limiter allows everything.
*/
package router
