// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain, and event types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateSessionRequest: name, max_uploads, max_votes
  - JoinSessionRequest: display_name
  - IssueIdentityRequest: display_name

# Response Types

Types for JSON responses:

  - CreateSessionResponse: session_code, share_url, session
  - IssueIdentityResponse: identity_id, token, display_name
  - ToggleResponse: phase, open
  - ResultsResponse: results, podium, runners_up, total_votes
  - ErrorResponse: error, code, message

# Domain Types

  - Session: code, owner, and the two phase gates
  - Participant: one identity inside one session
  - Image: an uploaded photo with its durable URL
  - Vote: one participant's vote for one image
  - UploadSlot: single-use upload admission
  - Snapshot: initial client state for a session

# Events

Every committed mutation is described by an Event:

	EventVoteCast      = "vote.cast"       // table "votes"
	EventVoteRetracted = "vote.retracted"  // table "votes"
	EventImageAdded    = "image.added"     // table "images"
	EventPhaseChanged  = "phase.changed"   // table "sessions"

# Ranking

RankImages sorts images by vote count descending. Ties go to the
earliest-created image, then the smaller image ID, so the order is stable
across calls. Results.Podium and Results.RunnersUp slice the top three and
the tail.
*/
package models
