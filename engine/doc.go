// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine implements the session voting lifecycle.

The Engine owns the rules. Persistence, blob storage and event delivery are
collaborators behind the Store, BlobStore and Publisher interfaces:

	eng := engine.New(engine.Options{
		Store:     store.NewSQL(conn, db.DialectPostgres),
		Publisher: broker,
		Blobs:     blobs,
	})

# Phases

A session has two independent gates, uploads and voting. Both start open.
ToggleUploads and ToggleVoting flip them, owner only, in any order and any
number of times. Toggling never touches images or votes.

# Uploads

RequestUploadSlot admits an upload when the upload gate is open and the
participant is below MaxUploadsPerParticipant. CompleteUpload hands the
bytes to the BlobStore and records the Image only after the store succeeds;
the quota is checked again atomically at insert time.

# Votes

CastVote checks, in order: voting open, image in session, no existing vote,
vote quota. The duplicate check, quota check and insert run under a
per-participant lock and inside one Store transaction. RetractVote deletes
the caller's own vote while voting is open. There is no toggle primitive.

# Results

ComputeResults ranks images by vote count, ties to the earliest-created
image. Leaderboards are cached per session and invalidated by every vote
and image write.

# Errors

Every error wraps one kind: ErrNotFound, ErrForbidden, ErrPhaseClosed,
ErrQuotaExceeded, ErrAlreadyVoted, ErrInvalidInput or ErrUpstreamFailure.
Use errors.Is to test, Kind for a wire code and Message for user text.
*/
package engine
