// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrPhaseClosed     = errors.New("phase closed")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrAlreadyVoted    = errors.New("already voted")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUpstreamFailure = errors.New("upstream failure")
)

// Specific causes, each wrapping its kind
var (
	ErrSessionNotFound     = fmt.Errorf("session %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
	ErrImageNotFound       = fmt.Errorf("image %w", ErrNotFound)
	ErrVoteNotFound        = fmt.Errorf("vote %w", ErrNotFound)
	ErrSlotNotFound        = fmt.Errorf("upload slot %w", ErrNotFound)

	ErrUploadsClosed = fmt.Errorf("uploads: %w", ErrPhaseClosed)
	ErrVotingClosed  = fmt.Errorf("voting: %w", ErrPhaseClosed)

	ErrUploadQuota = fmt.Errorf("uploads: %w", ErrQuotaExceeded)
	ErrVoteQuota   = fmt.Errorf("votes: %w", ErrQuotaExceeded)

	ErrNotOwner = fmt.Errorf("not the session owner: %w", ErrForbidden)

	// ErrCodeTaken is returned by a Store when a session code collides.
	// CreateSession retries with a fresh code.
	ErrCodeTaken = errors.New("session code already taken")
)

// Upstream wraps a collaborator failure so it reports as ErrUpstreamFailure
// unless it already carries a kind.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != "" {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamFailure, err)
}

// Kind returns the machine-readable code of an engine error, or "" for
// errors that carry none.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrPhaseClosed):
		return "phase_closed"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUpstreamFailure):
		return "upstream_failure"
	}
	return ""
}

// Message returns the user-facing text for an engine error
func Message(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "No session with that code. Check the code and try again."
	case errors.Is(err, ErrParticipantNotFound):
		return "You have not joined this session yet."
	case errors.Is(err, ErrImageNotFound):
		return "That image is not part of this session."
	case errors.Is(err, ErrVoteNotFound):
		return "You have not voted for this image."
	case errors.Is(err, ErrSlotNotFound):
		return "This upload link expired or was already used. Request a new one."
	case errors.Is(err, ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrForbidden):
		return "Only the session owner can do that."
	case errors.Is(err, ErrUploadsClosed):
		return "Uploads are closed for this session."
	case errors.Is(err, ErrVotingClosed):
		return "Voting is closed for this session."
	case errors.Is(err, ErrPhaseClosed):
		return "This phase is closed."
	case errors.Is(err, ErrUploadQuota):
		return "You've reached your upload limit for this session."
	case errors.Is(err, ErrVoteQuota):
		return "You've used all your votes. Remove a vote to vote for another image."
	case errors.Is(err, ErrQuotaExceeded):
		return "Limit reached."
	case errors.Is(err, ErrAlreadyVoted):
		return "You already voted for this image."
	case errors.Is(err, ErrInvalidInput):
		// creation errors carry the offending field
		return err.Error()
	case errors.Is(err, ErrUpstreamFailure):
		return "A backing service is unavailable. Please try again shortly."
	}
	return "Something went wrong."
}
