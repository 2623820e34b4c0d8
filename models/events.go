// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Event types
const (
	EventVoteCast      = "vote.cast"
	EventVoteRetracted = "vote.retracted"
	EventImageAdded    = "image.added"
	EventPhaseChanged  = "phase.changed"
)

// Change tables a subscriber can filter on
const (
	TableSessions = "sessions"
	TableImages   = "images"
	TableVotes    = "votes"
)

// Phase names carried by PhaseChanged events
const (
	PhaseUploads = "uploads"
	PhaseVoting  = "voting"
)

// Event is one committed mutation of a session
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Table      string    `json:"table"`
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`

	Session *Session     `json:"session,omitempty"`
	Image   *Image       `json:"image,omitempty"`
	Vote    *Vote        `json:"vote,omitempty"`
	Phase   *PhaseChange `json:"phase,omitempty"`
}

type PhaseChange struct {
	Phase string `json:"phase"`
	Open  bool   `json:"open"`
}

// TableFor returns the change table an event type belongs to
func TableFor(eventType string) string {
	switch eventType {
	case EventVoteCast, EventVoteRetracted:
		return TableVotes
	case EventImageAdded:
		return TableImages
	default:
		return TableSessions
	}
}

func IsValidTable(table string) bool {
	switch table {
	case TableSessions, TableImages, TableVotes:
		return true
	}
	return false
}
