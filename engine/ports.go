// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"io"

	"github.com/danielhkuo/doudou/models"
)

// Store persists sessions, participants, images and votes.
//
// AddImage and AddVote must check their quota and insert in one atomic step.
// AddVote reports a duplicate with ErrAlreadyVoted before checking quota.
type Store interface {
	CreateSession(ctx context.Context, session models.Session, owner models.Participant) error
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (models.Session, error)
	ListSessionsByOwner(ctx context.Context, ownerID string) ([]models.Session, error)
	TogglePhase(ctx context.Context, sessionID, phase string) (models.Session, error)

	// AddParticipant returns the existing record when the identity already
	// joined the session.
	AddParticipant(ctx context.Context, p models.Participant) (models.Participant, error)
	GetParticipant(ctx context.Context, sessionID, participantID string) (models.Participant, error)
	GetParticipantByIdentity(ctx context.Context, sessionID, identity string) (models.Participant, error)

	CountImages(ctx context.Context, sessionID, participantID string) (int, error)
	AddImage(ctx context.Context, img models.Image, maxUploads int) error
	GetImage(ctx context.Context, sessionID, imageID string) (models.Image, error)
	ListImages(ctx context.Context, sessionID string) ([]models.Image, error)

	AddVote(ctx context.Context, vote models.Vote, maxVotes int) error
	GetVote(ctx context.Context, sessionID, participantID, imageID string) (models.Vote, error)
	DeleteVote(ctx context.Context, sessionID, participantID, imageID string) (models.Vote, error)
	ListVotes(ctx context.Context, sessionID, participantID string) ([]models.Vote, error)
	ListSessionVotes(ctx context.Context, sessionID string) ([]models.Vote, error)
	CountVotes(ctx context.Context, sessionID string) (map[string]int, error)
}

// Publisher receives one event per committed mutation
type Publisher interface {
	Publish(ctx context.Context, event models.Event)
}

// BlobObject tags the bytes handed to a BlobStore
type BlobObject struct {
	SessionID     string
	ParticipantID string
	Filename      string
	ContentType   string
}

// StoredBlob is what a BlobStore returns on success
type StoredBlob struct {
	Key  string
	URL  string
	Size int64
}

// BlobStore persists uploaded image bytes and returns a durable URL
type BlobStore interface {
	Put(ctx context.Context, obj BlobObject, r io.Reader) (StoredBlob, error)
	Delete(ctx context.Context, key string) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.Event) {}
