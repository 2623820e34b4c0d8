// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/models"
)

type participantKey struct {
	sessionID string
	identity  string
}

type voteKey struct {
	sessionID     string
	participantID string
	imageID       string
}

// Memory keeps everything in maps behind one RWMutex. Each write method
// checks and mutates under the write lock, which makes quota checks atomic.
type Memory struct {
	mu sync.RWMutex

	sessions     map[string]models.Session
	codes        map[string]string // code -> session id
	participants map[string]models.Participant
	identities   map[participantKey]string // -> participant id
	images       map[string]models.Image
	imageOrder   map[string][]string // session id -> image ids in insert order
	votes        map[voteKey]models.Vote
}

func NewMemory() *Memory {
	return &Memory{
		sessions:     make(map[string]models.Session),
		codes:        make(map[string]string),
		participants: make(map[string]models.Participant),
		identities:   make(map[participantKey]string),
		images:       make(map[string]models.Image),
		imageOrder:   make(map[string][]string),
		votes:        make(map[voteKey]models.Vote),
	}
}

func (m *Memory) CreateSession(ctx context.Context, session models.Session, owner models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.codes[session.Code]; taken {
		return engine.ErrCodeTaken
	}
	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	m.sessions[session.ID] = session
	m.codes[session.Code] = session.ID
	m.participants[owner.ID] = owner
	m.identities[participantKey{owner.SessionID, owner.Identity}] = owner.ID
	return nil
}

func (m *Memory) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return models.Session{}, engine.ErrSessionNotFound
	}
	return s, nil
}

func (m *Memory) GetSessionByCode(ctx context.Context, code string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.codes[code]
	if !ok {
		return models.Session{}, engine.ErrSessionNotFound
	}
	return m.sessions[id], nil
}

func (m *Memory) ListSessionsByOwner(ctx context.Context, ownerID string) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Session, 0)
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) TogglePhase(ctx context.Context, sessionID, phase string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return models.Session{}, engine.ErrSessionNotFound
	}
	switch phase {
	case models.PhaseUploads:
		s.UploadPhaseOpen = !s.UploadPhaseOpen
	case models.PhaseVoting:
		s.VotingPhaseOpen = !s.VotingPhaseOpen
	default:
		return models.Session{}, fmt.Errorf("%w: unknown phase %q", engine.ErrInvalidInput, phase)
	}
	m.sessions[sessionID] = s
	return s, nil
}

func (m *Memory) AddParticipant(ctx context.Context, p models.Participant) (models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[p.SessionID]; !ok {
		return models.Participant{}, engine.ErrSessionNotFound
	}
	key := participantKey{p.SessionID, p.Identity}
	if id, ok := m.identities[key]; ok {
		return m.participants[id], nil
	}
	m.participants[p.ID] = p
	m.identities[key] = p.ID
	return p, nil
}

func (m *Memory) GetParticipant(ctx context.Context, sessionID, participantID string) (models.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.participants[participantID]
	if !ok || p.SessionID != sessionID {
		return models.Participant{}, engine.ErrParticipantNotFound
	}
	return p, nil
}

func (m *Memory) GetParticipantByIdentity(ctx context.Context, sessionID, identity string) (models.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.identities[participantKey{sessionID, identity}]
	if !ok {
		return models.Participant{}, engine.ErrParticipantNotFound
	}
	return m.participants[id], nil
}

func (m *Memory) CountImages(ctx context.Context, sessionID, participantID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countImagesLocked(sessionID, participantID), nil
}

func (m *Memory) countImagesLocked(sessionID, participantID string) int {
	n := 0
	for _, id := range m.imageOrder[sessionID] {
		if m.images[id].ParticipantID == participantID {
			n++
		}
	}
	return n
}

func (m *Memory) AddImage(ctx context.Context, img models.Image, maxUploads int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[img.SessionID]; !ok {
		return engine.ErrSessionNotFound
	}
	if m.countImagesLocked(img.SessionID, img.ParticipantID) >= maxUploads {
		return engine.ErrUploadQuota
	}
	m.images[img.ID] = img
	m.imageOrder[img.SessionID] = append(m.imageOrder[img.SessionID], img.ID)
	return nil
}

func (m *Memory) GetImage(ctx context.Context, sessionID, imageID string) (models.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	img, ok := m.images[imageID]
	if !ok || img.SessionID != sessionID {
		return models.Image{}, engine.ErrImageNotFound
	}
	return img, nil
}

func (m *Memory) ListImages(ctx context.Context, sessionID string) ([]models.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.imageOrder[sessionID]
	out := make([]models.Image, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.images[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) AddVote(ctx context.Context, vote models.Vote, maxVotes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := voteKey{vote.SessionID, vote.ParticipantID, vote.ImageID}
	if _, exists := m.votes[key]; exists {
		return engine.ErrAlreadyVoted
	}
	if m.countVotesLocked(vote.SessionID, vote.ParticipantID) >= maxVotes {
		return engine.ErrVoteQuota
	}
	m.votes[key] = vote
	return nil
}

func (m *Memory) countVotesLocked(sessionID, participantID string) int {
	n := 0
	for k := range m.votes {
		if k.sessionID == sessionID && k.participantID == participantID {
			n++
		}
	}
	return n
}

func (m *Memory) GetVote(ctx context.Context, sessionID, participantID, imageID string) (models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.votes[voteKey{sessionID, participantID, imageID}]
	if !ok {
		return models.Vote{}, engine.ErrVoteNotFound
	}
	return v, nil
}

func (m *Memory) DeleteVote(ctx context.Context, sessionID, participantID, imageID string) (models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := voteKey{sessionID, participantID, imageID}
	v, ok := m.votes[key]
	if !ok {
		return models.Vote{}, engine.ErrVoteNotFound
	}
	delete(m.votes, key)
	return v, nil
}

func (m *Memory) ListVotes(ctx context.Context, sessionID, participantID string) ([]models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Vote, 0)
	for k, v := range m.votes {
		if k.sessionID == sessionID && k.participantID == participantID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListSessionVotes(ctx context.Context, sessionID string) ([]models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Vote, 0)
	for k, v := range m.votes {
		if k.sessionID == sessionID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) CountVotes(ctx context.Context, sessionID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for k := range m.votes {
		if k.sessionID == sessionID {
			counts[k.imageID]++
		}
	}
	return counts, nil
}

var _ engine.Store = (*Memory)(nil)
