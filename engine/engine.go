// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/models"
)

// Limits accepted by CreateSession
const (
	MaxSessionNameLength = 100
	MaxLimit             = 1000
)

const codeAttempts = 5

// Options configures an Engine. Store is required; everything else has a
// working default.
type Options struct {
	Store     Store
	Publisher Publisher
	Blobs     BlobStore
	Logger    *slog.Logger

	// UploadURL builds the upload target for a slot token
	UploadURL      func(token string) string
	MaxUploadBytes int64
	SlotTTL        time.Duration
	ResultsTTL     time.Duration

	Now     func() time.Time
	NewID   func() string
	NewCode func() (string, error)
}

// Engine enforces the session voting lifecycle over a Store
type Engine struct {
	store     Store
	publisher Publisher
	blobs     BlobStore
	logger    *slog.Logger

	uploadURL      func(token string) string
	maxUploadBytes int64
	slotTTL        time.Duration
	resultsTTL     time.Duration

	now     func() time.Time
	newID   func() string
	newCode func() (string, error)

	participantLocks keyedMutex
	sessionLocks     keyedMutex
	slots            *ttlCache[models.UploadSlot]
	results          *resultsCache
}

func New(opts Options) *Engine {
	e := &Engine{
		store:          opts.Store,
		publisher:      opts.Publisher,
		blobs:          opts.Blobs,
		logger:         ResolveLogger(opts.Logger),
		uploadURL:      opts.UploadURL,
		maxUploadBytes: opts.MaxUploadBytes,
		slotTTL:        opts.SlotTTL,
		resultsTTL:     opts.ResultsTTL,
		now:            opts.Now,
		newID:          opts.NewID,
		newCode:        opts.NewCode,
	}
	if e.publisher == nil {
		e.publisher = noopPublisher{}
	}
	if e.uploadURL == nil {
		e.uploadURL = func(token string) string { return "/uploads/" + token }
	}
	if e.slotTTL <= 0 {
		e.slotTTL = 10 * time.Minute
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.newCode == nil {
		e.newCode = func() (string, error) { return auth.GenerateSessionCode(models.SessionCodeLength) }
	}
	e.slots = newTTLCache[models.UploadSlot](e.now)
	e.results = newResultsCache(e.now)
	return e
}

// ResolveLogger returns l, or slog.Default when l is nil
func ResolveLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// Run sweeps expired upload slots and cached results until ctx is done
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := e.slots.Sweep(); n > 0 {
				e.logger.Debug("expired upload slots swept", "event", "doudou_slots_swept", "module", "engine", "count", n)
			}
			e.results.sweep()
		}
	}
}

// Now is the engine clock in UTC
func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// CreateSessionInput carries the creator's choices
type CreateSessionInput struct {
	Name        string
	MaxUploads  int
	MaxVotes    int
	CreatorID   string
	CreatorName string
}

func (in CreateSessionInput) validate() error {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case utf8.RuneCountInString(name) > MaxSessionNameLength:
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, MaxSessionNameLength)
	case strings.TrimSpace(in.CreatorID) == "":
		return fmt.Errorf("%w: creator identity is required", ErrInvalidInput)
	case in.MaxUploads < 1 || in.MaxUploads > MaxLimit:
		return fmt.Errorf("%w: max uploads must be between 1 and %d", ErrInvalidInput, MaxLimit)
	case in.MaxVotes < 1 || in.MaxVotes > MaxLimit:
		return fmt.Errorf("%w: max votes must be between 1 and %d", ErrInvalidInput, MaxLimit)
	}
	return nil
}

// CreateSession opens a new session owned by the creator. Both phases start
// open and the creator joins as the owner participant.
func (e *Engine) CreateSession(ctx context.Context, in CreateSessionInput) (models.Session, error) {
	if err := in.validate(); err != nil {
		e.logger.Warn("session create validation failed",
			"event", "doudou_session_create_invalid",
			"module", "engine",
			"error", err.Error(),
		)
		return models.Session{}, err
	}

	now := e.now().UTC()
	session := models.Session{
		ID:                       e.newID(),
		Name:                     strings.TrimSpace(in.Name),
		OwnerID:                  in.CreatorID,
		UploadPhaseOpen:          true,
		VotingPhaseOpen:          true,
		MaxUploadsPerParticipant: in.MaxUploads,
		MaxVotesPerParticipant:   in.MaxVotes,
		CreatedAt:                now,
	}
	owner := models.Participant{
		ID:          e.newID(),
		SessionID:   session.ID,
		Identity:    in.CreatorID,
		DisplayName: displayNameOrGenerated(in.CreatorName),
		IsOwner:     true,
		JoinedAt:    now,
	}

	for attempt := 1; ; attempt++ {
		code, err := e.newCode()
		if err != nil {
			return models.Session{}, Upstream("generate session code", err)
		}
		session.Code = code

		err = e.store.CreateSession(ctx, session, owner)
		if err == nil {
			break
		}
		if errors.Is(err, ErrCodeTaken) && attempt < codeAttempts {
			e.logger.Warn("session code collision, retrying",
				"event", "doudou_session_code_collision",
				"module", "engine",
				"attempt", attempt,
			)
			continue
		}
		e.logger.Error("session create failed",
			"event", "doudou_session_create_failed",
			"module", "engine",
			"error", err.Error(),
		)
		return models.Session{}, Upstream("create session", err)
	}

	e.logger.Info("session created",
		"event", "doudou_session_created",
		"module", "engine",
		"session_id", session.ID,
		"session_code", session.Code,
		"max_uploads", session.MaxUploadsPerParticipant,
		"max_votes", session.MaxVotesPerParticipant,
	)
	return session, nil
}

// JoinSession resolves identity to its participant record in the session
// with the given code, creating it on first join
func (e *Engine) JoinSession(ctx context.Context, code, identity, displayName string) (models.Participant, error) {
	if strings.TrimSpace(identity) == "" {
		return models.Participant{}, fmt.Errorf("%w: identity is required", ErrInvalidInput)
	}
	session, err := e.GetSessionByCode(ctx, code)
	if err != nil {
		return models.Participant{}, err
	}

	existing, err := e.store.GetParticipantByIdentity(ctx, session.ID, identity)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Participant{}, Upstream("get participant", err)
	}

	p, err := e.store.AddParticipant(ctx, models.Participant{
		ID:          e.newID(),
		SessionID:   session.ID,
		Identity:    identity,
		DisplayName: displayNameOrGenerated(displayName),
		IsOwner:     identity == session.OwnerID,
		JoinedAt:    e.now().UTC(),
	})
	if err != nil {
		return models.Participant{}, Upstream("add participant", err)
	}

	e.logger.Info("participant joined",
		"event", "doudou_participant_joined",
		"module", "engine",
		"session_id", session.ID,
		"participant_id", p.ID,
	)
	return p, nil
}

// ResolveParticipant finds the participant an identity joined the session as
func (e *Engine) ResolveParticipant(ctx context.Context, sessionID, identity string) (models.Participant, error) {
	p, err := e.store.GetParticipantByIdentity(ctx, sessionID, identity)
	if err != nil {
		return models.Participant{}, Upstream("get participant", err)
	}
	return p, nil
}

func (e *Engine) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.Session{}, Upstream("get session", err)
	}
	return s, nil
}

func (e *Engine) GetSessionByCode(ctx context.Context, code string) (models.Session, error) {
	code = auth.NormalizeSessionCode(code)
	if !auth.IsSessionCode(code, models.SessionCodeLength) {
		return models.Session{}, ErrSessionNotFound
	}
	s, err := e.store.GetSessionByCode(ctx, code)
	if err != nil {
		return models.Session{}, Upstream("get session by code", err)
	}
	return s, nil
}

// ListOwnedSessions returns sessions created by ownerID, newest first
func (e *Engine) ListOwnedSessions(ctx context.Context, ownerID string) ([]models.Session, error) {
	sessions, err := e.store.ListSessionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, Upstream("list sessions", err)
	}
	return sessions, nil
}

// Snapshot reads everything a client needs to start its local view. Results
// are counted from the same vote rows listed in VoteIDs, so a client can tell
// which later events the snapshot already reflects.
func (e *Engine) Snapshot(ctx context.Context, sessionID, participantID string) (models.Snapshot, error) {
	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return models.Snapshot{}, err
	}
	participant, err := e.participant(ctx, sessionID, participantID)
	if err != nil {
		return models.Snapshot{}, err
	}
	images, err := e.store.ListImages(ctx, sessionID)
	if err != nil {
		return models.Snapshot{}, Upstream("list images", err)
	}
	all, err := e.store.ListSessionVotes(ctx, sessionID)
	if err != nil {
		return models.Snapshot{}, Upstream("list votes", err)
	}

	mine := make([]models.Vote, 0)
	counts := make(map[string]int)
	voteIDs := make(map[string][]string)
	for _, v := range all {
		counts[v.ImageID]++
		voteIDs[v.ImageID] = append(voteIDs[v.ImageID], v.ID)
		if v.ParticipantID == participantID {
			mine = append(mine, v)
		}
	}

	return models.Snapshot{
		Session:     session,
		Participant: participant,
		Images:      images,
		MyVotes:     mine,
		Results:     models.RankImages(images, counts),
		VoteIDs:     voteIDs,
	}, nil
}

func (e *Engine) participant(ctx context.Context, sessionID, participantID string) (models.Participant, error) {
	p, err := e.store.GetParticipant(ctx, sessionID, participantID)
	if err != nil {
		return models.Participant{}, Upstream("get participant", err)
	}
	return p, nil
}

func (e *Engine) publish(ctx context.Context, sessionID, eventType string, fill func(*models.Event)) {
	ev := models.Event{
		ID:         e.newID(),
		Type:       eventType,
		Table:      models.TableFor(eventType),
		SessionID:  sessionID,
		OccurredAt: e.now().UTC(),
	}
	fill(&ev)
	e.publisher.Publish(ctx, ev)
}

func displayNameOrGenerated(name string) string {
	name = auth.ClampDisplayName(name)
	if name == "" {
		return auth.GenerateDisplayName()
	}
	return name
}
