// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"

	"github.com/danielhkuo/doudou/models"
)

// ToggleUploads flips the upload gate and returns its new value. Only the
// session owner may call it.
func (e *Engine) ToggleUploads(ctx context.Context, sessionID, actorID string) (bool, error) {
	s, err := e.togglePhase(ctx, sessionID, actorID, models.PhaseUploads)
	if err != nil {
		return false, err
	}
	return s.UploadPhaseOpen, nil
}

// ToggleVoting flips the voting gate and returns its new value. Only the
// session owner may call it.
func (e *Engine) ToggleVoting(ctx context.Context, sessionID, actorID string) (bool, error) {
	s, err := e.togglePhase(ctx, sessionID, actorID, models.PhaseVoting)
	if err != nil {
		return false, err
	}
	return s.VotingPhaseOpen, nil
}

func (e *Engine) togglePhase(ctx context.Context, sessionID, actorID, phase string) (models.Session, error) {
	unlock := e.sessionLocks.Lock(sessionID)
	defer unlock()

	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	if actorID == "" || actorID != session.OwnerID {
		e.logger.Warn("phase toggle rejected",
			"event", "doudou_phase_toggle_forbidden",
			"module", "engine",
			"session_id", sessionID,
			"phase", phase,
		)
		return models.Session{}, ErrNotOwner
	}

	updated, err := e.store.TogglePhase(ctx, sessionID, phase)
	if err != nil {
		return models.Session{}, Upstream("toggle phase", err)
	}

	open := updated.UploadPhaseOpen
	if phase == models.PhaseVoting {
		open = updated.VotingPhaseOpen
	}
	e.publish(ctx, sessionID, models.EventPhaseChanged, func(ev *models.Event) {
		ev.Session = &updated
		ev.Phase = &models.PhaseChange{Phase: phase, Open: open}
	})

	e.logger.Info("phase toggled",
		"event", "doudou_phase_toggled",
		"module", "engine",
		"session_id", sessionID,
		"phase", phase,
		"open", open,
	)
	return updated, nil
}
