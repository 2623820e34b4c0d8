// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"

	"github.com/danielhkuo/doudou/models"
)

// CastVote records one vote. Checks run in order and the first failure
// wins: voting closed, image not in session, duplicate vote, vote quota.
//
// The participant's lock is held from the first read until the event is
// published, so concurrent casts by one participant cannot both pass the
// quota check and their events reach subscribers in commit order.
func (e *Engine) CastVote(ctx context.Context, sessionID, participantID, imageID string) (models.Vote, error) {
	unlock := e.participantLocks.Lock(participantKey(sessionID, participantID))
	defer unlock()

	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return models.Vote{}, err
	}
	if !session.VotingPhaseOpen {
		return models.Vote{}, ErrVotingClosed
	}
	if _, err := e.participant(ctx, sessionID, participantID); err != nil {
		return models.Vote{}, err
	}
	if _, err := e.store.GetImage(ctx, sessionID, imageID); err != nil {
		return models.Vote{}, Upstream("get image", err)
	}

	vote := models.Vote{
		ID:            e.newID(),
		SessionID:     sessionID,
		ParticipantID: participantID,
		ImageID:       imageID,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.store.AddVote(ctx, vote, session.MaxVotesPerParticipant); err != nil {
		e.logger.Info("vote rejected",
			"event", "doudou_vote_rejected",
			"module", "engine",
			"session_id", sessionID,
			"participant_id", participantID,
			"image_id", imageID,
			"reason", Kind(err),
		)
		return models.Vote{}, Upstream("add vote", err)
	}

	e.results.invalidate(sessionID)
	e.publish(ctx, sessionID, models.EventVoteCast, func(ev *models.Event) {
		ev.Vote = &vote
	})

	e.logger.Info("vote cast",
		"event", "doudou_vote_cast",
		"module", "engine",
		"session_id", sessionID,
		"participant_id", participantID,
		"image_id", imageID,
	)
	return vote, nil
}

// RetractVote deletes the participant's vote for an image. A missing vote
// reports NotFound before a closed voting gate reports PhaseClosed.
func (e *Engine) RetractVote(ctx context.Context, sessionID, participantID, imageID string) error {
	unlock := e.participantLocks.Lock(participantKey(sessionID, participantID))
	defer unlock()

	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := e.store.GetVote(ctx, sessionID, participantID, imageID); err != nil {
		return Upstream("get vote", err)
	}
	if !session.VotingPhaseOpen {
		return ErrVotingClosed
	}

	deleted, err := e.store.DeleteVote(ctx, sessionID, participantID, imageID)
	if err != nil {
		return Upstream("delete vote", err)
	}

	e.results.invalidate(sessionID)
	e.publish(ctx, sessionID, models.EventVoteRetracted, func(ev *models.Event) {
		ev.Vote = &deleted
	})

	e.logger.Info("vote retracted",
		"event", "doudou_vote_retracted",
		"module", "engine",
		"session_id", sessionID,
		"participant_id", participantID,
		"image_id", imageID,
	)
	return nil
}

// ListMyVotes returns the participant's votes and how many remain
func (e *Engine) ListMyVotes(ctx context.Context, sessionID, participantID string) ([]models.Vote, int, error) {
	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := e.participant(ctx, sessionID, participantID); err != nil {
		return nil, 0, err
	}
	votes, err := e.store.ListVotes(ctx, sessionID, participantID)
	if err != nil {
		return nil, 0, Upstream("list votes", err)
	}
	remaining := session.MaxVotesPerParticipant - len(votes)
	if remaining < 0 {
		remaining = 0
	}
	return votes, remaining, nil
}
