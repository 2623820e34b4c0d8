// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/middleware"
	"github.com/danielhkuo/doudou/models"
)

type VoteHandler struct {
	engine   *engine.Engine
	identity auth.IdentityProvider
}

func NewVoteHandler(eng *engine.Engine, identity auth.IdentityProvider) *VoteHandler {
	return &VoteHandler{engine: eng, identity: identity}
}

// Cast handles POST /sessions/{code}/images/{imageID}/vote
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	scope, ok := resolveScope(w, r, h.engine, h.identity, "cast vote")
	if !ok {
		return
	}

	imageID := r.PathValue("imageID")
	if imageID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "image_id is required")
		return
	}

	vote, err := h.engine.CastVote(r.Context(), scope.session.ID, scope.participant.ID, imageID)
	if err != nil {
		writeEngineError(w, "cast vote", err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, vote)
}

// Retract handles DELETE /sessions/{code}/images/{imageID}/vote
func (h *VoteHandler) Retract(w http.ResponseWriter, r *http.Request) {
	scope, ok := resolveScope(w, r, h.engine, h.identity, "retract vote")
	if !ok {
		return
	}

	imageID := r.PathValue("imageID")
	if imageID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "image_id is required")
		return
	}

	if err := h.engine.RetractVote(r.Context(), scope.session.ID, scope.participant.ID, imageID); err != nil {
		writeEngineError(w, "retract vote", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MyVotes handles GET /sessions/{code}/votes/me
func (h *VoteHandler) MyVotes(w http.ResponseWriter, r *http.Request) {
	scope, ok := resolveScope(w, r, h.engine, h.identity, "list votes")
	if !ok {
		return
	}

	votes, remaining, err := h.engine.ListMyVotes(r.Context(), scope.session.ID, scope.participant.ID)
	if err != nil {
		writeEngineError(w, "list votes", err)
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteListResponse{Votes: votes, Remaining: remaining})
}
