// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/cliparse"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/middleware"
	"github.com/danielhkuo/doudou/models"
)

type SessionHandler struct {
	engine   *engine.Engine
	identity auth.IdentityProvider
	cfg      cliparse.Config
}

func NewSessionHandler(eng *engine.Engine, identity auth.IdentityProvider, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{engine: eng, identity: identity, cfg: cfg}
}

// ShareURL is the link participants open to join a session
func ShareURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/sessions/" + code
}

// Create handles POST /sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r, h.identity)
	if !ok {
		return
	}

	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Omitted limits take the defaults; explicit values are validated as-is
	maxUploads, maxVotes := models.DefaultMaxUploads, models.DefaultMaxVotes
	if req.MaxUploads != nil {
		maxUploads = *req.MaxUploads
	}
	if req.MaxVotes != nil {
		maxVotes = *req.MaxVotes
	}

	session, err := h.engine.CreateSession(r.Context(), engine.CreateSessionInput{
		Name:        req.Name,
		MaxUploads:  maxUploads,
		MaxVotes:    maxVotes,
		CreatorID:   id.ID,
		CreatorName: id.DisplayName,
	})
	if err != nil {
		writeEngineError(w, "create session", err)
		return
	}

	slog.Info("session created", "session_id", session.ID, "code", session.Code)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSessionResponse{
		SessionCode: session.Code,
		ShareURL:    ShareURL(h.cfg.BaseURL, session.Code),
		Session:     session,
	})
}

// MySessions handles GET /me/sessions
// Lists sessions the caller owns
func (h *SessionHandler) MySessions(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r, h.identity)
	if !ok {
		return
	}

	sessions, err := h.engine.ListOwnedSessions(r.Context(), id.ID)
	if err != nil {
		writeEngineError(w, "list sessions", err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionListResponse{Sessions: sessions})
}

// Join handles POST /sessions/{code}/join
// Returns the caller's participant record, creating it on first join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r, h.identity)
	if !ok {
		return
	}

	var req models.JoinSessionRequest
	if err := parseOptionalJSON(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = id.DisplayName
	}

	p, err := h.engine.JoinSession(r.Context(), r.PathValue("code"), id.ID, name)
	if err != nil {
		writeEngineError(w, "join session", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, p)
}

// GetSnapshot handles GET /sessions/{code}
// Returns everything the client needs to render the session
func (h *SessionHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	scope, ok := resolveScope(w, r, h.engine, h.identity, "snapshot")
	if !ok {
		return
	}

	snap, err := h.engine.Snapshot(r.Context(), scope.session.ID, scope.participant.ID)
	if err != nil {
		writeEngineError(w, "snapshot", err)
		return
	}
	snap.ShareURL = ShareURL(h.cfg.BaseURL, snap.Session.Code)
	if snap.Images == nil {
		snap.Images = []models.Image{}
	}
	if snap.MyVotes == nil {
		snap.MyVotes = []models.Vote{}
	}
	if snap.Results == nil {
		snap.Results = []models.ImageResult{}
	}
	if snap.VoteIDs == nil {
		snap.VoteIDs = map[string][]string{}
	}

	middleware.JSONResponse(w, http.StatusOK, snap)
}

// ToggleUploads handles POST /sessions/{code}/uploads/toggle (owner only)
func (h *SessionHandler) ToggleUploads(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.PhaseUploads, h.engine.ToggleUploads)
}

// ToggleVoting handles POST /sessions/{code}/voting/toggle (owner only)
func (h *SessionHandler) ToggleVoting(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.PhaseVoting, h.engine.ToggleVoting)
}

type toggleFunc func(ctx context.Context, sessionID, actorID string) (bool, error)

func (h *SessionHandler) toggle(w http.ResponseWriter, r *http.Request, phase string, fn toggleFunc) {
	id, ok := requireIdentity(w, r, h.identity)
	if !ok {
		return
	}

	session, err := h.engine.GetSessionByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeEngineError(w, "toggle "+phase, err)
		return
	}

	open, err := fn(r.Context(), session.ID, id.ID)
	if err != nil {
		writeEngineError(w, "toggle "+phase, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ToggleResponse{Phase: phase, Open: open})
}
