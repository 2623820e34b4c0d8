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

type ResultsHandler struct {
	engine   *engine.Engine
	identity auth.IdentityProvider
}

func NewResultsHandler(eng *engine.Engine, identity auth.IdentityProvider) *ResultsHandler {
	return &ResultsHandler{engine: eng, identity: identity}
}

// GetResults handles GET /sessions/{code}/results
// Results are visible to participants in every phase
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	scope, ok := resolveScope(w, r, h.engine, h.identity, "results")
	if !ok {
		return
	}

	results, err := h.engine.ComputeResults(r.Context(), scope.session.ID)
	if err != nil {
		writeEngineError(w, "results", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		SessionID:  scope.session.ID,
		TotalVotes: results.TotalVotes(),
		Results:    nonNil(results),
		Podium:     nonNil(results.Podium()),
		RunnersUp:  nonNil(results.RunnersUp()),
		ComputedAt: h.engine.Now(),
	})
}

func nonNil(r models.Results) []models.ImageResult {
	if r == nil {
		return []models.ImageResult{}
	}
	return r
}
