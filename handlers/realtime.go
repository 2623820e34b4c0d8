// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/middleware"
	"github.com/danielhkuo/doudou/models"
	"github.com/danielhkuo/doudou/realtime"
)

type RealtimeHandler struct {
	engine   *engine.Engine
	broker   *realtime.Broker
	identity auth.IdentityProvider
}

func NewRealtimeHandler(eng *engine.Engine, broker *realtime.Broker, identity auth.IdentityProvider) *RealtimeHandler {
	return &RealtimeHandler{engine: eng, broker: broker, identity: identity}
}

// Events handles GET /sessions/{code}/events?tables=images,votes
// Upgrades to a WebSocket streaming the session's change events
func (h *RealtimeHandler) Events(w http.ResponseWriter, r *http.Request) {
	scope, ok := resolveScope(w, r, h.engine, h.identity, "subscribe")
	if !ok {
		return
	}

	tables, ok := parseTables(r.URL.Query().Get("tables"))
	if !ok {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, "invalid_input",
			"tables must be a comma-separated list of sessions, images, votes")
		return
	}

	slog.Info("realtime subscriber connected",
		"session_id", scope.session.ID,
		"participant_id", scope.participant.ID,
		"tables", strings.Join(tables, ","),
	)

	err := h.broker.ServeWS(w, r, realtime.Filter{SessionID: scope.session.ID, Tables: tables})
	if err != nil {
		slog.Warn("realtime subscription ended", "session_id", scope.session.ID, "error", err)
		return
	}

	slog.Info("realtime subscriber disconnected", "session_id", scope.session.ID, "participant_id", scope.participant.ID)
}

func parseTables(raw string) ([]string, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var tables []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if !models.IsValidTable(t) {
			return nil, false
		}
		tables = append(tables, t)
	}
	return tables, true
}
