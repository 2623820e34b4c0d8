// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/blob"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/middleware"
	"github.com/danielhkuo/doudou/models"
)

// statusFor maps an engine error kind to its HTTP status
func statusFor(err error) int {
	if errors.Is(err, blob.ErrTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch engine.Kind(err) {
	case "not_found":
		return http.StatusNotFound
	case "forbidden":
		return http.StatusForbidden
	case "phase_closed", "quota_exceeded", "already_voted":
		return http.StatusConflict
	case "invalid_input":
		return http.StatusBadRequest
	case "upstream_failure":
		return http.StatusBadGateway
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeEngineError logs err and writes the JSON error body for it
func writeEngineError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err)
	} else {
		slog.Info(op+" rejected", "error", err, "status", status)
	}

	code := engine.Kind(err)
	if code == "" {
		code = "internal"
	}
	middleware.CodedErrorResponse(w, status, code, engine.Message(err))
}

// requireIdentity resolves the caller or writes a 401
func requireIdentity(w http.ResponseWriter, r *http.Request, provider auth.IdentityProvider) (auth.Identity, bool) {
	id, err := provider.Resolve(r)
	if err != nil {
		msg := "Sign in to continue."
		if !errors.Is(err, auth.ErrNoIdentity) {
			msg = "Your identity token is invalid. Request a new one."
		}
		middleware.CodedErrorResponse(w, http.StatusUnauthorized, "unauthenticated", msg)
		return auth.Identity{}, false
	}
	return id, true
}

// parseOptionalJSON decodes the body into v unless it is empty
func parseOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := middleware.ParseJSONBody(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// sessionScope resolves the session named by the {code} path value and the
// caller's participant record in it
type sessionScope struct {
	identity    auth.Identity
	session     models.Session
	participant models.Participant
}

func resolveScope(w http.ResponseWriter, r *http.Request, eng *engine.Engine, provider auth.IdentityProvider, op string) (sessionScope, bool) {
	id, ok := requireIdentity(w, r, provider)
	if !ok {
		return sessionScope{}, false
	}

	session, err := eng.GetSessionByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeEngineError(w, op, err)
		return sessionScope{}, false
	}

	p, err := eng.ResolveParticipant(r.Context(), session.ID, id.ID)
	if err != nil {
		writeEngineError(w, op, err)
		return sessionScope{}, false
	}

	return sessionScope{identity: id, session: session, participant: p}, true
}
