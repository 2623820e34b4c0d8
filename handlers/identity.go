// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/middleware"
	"github.com/danielhkuo/doudou/models"
)

// identity cookie lifetime
const identityCookieMaxAge = 365 * 24 * 60 * 60

type IdentityHandler struct {
	tokens *auth.TokenProvider
	secure bool
}

// NewIdentityHandler serves anonymous identities. secure marks the cookie
// HTTPS-only.
func NewIdentityHandler(tokens *auth.TokenProvider, secure bool) *IdentityHandler {
	return &IdentityHandler{tokens: tokens, secure: secure}
}

// Issue handles POST /identity
// Mints an anonymous identity and returns its token, also set as a cookie
func (h *IdentityHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req models.IssueIdentityRequest
	if err := parseOptionalJSON(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if auth.DisplayNameTooLong(name) {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, "invalid_input", "display_name must be at most 50 characters")
		return
	}
	if name == "" {
		name = auth.GenerateDisplayName()
	}

	id, token := h.tokens.Issue(name)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.IdentityCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   identityCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("identity issued", "identity_id", id.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.IssueIdentityResponse{
		IdentityID:  id.ID,
		Token:       token,
		DisplayName: id.DisplayName,
	})
}
