// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs one line per request: method, path, status, bytes, remote and
duration_ms. 5xx responses log at error level. The wrapped writer still
supports Hijack, so WebSocket upgrades pass through.

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
	}

An empty origin list allows any origin. Otherwise only listed origins get
CORS headers and unlisted preflights are refused. Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-Identity-Token, X-Display-Name, X-User-ID.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.CodedErrorResponse(w, http.StatusConflict, "quota_exceeded", "message")

Parse JSON request bodies:

	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

GetClientIP returns the direct peer address and ignores forwarding headers.
Behind a reverse proxy, list the proxy addresses and resolve through them:

	trust, err := middleware.ParseTrustedProxies([]string{"10.0.0.0/8"})
	ip := trust.ClientIP(r)

X-Forwarded-For and X-Real-IP are read only when the peer is trusted. The
chain is walked from the right and the first untrusted hop is the client.

# Rate Limiting

RateLimiter keeps a token bucket per client IP (golang.org/x/time/rate):

	limiter := middleware.NewRateLimiter(10, 20).TrustProxies(trust)
	mux.HandleFunc("POST /sessions", limiter.Limit(handler))
	go limiter.Cleanup(ctx, middleware.CleanupInterval)

Rejected requests get 429 with code "rate_limited". A nil limiter or a
rate of 0 allows everything.
*/
package middleware
