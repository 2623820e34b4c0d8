// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"strings"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/blob"
	"github.com/danielhkuo/doudou/cliparse"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/handlers"
	"github.com/danielhkuo/doudou/middleware"
	"github.com/danielhkuo/doudou/realtime"
)

// Deps are the services the routes are served from
type Deps struct {
	Engine   *engine.Engine
	Broker   *realtime.Broker
	Blobs    *blob.FSStore
	Identity auth.IdentityProvider
	// Tokens issues anonymous identities; nil disables POST /identity
	Tokens  *auth.TokenProvider
	Limiter *middleware.RateLimiter
	Config  cliparse.Config
}

func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(d.Engine, d.Identity, d.Config)
	uploadHandler := handlers.NewUploadHandler(d.Engine, d.Identity, d.Config)
	voteHandler := handlers.NewVoteHandler(d.Engine, d.Identity)
	resultsHandler := handlers.NewResultsHandler(d.Engine, d.Identity)
	realtimeHandler := handlers.NewRealtimeHandler(d.Engine, d.Broker, d.Identity)

	// Writes are rate limited per client
	limited := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(d.Limiter.Limit(h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Identity
	if d.Tokens != nil {
		identityHandler := handlers.NewIdentityHandler(d.Tokens, isHTTPS(d.Config.BaseURL))
		mux.HandleFunc("POST /identity", limited(identityHandler.Issue))
	}

	// Session lifecycle
	mux.HandleFunc("POST /sessions", limited(sessionHandler.Create))
	mux.HandleFunc("GET /me/sessions", middleware.WithLogging(sessionHandler.MySessions))
	mux.HandleFunc("POST /sessions/{code}/join", limited(sessionHandler.Join))
	mux.HandleFunc("GET /sessions/{code}", middleware.WithLogging(sessionHandler.GetSnapshot))
	mux.HandleFunc("POST /sessions/{code}/uploads/toggle", limited(sessionHandler.ToggleUploads))
	mux.HandleFunc("POST /sessions/{code}/voting/toggle", limited(sessionHandler.ToggleVoting))

	// Uploads
	mux.HandleFunc("POST /sessions/{code}/uploads/slot", limited(uploadHandler.RequestSlot))
	mux.HandleFunc("PUT /uploads/{token}", limited(uploadHandler.Upload))
	mux.HandleFunc("GET /sessions/{code}/images", middleware.WithLogging(uploadHandler.ListImages))

	// Votes and results
	mux.HandleFunc("POST /sessions/{code}/images/{imageID}/vote", limited(voteHandler.Cast))
	mux.HandleFunc("DELETE /sessions/{code}/images/{imageID}/vote", limited(voteHandler.Retract))
	mux.HandleFunc("GET /sessions/{code}/votes/me", middleware.WithLogging(voteHandler.MyVotes))
	mux.HandleFunc("GET /sessions/{code}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Realtime
	mux.HandleFunc("GET /sessions/{code}/events", middleware.WithLogging(realtimeHandler.Events))

	// Stored images
	if d.Blobs != nil {
		mux.Handle("GET /blobs/{key...}", d.Blobs.Handler())
	}

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("doudou API v1"))
	})

	return mux
}

func isHTTPS(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://")
}
