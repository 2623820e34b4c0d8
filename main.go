package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/blob"
	"github.com/danielhkuo/doudou/cliparse"
	"github.com/danielhkuo/doudou/db"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/middleware"
	"github.com/danielhkuo/doudou/realtime"
	"github.com/danielhkuo/doudou/router"
	"github.com/danielhkuo/doudou/store"
)

// how often expired upload slots and cached results are dropped
const sweepInterval = time.Minute

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logger := slog.Default()

	// Open the session store
	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		slog.Error("store setup failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Blob storage on the local filesystem
	blobs, err := blob.NewOSStore(cfg.BlobDir, cfg.BaseURL, cfg.MaxUploadSize)
	if err != nil {
		slog.Error("blob store setup failed", "error", err)
		os.Exit(1)
	}

	broker := realtime.NewBroker(realtime.DefaultBuffer, logger)
	defer broker.Close()

	eng := engine.New(engine.Options{
		Store:          st,
		Publisher:      broker,
		Blobs:          blobs,
		Logger:         logger,
		UploadURL:      func(token string) string { return cfg.BaseURL + "/uploads/" + token },
		MaxUploadBytes: cfg.MaxUploadSize,
		SlotTTL:        cfg.UploadSlotTTL,
		ResultsTTL:     cfg.ResultsTTL,
	})

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		slog.Error("Error parsing trusted proxies", "error", err)
		os.Exit(1)
	}

	// Identity provider
	deps := router.Deps{
		Engine:  eng,
		Broker:  broker,
		Blobs:   blobs,
		Limiter: middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).TrustProxies(proxies),
		Config:  cfg,
	}
	switch cfg.IdentityMode {
	case cliparse.IdentityHeader:
		deps.Identity = auth.NewHeaderProvider(cfg.IdentityHeader)
	default:
		tokens := auth.NewTokenProvider(cfg.IdentitySalt)
		deps.Identity = tokens
		deps.Tokens = tokens
	}

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(cfg.AllowedOrigins)(router.NewRouter(deps)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port, "database", cfg.DatabaseType, "identity", cfg.IdentityMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		broker.Close()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return eng.Run(gctx, sweepInterval) })
	g.Go(func() error { return deps.Limiter.Cleanup(gctx, middleware.CleanupInterval) })

	if err := g.Wait(); err != nil {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}

// openStore picks the store for the configured database type
func openStore(cfg cliparse.Config, logger *slog.Logger) (engine.Store, func(), error) {
	if cfg.DatabaseType == "memory" {
		slog.Warn("using in-memory store; data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	// Create schema (tables)
	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		conn.Close()
		return nil, nil, err
	}
	slog.Info("Database schema ready", "dialect", cfg.DatabaseType)

	return store.NewSQL(conn, cfg.DatabaseType, logger), func() { conn.Close() }, nil
}
