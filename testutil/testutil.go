// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/blob"
	"github.com/danielhkuo/doudou/cliparse"
	"github.com/danielhkuo/doudou/db"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/models"
	"github.com/danielhkuo/doudou/realtime"
	"github.com/danielhkuo/doudou/store"
)

// SetupTestDB creates a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.DialectSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    ":memory:",
		DatabaseType:   db.DialectSQLite,
		BaseURL:        "http://doudou.test",
		IdentitySalt:   "test-identity-salt",
		IdentityMode:   cliparse.IdentityToken,
		IdentityHeader: "X-User-ID",
		BlobDir:        "blobs",
		MaxUploadSize:  1 << 20,
		UploadSlotTTL:  time.Minute,
		ResultsTTL:     time.Minute,
		RateLimit:      0,
		RateBurst:      1,
	}
}

// QuietLogger discards engine log output
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestEnv is a fully wired engine over SQLite, an in-memory blob store and
// a realtime broker
type TestEnv struct {
	Config cliparse.Config
	DB     *sql.DB
	Store  *store.SQL
	BlobFS afero.Fs
	Blobs  *blob.FSStore
	Broker *realtime.Broker
	Engine *engine.Engine
	Tokens *auth.TokenProvider
}

// NewTestEnv builds a TestEnv. opts may adjust engine options before the
// engine is constructed.
func NewTestEnv(t *testing.T, opts ...func(*engine.Options)) *TestEnv {
	t.Helper()

	cfg := GetTestConfig()
	conn := SetupTestDB(t)
	logger := QuietLogger()

	env := &TestEnv{
		Config: cfg,
		DB:     conn,
		Store:  store.NewSQL(conn, db.DialectSQLite, logger),
		BlobFS: afero.NewMemMapFs(),
		Broker: realtime.NewBroker(realtime.DefaultBuffer, logger),
		Tokens: auth.NewTokenProvider(cfg.IdentitySalt),
	}
	env.Blobs = blob.NewFSStore(env.BlobFS, cfg.BaseURL, cfg.MaxUploadSize)
	t.Cleanup(env.Broker.Close)

	o := engine.Options{
		Store:          env.Store,
		Publisher:      env.Broker,
		Blobs:          env.Blobs,
		Logger:         logger,
		UploadURL:      func(token string) string { return cfg.BaseURL + "/uploads/" + token },
		MaxUploadBytes: cfg.MaxUploadSize,
		SlotTTL:        cfg.UploadSlotTTL,
		ResultsTTL:     cfg.ResultsTTL,
	}
	for _, fn := range opts {
		fn(&o)
	}
	env.Engine = engine.New(o)
	return env
}

// Identity issues an anonymous identity and returns it with the headers
// that authenticate as it
func (env *TestEnv) Identity(name string) (auth.Identity, map[string]string) {
	id, token := env.Tokens.Issue(name)
	return id, map[string]string{
		auth.IdentityTokenHeader: token,
		auth.DisplayNameHeader:   name,
	}
}

// CreateTestSession creates a session owned by ownerID with both phases open
func CreateTestSession(t *testing.T, eng *engine.Engine, ownerID string, maxUploads, maxVotes int) models.Session {
	t.Helper()

	s, err := eng.CreateSession(context.Background(), engine.CreateSessionInput{
		Name:        "Test Session",
		MaxUploads:  maxUploads,
		MaxVotes:    maxVotes,
		CreatorID:   ownerID,
		CreatorName: "Owner",
	})
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	return s
}

// JoinTestSession joins identity to the session and returns the participant
func JoinTestSession(t *testing.T, eng *engine.Engine, s models.Session, identity, name string) models.Participant {
	t.Helper()

	p, err := eng.JoinSession(context.Background(), s.Code, identity, name)
	if err != nil {
		t.Fatalf("Failed to join test session: %v", err)
	}
	return p
}

// AddTestImage uploads a PNG for the participant through the full slot flow
func AddTestImage(t *testing.T, eng *engine.Engine, sessionID, participantID string) models.Image {
	t.Helper()

	ctx := context.Background()
	slot, err := eng.RequestUploadSlot(ctx, sessionID, participantID)
	if err != nil {
		t.Fatalf("Failed to request upload slot: %v", err)
	}
	img, err := eng.CompleteUpload(ctx, engine.UploadInput{
		SlotToken:   slot.Token,
		Filename:    "test.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(TestPNG(t)),
	})
	if err != nil {
		t.Fatalf("Failed to complete upload: %v", err)
	}
	return img
}

// TestPNG encodes a 2x2 PNG
func TestPNG(t testing.TB) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{B: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
