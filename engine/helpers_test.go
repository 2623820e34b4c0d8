// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/models"
	"github.com/danielhkuo/doudou/store"
)

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) Publish(ctx context.Context, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) Types() []string {
	var types []string
	for _, ev := range r.Events() {
		types = append(types, ev.Type)
	}
	return types
}

// fakeBlobs stores bytes in a map and can be told to fail
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
	failErr error
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Put(ctx context.Context, obj engine.BlobObject, r io.Reader) (engine.StoredBlob, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return engine.StoredBlob{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return engine.StoredBlob{}, b.failErr
	}
	b.seq++
	key := fmt.Sprintf("%s/%s/%d.png", obj.SessionID, obj.ParticipantID, b.seq)
	b.objects[key] = data
	return engine.StoredBlob{Key: key, URL: "https://blobs.test/" + key, Size: int64(len(data))}, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobs) SetFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErr = err
}

func (b *fakeBlobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type harness struct {
	engine *engine.Engine
	store  *store.Memory
	blobs  *fakeBlobs
	events *recorder
	clock  *clock
}

func newHarness(t *testing.T, opts ...func(*engine.Options)) *harness {
	t.Helper()

	h := &harness{
		store:  store.NewMemory(),
		blobs:  newFakeBlobs(),
		events: &recorder{},
		clock:  newClock(),
	}
	o := engine.Options{
		Store:          h.store,
		Publisher:      h.events,
		Blobs:          h.blobs,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxUploadBytes: 1 << 20,
		SlotTTL:        time.Minute,
		ResultsTTL:     time.Hour,
		Now:            h.clock.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	h.engine = engine.New(o)
	return h
}

func (h *harness) createSession(t *testing.T, owner string, maxUploads, maxVotes int) models.Session {
	t.Helper()
	s, err := h.engine.CreateSession(context.Background(), engine.CreateSessionInput{
		Name:        "Test Session",
		MaxUploads:  maxUploads,
		MaxVotes:    maxVotes,
		CreatorID:   owner,
		CreatorName: "Owner",
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return s
}

func (h *harness) join(t *testing.T, s models.Session, identity string) models.Participant {
	t.Helper()
	p, err := h.engine.JoinSession(context.Background(), s.Code, identity, identity)
	if err != nil {
		t.Fatalf("JoinSession() error = %v", err)
	}
	return p
}

func (h *harness) upload(ctx context.Context, sessionID, participantID string) (models.Image, error) {
	slot, err := h.engine.RequestUploadSlot(ctx, sessionID, participantID)
	if err != nil {
		return models.Image{}, err
	}
	return h.complete(ctx, slot)
}

func (h *harness) complete(ctx context.Context, slot models.UploadSlot) (models.Image, error) {
	return h.engine.CompleteUpload(ctx, engine.UploadInput{
		SlotToken:   slot.Token,
		Filename:    "photo.png",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("png bytes")),
	})
}

// addImage uploads an image and moves the clock so creation times differ
func (h *harness) addImage(t *testing.T, sessionID, participantID string) models.Image {
	t.Helper()
	img, err := h.upload(context.Background(), sessionID, participantID)
	if err != nil {
		t.Fatalf("upload error = %v", err)
	}
	h.clock.Advance(time.Second)
	return img
}
