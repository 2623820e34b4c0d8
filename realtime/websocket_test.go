// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/doudou/models"
)

func waitForSubscribers(t *testing.T, b *Broker, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers(sessionID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers(%s) = %d, want %d", sessionID, b.Subscribers(sessionID), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeWS(t *testing.T) {
	b := quietBroker(8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.ServeWS(w, r, Filter{SessionID: "s1", Tables: []string{models.TableVotes}})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	waitForSubscribers(t, b, "s1", 1)

	ctx := context.Background()
	b.Publish(ctx, event("s1", models.EventImageAdded, "skipped"))
	b.Publish(ctx, models.Event{
		ID:        "e1",
		Type:      models.EventVoteCast,
		Table:     models.TableVotes,
		SessionID: "s1",
		Vote:      &models.Vote{ID: "v1", ImageID: "img-1"},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.ID != "e1" || got.Vote == nil || got.Vote.ImageID != "img-1" {
		t.Errorf("received %+v, want vote event e1", got)
	}

	// Closing the client ends the subscription
	conn.Close()
	waitForSubscribers(t, b, "s1", 0)
}

func TestServeWS_BrokerClose(t *testing.T) {
	b := quietBroker(8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.ServeWS(w, r, Filter{SessionID: "s1"})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, b, "s1", 1)

	b.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
		t.Errorf("ReadMessage() error = %v, want close frame", err)
	}
}

func TestServeWS_InvalidFilter(t *testing.T) {
	b := quietBroker(8)
	req := httptest.NewRequest("GET", "/events", nil)
	w := httptest.NewRecorder()

	if err := b.ServeWS(w, req, Filter{}); err != ErrInvalidFilter {
		t.Errorf("ServeWS() error = %v, want ErrInvalidFilter", err)
	}
}
