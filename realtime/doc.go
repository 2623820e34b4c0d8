// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime delivers committed session events to subscribers.

# Broker

Broker implements engine.Publisher. Subscriptions are scoped to one session
and optionally to tables ("sessions", "images", "votes"):

	sub, err := broker.Subscribe(ctx, realtime.Filter{
		SessionID: session.ID,
		Tables:    []string{models.TableVotes},
	})
	for ev := range sub.Events() {
		// ...
	}

A subscription ends when ctx is done, when Cancel is called, or when the
subscriber falls a full buffer behind. Events for one table arrive in the
order they were published.

# WebSocket

ServeWS upgrades an HTTP request with gorilla/websocket and writes each
event as one JSON text frame. Ping/pong keeps idle connections alive; a
client that stops answering is disconnected after 60 seconds.
*/
package realtime
