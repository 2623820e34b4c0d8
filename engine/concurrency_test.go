// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/models"
)

func TestConcurrentVotes_Quota(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.createSession(t, "owner", 10, 3)
	alice := h.join(t, s, "alice")

	images := make([]models.Image, 10)
	for i := range images {
		images[i] = h.addImage(t, s.ID, alice.ID)
	}

	var ok, quota atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, img := range images {
		g.Go(func() error {
			_, err := h.engine.CastVote(gctx, s.ID, alice.ID, img.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, engine.ErrVoteQuota):
				quota.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}

	if ok.Load() != 3 || quota.Load() != 7 {
		t.Errorf("got %d ok and %d quota errors, want 3 and 7", ok.Load(), quota.Load())
	}
	votes, _, _ := h.engine.ListMyVotes(ctx, s.ID, alice.ID)
	if len(votes) != 3 {
		t.Errorf("participant holds %d votes, want 3", len(votes))
	}
}

func TestConcurrentVotes_Duplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.createSession(t, "owner", 1, 5)
	alice := h.join(t, s, "alice")
	img := h.addImage(t, s.ID, alice.ID)

	var ok, dup atomic.Int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := h.engine.CastVote(ctx, s.ID, alice.ID, img.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, engine.ErrAlreadyVoted):
				dup.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}

	if ok.Load() != 1 || dup.Load() != 19 {
		t.Errorf("got %d ok and %d duplicates, want 1 and 19", ok.Load(), dup.Load())
	}
}

func TestConcurrentVotes_ManyParticipants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.createSession(t, "owner", 3, 2)

	uploader := h.join(t, s, "uploader")
	images := []models.Image{
		h.addImage(t, s.ID, uploader.ID),
		h.addImage(t, s.ID, uploader.ID),
		h.addImage(t, s.ID, uploader.ID),
	}

	const voters = 12
	participants := make([]models.Participant, voters)
	for i := range participants {
		participants[i] = h.join(t, s, "voter-"+string(rune('a'+i)))
	}

	// Every voter tries every image; each may keep two
	var g errgroup.Group
	for _, p := range participants {
		for _, img := range images {
			g.Go(func() error {
				_, err := h.engine.CastVote(ctx, s.ID, p.ID, img.ID)
				if err != nil && !errors.Is(err, engine.ErrVoteQuota) {
					return err
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}

	for _, p := range participants {
		votes, _, _ := h.engine.ListMyVotes(ctx, s.ID, p.ID)
		if len(votes) != 2 {
			t.Errorf("%s holds %d votes, want 2", p.DisplayName, len(votes))
		}
	}

	results, err := h.engine.ComputeResults(ctx, s.ID)
	if err != nil {
		t.Fatalf("ComputeResults() error = %v", err)
	}
	if results.TotalVotes() != voters*2 {
		t.Errorf("TotalVotes() = %d, want %d", results.TotalVotes(), voters*2)
	}

	// One event per committed vote
	cast := 0
	for _, ev := range h.events.Events() {
		if ev.Type == models.EventVoteCast {
			cast++
		}
	}
	if cast != voters*2 {
		t.Errorf("published %d vote events, want %d", cast, voters*2)
	}
}

func TestConcurrentCastAndRetract(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.createSession(t, "owner", 2, 1)
	alice := h.join(t, s, "alice")
	a := h.addImage(t, s.ID, alice.ID)
	b := h.addImage(t, s.ID, alice.ID)

	if _, err := h.engine.CastVote(ctx, s.ID, alice.ID, a.ID); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	// Swapping a vote while another cast races must never exceed the quota
	var g errgroup.Group
	g.Go(func() error {
		return h.engine.RetractVote(ctx, s.ID, alice.ID, a.ID)
	})
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, err := h.engine.CastVote(ctx, s.ID, alice.ID, b.ID)
			if err != nil && !errors.Is(err, engine.ErrVoteQuota) && !errors.Is(err, engine.ErrAlreadyVoted) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error = %v", err)
	}

	votes, _, _ := h.engine.ListMyVotes(ctx, s.ID, alice.ID)
	if len(votes) > 1 {
		t.Errorf("participant holds %d votes, quota is 1", len(votes))
	}
}
