// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"

	"github.com/danielhkuo/doudou/models"
)

// ComputeResults returns every image of the session ranked by vote count.
// Writes through this engine invalidate the cached leaderboard before they
// return, so a caller always reads its own writes.
func (e *Engine) ComputeResults(ctx context.Context, sessionID string) (models.Results, error) {
	if cached, ok := e.results.get(sessionID); ok {
		return cloneResults(cached), nil
	}

	gen := e.results.generation(sessionID)
	if _, err := e.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	images, err := e.store.ListImages(ctx, sessionID)
	if err != nil {
		return nil, Upstream("list images", err)
	}
	counts, err := e.store.CountVotes(ctx, sessionID)
	if err != nil {
		return nil, Upstream("count votes", err)
	}

	results := models.RankImages(images, counts)
	e.results.store(sessionID, gen, results, e.resultsTTL)
	return cloneResults(results), nil
}

func cloneResults(r models.Results) models.Results {
	out := make(models.Results, len(r))
	copy(out, r)
	return out
}
