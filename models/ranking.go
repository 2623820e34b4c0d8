// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "sort"

// ImageResult is one row of the leaderboard
type ImageResult struct {
	Image     Image `json:"image"`
	VoteCount int   `json:"vote_count"`
	Rank      int   `json:"rank"` // 1-indexed ranking
}

// Results is a ranked leaderboard for a session
type Results []ImageResult

// RankImages orders images by vote count descending. Equal counts keep the
// earliest-created image first, then the smaller image ID.
func RankImages(images []Image, counts map[string]int) Results {
	results := make(Results, 0, len(images))
	for _, img := range images {
		results = append(results, ImageResult{Image: img, VoteCount: counts[img.ID]})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		if !a.Image.CreatedAt.Equal(b.Image.CreatedAt) {
			return a.Image.CreatedAt.Before(b.Image.CreatedAt)
		}
		return a.Image.ID < b.Image.ID
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// TotalVotes sums vote counts across the leaderboard
func (r Results) TotalVotes() int {
	total := 0
	for _, res := range r {
		total += res.VoteCount
	}
	return total
}

// Slice returns the results ranked in [from, to], both 1-indexed and
// inclusive. Out-of-range bounds are clamped.
func (r Results) Slice(from, to int) Results {
	if from < 1 {
		from = 1
	}
	if to > len(r) {
		to = len(r)
	}
	if from > to {
		return Results{}
	}
	return r[from-1 : to]
}

// Podium returns the top three
func (r Results) Podium() Results {
	return r.Slice(1, PodiumSize)
}

// RunnersUp returns everything after the podium
func (r Results) RunnersUp() Results {
	return r.Slice(PodiumSize+1, len(r))
}
