// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"testing"
	"time"
)

func testImages(base time.Time, ids ...string) []Image {
	images := make([]Image, len(ids))
	for i, id := range ids {
		images[i] = Image{ID: id, SessionID: "s1", CreatedAt: base.Add(time.Duration(i) * time.Second)}
	}
	return images
}

func rankedIDs(r Results) []string {
	ids := make([]string, len(r))
	for i, res := range r {
		ids[i] = res.Image.ID
	}
	return ids
}

func TestRankImages(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		images []Image
		counts map[string]int
		want   []string
	}{
		{
			name:   "by vote count",
			images: testImages(base, "a", "b", "c"),
			counts: map[string]int{"a": 1, "b": 3, "c": 2},
			want:   []string{"b", "c", "a"},
		},
		{
			name:   "no images",
			images: nil,
			want:   []string{},
		},
		{
			name: "tie broken by created at",
			images: []Image{
				{ID: "x", CreatedAt: base.Add(2 * time.Second)},
				{ID: "y", CreatedAt: base},
				{ID: "z", CreatedAt: base.Add(time.Second)},
			},
			counts: map[string]int{"x": 2, "y": 2, "z": 2},
			want:   []string{"y", "z", "x"},
		},
		{
			name: "same timestamp broken by id",
			images: []Image{
				{ID: "img-b", CreatedAt: base},
				{ID: "img-a", CreatedAt: base},
			},
			counts: map[string]int{"img-a": 1, "img-b": 1},
			want:   []string{"img-a", "img-b"},
		},
		{
			name:   "images without votes rank last",
			images: testImages(base, "a", "b", "c"),
			counts: map[string]int{"c": 1},
			want:   []string{"c", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := RankImages(tt.images, tt.counts)

			got := rankedIDs(results)
			if len(got) != len(tt.want) {
				t.Fatalf("RankImages() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("RankImages() = %v, want %v", got, tt.want)
					break
				}
			}
			for i, res := range results {
				if res.Rank != i+1 {
					t.Errorf("rank at position %d = %d, want %d", i, res.Rank, i+1)
				}
			}
		})
	}
}

func TestResults_TotalVotes(t *testing.T) {
	base := time.Now()
	results := RankImages(testImages(base, "a", "b", "c"), map[string]int{"a": 4, "b": 1})
	if got := results.TotalVotes(); got != 5 {
		t.Errorf("TotalVotes() = %d, want 5", got)
	}
	if got := (Results{}).TotalVotes(); got != 0 {
		t.Errorf("TotalVotes() on empty = %d, want 0", got)
	}
}

func TestResults_PodiumAndRunnersUp(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name          string
		ids           []string
		wantPodium    int
		wantRunnersUp int
	}{
		{"empty", nil, 0, 0},
		{"two images", []string{"a", "b"}, 2, 0},
		{"exactly three", []string{"a", "b", "c"}, 3, 0},
		{"five images", []string{"a", "b", "c", "d", "e"}, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := make(map[string]int)
			for i, id := range tt.ids {
				counts[id] = len(tt.ids) - i
			}
			results := RankImages(testImages(base, tt.ids...), counts)

			podium := results.Podium()
			runnersUp := results.RunnersUp()
			if len(podium) != tt.wantPodium {
				t.Errorf("Podium() len = %d, want %d", len(podium), tt.wantPodium)
			}
			if len(runnersUp) != tt.wantRunnersUp {
				t.Errorf("RunnersUp() len = %d, want %d", len(runnersUp), tt.wantRunnersUp)
			}
			if podium == nil || runnersUp == nil {
				t.Error("Podium() and RunnersUp() should never be nil")
			}
			if len(runnersUp) > 0 && runnersUp[0].Rank != PodiumSize+1 {
				t.Errorf("first runner-up rank = %d, want %d", runnersUp[0].Rank, PodiumSize+1)
			}
		})
	}
}

func TestResults_Slice(t *testing.T) {
	results := RankImages(testImages(time.Now(), "a", "b", "c", "d"), map[string]int{"a": 4, "b": 3, "c": 2, "d": 1})

	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"middle", 2, 3, []string{"b", "c"}},
		{"clamped low", -1, 1, []string{"a"}},
		{"clamped high", 3, 10, []string{"c", "d"}},
		{"inverted", 3, 2, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rankedIDs(results.Slice(tt.from, tt.to))
			if len(got) != len(tt.want) {
				t.Fatalf("Slice(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Slice(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
				}
			}
		})
	}
}

func TestTableFor(t *testing.T) {
	tests := map[string]string{
		EventVoteCast:      TableVotes,
		EventVoteRetracted: TableVotes,
		EventImageAdded:    TableImages,
		EventPhaseChanged:  TableSessions,
	}
	for eventType, want := range tests {
		if got := TableFor(eventType); got != want {
			t.Errorf("TableFor(%q) = %q, want %q", eventType, got, want)
		}
		if !IsValidTable(want) {
			t.Errorf("IsValidTable(%q) = false", want)
		}
	}
	if IsValidTable("participants") {
		t.Error("IsValidTable(participants) should be false")
	}
}
