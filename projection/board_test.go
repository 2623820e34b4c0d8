// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package projection

import (
	"testing"
	"time"

	"github.com/danielhkuo/doudou/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testSnapshot() models.Snapshot {
	imgA := models.Image{ID: "img-a", SessionID: "s1", ParticipantID: "me", CreatedAt: t0}
	imgB := models.Image{ID: "img-b", SessionID: "s1", ParticipantID: "other", CreatedAt: t0.Add(time.Second)}
	myVote := models.Vote{ID: "v-mine", SessionID: "s1", ParticipantID: "me", ImageID: "img-b"}

	return models.Snapshot{
		Session: models.Session{
			ID:                       "s1",
			UploadPhaseOpen:          true,
			VotingPhaseOpen:          true,
			MaxUploadsPerParticipant: 2,
			MaxVotesPerParticipant:   2,
		},
		Participant: models.Participant{ID: "me", SessionID: "s1"},
		Images:      []models.Image{imgA, imgB},
		MyVotes:     []models.Vote{myVote},
		Results: models.RankImages([]models.Image{imgA, imgB}, map[string]int{
			"img-b": 2, // mine plus one from another participant
		}),
		VoteIDs: map[string][]string{"img-b": {"v-mine", "v-other"}},
	}
}

func voteEvent(id, eventType string, v models.Vote) models.Event {
	return models.Event{ID: id, Type: eventType, Table: models.TableVotes, SessionID: "s1", Vote: &v}
}

func TestNew(t *testing.T) {
	b := New(testSnapshot())

	if len(b.Images()) != 2 {
		t.Fatalf("Images() len = %d, want 2", len(b.Images()))
	}
	if b.VoteCount("img-b") != 2 {
		t.Errorf("VoteCount(img-b) = %d, want 2", b.VoteCount("img-b"))
	}
	if !b.HasVoted("img-b") || b.HasVoted("img-a") {
		t.Error("HasVoted() does not reflect snapshot votes")
	}
	if b.RemainingVotes() != 1 {
		t.Errorf("RemainingVotes() = %d, want 1", b.RemainingVotes())
	}
	if b.UploadsUsed() != 1 {
		t.Errorf("UploadsUsed() = %d, want 1", b.UploadsUsed())
	}

	results := b.Results()
	if results[0].Image.ID != "img-b" || results.TotalVotes() != 2 {
		t.Errorf("Results() = %+v", results)
	}
}

func TestApply_ImageAdded(t *testing.T) {
	b := New(testSnapshot())
	img := models.Image{ID: "img-c", SessionID: "s1", ParticipantID: "me", CreatedAt: t0.Add(time.Minute)}
	ev := models.Event{ID: "e1", Type: models.EventImageAdded, Table: models.TableImages, SessionID: "s1", Image: &img}

	if !b.Apply(ev) {
		t.Fatal("Apply(image added) = false")
	}
	if len(b.Images()) != 3 || b.Images()[2].ID != "img-c" {
		t.Errorf("Images() = %+v", b.Images())
	}

	// The same image again, under a new event ID, is still a duplicate
	dup := ev
	dup.ID = "e2"
	if b.Apply(dup) {
		t.Error("duplicate image insert changed the board")
	}
	if len(b.Images()) != 3 {
		t.Errorf("Images() len = %d after duplicate, want 3", len(b.Images()))
	}
	if b.CanUpload() {
		t.Error("CanUpload() should be false at quota")
	}
}

func TestApply_Votes(t *testing.T) {
	b := New(testSnapshot())

	theirs := models.Vote{ID: "v-theirs", SessionID: "s1", ParticipantID: "other", ImageID: "img-a"}
	mine := models.Vote{ID: "v-new", SessionID: "s1", ParticipantID: "me", ImageID: "img-a"}

	tests := []struct {
		name        string
		ev          models.Event
		wantChanged bool
		wantCountA  int
		wantMine    bool
	}{
		{"other participant votes", voteEvent("e1", models.EventVoteCast, theirs), true, 1, false},
		{"replayed event", voteEvent("e1", models.EventVoteCast, theirs), false, 1, false},
		{"same vote under new event ID", voteEvent("e2", models.EventVoteCast, theirs), false, 1, false},
		{"my vote", voteEvent("e3", models.EventVoteCast, mine), true, 2, true},
		{"my vote retracted", voteEvent("e4", models.EventVoteRetracted, mine), true, 1, false},
		{"their vote retracted", voteEvent("e5", models.EventVoteRetracted, theirs), true, 0, false},
		{"retract of unseen vote at zero", voteEvent("e6", models.EventVoteRetracted, theirs), false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Apply(tt.ev); got != tt.wantChanged {
				t.Errorf("Apply() = %v, want %v", got, tt.wantChanged)
			}
			if got := b.VoteCount("img-a"); got != tt.wantCountA {
				t.Errorf("VoteCount(img-a) = %d, want %d", got, tt.wantCountA)
			}
			if got := b.HasVoted("img-a"); got != tt.wantMine {
				t.Errorf("HasVoted(img-a) = %v, want %v", got, tt.wantMine)
			}
		})
	}
}

func TestApply_SnapshotVoteEchoIgnored(t *testing.T) {
	snap := testSnapshot()
	b := New(snap)

	// The server echoes a vote the snapshot already counted
	if b.Apply(voteEvent("e1", models.EventVoteCast, snap.MyVotes[0])) {
		t.Error("vote already in snapshot should not double count")
	}
	if b.VoteCount("img-b") != 2 {
		t.Errorf("VoteCount(img-b) = %d, want 2", b.VoteCount("img-b"))
	}
}

func TestApply_OtherVoteInSnapshotIgnored(t *testing.T) {
	b := New(testSnapshot())

	// Subscribed before the snapshot was read; the snapshot already counts it
	other := models.Vote{ID: "v-other", SessionID: "s1", ParticipantID: "other", ImageID: "img-b"}
	if b.Apply(voteEvent("e1", models.EventVoteCast, other)) {
		t.Error("Apply() of a vote in the snapshot reported a change")
	}
	if b.VoteCount("img-b") != 2 {
		t.Errorf("VoteCount(img-b) = %d, want 2", b.VoteCount("img-b"))
	}
}

func TestApply_RetractVoteFromBeforeSnapshot(t *testing.T) {
	b := New(testSnapshot())

	other := models.Vote{ID: "v-other", SessionID: "s1", ParticipantID: "other", ImageID: "img-b"}
	if !b.Apply(voteEvent("e1", models.EventVoteRetracted, other)) {
		t.Fatal("Apply(retract) = false")
	}
	if b.VoteCount("img-b") != 1 {
		t.Errorf("VoteCount(img-b) = %d, want 1", b.VoteCount("img-b"))
	}
	if !b.HasVoted("img-b") {
		t.Error("retracting someone else's vote removed mine")
	}

	// Retracted before the snapshot was read, so never counted
	gone := models.Vote{ID: "v-gone", SessionID: "s1", ParticipantID: "other", ImageID: "img-b"}
	if b.Apply(voteEvent("e2", models.EventVoteRetracted, gone)) {
		t.Error("Apply() of a retract for an uncounted vote reported a change")
	}
	if b.VoteCount("img-b") != 1 {
		t.Errorf("VoteCount(img-b) = %d, want 1", b.VoteCount("img-b"))
	}
}

func TestApply_BufferedBeforeSnapshot(t *testing.T) {
	// Cast and retracted between subscribe and snapshot: neither is in the snapshot
	b := New(testSnapshot())
	brief := models.Vote{ID: "v-brief", SessionID: "s1", ParticipantID: "other", ImageID: "img-a"}

	b.Apply(voteEvent("e1", models.EventVoteCast, brief))
	b.Apply(voteEvent("e2", models.EventVoteRetracted, brief))

	if b.VoteCount("img-a") != 0 || b.VoteCount("img-b") != 2 {
		t.Errorf("counts = a:%d b:%d, want a:0 b:2", b.VoteCount("img-a"), b.VoteCount("img-b"))
	}
}

func TestApply_PhaseChanged(t *testing.T) {
	b := New(testSnapshot())

	closeVoting := models.Event{
		ID: "e1", Type: models.EventPhaseChanged, Table: models.TableSessions, SessionID: "s1",
		Phase: &models.PhaseChange{Phase: models.PhaseVoting, Open: false},
	}
	if !b.Apply(closeVoting) {
		t.Fatal("Apply(close voting) = false")
	}
	if b.Session().VotingPhaseOpen {
		t.Error("voting should be closed")
	}
	if b.CanVote("img-a") {
		t.Error("CanVote() should be false with voting closed")
	}

	// Same state again is not a change
	closeVoting.ID = "e2"
	if b.Apply(closeVoting) {
		t.Error("repeated phase state reported a change")
	}

	// Full session payload wins over the phase field
	session := b.Session()
	session.UploadPhaseOpen = false
	session.VotingPhaseOpen = true
	withSession := models.Event{ID: "e3", Type: models.EventPhaseChanged, Table: models.TableSessions, SessionID: "s1", Session: &session}
	if !b.Apply(withSession) {
		t.Fatal("Apply(session payload) = false")
	}
	if b.Session().UploadPhaseOpen || !b.Session().VotingPhaseOpen {
		t.Errorf("Session() = %+v", b.Session())
	}
	if b.CanUpload() {
		t.Error("CanUpload() should be false with uploads closed")
	}
}

func TestApply_Ignored(t *testing.T) {
	b := New(testSnapshot())

	tests := []struct {
		name string
		ev   models.Event
	}{
		{"other session", models.Event{ID: "x1", Type: models.EventVoteCast, SessionID: "s2", Vote: &models.Vote{ID: "v", ImageID: "img-a"}}},
		{"vote event without vote", models.Event{ID: "x2", Type: models.EventVoteCast, SessionID: "s1"}},
		{"image event without image", models.Event{ID: "x3", Type: models.EventImageAdded, SessionID: "s1"}},
		{"unknown type", models.Event{ID: "x4", Type: "participant.joined", SessionID: "s1"}},
		{"unknown phase", models.Event{ID: "x5", Type: models.EventPhaseChanged, SessionID: "s1", Phase: &models.PhaseChange{Phase: "results", Open: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if b.Apply(tt.ev) {
				t.Error("Apply() = true, want ignored")
			}
		})
	}
	if b.VoteCount("img-a") != 0 || len(b.Images()) != 2 {
		t.Error("ignored events changed the board")
	}
}

func TestCanVote(t *testing.T) {
	b := New(testSnapshot())

	if !b.CanVote("img-a") {
		t.Error("CanVote(img-a) should be true")
	}
	if b.CanVote("img-b") {
		t.Error("CanVote(img-b) should be false after voting for it")
	}
	if b.CanVote("missing") {
		t.Error("CanVote(missing) should be false")
	}

	// Spending the last vote
	b.Apply(voteEvent("e1", models.EventVoteCast, models.Vote{ID: "v2", SessionID: "s1", ParticipantID: "me", ImageID: "img-a"}))
	img := models.Image{ID: "img-c", SessionID: "s1", ParticipantID: "other", CreatedAt: t0.Add(time.Hour)}
	b.Apply(models.Event{ID: "e2", Type: models.EventImageAdded, SessionID: "s1", Image: &img})

	if b.RemainingVotes() != 0 {
		t.Errorf("RemainingVotes() = %d, want 0", b.RemainingVotes())
	}
	if b.CanVote("img-c") {
		t.Error("CanVote() should be false with no votes left")
	}
}

func TestResults_MatchesServerRanking(t *testing.T) {
	snap := testSnapshot()
	b := New(snap)

	theirs := models.Vote{ID: "v-a1", SessionID: "s1", ParticipantID: "other", ImageID: "img-a"}
	b.Apply(voteEvent("e1", models.EventVoteCast, theirs))
	theirs2 := models.Vote{ID: "v-a2", SessionID: "s1", ParticipantID: "third", ImageID: "img-a"}
	b.Apply(voteEvent("e2", models.EventVoteCast, theirs2))

	// 2 and 2: the earlier image ranks first
	results := b.Results()
	if results[0].Image.ID != "img-a" || results[1].Image.ID != "img-b" {
		t.Errorf("Results() order = %s, %s; want img-a, img-b", results[0].Image.ID, results[1].Image.ID)
	}
	if results.TotalVotes() != 4 {
		t.Errorf("TotalVotes() = %d, want 4", results.TotalVotes())
	}
}

func TestRemember_Bounded(t *testing.T) {
	b := New(testSnapshot())
	for i := 0; i < seenLimit+10; i++ {
		b.remember(string(rune(i)) + "-id")
	}
	if len(b.seen) != seenLimit || len(b.seenOrder) != seenLimit {
		t.Errorf("seen = %d, order = %d; want %d", len(b.seen), len(b.seenOrder), seenLimit)
	}
}
