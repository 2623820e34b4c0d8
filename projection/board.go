// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package projection

import (
	"github.com/danielhkuo/doudou/models"
)

// how many applied event IDs are remembered for de-duplication
const seenLimit = 4096

// Board is a client's view of one session, built from a snapshot and
// advanced one event at a time. Apply is a pure reducer over that state;
// replays and duplicate inserts leave it unchanged.
type Board struct {
	session       models.Session
	participantID string

	images []models.Image
	byID   map[string]int // image id -> index in images
	counts map[string]int // image id -> vote count
	mine   map[string]models.Vote

	// every vote the board counts, from the snapshot or a later cast
	votes map[string]models.Vote // vote id -> vote

	seen      map[string]struct{}
	seenOrder []string
}

// New builds a Board from the initial snapshot
func New(snap models.Snapshot) *Board {
	b := &Board{
		session:       snap.Session,
		participantID: snap.Participant.ID,
		byID:          make(map[string]int),
		counts:        make(map[string]int),
		mine:          make(map[string]models.Vote),
		votes:         make(map[string]models.Vote),
		seen:          make(map[string]struct{}),
	}
	for _, img := range snap.Images {
		b.addImage(img)
	}
	for _, res := range snap.Results {
		if _, ok := b.byID[res.Image.ID]; !ok {
			b.addImage(res.Image)
		}
		b.counts[res.Image.ID] = res.VoteCount
	}
	if snap.VoteIDs != nil {
		for imageID, ids := range snap.VoteIDs {
			b.counts[imageID] = len(ids)
			for _, id := range ids {
				b.votes[id] = models.Vote{ID: id, SessionID: snap.Session.ID, ImageID: imageID}
			}
		}
	}
	for _, v := range snap.MyVotes {
		b.mine[v.ImageID] = v
		b.votes[v.ID] = v
	}
	return b
}

// Apply folds one event into the board and reports whether it changed
// anything
func (b *Board) Apply(ev models.Event) bool {
	if ev.SessionID != b.session.ID {
		return false
	}
	if ev.ID != "" {
		if _, dup := b.seen[ev.ID]; dup {
			return false
		}
		b.remember(ev.ID)
	}

	switch ev.Type {
	case models.EventImageAdded:
		if ev.Image == nil {
			return false
		}
		return b.addImage(*ev.Image)

	case models.EventVoteCast:
		if ev.Vote == nil {
			return false
		}
		return b.castVote(*ev.Vote)

	case models.EventVoteRetracted:
		if ev.Vote == nil {
			return false
		}
		return b.retractVote(*ev.Vote)

	case models.EventPhaseChanged:
		return b.changePhase(ev)
	}
	return false
}

func (b *Board) addImage(img models.Image) bool {
	if _, ok := b.byID[img.ID]; ok {
		return false
	}
	b.byID[img.ID] = len(b.images)
	b.images = append(b.images, img)
	return true
}

func (b *Board) castVote(v models.Vote) bool {
	if _, ok := b.votes[v.ID]; ok {
		return false
	}
	if v.ParticipantID == b.participantID {
		b.mine[v.ImageID] = v
	}
	b.votes[v.ID] = v
	b.counts[v.ImageID]++
	return true
}

func (b *Board) retractVote(v models.Vote) bool {
	known, ok := b.votes[v.ID]
	if !ok {
		// cast and retracted before the snapshot, or never seen
		return false
	}
	delete(b.votes, v.ID)
	if mine, ok := b.mine[known.ImageID]; ok && mine.ID == v.ID {
		delete(b.mine, known.ImageID)
	}
	if b.counts[known.ImageID] > 0 {
		b.counts[known.ImageID]--
	}
	return true
}

func (b *Board) changePhase(ev models.Event) bool {
	if ev.Session != nil {
		changed := b.session.UploadPhaseOpen != ev.Session.UploadPhaseOpen ||
			b.session.VotingPhaseOpen != ev.Session.VotingPhaseOpen
		b.session.UploadPhaseOpen = ev.Session.UploadPhaseOpen
		b.session.VotingPhaseOpen = ev.Session.VotingPhaseOpen
		return changed
	}
	if ev.Phase == nil {
		return false
	}
	switch ev.Phase.Phase {
	case models.PhaseUploads:
		if b.session.UploadPhaseOpen == ev.Phase.Open {
			return false
		}
		b.session.UploadPhaseOpen = ev.Phase.Open
	case models.PhaseVoting:
		if b.session.VotingPhaseOpen == ev.Phase.Open {
			return false
		}
		b.session.VotingPhaseOpen = ev.Phase.Open
	default:
		return false
	}
	return true
}

func (b *Board) remember(id string) {
	b.seen[id] = struct{}{}
	b.seenOrder = append(b.seenOrder, id)
	if len(b.seenOrder) > seenLimit {
		oldest := b.seenOrder[0]
		b.seenOrder = b.seenOrder[1:]
		delete(b.seen, oldest)
	}
}

func (b *Board) Session() models.Session { return b.session }

// Images returns images in the order they were added
func (b *Board) Images() []models.Image {
	out := make([]models.Image, len(b.images))
	copy(out, b.images)
	return out
}

// Results ranks the board the same way the server does
func (b *Board) Results() models.Results {
	return models.RankImages(b.images, b.counts)
}

func (b *Board) VoteCount(imageID string) int { return b.counts[imageID] }

// HasVoted reports whether this board's participant voted for the image
func (b *Board) HasVoted(imageID string) bool {
	_, ok := b.mine[imageID]
	return ok
}

// RemainingVotes is how many more votes the participant may cast
func (b *Board) RemainingVotes() int {
	n := b.session.MaxVotesPerParticipant - len(b.mine)
	if n < 0 {
		return 0
	}
	return n
}

// CanVote mirrors CastVote's checks against local state. The server stays
// the authority; this only drives the UI.
func (b *Board) CanVote(imageID string) bool {
	if !b.session.VotingPhaseOpen {
		return false
	}
	if _, ok := b.byID[imageID]; !ok {
		return false
	}
	return !b.HasVoted(imageID) && b.RemainingVotes() > 0
}

// UploadsUsed counts images uploaded by this board's participant
func (b *Board) UploadsUsed() int {
	n := 0
	for _, img := range b.images {
		if img.ParticipantID == b.participantID {
			n++
		}
	}
	return n
}

// CanUpload mirrors RequestUploadSlot's checks against local state
func (b *Board) CanUpload() bool {
	return b.session.UploadPhaseOpen && b.UploadsUsed() < b.session.MaxUploadsPerParticipant
}
