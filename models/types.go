package models

import "time"

// Creation defaults applied when the creator leaves a limit unset
const (
	DefaultMaxUploads = 1
	DefaultMaxVotes   = 3
)

// Session code format: 6 uppercase alphanumerics
const SessionCodeLength = 6

// Podium size used by the results view
const PodiumSize = 3

// Request types

type CreateSessionRequest struct {
	Name       string `json:"name"`
	MaxUploads *int   `json:"max_uploads,omitempty"`
	MaxVotes   *int   `json:"max_votes,omitempty"`
}

type JoinSessionRequest struct {
	DisplayName string `json:"display_name"`
}

type IssueIdentityRequest struct {
	DisplayName string `json:"display_name"`
}

// Response types

type CreateSessionResponse struct {
	SessionCode string  `json:"session_code"`
	ShareURL    string  `json:"share_url"`
	Session     Session `json:"session"`
}

type IssueIdentityResponse struct {
	IdentityID  string `json:"identity_id"`
	Token       string `json:"token"`
	DisplayName string `json:"display_name,omitempty"`
}

type ToggleResponse struct {
	Phase string `json:"phase"`
	Open  bool   `json:"open"`
}

type ResultsResponse struct {
	SessionID  string        `json:"session_id"`
	TotalVotes int           `json:"total_votes"`
	Results    []ImageResult `json:"results"`
	Podium     []ImageResult `json:"podium"`
	RunnersUp  []ImageResult `json:"runners_up"`
	ComputedAt time.Time     `json:"computed_at"`
}

type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

type ImageListResponse struct {
	Images []Image `json:"images"`
}

type VoteListResponse struct {
	Votes     []Vote `json:"votes"`
	Remaining int    `json:"remaining"`
}

// Domain types

type Session struct {
	ID                       string    `json:"id"`
	Code                     string    `json:"code"`
	Name                     string    `json:"name"`
	OwnerID                  string    `json:"owner_id"`
	UploadPhaseOpen          bool      `json:"upload_phase_open"`
	VotingPhaseOpen          bool      `json:"voting_phase_open"`
	MaxUploadsPerParticipant int       `json:"max_uploads_per_participant"`
	MaxVotesPerParticipant   int       `json:"max_votes_per_participant"`
	CreatedAt                time.Time `json:"created_at"`
}

type Participant struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Identity    string    `json:"-"` // Never expose in JSON
	DisplayName string    `json:"display_name"`
	IsOwner     bool      `json:"is_owner"`
	JoinedAt    time.Time `json:"joined_at"`
}

type Image struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	URL           string    `json:"url"`
	CreatedAt     time.Time `json:"created_at"`
}

type Vote struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	ImageID       string    `json:"image_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// UploadSlot is a single-use admission ticket for one image upload
type UploadSlot struct {
	Token         string    `json:"token"`
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	UploadURL     string    `json:"upload_url"`
	MaxBytes      int64     `json:"max_bytes"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Snapshot is the initial read a client builds its local view from
type Snapshot struct {
	Session     Session       `json:"session"`
	Participant Participant   `json:"participant"`
	Images      []Image       `json:"images"`
	MyVotes     []Vote        `json:"my_votes"`
	Results     []ImageResult `json:"results"`
	// IDs of every vote counted in Results, per image
	VoteIDs  map[string][]string `json:"vote_ids"`
	ShareURL string              `json:"share_url,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
