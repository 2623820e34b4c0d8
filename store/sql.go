// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/doudou/db"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/models"
)

// SQL is a Store over database/sql. Queries use $N placeholders, which
// both lib/pq and modernc.org/sqlite accept.
type SQL struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

func NewSQL(conn *sql.DB, dialect string, logger *slog.Logger) *SQL {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQL{db: conn, dialect: dialect, logger: logger}
}

const sessionColumns = `id, code, name, owner_id, upload_phase_open, voting_phase_open, max_uploads, max_votes, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.OwnerID, &s.UploadPhaseOpen, &s.VotingPhaseOpen,
		&s.MaxUploadsPerParticipant, &s.MaxVotesPerParticipant, &s.CreatedAt)
	return s, err
}

func (s *SQL) CreateSession(ctx context.Context, session models.Session, owner models.Participant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin create session", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, session.ID, session.Code, session.Name, session.OwnerID, session.UploadPhaseOpen, session.VotingPhaseOpen,
		session.MaxUploadsPerParticipant, session.MaxVotesPerParticipant, session.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return engine.ErrCodeTaken
		}
		return s.fail("insert session", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participants (id, session_id, identity, display_name, is_owner, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, owner.ID, owner.SessionID, owner.Identity, owner.DisplayName, owner.IsOwner, owner.JoinedAt)
	if err != nil {
		return s.fail("insert owner participant", err)
	}

	if err := tx.Commit(); err != nil {
		return s.fail("commit create session", err)
	}
	return nil
}

func (s *SQL) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1
	`, sessionID))
	if err == sql.ErrNoRows {
		return models.Session{}, engine.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, s.fail("get session", err)
	}
	return session, nil
}

func (s *SQL) GetSessionByCode(ctx context.Context, code string) (models.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE code = $1
	`, code))
	if err == sql.ErrNoRows {
		return models.Session{}, engine.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, s.fail("get session by code", err)
	}
	return session, nil
}

func (s *SQL) ListSessionsByOwner(ctx context.Context, ownerID string) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE owner_id = $1
		ORDER BY created_at DESC, id ASC
	`, ownerID)
	if err != nil {
		return nil, s.fail("list sessions", err)
	}
	defer rows.Close()

	out := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, s.fail("scan session", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate sessions", err)
	}
	return out, nil
}

func (s *SQL) TogglePhase(ctx context.Context, sessionID, phase string) (models.Session, error) {
	var column string
	switch phase {
	case models.PhaseUploads:
		column = "upload_phase_open"
	case models.PhaseVoting:
		column = "voting_phase_open"
	default:
		return models.Session{}, fmt.Errorf("%w: unknown phase %q", engine.ErrInvalidInput, phase)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Session{}, s.fail("begin toggle", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE sessions SET `+column+` = NOT `+column+` WHERE id = $1`, sessionID)
	if err != nil {
		return models.Session{}, s.fail("toggle phase", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Session{}, engine.ErrSessionNotFound
	}

	session, err := scanSession(tx.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1
	`, sessionID))
	if err != nil {
		return models.Session{}, s.fail("reload session", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Session{}, s.fail("commit toggle", err)
	}
	return session, nil
}

const participantColumns = `id, session_id, identity, display_name, is_owner, joined_at`

func scanParticipant(row rowScanner) (models.Participant, error) {
	var p models.Participant
	err := row.Scan(&p.ID, &p.SessionID, &p.Identity, &p.DisplayName, &p.IsOwner, &p.JoinedAt)
	return p, err
}

func (s *SQL) AddParticipant(ctx context.Context, p models.Participant) (models.Participant, error) {
	// A concurrent join by the same identity loses the insert and reads the
	// winner's row below
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (`+participantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, identity) DO NOTHING
	`, p.ID, p.SessionID, p.Identity, p.DisplayName, p.IsOwner, p.JoinedAt)
	if err != nil {
		return models.Participant{}, s.fail("insert participant", err)
	}
	return s.GetParticipantByIdentity(ctx, p.SessionID, p.Identity)
}

func (s *SQL) GetParticipant(ctx context.Context, sessionID, participantID string) (models.Participant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx, `
		SELECT `+participantColumns+` FROM participants WHERE id = $1 AND session_id = $2
	`, participantID, sessionID))
	if err == sql.ErrNoRows {
		return models.Participant{}, engine.ErrParticipantNotFound
	}
	if err != nil {
		return models.Participant{}, s.fail("get participant", err)
	}
	return p, nil
}

func (s *SQL) GetParticipantByIdentity(ctx context.Context, sessionID, identity string) (models.Participant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx, `
		SELECT `+participantColumns+` FROM participants WHERE session_id = $1 AND identity = $2
	`, sessionID, identity))
	if err == sql.ErrNoRows {
		return models.Participant{}, engine.ErrParticipantNotFound
	}
	if err != nil {
		return models.Participant{}, s.fail("get participant by identity", err)
	}
	return p, nil
}

// lockParticipant serializes writers for one participant inside tx. Postgres
// takes a row lock; SQLite already runs one writer at a time.
func (s *SQL) lockParticipant(ctx context.Context, tx *sql.Tx, sessionID, participantID string) error {
	query := `SELECT id FROM participants WHERE id = $1 AND session_id = $2`
	if s.dialect == db.DialectPostgres {
		query += ` FOR UPDATE`
	}
	var id string
	err := tx.QueryRowContext(ctx, query, participantID, sessionID).Scan(&id)
	if err == sql.ErrNoRows {
		return engine.ErrParticipantNotFound
	}
	if err != nil {
		return s.fail("lock participant", err)
	}
	return nil
}

func (s *SQL) CountImages(ctx context.Context, sessionID, participantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM images WHERE session_id = $1 AND participant_id = $2
	`, sessionID, participantID).Scan(&n)
	if err != nil {
		return 0, s.fail("count images", err)
	}
	return n, nil
}

func (s *SQL) AddImage(ctx context.Context, img models.Image, maxUploads int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin add image", err)
	}
	defer tx.Rollback()

	if err := s.lockParticipant(ctx, tx, img.SessionID, img.ParticipantID); err != nil {
		return err
	}

	var n int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM images WHERE session_id = $1 AND participant_id = $2
	`, img.SessionID, img.ParticipantID).Scan(&n)
	if err != nil {
		return s.fail("count images", err)
	}
	if n >= maxUploads {
		return engine.ErrUploadQuota
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO images (id, session_id, participant_id, url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, img.ID, img.SessionID, img.ParticipantID, img.URL, img.CreatedAt)
	if err != nil {
		return s.fail("insert image", err)
	}

	if err := tx.Commit(); err != nil {
		return s.fail("commit add image", err)
	}
	return nil
}

const imageColumns = `id, session_id, participant_id, url, created_at`

func scanImage(row rowScanner) (models.Image, error) {
	var img models.Image
	err := row.Scan(&img.ID, &img.SessionID, &img.ParticipantID, &img.URL, &img.CreatedAt)
	return img, err
}

func (s *SQL) GetImage(ctx context.Context, sessionID, imageID string) (models.Image, error) {
	img, err := scanImage(s.db.QueryRowContext(ctx, `
		SELECT `+imageColumns+` FROM images WHERE id = $1 AND session_id = $2
	`, imageID, sessionID))
	if err == sql.ErrNoRows {
		return models.Image{}, engine.ErrImageNotFound
	}
	if err != nil {
		return models.Image{}, s.fail("get image", err)
	}
	return img, nil
}

func (s *SQL) ListImages(ctx context.Context, sessionID string) ([]models.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+` FROM images
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, s.fail("list images", err)
	}
	defer rows.Close()

	out := make([]models.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, s.fail("scan image", err)
		}
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate images", err)
	}
	return out, nil
}

func (s *SQL) AddVote(ctx context.Context, vote models.Vote, maxVotes int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin add vote", err)
	}
	defer tx.Rollback()

	if err := s.lockParticipant(ctx, tx, vote.SessionID, vote.ParticipantID); err != nil {
		return err
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM votes
			WHERE session_id = $1 AND participant_id = $2 AND image_id = $3
		)
	`, vote.SessionID, vote.ParticipantID, vote.ImageID).Scan(&exists)
	if err != nil {
		return s.fail("check vote", err)
	}
	if exists {
		return engine.ErrAlreadyVoted
	}

	var n int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes WHERE session_id = $1 AND participant_id = $2
	`, vote.SessionID, vote.ParticipantID).Scan(&n)
	if err != nil {
		return s.fail("count votes", err)
	}
	if n >= maxVotes {
		return engine.ErrVoteQuota
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO votes (id, session_id, participant_id, image_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, vote.ID, vote.SessionID, vote.ParticipantID, vote.ImageID, vote.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return engine.ErrAlreadyVoted
		}
		return s.fail("insert vote", err)
	}

	if err := tx.Commit(); err != nil {
		return s.fail("commit add vote", err)
	}
	return nil
}

const voteColumns = `id, session_id, participant_id, image_id, created_at`

func scanVote(row rowScanner) (models.Vote, error) {
	var v models.Vote
	err := row.Scan(&v.ID, &v.SessionID, &v.ParticipantID, &v.ImageID, &v.CreatedAt)
	return v, err
}

func (s *SQL) GetVote(ctx context.Context, sessionID, participantID, imageID string) (models.Vote, error) {
	v, err := scanVote(s.db.QueryRowContext(ctx, `
		SELECT `+voteColumns+` FROM votes
		WHERE session_id = $1 AND participant_id = $2 AND image_id = $3
	`, sessionID, participantID, imageID))
	if err == sql.ErrNoRows {
		return models.Vote{}, engine.ErrVoteNotFound
	}
	if err != nil {
		return models.Vote{}, s.fail("get vote", err)
	}
	return v, nil
}

func (s *SQL) DeleteVote(ctx context.Context, sessionID, participantID, imageID string) (models.Vote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, s.fail("begin delete vote", err)
	}
	defer tx.Rollback()

	v, err := scanVote(tx.QueryRowContext(ctx, `
		SELECT `+voteColumns+` FROM votes
		WHERE session_id = $1 AND participant_id = $2 AND image_id = $3
	`, sessionID, participantID, imageID))
	if err == sql.ErrNoRows {
		return models.Vote{}, engine.ErrVoteNotFound
	}
	if err != nil {
		return models.Vote{}, s.fail("get vote", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, v.ID)
	if err != nil {
		return models.Vote{}, s.fail("delete vote", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Vote{}, engine.ErrVoteNotFound
	}

	if err := tx.Commit(); err != nil {
		return models.Vote{}, s.fail("commit delete vote", err)
	}
	return v, nil
}

func (s *SQL) ListVotes(ctx context.Context, sessionID, participantID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+voteColumns+` FROM votes
		WHERE session_id = $1 AND participant_id = $2
		ORDER BY created_at ASC, id ASC
	`, sessionID, participantID)
	if err != nil {
		return nil, s.fail("list votes", err)
	}
	return s.collectVotes(rows)
}

func (s *SQL) ListSessionVotes(ctx context.Context, sessionID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+voteColumns+` FROM votes
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, s.fail("list session votes", err)
	}
	return s.collectVotes(rows)
}

func (s *SQL) collectVotes(rows *sql.Rows) ([]models.Vote, error) {
	defer rows.Close()

	out := make([]models.Vote, 0)
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, s.fail("scan vote", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate votes", err)
	}
	return out, nil
}

func (s *SQL) CountVotes(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT image_id, COUNT(*) FROM votes
		WHERE session_id = $1
		GROUP BY image_id
	`, sessionID)
	if err != nil {
		return nil, s.fail("count votes", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var imageID string
		var n int
		if err := rows.Scan(&imageID, &n); err != nil {
			return nil, s.fail("scan vote count", err)
		}
		counts[imageID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate vote counts", err)
	}
	return counts, nil
}

// fail logs a driver error and wraps it as an upstream failure
func (s *SQL) fail(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Error("sql store operation failed",
		"event", "doudou_store_failed",
		"module", "store",
		"dialect", s.dialect,
		"op", op,
		"error", err.Error(),
	)
	return fmt.Errorf("%s: %w: %w", op, engine.ErrUpstreamFailure, err)
}

// isUniqueViolation reports unique/primary key violations from either driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

var _ engine.Store = (*SQL)(nil)
