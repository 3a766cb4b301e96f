package participants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/models"
)

// Repository handles participant and vote-record persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participants repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const participantColumns = `id, nick_name, avatar_url, status, vote_times, created_at, updated_at`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	if err := row.Scan(&p.ID, &p.NickName, &p.AvatarURL, &p.Status, &p.VoteTimes, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParticipant returns a participant, or (nil, nil) when unknown.
func (r *Repository) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	p, err := scanParticipant(r.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// Upsert registers a participant or refreshes its profile. Status is never changed here.
func (r *Repository) Upsert(ctx context.Context, p *models.Participant) error {
	const q = `INSERT INTO participants (id, nick_name, avatar_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET nick_name = EXCLUDED.nick_name, avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
		RETURNING status, vote_times, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.ID, p.NickName, p.AvatarURL).
		Scan(&p.Status, &p.VoteTimes, &p.CreatedAt, &p.UpdatedAt)
}

// AppendVoteHistory stores an admitted vote and bumps the participant's vote counter.
// Participants unknown to the directory are created on their first vote.
func (r *Repository) AppendVoteHistory(ctx context.Context, participantID string, rec models.VoteRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `INSERT INTO vote_records (participant_id, stream_id, live_id, side, weight, as_judge, voted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.Exec(ctx, insert, participantID, rec.StreamID, rec.LiveID, string(rec.Side), rec.Weight, rec.AsJudge, rec.At); err != nil {
		return fmt.Errorf("insert vote record: %w", err)
	}
	const bump = `INSERT INTO participants (id, vote_times) VALUES ($1, 1)
		ON CONFLICT (id) DO UPDATE SET vote_times = participants.vote_times + 1, updated_at = NOW()`
	if _, err := tx.Exec(ctx, bump, participantID); err != nil {
		return fmt.Errorf("bump vote times: %w", err)
	}
	return tx.Commit(ctx)
}

// List returns participants newest first, optionally filtered by status, with the total count.
func (r *Repository) List(ctx context.Context, status models.ParticipantStatus, limit, offset int) ([]models.Participant, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + participantColumns + ` FROM participants WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *p)
	}
	return list, total, rows.Err()
}

// SetStatus sets the status of the given participants, creating unknown ones, and returns how many rows changed.
func (r *Repository) SetStatus(ctx context.Context, ids []string, status models.ParticipantStatus) (int, error) {
	const q = `INSERT INTO participants (id, status) SELECT unnest($1::text[]), $2
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`
	tag, err := r.pool.Exec(ctx, q, ids, string(status))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ToggleBan flips a participant between active and banned. Returns (nil, nil) when unknown.
func (r *Repository) ToggleBan(ctx context.Context, id string) (*models.Participant, error) {
	const q = `UPDATE participants
		SET status = CASE WHEN status = 'banned' THEN 'active' ELSE 'banned' END, updated_at = NOW()
		WHERE id = $1 RETURNING ` + participantColumns
	p, err := scanParticipant(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// VotesByParticipant returns a participant's most recent vote records.
func (r *Repository) VotesByParticipant(ctx context.Context, id string, limit int) ([]models.VoteRecord, error) {
	const q = `SELECT participant_id, stream_id, live_id, side, weight, as_judge, voted_at
		FROM vote_records WHERE participant_id = $1 ORDER BY voted_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.VoteRecord
	for rows.Next() {
		var v models.VoteRecord
		var side string
		if err := rows.Scan(&v.ParticipantID, &v.StreamID, &v.LiveID, &side, &v.Weight, &v.AsJudge, &v.At); err != nil {
			return nil, err
		}
		v.Side = models.Side(side)
		list = append(list, v)
	}
	return list, rows.Err()
}

// VotersByStream returns the most recent voters of a stream with their display names.
func (r *Repository) VotersByStream(ctx context.Context, streamID uuid.UUID, limit int) ([]models.Voter, error) {
	const q = `SELECT v.participant_id, COALESCE(p.nick_name, ''), v.side, v.weight, v.voted_at
		FROM vote_records v LEFT JOIN participants p ON p.id = v.participant_id
		WHERE v.stream_id = $1 ORDER BY v.voted_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, streamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Voter
	for rows.Next() {
		var v models.Voter
		var side string
		if err := rows.Scan(&v.ParticipantID, &v.NickName, &side, &v.Weight, &v.At); err != nil {
			return nil, err
		}
		v.Side = models.Side(side)
		list = append(list, v)
	}
	return list, rows.Err()
}
