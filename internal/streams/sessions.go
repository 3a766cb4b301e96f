package streams

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/models"
)

// SessionRepository keeps the live_sessions audit trail.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a live session repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// SessionStarted records a new live session.
func (r *SessionRepository) SessionStarted(ctx context.Context, s models.LiveSession) error {
	const q = `INSERT INTO live_sessions (live_id, stream_id, start_time) VALUES ($1, $2, $3)
		ON CONFLICT (live_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, s.LiveID, s.StreamID, s.StartTime)
	return err
}

// SessionEnded closes a live session with its stop reason and final session tally.
// The row is created if the start was never recorded.
func (r *SessionRepository) SessionEnded(ctx context.Context, s models.LiveSession) error {
	const q = `INSERT INTO live_sessions (live_id, stream_id, start_time, stop_time, stop_reason, left_votes, right_votes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (live_id) DO UPDATE SET stop_time = EXCLUDED.stop_time, stop_reason = EXCLUDED.stop_reason,
			left_votes = EXCLUDED.left_votes, right_votes = EXCLUDED.right_votes`
	_, err := r.pool.Exec(ctx, q, s.LiveID, s.StreamID, s.StartTime, s.StopTime, s.StopReason, s.LeftVotes, s.RightVotes)
	return err
}

// UpdatePeakViewers raises peak_viewers for a session (no-op when viewers <= current peak).
func (r *SessionRepository) UpdatePeakViewers(ctx context.Context, liveID uuid.UUID, viewers int) error {
	const q = `UPDATE live_sessions SET peak_viewers = $1 WHERE live_id = $2 AND $1 > peak_viewers`
	_, err := r.pool.Exec(ctx, q, viewers, liveID)
	return err
}

// ListByStream returns a stream's most recent live sessions.
func (r *SessionRepository) ListByStream(ctx context.Context, streamID uuid.UUID, limit int) ([]models.LiveSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const q = `SELECT live_id, stream_id, start_time, stop_time, stop_reason, left_votes, right_votes, peak_viewers
		FROM live_sessions WHERE stream_id = $1 ORDER BY start_time DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, streamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.LiveSession
	for rows.Next() {
		var s models.LiveSession
		if err := rows.Scan(&s.LiveID, &s.StreamID, &s.StartTime, &s.StopTime, &s.StopReason, &s.LeftVotes, &s.RightVotes, &s.PeakViewers); err != nil {
			return nil, err
		}
		s.IsLive = s.StopTime == nil
		list = append(list, s)
	}
	return list, rows.Err()
}
