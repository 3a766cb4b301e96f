package streams

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/models"
)

// ScheduleRepository persists pending live schedules, one per stream.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a schedule repository.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// SaveSchedule upserts a stream's schedule.
func (r *ScheduleRepository) SaveSchedule(ctx context.Context, s models.LiveSchedule) error {
	const q = `INSERT INTO live_schedules (stream_id, start_at, end_at, auto_start_ai, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (stream_id) DO UPDATE SET start_at = EXCLUDED.start_at, end_at = EXCLUDED.end_at,
			auto_start_ai = EXCLUDED.auto_start_ai, created_at = EXCLUDED.created_at`
	_, err := r.pool.Exec(ctx, q, s.StreamID, s.StartAt, s.EndAt, s.AutoStartAI, s.CreatedAt)
	return err
}

// DeleteSchedule removes a stream's schedule. Deleting a missing one is not an error.
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, streamID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM live_schedules WHERE stream_id = $1`, streamID)
	return err
}

// ListSchedules returns every persisted schedule, earliest first.
func (r *ScheduleRepository) ListSchedules(ctx context.Context) ([]models.LiveSchedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT stream_id, start_at, end_at, auto_start_ai, created_at FROM live_schedules ORDER BY start_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.LiveSchedule
	for rows.Next() {
		var s models.LiveSchedule
		if err := rows.Scan(&s.StreamID, &s.StartAt, &s.EndAt, &s.AutoStartAI, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
