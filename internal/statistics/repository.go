package statistics

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/models"
)

// ActiveUserThreshold is the number of vote records on one date above which a participant counts as active.
const ActiveUserThreshold = 8

const globalTotalKey = "total_votes"

// Repository handles daily and platform-wide vote aggregation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a statistics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccumulateDaily adds a finished session tally to the day totals. Negative deltas are ignored.
func (r *Repository) AccumulateDaily(ctx context.Context, streamID uuid.UUID, date string, leftDelta, rightDelta int) error {
	leftDelta, rightDelta = max(leftDelta, 0), max(rightDelta, 0)
	if leftDelta == 0 && rightDelta == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const day = `INSERT INTO daily_stats (date, left_votes, right_votes) VALUES ($1::date, $2, $3)
		ON CONFLICT (date) DO UPDATE SET
			left_votes = daily_stats.left_votes + EXCLUDED.left_votes,
			right_votes = daily_stats.right_votes + EXCLUDED.right_votes,
			updated_at = NOW()`
	if _, err := tx.Exec(ctx, day, date, leftDelta, rightDelta); err != nil {
		return fmt.Errorf("accumulate daily: %w", err)
	}
	const perStream = `INSERT INTO daily_stream_votes (date, stream_id, left_votes, right_votes) VALUES ($1::date, $2, $3, $4)
		ON CONFLICT (date, stream_id) DO UPDATE SET
			left_votes = daily_stream_votes.left_votes + EXCLUDED.left_votes,
			right_votes = daily_stream_votes.right_votes + EXCLUDED.right_votes`
	if _, err := tx.Exec(ctx, perStream, date, streamID, leftDelta, rightDelta); err != nil {
		return fmt.Errorf("accumulate stream daily: %w", err)
	}
	return tx.Commit(ctx)
}

// IncrementGlobalTotal bumps the all-time vote counter. Non-positive amounts are ignored.
func (r *Repository) IncrementGlobalTotal(ctx context.Context, amount int) error {
	if amount <= 0 {
		return nil
	}
	const q = `INSERT INTO global_counters (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = global_counters.value + EXCLUDED.value`
	_, err := r.pool.Exec(ctx, q, globalTotalKey, amount)
	return err
}

// GlobalTotal returns the all-time vote counter.
func (r *Repository) GlobalTotal(ctx context.Context) (int, error) {
	var v int
	err := r.pool.QueryRow(ctx, `SELECT value FROM global_counters WHERE name = $1`, globalTotalKey).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// Day returns one date's totals with the per-stream breakdown. Unknown dates yield zero totals.
func (r *Repository) Day(ctx context.Context, date string) (*models.DailyStat, error) {
	stat := &models.DailyStat{Date: date, Streams: []models.StreamVotes{}}
	err := r.pool.QueryRow(ctx, `SELECT left_votes, right_votes FROM daily_stats WHERE date = $1::date`, date).
		Scan(&stat.LeftVotes, &stat.RightVotes)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	stat.TotalVotes = stat.LeftVotes + stat.RightVotes

	const q = `SELECT d.stream_id, COALESCE(s.name, ''), d.left_votes, d.right_votes
		FROM daily_stream_votes d LEFT JOIN streams s ON s.id = d.stream_id
		WHERE d.date = $1::date ORDER BY d.left_votes + d.right_votes DESC`
	rows, err := r.pool.Query(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sv models.StreamVotes
		if err := rows.Scan(&sv.StreamID, &sv.Name, &sv.LeftVotes, &sv.RightVotes); err != nil {
			return nil, err
		}
		stat.Streams = append(stat.Streams, sv)
	}
	return stat, rows.Err()
}

// Range returns day totals between from and to inclusive, oldest first, without per-stream breakdown.
func (r *Repository) Range(ctx context.Context, from, to string) ([]models.DailyStat, error) {
	const q = `SELECT to_char(date, 'YYYY-MM-DD'), left_votes, right_votes FROM daily_stats
		WHERE date BETWEEN $1::date AND $2::date ORDER BY date`
	return r.days(ctx, q, from, to)
}

// Recent returns the latest limit day totals, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.DailyStat, error) {
	const q = `SELECT to_char(date, 'YYYY-MM-DD'), left_votes, right_votes FROM daily_stats
		ORDER BY date DESC LIMIT $1`
	return r.days(ctx, q, limit)
}

func (r *Repository) days(ctx context.Context, q string, args ...any) ([]models.DailyStat, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.DailyStat
	for rows.Next() {
		var d models.DailyStat
		if err := rows.Scan(&d.Date, &d.LeftVotes, &d.RightVotes); err != nil {
			return nil, err
		}
		d.TotalVotes = d.LeftVotes + d.RightVotes
		list = append(list, d)
	}
	return list, rows.Err()
}

// ActiveUsers returns participants with more than ActiveUserThreshold vote records on date.
func (r *Repository) ActiveUsers(ctx context.Context, date string) ([]models.ActiveUser, error) {
	const q = `SELECT v.participant_id, COALESCE(p.nick_name, ''), COUNT(*)
		FROM vote_records v LEFT JOIN participants p ON p.id = v.participant_id
		WHERE v.voted_at >= $1::date AND v.voted_at < $1::date + 1
		GROUP BY v.participant_id, p.nick_name
		HAVING COUNT(*) > $2
		ORDER BY COUNT(*) DESC`
	rows, err := r.pool.Query(ctx, q, date, ActiveUserThreshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ActiveUser
	for rows.Next() {
		var u models.ActiveUser
		if err := rows.Scan(&u.ParticipantID, &u.NickName, &u.Votes); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Summary returns the platform-wide headline numbers for today.
func (r *Repository) Summary(ctx context.Context, today string) (models.Summary, error) {
	var s models.Summary
	const q = `SELECT
		COALESCE((SELECT value FROM global_counters WHERE name = $1), 0),
		COALESCE((SELECT left_votes + right_votes FROM daily_stats WHERE date = $2::date), 0),
		(SELECT COUNT(*) FROM participants),
		(SELECT COUNT(*) FROM participants WHERE status = 'banned'),
		(SELECT COUNT(*) FROM streams)`
	err := r.pool.QueryRow(ctx, q, globalTotalKey, today).
		Scan(&s.GlobalTotalVotes, &s.TodayVotes, &s.Participants, &s.BannedUsers, &s.Streams)
	return s, err
}
