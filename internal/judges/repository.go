package judges

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/models"
)

// Repository handles judge panel persistence. It is the judge configuration of the live coordinator.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a judges repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetJudges returns a stream's judge panel in position order.
func (r *Repository) GetJudges(ctx context.Context, streamID uuid.UUID) ([]models.Judge, error) {
	const q = `SELECT id, name, role, avatar, vote_weight, participant_id
		FROM judges WHERE stream_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, q, streamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Judge
	for rows.Next() {
		var j models.Judge
		if err := rows.Scan(&j.ID, &j.Name, &j.Role, &j.Avatar, &j.VoteWeight, &j.ParticipantID); err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

// ReplaceJudges swaps a stream's whole panel in one transaction.
func (r *Repository) ReplaceJudges(ctx context.Context, streamID uuid.UUID, judges []models.Judge) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM judges WHERE stream_id = $1`, streamID); err != nil {
		return fmt.Errorf("clear judges: %w", err)
	}
	const q = `INSERT INTO judges (stream_id, position, id, name, role, avatar, vote_weight, participant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, j := range judges {
		if _, err := tx.Exec(ctx, q, streamID, i, j.ID, j.Name, j.Role, j.Avatar, j.VoteWeight, j.ParticipantID); err != nil {
			return fmt.Errorf("insert judge %s: %w", j.ID, err)
		}
	}
	return tx.Commit(ctx)
}
