package votes

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/live"
)

// Repository persists the per-stream persistent tally so it survives restarts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a votes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadTallies returns every stored persistent tally, keyed by stream.
func (r *Repository) LoadTallies(ctx context.Context) (map[uuid.UUID]live.Tally, error) {
	rows, err := r.pool.Query(ctx, `SELECT stream_id, left_votes, right_votes FROM vote_tallies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]live.Tally)
	for rows.Next() {
		var id uuid.UUID
		var t live.Tally
		if err := rows.Scan(&id, &t.LeftVotes, &t.RightVotes); err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, rows.Err()
}

// SaveTally overwrites a stream's persistent tally.
func (r *Repository) SaveTally(ctx context.Context, streamID uuid.UUID, left, right int) error {
	const q = `INSERT INTO vote_tallies (stream_id, left_votes, right_votes) VALUES ($1, $2, $3)
		ON CONFLICT (stream_id) DO UPDATE SET left_votes = EXCLUDED.left_votes, right_votes = EXCLUDED.right_votes, updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q, streamID, left, right)
	return err
}
