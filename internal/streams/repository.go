package streams

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/models"
)

const streamColumns = `id, name, url, type, description, enabled, created_at, updated_at`

// Repository handles stream persistence. It is the stream directory of the live coordinator.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a stream repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new stream.
func (r *Repository) Create(ctx context.Context, s *models.Stream) error {
	const q = `INSERT INTO streams (id, name, url, type, description, enabled)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.Name, s.URL, s.Type, s.Description, s.Enabled).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Update overwrites the editable fields of a stream. Returns false if it does not exist.
func (r *Repository) Update(ctx context.Context, s *models.Stream) (bool, error) {
	const q = `UPDATE streams SET name = $2, url = $3, type = $4, description = $5, enabled = $6, updated_at = NOW()
		WHERE id = $1 RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.ID, s.Name, s.URL, s.Type, s.Description, s.Enabled).Scan(&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SetEnabled flips a stream's enabled flag and returns the updated stream (nil if unknown).
func (r *Repository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*models.Stream, error) {
	q := `UPDATE streams SET enabled = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + streamColumns
	return scanOne(r.pool.QueryRow(ctx, q, id, enabled))
}

// Delete removes a stream. Returns false if it does not exist.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM streams WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetStream returns a stream by ID, or (nil, nil) if unknown.
func (r *Repository) GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error) {
	q := `SELECT ` + streamColumns + ` FROM streams WHERE id = $1`
	return scanOne(r.pool.QueryRow(ctx, q, id))
}

// List returns every stream, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Stream, error) {
	return r.list(ctx, `SELECT `+streamColumns+` FROM streams ORDER BY created_at DESC`)
}

// ListEnabledStreams returns the streams that may go live.
func (r *Repository) ListEnabledStreams(ctx context.Context) ([]models.Stream, error) {
	return r.list(ctx, `SELECT `+streamColumns+` FROM streams WHERE enabled ORDER BY created_at`)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.Stream, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Stream
	for rows.Next() {
		var s models.Stream
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.Type, &s.Description, &s.Enabled, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanOne(row pgx.Row) (*models.Stream, error) {
	var s models.Stream
	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.Type, &s.Description, &s.Enabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
