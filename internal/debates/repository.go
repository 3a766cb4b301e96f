package debates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/models"
)

const debateColumns = `d.id, d.title, d.description, d.left_position, d.right_position, d.is_active, d.created_at, d.updated_at`

// Repository handles debate topics, their stream links and the per-stream debate flow.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a debates repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new debate.
func (r *Repository) Create(ctx context.Context, d *models.Debate) error {
	const q = `INSERT INTO debates (title, description, left_position, right_position, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, d.Title, d.Description, d.LeftPosition, d.RightPosition, d.IsActive).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// Update overwrites a debate's fields. Returns false if it does not exist.
func (r *Repository) Update(ctx context.Context, d *models.Debate) (bool, error) {
	const q = `UPDATE debates SET title = $2, description = $3, left_position = $4, right_position = $5,
		is_active = $6, updated_at = NOW() WHERE id = $1 RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, d.ID, d.Title, d.Description, d.LeftPosition, d.RightPosition, d.IsActive).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes a debate and its stream links. Returns false if it does not exist.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM debates WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Get returns a debate by ID, or (nil, nil) if unknown.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Debate, error) {
	q := `SELECT ` + debateColumns + ` FROM debates d WHERE d.id = $1`
	return scanDebate(r.pool.QueryRow(ctx, q, id))
}

// List returns every debate, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Debate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+debateColumns+` FROM debates d ORDER BY d.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Debate
	for rows.Next() {
		var d models.Debate
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &d.LeftPosition, &d.RightPosition, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// ForStream returns the debate linked to a stream, or (nil, nil) if none is.
func (r *Repository) ForStream(ctx context.Context, streamID uuid.UUID) (*models.Debate, error) {
	q := `SELECT ` + debateColumns + ` FROM stream_debates sd JOIN debates d ON d.id = sd.debate_id WHERE sd.stream_id = $1`
	return scanDebate(r.pool.QueryRow(ctx, q, streamID))
}

// Link points a stream at a debate, replacing any previous link.
func (r *Repository) Link(ctx context.Context, streamID, debateID uuid.UUID) error {
	const q = `INSERT INTO stream_debates (stream_id, debate_id) VALUES ($1, $2)
		ON CONFLICT (stream_id) DO UPDATE SET debate_id = EXCLUDED.debate_id, linked_at = NOW()`
	_, err := r.pool.Exec(ctx, q, streamID, debateID)
	return err
}

// Unlink removes a stream's debate link. Returns false if there was none.
func (r *Repository) Unlink(ctx context.Context, streamID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stream_debates WHERE stream_id = $1`, streamID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CreateForStream inserts a debate and links it to the stream in one transaction.
func (r *Repository) CreateForStream(ctx context.Context, streamID uuid.UUID, d *models.Debate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO debates (title, description, left_position, right_position, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert, d.Title, d.Description, d.LeftPosition, d.RightPosition, d.IsActive).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return fmt.Errorf("insert debate: %w", err)
	}
	const link = `INSERT INTO stream_debates (stream_id, debate_id) VALUES ($1, $2)
		ON CONFLICT (stream_id) DO UPDATE SET debate_id = EXCLUDED.debate_id, linked_at = NOW()`
	if _, err := tx.Exec(ctx, link, streamID, d.ID); err != nil {
		return fmt.Errorf("link debate: %w", err)
	}
	return tx.Commit(ctx)
}

// GetFlow returns a stream's saved flow, or nil if none is saved.
func (r *Repository) GetFlow(ctx context.Context, streamID uuid.UUID) ([]models.FlowSegment, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT segments FROM debate_flows WHERE stream_id = $1`, streamID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var segments []models.FlowSegment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	return segments, nil
}

// SaveFlow replaces a stream's flow.
func (r *Repository) SaveFlow(ctx context.Context, streamID uuid.UUID, segments []models.FlowSegment) error {
	raw, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	const q = `INSERT INTO debate_flows (stream_id, segments) VALUES ($1, $2)
		ON CONFLICT (stream_id) DO UPDATE SET segments = EXCLUDED.segments, updated_at = NOW()`
	_, err = r.pool.Exec(ctx, q, streamID, raw)
	return err
}

func scanDebate(row pgx.Row) (*models.Debate, error) {
	var d models.Debate
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.LeftPosition, &d.RightPosition, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
