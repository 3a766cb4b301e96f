package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-debate/backend/internal/models"
)

// Repository handles admin account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const adminColumns = `id, email, password, name, role, created_at`

func scanAdmin(row pgx.Row) (*models.Admin, error) {
	var a models.Admin
	var role string
	err := row.Scan(&a.ID, &a.Email, &a.Password, &a.Name, &role, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	return &a, nil
}

// GetByID returns an admin by ID, or (nil, nil) when unknown.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	return scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

// GetByEmail returns an admin by email, or (nil, nil) when unknown.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email))
}

// Create inserts an admin account. Returns (nil, nil) when the email is taken.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name string, role models.Role) (*models.Admin, error) {
	const q = `INSERT INTO admins (email, password, name, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING ` + adminColumns
	return scanAdmin(r.pool.QueryRow(ctx, q, email, passwordHash, name, string(role)))
}

// List returns all admin accounts.
func (r *Repository) List(ctx context.Context) ([]models.Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}
