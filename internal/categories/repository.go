package categories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/event-locator/backend/internal/models"
	"github.com/event-locator/backend/pkg/apperr"
)

// Repository handles category persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a category repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a category. Duplicate name keys yield a Conflict error.
func (r *Repository) Create(ctx context.Context, nameKey, icon string) (*models.Category, error) {
	const q = `INSERT INTO categories (name_key, icon) VALUES ($1, NULLIF($2,''))
		RETURNING id, name_key, COALESCE(icon,''), created_at, updated_at`
	var cat models.Category
	err := r.pool.QueryRow(ctx, q, nameKey, icon).
		Scan(&cat.ID, &cat.NameKey, &cat.Icon, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict("category name already exists")
		}
		return nil, apperr.Server("create category", err)
	}
	return &cat, nil
}

// GetByID returns a category by id, or a NotFound error.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	const q = `SELECT id, name_key, COALESCE(icon,''), created_at, updated_at FROM categories WHERE id = $1`
	var cat models.Category
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&cat.ID, &cat.NameKey, &cat.Icon, &cat.CreatedAt, &cat.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("category not found")
	}
	if err != nil {
		return nil, apperr.Server("get category", err)
	}
	return &cat, nil
}

// List returns all categories ordered by name key.
func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name_key, COALESCE(icon,''), created_at, updated_at FROM categories ORDER BY name_key`)
	if err != nil {
		return nil, apperr.Server("list categories", err)
	}
	defer rows.Close()

	var list []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.NameKey, &cat.Icon, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, apperr.Server("scan category", err)
		}
		list = append(list, cat)
	}
	return list, rows.Err()
}

// Update modifies a category's name key and icon.
func (r *Repository) Update(ctx context.Context, id int64, nameKey, icon string) (*models.Category, error) {
	const q = `UPDATE categories SET name_key = COALESCE(NULLIF($1,''), name_key), icon = NULLIF($2,''), updated_at = NOW()
		WHERE id = $3
		RETURNING id, name_key, COALESCE(icon,''), created_at, updated_at`
	var cat models.Category
	err := r.pool.QueryRow(ctx, q, nameKey, icon, id).
		Scan(&cat.ID, &cat.NameKey, &cat.Icon, &cat.CreatedAt, &cat.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("category not found")
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict("category name already exists")
		}
		return nil, apperr.Server("update category", err)
	}
	return &cat, nil
}

// Delete removes a category; links to events and preferences cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return apperr.Server("delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("category not found")
	}
	return nil
}
