package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/event-locator/backend/internal/geo"
	"github.com/event-locator/backend/internal/models"
	"github.com/event-locator/backend/pkg/apperr"
)

// Repository handles user preference, location and favorites persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpdatePreferences replaces the user's category preference set and/or
// preferred language. Nil categoryIDs leaves the set untouched; empty
// language leaves the language untouched.
func (r *Repository) UpdatePreferences(ctx context.Context, userID int64, language string, categoryIDs []int64) error {
	if language != "" && !models.SupportedLanguages[language] {
		return apperr.Validation("invalid language preference")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Server("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return apperr.Server("check user", err)
	}
	if !exists {
		return apperr.NotFound("user not found")
	}

	if language != "" {
		if _, err := tx.Exec(ctx, `UPDATE users SET preferred_language = $1, updated_at = NOW() WHERE id = $2`, language, userID); err != nil {
			return apperr.Server("update language", err)
		}
	}

	if categoryIDs != nil {
		var n int
		if err := tx.QueryRow(ctx, `SELECT COUNT(DISTINCT id) FROM categories WHERE id = ANY($1)`, categoryIDs).Scan(&n); err != nil {
			return apperr.Server("verify categories", err)
		}
		distinct := make(map[int64]struct{}, len(categoryIDs))
		for _, id := range categoryIDs {
			distinct[id] = struct{}{}
		}
		if n != len(distinct) {
			return apperr.NotFound("one or more categories not found")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_category_preferences WHERE user_id = $1`, userID); err != nil {
			return apperr.Server("clear preferences", err)
		}
		for id := range distinct {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_category_preferences (user_id, category_id) VALUES ($1, $2)`, userID, id); err != nil {
				return apperr.Server("insert preference", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Server("commit", err)
	}
	return nil
}

// ListPreferredCategories returns the user's preferred categories.
func (r *Repository) ListPreferredCategories(ctx context.Context, userID int64) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name_key, COALESCE(c.icon,''), c.created_at, c.updated_at
		 FROM user_category_preferences p
		 JOIN categories c ON c.id = p.category_id
		 WHERE p.user_id = $1 ORDER BY c.name_key`, userID)
	if err != nil {
		return nil, apperr.Server("list preferences", err)
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

// SetLocation inserts a location for the user. When the location is primary,
// every other location of the user is demoted in the same transaction, so at
// most one primary location is ever observable.
func (r *Repository) SetLocation(ctx context.Context, userID int64, lat, lng float64, address string, isPrimary bool) (*models.UserLocation, error) {
	if !geo.Valid(lat, lng) {
		return nil, apperr.Validation("invalid coordinates")
	}
	if address == "" {
		return nil, apperr.Validation("address is required")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Server("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if isPrimary {
		if _, err := tx.Exec(ctx,
			`UPDATE user_locations SET is_primary = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_primary`, userID); err != nil {
			return nil, apperr.Server("demote primary locations", err)
		}
	}

	const q = `INSERT INTO user_locations (user_id, latitude, longitude, address, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, latitude, longitude, address, is_primary, created_at, updated_at`
	var loc models.UserLocation
	err = tx.QueryRow(ctx, q, userID, lat, lng, address, isPrimary).
		Scan(&loc.ID, &loc.UserID, &loc.Latitude, &loc.Longitude, &loc.Address, &loc.IsPrimary, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return nil, apperr.Server("insert location", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Server("commit", err)
	}
	return &loc, nil
}

// ListLocations returns the user's locations, primary first.
func (r *Repository) ListLocations(ctx context.Context, userID int64) ([]models.UserLocation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, latitude, longitude, address, is_primary, created_at, updated_at
		 FROM user_locations WHERE user_id = $1 ORDER BY is_primary DESC, created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Server("list locations", err)
	}
	defer rows.Close()

	var list []models.UserLocation
	for rows.Next() {
		var loc models.UserLocation
		if err := rows.Scan(&loc.ID, &loc.UserID, &loc.Latitude, &loc.Longitude, &loc.Address, &loc.IsPrimary, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, apperr.Server("scan location", err)
		}
		list = append(list, loc)
	}
	return list, rows.Err()
}

// PrimaryLocation returns the user's primary location, or a NotFound error.
func (r *Repository) PrimaryLocation(ctx context.Context, userID int64) (*models.UserLocation, error) {
	const q = `SELECT id, user_id, latitude, longitude, address, is_primary, created_at, updated_at
		FROM user_locations WHERE user_id = $1 AND is_primary`
	var loc models.UserLocation
	err := r.pool.QueryRow(ctx, q, userID).
		Scan(&loc.ID, &loc.UserID, &loc.Latitude, &loc.Longitude, &loc.Address, &loc.IsPrimary, &loc.CreatedAt, &loc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no primary location set")
	}
	if err != nil {
		return nil, apperr.Server("get primary location", err)
	}
	return &loc, nil
}

// ListFavorites returns the user's favorite events, most recently added first.
func (r *Repository) ListFavorites(ctx context.Context, userID int64) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.title_key, COALESCE(e.description_key,''), e.latitude, e.longitude, e.address,
			e.start_time, e.end_time, e.capacity, e.price, e.creator_id, e.created_at, e.updated_at
		 FROM user_favorites f
		 JOIN events e ON e.id = f.event_id
		 WHERE f.user_id = $1 ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Server("list favorites", err)
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.TitleKey, &ev.DescriptionKey, &ev.Latitude, &ev.Longitude, &ev.Address,
			&ev.StartTime, &ev.EndTime, &ev.Capacity, &ev.Price, &ev.CreatorID, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, apperr.Server("scan event", err)
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}
