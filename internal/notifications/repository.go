package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/event-locator/backend/internal/models"
	"github.com/event-locator/backend/pkg/apperr"
)

// Repository handles notification persistence and the lookups the scheduler
// and delivery worker need.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EventStart returns the start time of an event, or a NotFound error.
func (r *Repository) EventStart(ctx context.Context, eventID int64) (time.Time, error) {
	var start time.Time
	err := r.pool.QueryRow(ctx, `SELECT start_time FROM events WHERE id = $1`, eventID).Scan(&start)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, apperr.NotFound("event not found")
	}
	if err != nil {
		return time.Time{}, apperr.Server("get event start", err)
	}
	return start, nil
}

// InterestedUserIDs returns the ids of users whose category preferences
// intersect the event's categories.
func (r *Repository) InterestedUserIDs(ctx context.Context, eventID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT p.user_id
		 FROM user_category_preferences p
		 JOIN event_categories ec ON ec.category_id = p.category_id
		 WHERE ec.event_id = $1
		 ORDER BY p.user_id`, eventID)
	if err != nil {
		return nil, apperr.Server("interested users", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Server("scan user id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PairExists reports whether both the user and the event still exist. The
// delivery worker re-checks before persisting, since either side may have
// been deleted while the entry waited.
func (r *Repository) PairExists(ctx context.Context, userID, eventID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1) AND EXISTS (SELECT 1 FROM events WHERE id = $2)`,
		userID, eventID).Scan(&ok)
	if err != nil {
		return false, apperr.Server("check pair", err)
	}
	return ok, nil
}

// Insert persists a delivered notification.
func (r *Repository) Insert(ctx context.Context, userID, eventID int64, messageKey string, scheduledAt time.Time) (*models.Notification, error) {
	const q = `INSERT INTO notifications (user_id, event_id, message_key, is_read, scheduled_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id, user_id, event_id, message_key, is_read, scheduled_at, created_at`
	var n models.Notification
	err := r.pool.QueryRow(ctx, q, userID, eventID, messageKey, scheduledAt).
		Scan(&n.ID, &n.UserID, &n.EventID, &n.MessageKey, &n.IsRead, &n.ScheduledAt, &n.CreatedAt)
	if err != nil {
		return nil, apperr.Server("insert notification", err)
	}
	return &n, nil
}

// ListForUser returns the user's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, event_id, message_key, is_read, scheduled_at, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Server("list notifications", err)
	}
	defer rows.Close()

	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.EventID, &n.MessageKey, &n.IsRead, &n.ScheduledAt, &n.CreatedAt); err != nil {
			return nil, apperr.Server("scan notification", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead marks one of the user's notifications as read.
func (r *Repository) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Server("mark read", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}
