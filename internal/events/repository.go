package events

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/event-locator/backend/internal/geo"
	"github.com/event-locator/backend/internal/models"
	"github.com/event-locator/backend/pkg/apperr"
)

// Canceller removes pending notification deliveries for an event.
type Canceller interface {
	CancelForEvent(ctx context.Context, eventID int64) error
}

// Repository is the event store: events, category links, ratings, favorites,
// and the proximity search they back.
type Repository struct {
	pool      *pgxpool.Pool
	canceller Canceller
	logger    *zap.Logger
}

// NewRepository creates an event repository. canceller may be nil when no
// notification pipeline is wired.
func NewRepository(pool *pgxpool.Pool, canceller Canceller, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, canceller: canceller, logger: logger}
}

// Draft holds the fields required to create an event.
type Draft struct {
	TitleKey       string
	DescriptionKey string
	Latitude       float64
	Longitude      float64
	Address        string
	StartTime      time.Time
	EndTime        *time.Time
	Capacity       *int
	Price          float64
	CreatorID      int64
	CategoryIDs    []int64
}

// Patch holds optional updates; nil fields are left untouched. A non-nil
// CategoryIDs fully replaces the existing category links.
type Patch struct {
	TitleKey       *string
	DescriptionKey *string
	Latitude       *float64
	Longitude      *float64
	Address        *string
	StartTime      *time.Time
	EndTime        *time.Time
	Capacity       *int
	Price          *float64
	CategoryIDs    *[]int64
}

// ListFilters narrows List results.
type ListFilters struct {
	CategoryIDs []int64
	From        *time.Time
	To          *time.Time
}

const eventColumns = `id, title_key, COALESCE(description_key,''), latitude, longitude, address,
	start_time, end_time, capacity, price, creator_id, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(&ev.ID, &ev.TitleKey, &ev.DescriptionKey, &ev.Latitude, &ev.Longitude, &ev.Address,
		&ev.StartTime, &ev.EndTime, &ev.Capacity, &ev.Price, &ev.CreatorID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func validateDraft(d Draft) error {
	switch {
	case d.TitleKey == "":
		return apperr.Validation("title is required")
	case d.Address == "":
		return apperr.Validation("address is required")
	case d.StartTime.IsZero():
		return apperr.Validation("start_time is required")
	case !geo.Valid(d.Latitude, d.Longitude):
		return apperr.Validation("invalid coordinates")
	case d.Capacity != nil && *d.Capacity < 0:
		return apperr.Validation("capacity must be non-negative")
	case d.Price < 0:
		return apperr.Validation("price must be non-negative")
	}
	return validateWindow(d.StartTime, d.EndTime)
}

// validateWindow rejects a time window whose end precedes its start.
func validateWindow(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return apperr.Validation("end_time must not precede start_time")
	}
	return nil
}

// Create validates and inserts an event with its category links in one
// transaction. Unknown category ids yield a NotFound error.
func (r *Repository) Create(ctx context.Context, d Draft) (*models.Event, error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Server("begin tx", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO events (title_key, description_key, latitude, longitude, address, start_time, end_time, capacity, price, creator_id)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + eventColumns
	ev, err := scanEvent(tx.QueryRow(ctx, q,
		d.TitleKey, d.DescriptionKey, d.Latitude, d.Longitude, d.Address,
		d.StartTime, d.EndTime, d.Capacity, d.Price, d.CreatorID))
	if err != nil {
		return nil, apperr.Server("insert event", err)
	}

	if err := replaceCategoryLinks(ctx, tx, ev.ID, d.CategoryIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Server("commit", err)
	}

	if err := r.attachCategories(ctx, []*models.Event{ev}); err != nil {
		return nil, err
	}
	return ev, nil
}

// replaceCategoryLinks deletes existing links and inserts the given set after
// verifying every id exists.
func replaceCategoryLinks(ctx context.Context, tx pgx.Tx, eventID int64, categoryIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM event_categories WHERE event_id = $1`, eventID); err != nil {
		return apperr.Server("clear category links", err)
	}
	categoryIDs = dedupe(categoryIDs)
	if len(categoryIDs) == 0 {
		return nil
	}
	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE id = ANY($1)`, categoryIDs).Scan(&n); err != nil {
		return apperr.Server("verify categories", err)
	}
	if n != len(categoryIDs) {
		return apperr.NotFound("one or more categories not found")
	}
	for _, catID := range categoryIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_categories (event_id, category_id) VALUES ($1, $2)`,
			eventID, catID); err != nil {
			return apperr.Server("link category", err)
		}
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// GetByID returns an event with its categories, average rating and favorite
// count, or a NotFound error.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	const q = `SELECT ` + eventColumns + `,
		(SELECT AVG(er.rating)::float8 FROM event_ratings er WHERE er.event_id = events.id),
		(SELECT COUNT(*) FROM user_favorites uf WHERE uf.event_id = events.id)
		FROM events WHERE id = $1`
	var ev models.Event
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&ev.ID, &ev.TitleKey, &ev.DescriptionKey, &ev.Latitude, &ev.Longitude, &ev.Address,
		&ev.StartTime, &ev.EndTime, &ev.Capacity, &ev.Price, &ev.CreatorID, &ev.CreatedAt, &ev.UpdatedAt,
		&ev.AvgRating, &ev.FavoriteCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event not found")
	}
	if err != nil {
		return nil, apperr.Server("get event", err)
	}
	if err := r.attachCategories(ctx, []*models.Event{&ev}); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Update applies a patch to an event. Only the creator may update.
func (r *Repository) Update(ctx context.Context, id int64, p Patch, requesterID int64) (*models.Event, error) {
	if p.Latitude != nil || p.Longitude != nil {
		if p.Latitude == nil || p.Longitude == nil {
			return nil, apperr.Validation("latitude and longitude must be updated together")
		}
		if !geo.Valid(*p.Latitude, *p.Longitude) {
			return nil, apperr.Validation("invalid coordinates")
		}
	}
	if p.Capacity != nil && *p.Capacity < 0 {
		return nil, apperr.Validation("capacity must be non-negative")
	}
	if p.Price != nil && *p.Price < 0 {
		return nil, apperr.Validation("price must be non-negative")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Server("begin tx", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event not found")
	}
	if err != nil {
		return nil, apperr.Server("get event", err)
	}
	if current.CreatorID != requesterID {
		return nil, apperr.Authorization("only the creator may update this event")
	}

	// check the window as it will look after the patch, so a moved start_time
	// against a kept end_time fails validation instead of the schema CHECK
	start := current.StartTime
	if p.StartTime != nil {
		start = *p.StartTime
	}
	end := current.EndTime
	if p.EndTime != nil {
		end = p.EndTime
	}
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}

	const q = `UPDATE events SET
			title_key = COALESCE($1, title_key),
			description_key = COALESCE($2, description_key),
			latitude = COALESCE($3, latitude),
			longitude = COALESCE($4, longitude),
			address = COALESCE($5, address),
			start_time = COALESCE($6, start_time),
			end_time = COALESCE($7, end_time),
			capacity = COALESCE($8, capacity),
			price = COALESCE($9, price),
			updated_at = NOW()
		WHERE id = $10
		RETURNING ` + eventColumns
	ev, err := scanEvent(tx.QueryRow(ctx, q,
		p.TitleKey, p.DescriptionKey, p.Latitude, p.Longitude, p.Address,
		p.StartTime, p.EndTime, p.Capacity, p.Price, id))
	if err != nil {
		return nil, apperr.Server("update event", err)
	}

	if p.CategoryIDs != nil {
		if err := replaceCategoryLinks(ctx, tx, id, *p.CategoryIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Server("commit", err)
	}

	if err := r.attachCategories(ctx, []*models.Event{ev}); err != nil {
		return nil, err
	}
	return ev, nil
}

// Delete removes an event; ratings, favorites and category links cascade at
// the schema level. Only the creator may delete. Pending notification
// deliveries for the event are cancelled best effort; the worker's existence
// re-check remains the backstop.
func (r *Repository) Delete(ctx context.Context, id, requesterID int64) error {
	var creatorID int64
	err := r.pool.QueryRow(ctx, `SELECT creator_id FROM events WHERE id = $1`, id).Scan(&creatorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("event not found")
	}
	if err != nil {
		return apperr.Server("get event", err)
	}
	if creatorID != requesterID {
		return apperr.Authorization("only the creator may delete this event")
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return apperr.Server("delete event", err)
	}
	if r.canceller != nil {
		if err := r.canceller.CancelForEvent(ctx, id); err != nil {
			r.logger.Warn("cancel pending notifications", zap.Int64("event_id", id), zap.Error(err))
		}
	}
	return nil
}

// FindNear returns events within radiusMeters of center, ordered ascending by
// exact great-circle distance with id tie-break. When categoryIDs is
// non-empty, only events linked to at least one of them qualify. The SQL
// query prefilters candidates with a conservative bounding box; the exact
// radius filter and ordering happen in rankByDistance.
func (r *Repository) FindNear(ctx context.Context, center geo.Point, radiusMeters float64, categoryIDs []int64) ([]models.RankedEvent, error) {
	minLat, maxLat, minLng, maxLng := geo.BoundingBox(center, radiusMeters)

	q := `SELECT ` + eventColumns + ` FROM events
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4`
	args := []interface{}{minLat, maxLat, minLng, maxLng}
	if len(categoryIDs) > 0 {
		q += ` AND EXISTS (SELECT 1 FROM event_categories ec WHERE ec.event_id = events.id AND ec.category_id = ANY($5))`
		args = append(args, categoryIDs)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Server("find near", err)
	}
	defer rows.Close()

	var candidates []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, apperr.Server("scan event", err)
		}
		candidates = append(candidates, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Server("find near", err)
	}

	ranked := rankByDistance(center, radiusMeters, candidates)

	refs := make([]*models.Event, len(ranked))
	for i := range ranked {
		refs[i] = &ranked[i].Event
	}
	if err := r.attachCategories(ctx, refs); err != nil {
		return nil, err
	}
	return ranked, nil
}

// List returns events matching the filters, ordered by start_time ascending.
func (r *Repository) List(ctx context.Context, f ListFilters) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE TRUE`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(f.CategoryIDs) > 0 {
		q += ` AND EXISTS (SELECT 1 FROM event_categories ec WHERE ec.event_id = events.id AND ec.category_id = ANY(` + arg(f.CategoryIDs) + `))`
	}
	if f.From != nil {
		q += ` AND start_time >= ` + arg(*f.From)
	}
	if f.To != nil {
		q += ` AND start_time <= ` + arg(*f.To)
	}
	q += ` ORDER BY start_time ASC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Server("list events", err)
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, apperr.Server("scan event", err)
		}
		list = append(list, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Server("list events", err)
	}

	refs := make([]*models.Event, len(list))
	for i := range list {
		refs[i] = &list[i]
	}
	if err := r.attachCategories(ctx, refs); err != nil {
		return nil, err
	}
	return list, nil
}

// AddRating records a user's rating of an event. Ratings are unique per
// (user, event); a second attempt yields a Conflict error and leaves the
// first rating unchanged.
func (r *Repository) AddRating(ctx context.Context, eventID, userID int64, rating int, review string) (*models.EventRating, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	const q = `INSERT INTO event_ratings (event_id, user_id, rating, review)
		VALUES ($1, $2, $3, NULLIF($4,''))
		RETURNING id, event_id, user_id, rating, COALESCE(review,''), created_at`
	var er models.EventRating
	err := r.pool.QueryRow(ctx, q, eventID, userID, rating, review).
		Scan(&er.ID, &er.EventID, &er.UserID, &er.Rating, &er.Review, &er.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, apperr.Conflict("you have already rated this event")
			case "23503":
				return nil, apperr.NotFound("event not found")
			}
		}
		return nil, apperr.Server("add rating", err)
	}
	return &er, nil
}

// ListRatings returns all ratings for an event, newest first.
func (r *Repository) ListRatings(ctx context.Context, eventID int64) ([]models.EventRating, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, user_id, rating, COALESCE(review,''), created_at
		 FROM event_ratings WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, apperr.Server("list ratings", err)
	}
	defer rows.Close()

	var list []models.EventRating
	for rows.Next() {
		var er models.EventRating
		if err := rows.Scan(&er.ID, &er.EventID, &er.UserID, &er.Rating, &er.Review, &er.CreatedAt); err != nil {
			return nil, apperr.Server("scan rating", err)
		}
		list = append(list, er)
	}
	return list, rows.Err()
}

// AddFavorite marks an event as a favorite of the user. Idempotent.
func (r *Repository) AddFavorite(ctx context.Context, eventID, userID int64) error {
	const q = `INSERT INTO user_favorites (user_id, event_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, q, userID, eventID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.NotFound("event not found")
		}
		return apperr.Server("add favorite", err)
	}
	return nil
}

// RemoveFavorite removes the favorite membership. Idempotent.
func (r *Repository) RemoveFavorite(ctx context.Context, eventID, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_favorites WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	if err != nil {
		return apperr.Server("remove favorite", err)
	}
	return nil
}

// attachCategories loads and attaches category lists for the given events.
func (r *Repository) attachCategories(ctx context.Context, evs []*models.Event) error {
	if len(evs) == 0 {
		return nil
	}
	ids := make([]int64, len(evs))
	byID := make(map[int64][]*models.Event, len(evs))
	for i, ev := range evs {
		ids[i] = ev.ID
		byID[ev.ID] = append(byID[ev.ID], ev)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ec.event_id, c.id, c.name_key, COALESCE(c.icon,''), c.created_at, c.updated_at
		 FROM event_categories ec
		 JOIN categories c ON c.id = ec.category_id
		 WHERE ec.event_id = ANY($1)
		 ORDER BY c.name_key`, ids)
	if err != nil {
		return apperr.Server("load categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID int64
		var cat models.Category
		if err := rows.Scan(&eventID, &cat.ID, &cat.NameKey, &cat.Icon, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return apperr.Server("scan category", err)
		}
		for _, ev := range byID[eventID] {
			ev.Categories = append(ev.Categories, cat)
		}
	}
	return rows.Err()
}
