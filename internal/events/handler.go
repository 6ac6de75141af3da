package events

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/event-locator/backend/internal/middleware"
	"github.com/event-locator/backend/pkg/response"
)

// Notifier is the scheduling hook the handler fires after event mutations.
// Scheduling is best effort; failures are logged, never surfaced. Cancellation
// on delete is the event store's responsibility, not the handler's.
type Notifier interface {
	ScheduleForEvent(ctx context.Context, eventID int64) error
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	TitleKey       string     `json:"title_key" binding:"required"`
	DescriptionKey string     `json:"description_key"`
	Latitude       *float64   `json:"latitude" binding:"required"`
	Longitude      *float64   `json:"longitude" binding:"required"`
	Address        string     `json:"address" binding:"required"`
	StartTime      time.Time  `json:"start_time" binding:"required"`
	EndTime        *time.Time `json:"end_time"`
	Capacity       *int       `json:"capacity"`
	Price          float64    `json:"price"`
	Categories     []int64    `json:"categories"`
}

// UpdateRequest is the body for PUT /events/:id. Absent fields are untouched;
// a present categories list fully replaces the existing links.
type UpdateRequest struct {
	TitleKey       *string    `json:"title_key"`
	DescriptionKey *string    `json:"description_key"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	Address        *string    `json:"address"`
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	Capacity       *int       `json:"capacity"`
	Price          *float64   `json:"price"`
	Categories     *[]int64   `json:"categories"`
}

// RatingRequest is the body for POST /events/:id/ratings.
type RatingRequest struct {
	Rating int    `json:"rating" binding:"required"`
	Review string `json:"review"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo     *Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(repo *Repository, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, notifier: notifier, logger: logger}
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ev, err := h.repo.Create(c.Request.Context(), Draft{
		TitleKey:       req.TitleKey,
		DescriptionKey: req.DescriptionKey,
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		Address:        req.Address,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Capacity:       req.Capacity,
		Price:          req.Price,
		CreatorID:      userID,
		CategoryIDs:    req.Categories,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.notifier.ScheduleForEvent(c.Request.Context(), ev.ID); err != nil {
		h.logger.Warn("schedule notifications", zap.Int64("event_id", ev.ID), zap.Error(err))
	}

	response.Created(c, ev)
}

// Nearby handles GET /events/nearby?lat&lng&radius&categories.
func (h *Handler) Nearby(c *gin.Context) {
	params, err := ParseSearchParams(c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}
	ranked, err := h.repo.FindNear(c.Request.Context(), params.Center, params.RadiusMeters, params.CategoryIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ranked)
}

// List handles GET /events?categories&from&to.
func (h *Handler) List(c *gin.Context) {
	ids, err := ParseCategoryIDs(c.QueryArray("categories"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filters := ListFilters{CategoryIDs: ids}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			response.BadRequest(c, "invalid from time")
			return
		}
		filters.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			response.BadRequest(c, "invalid to time")
			return
		}
		filters.To = &t
	}

	list, err := h.repo.List(c.Request.Context(), filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := eventID(c)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ev, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ev)
}

// Update handles PUT /events/:id.
func (h *Handler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	id, err := eventID(c)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ev, err := h.repo.Update(c.Request.Context(), id, Patch{
		TitleKey:       req.TitleKey,
		DescriptionKey: req.DescriptionKey,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Address:        req.Address,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Capacity:       req.Capacity,
		Price:          req.Price,
		CategoryIDs:    req.Categories,
	}, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	// a moved start time changes every pending fire time
	if req.StartTime != nil {
		if err := h.notifier.ScheduleForEvent(c.Request.Context(), ev.ID); err != nil {
			h.logger.Warn("reschedule notifications", zap.Int64("event_id", ev.ID), zap.Error(err))
		}
	}

	response.OK(c, ev)
}

// Delete handles DELETE /events/:id. The store cancels pending notification
// deliveries as part of the delete.
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	id, err := eventID(c)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddRating handles POST /events/:id/ratings.
func (h *Handler) AddRating(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	id, err := eventID(c)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rating, err := h.repo.AddRating(c.Request.Context(), id, userID, req.Rating, req.Review)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rating)
}

// ListRatings handles GET /events/:id/ratings.
func (h *Handler) ListRatings(c *gin.Context) {
	id, err := eventID(c)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListRatings(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// AddFavorite handles POST /events/:id/favorite.
func (h *Handler) AddFavorite(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	id, err := eventID(c)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.AddFavorite(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveFavorite handles DELETE /events/:id/favorite.
func (h *Handler) RemoveFavorite(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	id, err := eventID(c)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.RemoveFavorite(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func eventID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
