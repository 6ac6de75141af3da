package users

import (
	"github.com/gin-gonic/gin"

	"github.com/event-locator/backend/internal/middleware"
	"github.com/event-locator/backend/pkg/response"
)

// PreferencesRequest is the body for PUT /users/preferences.
type PreferencesRequest struct {
	PreferredLanguage string  `json:"preferred_language"`
	Categories        []int64 `json:"categories"`
}

// LocationRequest is the body for PUT /users/location.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Address   string   `json:"address" binding:"required"`
	IsPrimary *bool    `json:"is_primary"`
}

// Handler handles user preference, location and favorites endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a users handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// UpdatePreferences handles PUT /users/preferences.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.UpdatePreferences(c.Request.Context(), userID, req.PreferredLanguage, req.Categories); err != nil {
		response.Error(c, err)
		return
	}
	cats, err := h.repo.ListPreferredCategories(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"categories": cats})
}

// SetLocation handles PUT /users/location. New locations default to primary,
// matching the behavior of saving "my location" from a client.
func (h *Handler) SetLocation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	isPrimary := true
	if req.IsPrimary != nil {
		isPrimary = *req.IsPrimary
	}
	loc, err := h.repo.SetLocation(c.Request.Context(), userID, *req.Latitude, *req.Longitude, req.Address, isPrimary)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, loc)
}

// GetLocation handles GET /users/location, returning the primary location.
func (h *Handler) GetLocation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	loc, err := h.repo.PrimaryLocation(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, loc)
}

// ListLocations handles GET /users/locations.
func (h *Handler) ListLocations(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	list, err := h.repo.ListLocations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ListFavorites handles GET /users/favorites.
func (h *Handler) ListFavorites(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	list, err := h.repo.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
