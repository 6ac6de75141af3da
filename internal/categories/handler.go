package categories

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/event-locator/backend/pkg/response"
)

// CategoryRequest is the body for creating or updating a category.
type CategoryRequest struct {
	NameKey string `json:"name_key" binding:"required"`
	Icon    string `json:"icon"`
}

// Handler handles category HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a category handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Create handles POST /categories.
func (h *Handler) Create(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cat, err := h.repo.Create(c.Request.Context(), req.NameKey, req.Icon)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cat)
}

// List handles GET /categories.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /categories/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	cat, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cat)
}

// Update handles PUT /categories/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cat, err := h.repo.Update(c.Request.Context(), id, req.NameKey, req.Icon)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cat)
}

// Delete handles DELETE /categories/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
