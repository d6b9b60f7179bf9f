package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/shared/server/middleware"
	"docmgmt-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches /me and the admin /users routes. rg must already
// run Authenticate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)

	admin := rg.Group("/users", middleware.RequireRoles(auth.RoleAdmin))
	admin.GET("", h.list)
	admin.GET("/:id", h.get)
	admin.PATCH("/:id", h.update)
	admin.DELETE("/:id", h.delete)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, user)
}

func (h *Handler) list(c *gin.Context) {
	users, err := h.Svc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, users)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := respond.PathID(c)
	if !ok {
		return
	}
	user, err := h.Svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, user)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := respond.PathID(c)
	if !ok {
		return
	}
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid request body", nil)
		return
	}
	user, err := h.Svc.Update(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, user)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := respond.PathID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	respond.Message(c, http.StatusOK, "User deleted successfully")
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "conflict", "Email already registered", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to process user request", nil)
	}
}
