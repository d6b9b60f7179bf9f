package permissions

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

// RegisterRoutes attaches GET /me/permissions and the admin routes under
// /users/:id/permissions. rg must already run Authenticate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me/permissions", h.mine)

	admin := rg.Group("/users/:id/permissions", middleware.RequireRoles(auth.RoleAdmin))
	admin.GET("", h.list)
	admin.PUT("/:module", h.upsert)
	admin.DELETE("/:module", h.delete)
}

func (h *Handler) mine(c *gin.Context) {
	perms, err := h.Svc.ListForUser(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, perms)
}

func (h *Handler) list(c *gin.Context) {
	userID, ok := respond.PathID(c)
	if !ok {
		return
	}
	perms, err := h.Svc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, perms)
}

func (h *Handler) upsert(c *gin.Context) {
	userID, ok := respond.PathID(c)
	if !ok {
		return
	}
	var flags Flags
	if err := c.ShouldBindJSON(&flags); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	p, err := h.Svc.Upsert(c.Request.Context(), userID, c.Param("module"), flags)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, p)
}

func (h *Handler) delete(c *gin.Context) {
	userID, ok := respond.PathID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("module")); err != nil {
		h.writeError(c, err)
		return
	}
	respond.Message(c, http.StatusOK, "Permission deleted successfully")
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Permission not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to process permission request", nil)
	}
}
