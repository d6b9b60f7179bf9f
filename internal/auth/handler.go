package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/server/middleware"
	"docmgmt-backend/internal/shared/server/respond"
	"docmgmt-backend/internal/users"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	FullName string `json:"fullName" binding:"omitempty,max=200"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the credential routes to rg (mounted at /auth).
// authn guards logout.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/refresh-token", h.refresh)
	rg.POST("/logout", authn, h.logout)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid registration payload", validationDetails(err))
		return
	}
	user, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken):
			respond.Error(c, http.StatusConflict, "conflict", "User already exists", nil)
		case errors.Is(err, ErrWeakPassword), errors.Is(err, users.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to register user", nil)
		}
		return
	}
	respond.Created(c, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid login payload", validationDetails(err))
		return
	}
	pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid credentials", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to login", nil)
		return
	}
	respond.OK(c, pair)
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "refreshToken is required", nil)
		return
	}
	access, err := h.Svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid refresh token", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to refresh token", nil)
		return
	}
	respond.OK(c, access)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.UserIDFromContext(c)); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to logout", nil)
		return
	}
	respond.Message(c, http.StatusOK, "Logged out successfully")
}
