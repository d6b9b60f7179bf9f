package ingestion

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/server/respond"
)

const maxRequestBody = 1 << 20

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches POST /init to rg (mounted at /ingestion).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/init", h.trigger)
}

func (h *Handler) trigger(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read request body", nil)
		return
	}
	if len(raw) > 0 && !json.Valid(raw) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body must be JSON", nil)
		return
	}

	result, err := h.Svc.TriggerIngestion(c.Request.Context(), json.RawMessage(raw))
	if err != nil {
		var upstream *UpstreamError
		switch {
		case errors.As(err, &upstream):
			status := upstream.Status
			if status < http.StatusBadRequest {
				status = http.StatusBadGateway
			}
			respond.Error(c, status, "upstream_error", "Ingestion backend rejected the request", decodeBody(upstream.Body))
		case errors.Is(err, ErrNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "not_configured", "Ingestion backend is not configured", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "bad_gateway", "Ingestion backend unavailable", nil)
		}
		return
	}
	respond.OK(c, result)
}
