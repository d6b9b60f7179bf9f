package documents

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/shared/server/middleware"
	"docmgmt-backend/internal/shared/server/respond"
	"docmgmt-backend/internal/shared/telemetry"
)

// DefaultMaxUploadBytes caps multipart uploads at 5 MiB.
const DefaultMaxUploadBytes int64 = 5 << 20

// multipartOverhead leaves room for boundaries and part headers.
const multipartOverhead = 64 << 10

var (
	readers = []auth.Role{auth.RoleAdmin, auth.RoleEditor, auth.RoleUser}
	writers = []auth.Role{auth.RoleAdmin, auth.RoleEditor}
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. A non-positive limit uses DefaultMaxUploadBytes.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches document routes to rg (mounted at /documents,
// already authenticated).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", middleware.RequireRoles(writers...), h.upload)
	rg.GET("/download/:id", middleware.RequireRoles(readers...), h.download)
	rg.GET("/:id", middleware.RequireRoles(readers...), h.get)
	rg.GET("/:id/text", middleware.RequireRoles(readers...), h.text)
	rg.GET("", middleware.RequireRoles(readers...), h.list)
	rg.PATCH("/:id", middleware.RequireRoles(writers...), h.update)
	rg.DELETE("/:id", middleware.RequireRoles(writers...), h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		h.tooLarge(c)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Body:         file,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("documentId", doc.ID)
	respond.Created(c, toResponse(doc))
}

func (h *Handler) get(c *gin.Context) {
	id, ok := respond.PathID(c)
	if !ok {
		return
	}
	c.Set("documentId", id)
	doc, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) download(c *gin.Context) {
	id, ok := respond.PathID(c)
	if !ok {
		return
	}
	c.Set("documentId", id)
	doc, rc, err := h.Svc.Open(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Header("Content-Type", ContentTypeFor(doc))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		telemetry.Warn("documents.download_interrupted", map[string]any{
			"document_id": id,
			"error":       err,
		})
	}
}

// TextResponse is the body of GET /documents/:id/text.
type TextResponse struct {
	ID       int64  `json:"id"`
	FileName string `json:"filename"`
	Text     string `json:"text"`
}

func (h *Handler) text(c *gin.Context) {
	id, ok := respond.PathID(c)
	if !ok {
		return
	}
	c.Set("documentId", id)
	doc, text, err := h.Svc.Text(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, TextResponse{ID: doc.ID, FileName: doc.FileName, Text: text})
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponses(docs))
}

func (h *Handler) update(c *gin.Context) {
	id, ok := respond.PathID(c)
	if !ok {
		return
	}
	c.Set("documentId", id)

	var req UpdateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	doc, err := h.Svc.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := respond.PathID(c)
	if !ok {
		return
	}
	c.Set("documentId", id)
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	respond.Message(c, http.StatusOK, "Document deleted successfully")
}

func (h *Handler) tooLarge(c *gin.Context) {
	respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large",
		fmt.Sprintf("file exceeds %d bytes", h.MaxUploadBytes), nil)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, ErrFileMissing):
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
	case errors.Is(err, ErrSourceMissing):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Original file does not exist", nil)
	case errors.Is(err, ErrTargetExists):
		respond.Error(c, http.StatusBadRequest, "validation_error", "A file with that name already exists", nil)
	case errors.Is(err, ErrNotExtractable):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "Document has no extractable text", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), "invalid document input: "), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to process document request", nil)
	}
}
