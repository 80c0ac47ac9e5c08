// Package handler exposes lead exports over HTTP.
package handler

import (
	"net/http"
	"strings"
	"time"

	"trafficpool_backend/internal/exports/service"
	tptransport "trafficpool_backend/internal/trafficpool/transport"
	"trafficpool_backend/platform/httpkit"
	"trafficpool_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// ExportRequest reuses the traffic pool filter shape; pagination fields
// are ignored since exports always cover the full match set.
type ExportRequest struct {
	tptransport.QueryRequest
}

// ExportResponse points the caller at the finished CSV.
type ExportResponse struct {
	FileKey   string    `json:"fileKey"`
	Rows      int       `json:"rows"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Handler handles export HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new exports handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts export routes on the given group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/leads", h.HandleExportLeads)
	g.GET("/files/*key", h.HandleDownload)
	g.DELETE("/files/*key", h.HandleDelete)
}

// HandleExportLeads exports the filtered view as CSV and returns a
// presigned download link.
func (h *Handler) HandleExportLeads(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.ExportLeads(c.Request.Context(), req.ToFilterSpec())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, ExportResponse{
		FileKey:   result.FileKey,
		Rows:      result.Rows,
		URL:       result.Download.URL,
		ExpiresAt: result.Download.ExpiresAt,
	})
}

// HandleDownload streams a finished export for clients without direct
// object storage access.
func (h *Handler) HandleDownload(c *gin.Context) {
	rc, err := h.svc.Fetch(c.Request.Context(), fileKeyParam(c))
	if httpkit.HandleError(c, err) {
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, "text/csv", rc, nil)
}

// HandleDelete removes a finished export object.
func (h *Handler) HandleDelete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), fileKeyParam(c)); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// fileKeyParam strips the leading slash gin keeps on wildcard params.
func fileKeyParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}
