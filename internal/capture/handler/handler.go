// Package handler exposes the capture surface over HTTP.
package handler

import (
	"net/http"

	"trafficpool_backend/internal/capture/service"
	"trafficpool_backend/internal/capture/transport"
	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/platform/httpkit"
	"trafficpool_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles capture HTTP requests.
type Handler struct {
	svc *service.Service
	qr  *service.QRGenerator
	val *validator.Validator
}

// New creates a new capture handler.
func New(svc *service.Service, qr *service.QRGenerator, val *validator.Validator) *Handler {
	return &Handler{svc: svc, qr: qr, val: val}
}

// RegisterPublic mounts the unauthenticated ingest endpoint. Devices and
// landing pages post here, so it sits behind the capture rate limiter
// instead of JWT auth.
func (h *Handler) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/leads", h.HandleIngest)
}

// RegisterProtected mounts the operator-facing capture routes.
func (h *Handler) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/channels/:channel/qr", h.HandleChannelQR)
}

// HandleIngest accepts a capture batch.
func (h *Handler) HandleIngest(c *gin.Context) {
	var req transport.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.Ingest(c.Request.Context(), req.EventID, domain.CaptureChannel(req.Channel), req.ToCapturedLeads())
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, transport.IngestResponse{
		LeadIDs:  result.LeadIDs,
		Replayed: result.Replayed,
	})
}

// HandleChannelQR renders the PNG QR code for a capture channel.
func (h *Handler) HandleChannelQR(c *gin.Context) {
	png, err := h.qr.Generate(domain.CaptureChannel(c.Param("channel")))
	if httpkit.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
