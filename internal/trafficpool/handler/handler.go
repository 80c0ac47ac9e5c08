// Package handler exposes the traffic pool engine over HTTP.
package handler

import (
	"context"
	"net/http"

	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/internal/trafficpool/service"
	"trafficpool_backend/internal/trafficpool/store"
	"trafficpool_backend/internal/trafficpool/transport"
	"trafficpool_backend/platform/httpkit"
	"trafficpool_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultPageSize = 20

// roleAdmin gates destructive catalog operations such as pool deletion.
const roleAdmin = "admin"

// PassScheduler enqueues background engine passes through the job queue.
type PassScheduler interface {
	EnqueueRescore(ctx context.Context, reason string) error
	EnqueueDedup(ctx context.Context, reason string) error
}

// Handler handles traffic pool HTTP requests.
type Handler struct {
	svc   *service.Service
	sched PassScheduler
	val   *validator.Validator
}

// New creates a new traffic pool handler. sched may be nil; the pass
// trigger endpoints then report the queue as unavailable.
func New(svc *service.Service, sched PassScheduler, val *validator.Validator) *Handler {
	return &Handler{svc: svc, sched: sched, val: val}
}

// RegisterRoutes mounts the traffic pool routes on the given group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/query", h.HandleQuery)
	g.GET("/leads/:id", h.HandleGetLead)
	g.POST("/leads/:id/rescore", h.HandleRescoreLead)
	g.PATCH("/leads/:id/status", h.HandleUpdateStatus)
	g.GET("/pools", h.HandleListPools)
	g.POST("/pools", h.HandleCreatePool)
	g.POST("/pools/:id/leads", h.HandleAssign)
	g.DELETE("/pools/:id", httpkit.RequireRole(roleAdmin), h.HandleRemovePool)
	g.POST("/passes/rescore", httpkit.RequireRole(roleAdmin), h.HandleTriggerRescore)
	g.POST("/passes/dedup", httpkit.RequireRole(roleAdmin), h.HandleTriggerDedup)
}

// HandleQuery runs the filter/rank/paginate pipeline over the working set.
func (h *Handler) HandleQuery(c *gin.Context) {
	var req transport.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	result := h.svc.Query(c.Request.Context(), req.ToFilterSpec(), req.PageIndex, pageSize)
	httpkit.OK(c, transport.QueryResponse{
		Items:     transport.ToLeadResponses(result.Items),
		Total:     result.Total,
		PageIndex: req.PageIndex,
		PageSize:  pageSize,
	})
}

// HandleGetLead returns one lead with a fresh score.
func (h *Handler) HandleGetLead(c *gin.Context) {
	lead, err := h.svc.GetLead(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// HandleRescoreLead recomputes and persists one lead's RFM score.
func (h *Handler) HandleRescoreLead(c *gin.Context) {
	lead, err := h.svc.RescoreLead(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// HandleUpdateStatus soft-transitions a lead's lifecycle status.
func (h *Handler) HandleUpdateStatus(c *gin.Context) {
	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	operator := httpkit.MustGetIdentity(c)
	if operator == nil {
		return
	}

	if err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), domain.LeadStatus(req.Status), operator.UserID().String()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleListPools lists the catalog, Uncategorized included and last.
func (h *Handler) HandleListPools(c *gin.Context) {
	views := h.svc.Pools(c.Request.Context())
	out := make([]transport.PoolResponse, 0, len(views))
	for _, v := range views {
		out = append(out, transport.ToPoolResponse(v))
	}
	httpkit.OK(c, out)
}

// HandleCreatePool creates a named pool.
func (h *Handler) HandleCreatePool(c *gin.Context) {
	var req transport.CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	pool, err := h.svc.CreatePool(c.Request.Context(), uuid.NewString(), req.Name, req.Description, req.Tags)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToPoolResponse(store.PoolView{Pool: pool}))
}

// HandleAssign adds a batch of leads to a pool, reporting per-id outcomes.
func (h *Handler) HandleAssign(c *gin.Context) {
	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	operator := httpkit.MustGetIdentity(c)
	if operator == nil {
		return
	}

	result, err := h.svc.AddToPool(c.Request.Context(), req.LeadIDs, c.Param("id"), operator.UserID().String())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AssignResponse{
		Added:         result.Added,
		AlreadyMember: result.AlreadyMember,
	})
}

// HandleTriggerRescore enqueues a full scoring pass on the job queue.
func (h *Handler) HandleTriggerRescore(c *gin.Context) {
	h.triggerPass(c, "rescore", func(ctx context.Context, reason string) error {
		return h.sched.EnqueueRescore(ctx, reason)
	})
}

// HandleTriggerDedup enqueues a duplicate resolution pass on the job queue.
func (h *Handler) HandleTriggerDedup(c *gin.Context) {
	h.triggerPass(c, "dedup", func(ctx context.Context, reason string) error {
		return h.sched.EnqueueDedup(ctx, reason)
	})
}

func (h *Handler) triggerPass(c *gin.Context, pass string, enqueue func(context.Context, string) error) {
	if h.sched == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "job queue not configured", nil)
		return
	}

	operator := httpkit.MustGetIdentity(c)
	if operator == nil {
		return
	}

	reason := "requested by " + operator.UserID().String()
	if err := enqueue(c.Request.Context(), reason); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to enqueue pass", nil)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.PassResponse{Pass: pass, State: "queued"})
}

// HandleRemovePool deletes a pool with cascading membership removal.
func (h *Handler) HandleRemovePool(c *gin.Context) {
	if err := h.svc.RemovePool(c.Request.Context(), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
