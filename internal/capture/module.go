// Package capture provides the lead capture bounded context module.
package capture

import (
	"time"

	"trafficpool_backend/internal/capture/handler"
	"trafficpool_backend/internal/capture/service"
	"trafficpool_backend/internal/events"
	apphttp "trafficpool_backend/internal/http"
	"trafficpool_backend/internal/trafficpool/repository"
	"trafficpool_backend/internal/trafficpool/store"
	"trafficpool_backend/platform/config"
	"trafficpool_backend/platform/logger"
	"trafficpool_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

// Module is the capture bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the capture surface on top of the shared record store.
// redisClient may be nil; delivery dedup is then disabled.
func NewModule(s *store.Store, writer repository.LeadWriter, redisClient *redis.Client, dedupeTTL time.Duration, cfg config.CaptureConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	var guard service.IdempotencyGuard
	if redisClient != nil {
		guard = service.NewRedisGuard(redisClient, dedupeTTL)
	} else {
		log.Warn("redis not configured; capture ingest dedup disabled")
	}

	svc := service.New(s, writer, guard, bus, log)
	qr := service.NewQRGenerator(cfg)

	return &Module{
		handler: handler.New(svc, qr, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "capture"
}

// Service returns the capture service for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the public ingest route behind the capture rate
// limiter and the QR route behind auth.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/capture")
	public.Use(ctx.CaptureRateLimiter.RateLimit())
	m.handler.RegisterPublic(public)

	m.handler.RegisterProtected(ctx.Protected.Group("/capture"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
