// Package trafficpool provides the traffic pool bounded context module.
// This file defines the module that encapsulates engine setup and route
// registration.
package trafficpool

import (
	"context"

	"trafficpool_backend/internal/events"
	apphttp "trafficpool_backend/internal/http"
	"trafficpool_backend/internal/trafficpool/handler"
	"trafficpool_backend/internal/trafficpool/repository"
	"trafficpool_backend/internal/trafficpool/service"
	"trafficpool_backend/internal/trafficpool/store"
	"trafficpool_backend/platform/logger"
	"trafficpool_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the traffic pool bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	store   *store.Store
	repo    *repository.Repository
}

// NewModule wires the engine: hydrates the in-memory store from Postgres
// and builds the service and handler on top of it. sched may be nil when
// no job queue is configured.
func NewModule(ctx context.Context, pool *pgxpool.Pool, sched handler.PassScheduler, bus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)
	s := store.New()
	if err := repository.Hydrate(ctx, repo, s); err != nil {
		return nil, err
	}
	log.Info("traffic pool hydrated", "leads", s.Len())

	svc := service.New(s, repo, bus, log)

	return &Module{
		handler: handler.New(svc, sched, val),
		service: svc,
		store:   s,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "trafficpool"
}

// RegisterHandlers subscribes the engine to capture events so freshly
// ingested leads get scored without waiting for the next cron pass.
func (m *Module) RegisterHandlers(bus events.Bus, log *logger.Logger) {
	bus.Subscribe(events.LeadsCaptured{}.EventName(), events.HandlerFunc(func(ctx context.Context, _ events.Event) error {
		// The bus hands us the originating request context; the ingest
		// response does not wait for this pass, so detach from its
		// cancellation or the write-through would fail on every event.
		_, err := m.service.Recompute(context.WithoutCancel(ctx))
		if err != nil {
			log.Error("recompute after capture failed", "error", err)
		}
		return err
	}))
}

// Service returns the engine service for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Store returns the in-memory record store for cross-module use.
func (m *Module) Store() *store.Store {
	return m.store
}

// Repository returns the persistence layer for cross-module use.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts traffic pool routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/traffic-pool"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
