// Package exports provides the lead export bounded context module.
package exports

import (
	"trafficpool_backend/internal/adapters/storage"
	"trafficpool_backend/internal/exports/handler"
	"trafficpool_backend/internal/exports/service"
	apphttp "trafficpool_backend/internal/http"
	"trafficpool_backend/platform/logger"
	"trafficpool_backend/platform/validator"
)

// Module is the exports bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the export pipeline against the engine's query surface
// and the shared object storage.
func NewModule(source service.LeadSource, st storage.StorageService, bucket string, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(source, st, bucket, log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts export routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/exports"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
