// Package catalogjobs provides asynchronous catalog extraction jobs: upload a
// PDF, let the worker extract it in batches, then fetch the product list.
package catalogjobs

import (
	"catalog_backend/internal/catalogjobs/handler"
	"catalog_backend/internal/catalogjobs/service"
	apphttp "catalog_backend/internal/http"
	"catalog_backend/platform/validator"
)

// Module is the extraction jobs bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the module around an already wired service.
func NewModule(svc *service.Service, val *validator.Validator) *Module {
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalogjobs"
}

// RegisterRoutes mounts the job endpoints under /catalogos/extracoes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Engine.Group("/catalogos/extracoes"))
}

var _ apphttp.Module = (*Module)(nil)
