// Package pricing provides the marketplace price analysis endpoint.
package pricing

import (
	apphttp "catalog_backend/internal/http"
	"catalog_backend/internal/pricing/handler"
	"catalog_backend/internal/pricing/service"
	"catalog_backend/platform/httpkit"
)

type Module struct {
	handler *handler.Handler
	limiter *httpkit.IPRateLimiter
}

// NewModule wires the pricing handler. limiter may be nil to disable rate limiting.
func NewModule(svc *service.Service, limiter *httpkit.IPRateLimiter) *Module {
	return &Module{handler: handler.New(svc), limiter: limiter}
}

func (m *Module) Name() string {
	return "pricing"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	routes := ctx.Engine.Group("")
	if m.limiter != nil {
		routes.Use(m.limiter.RateLimit())
	}
	m.handler.RegisterRoutes(routes)
}

var _ apphttp.Module = (*Module)(nil)
