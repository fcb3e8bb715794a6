// Package campaigns provides outreach campaign management: audience
// targeting, launch with recipient snapshots, and the delivery funnel.
package campaigns

import (
	"hospital_crm_backend/internal/campaigns/handler"
	"hospital_crm_backend/internal/campaigns/repository"
	"hospital_crm_backend/internal/campaigns/service"
	"hospital_crm_backend/internal/events"
	apphttp "hospital_crm_backend/internal/http"
	"hospital_crm_backend/internal/leads"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, audience leads.AudienceSelector, enqueuer service.DispatchEnqueuer, bus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, audience, enqueuer, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "campaigns"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/campaigns"))
}

var _ apphttp.Module = (*Module)(nil)
