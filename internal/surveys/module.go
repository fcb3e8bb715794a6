// Package surveys collects patient satisfaction responses and turns
// them into analytics: NPS, rating averages, sentiment distribution,
// and the follow-up queue for unhappy respondents.
package surveys

import (
	"hospital_crm_backend/internal/events"
	apphttp "hospital_crm_backend/internal/http"
	"hospital_crm_backend/internal/surveys/handler"
	"hospital_crm_backend/internal/surveys/repository"
	"hospital_crm_backend/internal/surveys/service"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, bus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "surveys"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/surveys"))
}

var _ apphttp.Module = (*Module)(nil)
