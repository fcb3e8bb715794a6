// Package templates provides reusable message templates with
// {{variable}} substitution, used by campaign dispatch and ad-hoc
// communications.
package templates

import (
	apphttp "hospital_crm_backend/internal/http"
	"hospital_crm_backend/internal/templates/handler"
	"hospital_crm_backend/internal/templates/repository"
	"hospital_crm_backend/internal/templates/service"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "templates"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/templates"))
}

var _ apphttp.Module = (*Module)(nil)
