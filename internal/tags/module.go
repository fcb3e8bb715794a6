// Package tags provides lead labeling: named tags with usage counts,
// linked many-to-many to leads.
package tags

import (
	apphttp "hospital_crm_backend/internal/http"
	"hospital_crm_backend/internal/tags/handler"
	"hospital_crm_backend/internal/tags/repository"
	"hospital_crm_backend/internal/tags/service"
	"hospital_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "tags"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/tags"))
}

var _ apphttp.Module = (*Module)(nil)
