// Package leads provides the lead lifecycle domain module: intake,
// pipeline status management, scoring, timeline, and conversion.
package leads

import (
	"context"

	"hospital_crm_backend/internal/events"
	apphttp "hospital_crm_backend/internal/http"
	"hospital_crm_backend/internal/leads/handler"
	"hospital_crm_backend/internal/leads/repository"
	"hospital_crm_backend/internal/leads/service"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the leads domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new leads module with all dependencies wired
func NewModule(pool *pgxpool.Pool, patients service.PatientConverter, bus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, patients, bus, log)
	h := handler.New(svc, val)

	m := &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
	m.subscribe(bus)
	return m
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// AudienceSelector returns the repository as an audience port for the
// campaigns module.
func (m *Module) AudienceSelector() AudienceSelector {
	return m.repo
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leads)
}

// subscribe wires cross-module events back into lead state. Engagement
// signals from other modules feed the score and the timeline.
func (m *Module) subscribe(bus *events.InMemoryBus) {
	bus.Subscribe(events.CommunicationLogged{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.CommunicationLogged)
		if !ok || evt.LeadID == nil {
			return nil
		}
		// Only outbound contact counts as reaching out; inbound still
		// feeds the engagement score.
		if evt.Direction == "OUTBOUND" {
			m.service.RecordContact(ctx, *evt.LeadID, evt.OccurredAt())
		} else {
			m.service.Rescore(ctx, *evt.LeadID)
		}
		return nil
	}))

	bus.Subscribe(events.TaskCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.TaskCompleted)
		if !ok || evt.LeadID == nil {
			return nil
		}
		m.service.RecordTaskCompletion(ctx, *evt.LeadID, evt.TaskID, evt.Outcome)
		return nil
	}))

	bus.Subscribe(events.SurveyResponseSubmitted{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.SurveyResponseSubmitted)
		if !ok || evt.LeadID == nil {
			return nil
		}
		m.service.Rescore(ctx, *evt.LeadID)
		return nil
	}))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
