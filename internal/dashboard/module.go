// Package dashboard composes read models from the other modules into
// the overview and conversion-report endpoints.
package dashboard

import (
	"context"
	"time"

	"hospital_crm_backend/internal/dashboard/cache"
	"hospital_crm_backend/internal/dashboard/handler"
	"hospital_crm_backend/internal/dashboard/service"
	"hospital_crm_backend/internal/events"
	apphttp "hospital_crm_backend/internal/http"
	"hospital_crm_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(leads service.LeadStats, tasks service.TaskStats, comms service.CommunicationStats, surveys service.SurveyStats, rdb *redis.Client, cacheTTL time.Duration, bus *events.InMemoryBus, log *logger.Logger) *Module {
	svc := service.New(leads, tasks, comms, surveys, cache.New(rdb, cacheTTL, log), log)
	m := &Module{
		handler: handler.New(svc),
		service: svc,
	}
	m.subscribe(bus)
	return m
}

func (m *Module) Name() string {
	return "dashboard"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/dashboard"))
}

// subscribe invalidates cached read models whenever a source module
// commits a write. The cache is only refilled from authoritative reads.
func (m *Module) subscribe(bus *events.InMemoryBus) {
	invalidate := events.HandlerFunc(func(ctx context.Context, _ events.Event) error {
		m.service.Invalidate(ctx)
		return nil
	})

	for _, name := range []string{
		events.LeadCreated{}.EventName(),
		events.LeadStatusChanged{}.EventName(),
		events.LeadAssigned{}.EventName(),
		events.LeadConverted{}.EventName(),
		events.TaskCompleted{}.EventName(),
		events.CampaignLaunched{}.EventName(),
		events.CampaignCompleted{}.EventName(),
		events.SurveyResponseSubmitted{}.EventName(),
		events.CommunicationLogged{}.EventName(),
	} {
		bus.Subscribe(name, invalidate)
	}
}

var _ apphttp.Module = (*Module)(nil)
