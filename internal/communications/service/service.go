// Package service implements the contact event log.
package service

import (
	"context"
	"math"
	"time"

	"hospital_crm_backend/internal/communications/domain"
	"hospital_crm_backend/internal/communications/repository"
	"hospital_crm_backend/internal/communications/transport"
	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the data access interface the communications service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateCommunicationParams) (repository.Communication, error)
	List(ctx context.Context, params repository.ListCommunicationsParams) ([]repository.Communication, int, error)
	GetChannelBreakdown(ctx context.Context) ([]repository.ChannelCount, error)
}

type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store: store,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// Log records a contact event and publishes CommunicationLogged so the
// linked lead's engagement state follows.
func (s *Service) Log(ctx context.Context, req transport.LogCommunicationRequest, loggedBy uuid.UUID) (transport.CommunicationResponse, error) {
	occurredAt := s.now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	var status *domain.Status
	if req.Status != "" {
		st := domain.Status(req.Status)
		status = &st
	}

	comm, err := s.store.Create(ctx, repository.CreateCommunicationParams{
		Channel:     domain.Channel(req.Channel),
		Direction:   domain.Direction(req.Direction),
		Status:      status,
		LeadID:      req.LeadID,
		PatientID:   req.PatientID,
		TemplateID:  req.TemplateID,
		Subject:     strPtrOrNil(sanitize.Text(req.Subject)),
		Summary:     strPtrOrNil(sanitize.Text(req.Summary)),
		CallOutcome: strPtrOrNil(req.CallOutcome),
		LoggedBy:    loggedBy,
		OccurredAt:  occurredAt,
	})
	if err != nil {
		return transport.CommunicationResponse{}, err
	}

	s.bus.Publish(ctx, events.CommunicationLogged{
		BaseEvent:       events.NewBaseEvent(),
		CommunicationID: comm.ID,
		LeadID:          comm.LeadID,
		Channel:         string(comm.Channel),
		Direction:       string(comm.Direction),
	})

	return toResponse(comm), nil
}

func (s *Service) List(ctx context.Context, req transport.ListCommunicationsRequest) (transport.CommunicationListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 25
	}

	params := repository.ListCommunicationsParams{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if req.LeadID != "" {
		if id, err := uuid.Parse(req.LeadID); err == nil {
			params.LeadID = &id
		}
	}
	if req.Channel != "" {
		ch := domain.Channel(req.Channel)
		params.Channel = &ch
	}
	if req.Direction != "" {
		dir := domain.Direction(req.Direction)
		params.Direction = &dir
	}
	if req.From != "" {
		if t, err := time.Parse("2006-01-02", req.From); err == nil {
			params.From = &t
		}
	}
	if req.To != "" {
		if t, err := time.Parse("2006-01-02", req.To); err == nil {
			end := t.Add(24 * time.Hour)
			params.To = &end
		}
	}

	comms, total, err := s.store.List(ctx, params)
	if err != nil {
		return transport.CommunicationListResponse{}, err
	}

	items := make([]transport.CommunicationResponse, 0, len(comms))
	for _, comm := range comms {
		items = append(items, toResponse(comm))
	}
	return transport.CommunicationListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Stats returns the channel breakdown for the dashboard.
func (s *Service) Stats(ctx context.Context) (transport.StatsResponse, error) {
	counts, err := s.store.GetChannelBreakdown(ctx)
	if err != nil {
		return transport.StatsResponse{}, err
	}

	resp := transport.StatsResponse{Channels: make([]transport.ChannelStat, 0, len(counts))}
	for _, c := range counts {
		resp.Total += c.Total
		resp.Channels = append(resp.Channels, transport.ChannelStat{
			Channel:  string(c.Channel),
			Total:    c.Total,
			Inbound:  c.Inbound,
			Outbound: c.Outbound,
		})
	}
	return resp, nil
}

func toResponse(comm repository.Communication) transport.CommunicationResponse {
	resp := transport.CommunicationResponse{
		ID:         comm.ID.String(),
		Channel:    string(comm.Channel),
		Direction:  string(comm.Direction),
		LoggedBy:   comm.LoggedBy.String(),
		OccurredAt: comm.OccurredAt,
		CreatedAt:  comm.CreatedAt,
	}
	if comm.Status != nil {
		resp.Status = string(*comm.Status)
	}
	if comm.LeadID != nil {
		id := comm.LeadID.String()
		resp.LeadID = &id
	}
	resp.PatientID = comm.PatientID
	if comm.TemplateID != nil {
		id := comm.TemplateID.String()
		resp.TemplateID = &id
	}
	if comm.Subject != nil {
		resp.Subject = *comm.Subject
	}
	if comm.Summary != nil {
		resp.Summary = *comm.Summary
	}
	if comm.CallOutcome != nil {
		resp.CallOutcome = *comm.CallOutcome
	}
	return resp
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
