// Package service implements campaign lifecycle management: audience
// snapshotting at launch, funnel ingestion from delivery reports, and
// completion resolution.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hospital_crm_backend/internal/campaigns/domain"
	"hospital_crm_backend/internal/campaigns/repository"
	"hospital_crm_backend/internal/campaigns/transport"
	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/leads"
	leaddomain "hospital_crm_backend/internal/leads/domain"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the data access interface the campaign service needs.
// Satisfied by *repository.Repository; tests substitute a fake.
type Store interface {
	Create(ctx context.Context, params repository.CreateCampaignParams) (repository.Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Campaign, error)
	List(ctx context.Context, status *domain.Status, channel *domain.Channel) ([]repository.Campaign, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateCampaignParams) (repository.Campaign, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (repository.Campaign, error)
	SetSchedule(ctx context.Context, id uuid.UUID, at time.Time) (repository.Campaign, error)
	SetTotalRecipients(ctx context.Context, id uuid.UUID, total int) error
	IncrementCounters(ctx context.Context, id uuid.UUID, deltas domain.Funnel) error
	ListScheduledDue(ctx context.Context, now time.Time) ([]repository.Campaign, error)
	ListRunning(ctx context.Context) ([]repository.Campaign, error)

	InsertRecipients(ctx context.Context, campaignID uuid.UUID, seeds []repository.RecipientSeed) (int, error)
	GetRecipient(ctx context.Context, id uuid.UUID) (repository.Recipient, error)
	ListRecipients(ctx context.Context, campaignID uuid.UUID, stage *domain.Stage) ([]repository.Recipient, error)
	ClaimPendingBatch(ctx context.Context, campaignID uuid.UUID, limit int) ([]repository.Recipient, error)
	AdvanceRecipientStage(ctx context.Context, id uuid.UUID, from, to domain.Stage, providerRef *string, at time.Time) (bool, error)
	MarkRecipientResponded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkRecipientConverted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	CountPending(ctx context.Context, campaignID uuid.UUID) (int, error)
}

// DispatchEnqueuer hands a launched campaign to the background dispatcher.
type DispatchEnqueuer interface {
	EnqueueCampaignDispatch(ctx context.Context, campaignID uuid.UUID) error
}

type Service struct {
	store    Store
	audience leads.AudienceSelector
	enqueuer DispatchEnqueuer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(store Store, audience leads.AudienceSelector, enqueuer DispatchEnqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		audience: audience,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req transport.CreateCampaignRequest, createdBy uuid.UUID) (transport.CampaignResponse, error) {
	audienceJSON, err := json.Marshal(req.Audience)
	if err != nil {
		return transport.CampaignResponse{}, err
	}

	var description *string
	if req.Description != "" {
		description = &req.Description
	}

	campaign, err := s.store.Create(ctx, repository.CreateCampaignParams{
		Name:        req.Name,
		Description: description,
		Channel:     domain.Channel(req.Channel),
		TemplateID:  req.TemplateID,
		Audience:    audienceJSON,
		CreatedBy:   &createdBy,
	})
	if err != nil {
		return transport.CampaignResponse{}, err
	}
	return toResponse(campaign), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.CampaignResponse, error) {
	campaign, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.CampaignResponse{}, mapNotFound(err)
	}
	return toResponse(campaign), nil
}

func (s *Service) List(ctx context.Context, req transport.ListCampaignsRequest) ([]transport.CampaignResponse, error) {
	var status *domain.Status
	if req.Status != "" {
		st := domain.Status(req.Status)
		status = &st
	}
	var channel *domain.Channel
	if req.Channel != "" {
		ch := domain.Channel(req.Channel)
		channel = &ch
	}

	campaigns, err := s.store.List(ctx, status, channel)
	if err != nil {
		return nil, err
	}
	out := make([]transport.CampaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		out = append(out, toResponse(campaign))
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateCampaignRequest) (transport.CampaignResponse, error) {
	params := repository.UpdateCampaignParams{
		Name:        req.Name,
		Description: req.Description,
		TemplateID:  req.TemplateID,
	}
	if req.Audience != nil {
		audienceJSON, err := json.Marshal(*req.Audience)
		if err != nil {
			return transport.CampaignResponse{}, err
		}
		params.Audience = audienceJSON
	}

	campaign, err := s.store.Update(ctx, id, params)
	if errors.Is(err, repository.ErrStaleState) {
		return transport.CampaignResponse{}, apperr.Conflict("only draft campaigns can be edited")
	}
	if err != nil {
		return transport.CampaignResponse{}, mapNotFound(err)
	}
	return toResponse(campaign), nil
}

func (s *Service) Schedule(ctx context.Context, id uuid.UUID, at time.Time) (transport.CampaignResponse, error) {
	campaign, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.CampaignResponse{}, mapNotFound(err)
	}
	if err := domain.ValidateSchedule(campaign.Status); err != nil {
		return transport.CampaignResponse{}, apperr.Conflict(err.Error())
	}

	updated, err := s.store.SetSchedule(ctx, id, at)
	if errors.Is(err, repository.ErrStaleState) {
		return transport.CampaignResponse{}, apperr.Conflict(string(domain.ErrAlreadyScheduled))
	}
	if err != nil {
		return transport.CampaignResponse{}, err
	}
	return toResponse(updated), nil
}

// Launch moves a campaign to RUNNING and freezes its audience. The guarded
// status flip happens first so two launchers cannot both snapshot; the
// winner then materializes recipients and hands the campaign to the
// dispatcher.
func (s *Service) Launch(ctx context.Context, id uuid.UUID) (transport.CampaignResponse, error) {
	campaign, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.CampaignResponse{}, mapNotFound(err)
	}
	if err := domain.ValidateLaunch(campaign.Status); err != nil {
		return transport.CampaignResponse{}, apperr.Conflict(err.Error())
	}

	running, err := s.store.UpdateStatus(ctx, id, campaign.Status, domain.StatusRunning)
	if errors.Is(err, repository.ErrStaleState) {
		return transport.CampaignResponse{}, apperr.Conflict("campaign was launched concurrently")
	}
	if err != nil {
		return transport.CampaignResponse{}, err
	}

	// If the snapshot fails the status flip is undone, so the campaign
	// stays launchable instead of running with no recipients.
	revert := func() {
		if _, err := s.store.UpdateStatus(ctx, id, domain.StatusRunning, campaign.Status); err != nil {
			s.log.DatabaseError("campaigns.revert_launch", err)
		}
	}

	criteria, err := parseAudience(campaign.Audience)
	if err != nil {
		revert()
		return transport.CampaignResponse{}, err
	}
	members, err := s.audience.SelectAudience(ctx, criteria)
	if err != nil {
		revert()
		return transport.CampaignResponse{}, apperr.Dependency("audience selection failed", err)
	}

	seeds := make([]repository.RecipientSeed, 0, len(members))
	for _, m := range members {
		seeds = append(seeds, repository.RecipientSeed{
			LeadID:    m.LeadID,
			FirstName: m.FirstName,
			Phone:     m.Phone,
			Email:     m.Email,
		})
	}
	total := 0
	if len(seeds) > 0 {
		if total, err = s.store.InsertRecipients(ctx, id, seeds); err != nil {
			revert()
			return transport.CampaignResponse{}, err
		}
	}
	if err := s.store.SetTotalRecipients(ctx, id, total); err != nil {
		return transport.CampaignResponse{}, err
	}
	running.Funnel.TotalRecipients = total

	s.log.CampaignEvent("launched", id.String(), total)
	s.bus.Publish(ctx, events.CampaignLaunched{
		BaseEvent:       events.NewBaseEvent(),
		CampaignID:      id,
		Channel:         string(campaign.Channel),
		TotalRecipients: total,
	})

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueCampaignDispatch(ctx, id); err != nil {
			s.log.DispatchError(string(campaign.Channel), id.String(), err)
		}
	}

	return toResponse(running), nil
}

func (s *Service) Pause(ctx context.Context, id uuid.UUID) (transport.CampaignResponse, error) {
	return s.lifecycle(ctx, id, domain.StatusPaused, domain.ValidatePause)
}

func (s *Service) Resume(ctx context.Context, id uuid.UUID) (transport.CampaignResponse, error) {
	resp, err := s.lifecycle(ctx, id, domain.StatusRunning, domain.ValidateResume)
	if err != nil {
		return resp, err
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueCampaignDispatch(ctx, id); err != nil {
			s.log.DispatchError(resp.Channel, id.String(), err)
		}
	}
	return resp, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (transport.CampaignResponse, error) {
	return s.lifecycle(ctx, id, domain.StatusCancelled, domain.ValidateCancel)
}

func (s *Service) lifecycle(ctx context.Context, id uuid.UUID, target domain.Status, validate func(domain.Status) error) (transport.CampaignResponse, error) {
	campaign, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.CampaignResponse{}, mapNotFound(err)
	}
	if err := validate(campaign.Status); err != nil {
		return transport.CampaignResponse{}, apperr.Conflict(err.Error())
	}

	updated, err := s.store.UpdateStatus(ctx, id, campaign.Status, target)
	if errors.Is(err, repository.ErrStaleState) {
		return transport.CampaignResponse{}, apperr.Conflict("campaign was modified concurrently, retry")
	}
	if err != nil {
		return transport.CampaignResponse{}, err
	}
	return toResponse(updated), nil
}

func (s *Service) Recipients(ctx context.Context, campaignID uuid.UUID, stage string) ([]transport.RecipientResponse, error) {
	if _, err := s.store.GetByID(ctx, campaignID); err != nil {
		return nil, mapNotFound(err)
	}

	var filter *domain.Stage
	if stage != "" {
		st := domain.Stage(stage)
		filter = &st
	}
	recipients, err := s.store.ListRecipients(ctx, campaignID, filter)
	if err != nil {
		return nil, err
	}

	out := make([]transport.RecipientResponse, 0, len(recipients))
	for _, rec := range recipients {
		out = append(out, toRecipientResponse(rec))
	}
	return out, nil
}

func parseAudience(raw json.RawMessage) (leads.AudienceCriteria, error) {
	var dto transport.AudienceCriteria
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &dto); err != nil {
			return leads.AudienceCriteria{}, apperr.Validation("campaign audience criteria are malformed")
		}
	}

	criteria := leads.AudienceCriteria{
		TagIDs:   dto.TagIDs,
		MinScore: dto.MinScore,
	}
	for _, st := range dto.Statuses {
		criteria.Statuses = append(criteria.Statuses, leaddomain.Status(st))
	}
	for _, src := range dto.Sources {
		criteria.Sources = append(criteria.Sources, leaddomain.Source(src))
	}
	return criteria, nil
}

func toResponse(campaign repository.Campaign) transport.CampaignResponse {
	resp := transport.CampaignResponse{
		ID:      campaign.ID.String(),
		Name:    campaign.Name,
		Channel: string(campaign.Channel),
		Status:  string(campaign.Status),
		Funnel: transport.FunnelResponse{
			TotalRecipients: campaign.Funnel.TotalRecipients,
			Sent:            campaign.Funnel.Sent,
			Delivered:       campaign.Funnel.Delivered,
			Opened:          campaign.Funnel.Opened,
			Clicked:         campaign.Funnel.Clicked,
			Responded:       campaign.Funnel.Responded,
			Converted:       campaign.Funnel.Converted,
			Failed:          campaign.Funnel.Failed,
			Rates:           domain.ComputeRates(campaign.Funnel),
		},
		ScheduledAt: campaign.ScheduledAt,
		StartedAt:   campaign.StartedAt,
		CompletedAt: campaign.CompletedAt,
		CreatedAt:   campaign.CreatedAt,
		UpdatedAt:   campaign.UpdatedAt,
	}
	if campaign.Description != nil {
		resp.Description = *campaign.Description
	}
	if campaign.TemplateID != nil {
		id := campaign.TemplateID.String()
		resp.TemplateID = &id
	}
	if len(campaign.Audience) > 0 {
		_ = json.Unmarshal(campaign.Audience, &resp.Audience)
	}
	return resp
}

func toRecipientResponse(rec repository.Recipient) transport.RecipientResponse {
	resp := transport.RecipientResponse{
		ID:          rec.ID.String(),
		LeadID:      rec.LeadID.String(),
		FirstName:   rec.FirstName,
		Phone:       rec.Phone,
		Stage:       string(rec.Stage),
		Responded:   rec.Responded,
		Converted:   rec.Converted,
		LastEventAt: rec.LastEventAt,
	}
	if rec.Email != nil {
		resp.Email = *rec.Email
	}
	if rec.ProviderRef != nil {
		resp.ProviderRef = *rec.ProviderRef
	}
	return resp
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("campaign not found")
	}
	return err
}
