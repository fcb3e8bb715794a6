package service

import (
	"context"
	"errors"

	"hospital_crm_backend/internal/campaigns/domain"
	"hospital_crm_backend/internal/campaigns/repository"
	"hospital_crm_backend/internal/campaigns/transport"
	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// IngestDeliveryReport applies one collaborator status report to the
// funnel. Reports are idempotent per recipient per stage: the recipient
// row is the dedupe record, and counters only move when the row does.
func (s *Service) IngestDeliveryReport(ctx context.Context, campaignID uuid.UUID, req transport.DeliveryReportRequest) error {
	rec, err := s.store.GetRecipient(ctx, req.RecipientID)
	if errors.Is(err, repository.ErrRecipientNotFound) {
		return apperr.NotFound("recipient not found")
	}
	if err != nil {
		return err
	}
	if rec.CampaignID != campaignID {
		return apperr.Validation("recipient does not belong to this campaign")
	}

	at := s.now()
	if req.OccurredAt != nil {
		at = *req.OccurredAt
	}
	var providerRef *string
	if req.ProviderRef != "" {
		providerRef = &req.ProviderRef
	}

	switch req.Event {
	case "RESPONDED":
		changed, err := s.store.MarkRecipientResponded(ctx, rec.ID, at)
		if err != nil {
			return err
		}
		if changed {
			return s.store.IncrementCounters(ctx, campaignID, domain.Funnel{Responded: 1})
		}
		return nil

	case "CONVERTED":
		changed, err := s.store.MarkRecipientConverted(ctx, rec.ID, at)
		if err != nil {
			return err
		}
		if changed {
			return s.store.IncrementCounters(ctx, campaignID, domain.Funnel{Converted: 1})
		}
		return nil

	case "FAILED":
		if rec.Stage != domain.StagePending && rec.Stage != domain.StageSent {
			return nil
		}
		advanced, err := s.store.AdvanceRecipientStage(ctx, rec.ID, rec.Stage, domain.StageFailed, providerRef, at)
		if err != nil {
			return err
		}
		if advanced {
			return s.store.IncrementCounters(ctx, campaignID, domain.Funnel{Failed: 1})
		}
		return nil
	}

	reported := domain.Stage(req.Event)
	reached := domain.StagesNewlyReached(rec.Stage, reported)
	if len(reached) == 0 {
		// Duplicate or late report.
		return nil
	}

	advanced, err := s.store.AdvanceRecipientStage(ctx, rec.ID, rec.Stage, reported, providerRef, at)
	if err != nil {
		return err
	}
	if !advanced {
		// A concurrent report won the stage race; its counters stand.
		return nil
	}

	var deltas domain.Funnel
	for _, stage := range reached {
		switch stage {
		case domain.StageSent:
			deltas.Sent++
		case domain.StageDelivered:
			deltas.Delivered++
		case domain.StageOpened:
			deltas.Opened++
		case domain.StageClicked:
			deltas.Clicked++
		}
	}
	return s.store.IncrementCounters(ctx, campaignID, deltas)
}

// ClaimDispatchBatch hands the next slice of unsent recipients to the
// dispatch worker. Only running campaigns dispatch; a paused campaign
// yields an empty batch.
func (s *Service) ClaimDispatchBatch(ctx context.Context, campaignID uuid.UUID, limit int) ([]repository.Recipient, error) {
	campaign, err := s.store.GetByID(ctx, campaignID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if campaign.Status != domain.StatusRunning {
		return nil, nil
	}
	return s.store.ClaimPendingBatch(ctx, campaignID, limit)
}

// RecordSendResult resolves one dispatch attempt: the recipient advances
// to SENT or FAILED and the matching counter moves with it.
func (s *Service) RecordSendResult(ctx context.Context, recipientID uuid.UUID, providerRef *string, sendErr error) error {
	target := domain.StageSent
	deltas := domain.Funnel{Sent: 1}
	if sendErr != nil {
		target = domain.StageFailed
		deltas = domain.Funnel{Failed: 1}
	}

	rec, err := s.store.GetRecipient(ctx, recipientID)
	if err != nil {
		return err
	}
	advanced, err := s.store.AdvanceRecipientStage(ctx, recipientID, domain.StagePending, target, providerRef, s.now())
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}
	return s.store.IncrementCounters(ctx, rec.CampaignID, deltas)
}

// ResolveCompletion closes a running campaign once every recipient has
// resolved past PENDING. Driven by the scheduler, never by ingestion
// itself, so the status flip happens after authoritative counts settle.
func (s *Service) ResolveCompletion(ctx context.Context, campaignID uuid.UUID) error {
	campaign, err := s.store.GetByID(ctx, campaignID)
	if err != nil {
		return mapNotFound(err)
	}
	if campaign.Status != domain.StatusRunning {
		return nil
	}

	pending, err := s.store.CountPending(ctx, campaignID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}

	_, err = s.store.UpdateStatus(ctx, campaignID, domain.StatusRunning, domain.StatusCompleted)
	if errors.Is(err, repository.ErrStaleState) {
		return nil
	}
	if err != nil {
		return err
	}

	s.log.CampaignEvent("completed", campaignID.String(), campaign.Funnel.TotalRecipients)
	s.bus.Publish(ctx, events.CampaignCompleted{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: campaignID,
	})
	return nil
}

// ResolveDueLaunches launches every scheduled campaign whose launch time
// has passed. Driven by the scheduler tick.
func (s *Service) ResolveDueLaunches(ctx context.Context) error {
	due, err := s.store.ListScheduledDue(ctx, s.now())
	if err != nil {
		return err
	}
	for _, campaign := range due {
		if _, err := s.Launch(ctx, campaign.ID); err != nil {
			s.log.DispatchError(string(campaign.Channel), campaign.ID.String(), err)
		}
	}
	return nil
}

// RunningCampaignIDs lists campaigns the completion scan should visit.
func (s *Service) RunningCampaignIDs(ctx context.Context) ([]uuid.UUID, error) {
	running, err := s.store.ListRunning(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(running))
	for _, campaign := range running {
		ids = append(ids, campaign.ID)
	}
	return ids, nil
}
