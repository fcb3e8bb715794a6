package service

import (
	"context"
	"errors"

	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/leads/domain"
	"hospital_crm_backend/internal/leads/repository"
	"hospital_crm_backend/internal/leads/transport"
	"hospital_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// statusRetryLimit bounds re-validation attempts when a concurrent writer
// moves the lead between our read and the guarded update.
const statusRetryLimit = 2

// ChangeStatus validates and applies a status transition. Transitioning to
// the lead's current status is rejected; use RequestTransition for input
// surfaces (drag-and-drop) where a same-status drop means "no change".
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, target domain.Status, reason string, actor Actor) (transport.LeadResponse, error) {
	lead, err := s.changeStatus(ctx, id, target, reason, actor, false)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return s.toResponse(ctx, lead), nil
}

// RequestTransition is the single entry point for every input modality
// (drag, button, bulk action). A request targeting the lead's current
// status is a no-op success, not an error: the drop represents no change.
func (s *Service) RequestTransition(ctx context.Context, id uuid.UUID, target domain.Status, reason string, actor Actor) (transport.LeadResponse, error) {
	lead, err := s.changeStatus(ctx, id, target, reason, actor, true)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return s.toResponse(ctx, lead), nil
}

func (s *Service) changeStatus(ctx context.Context, id uuid.UUID, target domain.Status, reason string, actor Actor, sameStatusNoop bool) (repository.Lead, error) {
	for attempt := 0; attempt < statusRetryLimit; attempt++ {
		lead, err := s.store.GetByID(ctx, id)
		if err != nil {
			return repository.Lead{}, mapNotFound(err)
		}

		if err := domain.ValidateTransition(lead.Status, target, reason); err != nil {
			if errors.Is(err, domain.ErrSameStatus) && sameStatusNoop {
				return lead, nil
			}
			return repository.Lead{}, mapTransitionError(err)
		}

		var lostReason *string
		if target == domain.StatusLost {
			lostReason = &reason
		}

		updated, err := s.store.UpdateStatus(ctx, id, lead.Status, target, lostReason)
		if errors.Is(err, repository.ErrStaleState) {
			// Someone else moved the lead first; re-validate against
			// current state rather than applying blindly.
			continue
		}
		if err != nil {
			return repository.Lead{}, err
		}

		s.recordStatusChange(ctx, lead.Status, updated, reason, actor)
		// The appended activity is a scoring input; recompute so the
		// score reflects the transition immediately.
		return s.rescore(ctx, updated), nil
	}

	return repository.Lead{}, apperr.Conflict("lead was modified concurrently, retry")
}

func (s *Service) recordStatusChange(ctx context.Context, oldStatus domain.Status, lead repository.Lead, reason string, actor Actor) {
	if _, err := s.store.AppendActivity(ctx, repository.AppendActivityParams{
		LeadID:    lead.ID,
		ActorID:   &actor.ID,
		ActorName: actor.Name,
		EventType: repository.ActivityStatusChanged,
		OldValue:  strPtr(string(oldStatus)),
		NewValue:  strPtr(string(lead.Status)),
		Summary:   repository.TruncateSummary(reason, repository.SummaryMaxLen),
	}); err != nil {
		s.log.DatabaseError("leads.append_activity", err)
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		OldStatus: string(oldStatus),
		NewStatus: string(lead.Status),
		Reason:    reason,
		ActorID:   actor.ID,
	})
}

// Convert hands the lead's intake data to the patient-record collaborator
// and, only after the collaborator confirms, marks the lead CONVERTED with
// the created patient reference. The lead is never mutated speculatively:
// a collaborator failure leaves it untouched and retryable.
func (s *Service) Convert(ctx context.Context, id uuid.UUID, req transport.ConvertLeadRequest, actor Actor) (transport.ConvertLeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.ConvertLeadResponse{}, mapNotFound(err)
	}

	if lead.Status.IsTerminal() {
		return transport.ConvertLeadResponse{}, apperr.Conflict(string(domain.ErrLeadClosed))
	}
	if s.patients == nil {
		return transport.ConvertLeadResponse{}, apperr.Dependency("patient service not configured", nil)
	}

	patientID, err := s.patients.CreatePatient(ctx, req)
	if err != nil {
		return transport.ConvertLeadResponse{}, apperr.Dependency("patient service unavailable", err)
	}

	updated, err := s.store.MarkConverted(ctx, id, patientID)
	if errors.Is(err, repository.ErrStaleState) {
		// The lead closed while the collaborator call was in flight.
		return transport.ConvertLeadResponse{}, apperr.Conflict(string(domain.ErrLeadClosed))
	}
	if err != nil {
		return transport.ConvertLeadResponse{}, err
	}

	if _, err := s.store.AppendActivity(ctx, repository.AppendActivityParams{
		LeadID:    updated.ID,
		ActorID:   &actor.ID,
		ActorName: actor.Name,
		EventType: repository.ActivityConverted,
		OldValue:  strPtr(string(lead.Status)),
		NewValue:  strPtr(string(updated.Status)),
		Metadata:  map[string]any{"patientId": patientID},
	}); err != nil {
		s.log.DatabaseError("leads.append_activity", err)
	}

	s.bus.Publish(ctx, events.LeadConverted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		PatientID: patientID,
		ActorID:   actor.ID,
	})

	return transport.ConvertLeadResponse{
		Lead:      s.toResponse(ctx, updated),
		PatientID: patientID,
	}, nil
}

func mapTransitionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrLeadClosed):
		return apperr.Conflict(err.Error())
	case errors.Is(err, domain.ErrSameStatus):
		return apperr.Conflict(err.Error())
	case errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrLostReasonRequired),
		errors.Is(err, domain.ErrConvertViaOperation):
		return apperr.Validation(err.Error())
	default:
		return err
	}
}
