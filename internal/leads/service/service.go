// Package service implements lead management: intake, search, assignment,
// scoring recomputation, and the status transition entry points.
package service

import (
	"context"
	"errors"
	"time"

	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/leads/domain"
	"hospital_crm_backend/internal/leads/repository"
	"hospital_crm_backend/internal/leads/scoring"
	"hospital_crm_backend/internal/leads/transport"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/phone"
	"hospital_crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the data access interface the lead service needs.
// Satisfied by *repository.Repository; tests substitute a fake.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	FindByPhone(ctx context.Context, phone string) (repository.Lead, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, lostReason *string) (repository.Lead, error)
	MarkConverted(ctx context.Context, id uuid.UUID, patientID string) (repository.Lead, error)
	Assign(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) (repository.Lead, error)
	SetScore(ctx context.Context, id uuid.UUID, score int) error
	TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params repository.ListLeadsParams) ([]repository.Lead, int, error)
	AppendActivity(ctx context.Context, params repository.AppendActivityParams) (repository.Activity, error)
	ListActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]repository.Activity, error)
	GetEngagementCounts(ctx context.Context, leadID uuid.UUID) (repository.EngagementCounts, error)
	AttachTag(ctx context.Context, leadID, tagID uuid.UUID) error
	DetachTag(ctx context.Context, leadID, tagID uuid.UUID) error
	ListTags(ctx context.Context, leadID uuid.UUID) ([]repository.LeadTag, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
	CountBySource(ctx context.Context) (map[domain.Source]int, error)
}

// PatientConverter is the patient-record collaborator port. The actual
// patient subsystem lives outside this service.
type PatientConverter interface {
	CreatePatient(ctx context.Context, req transport.ConvertLeadRequest) (patientID string, err error)
}

// Actor identifies who performed an operation, for the activity log.
type Actor struct {
	ID   uuid.UUID
	Name string
}

type Service struct {
	store    Store
	patients PatientConverter
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(store Store, patients PatientConverter, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		patients: patients,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest, actor Actor) (transport.LeadResponse, error) {
	priority := domain.PriorityMedium
	if req.Priority != "" {
		priority = domain.Priority(req.Priority)
	}

	params := repository.CreateLeadParams{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          phone.NormalizeE164(req.Phone),
		AlternatePhone: req.AlternatePhone,
		Email:          req.Email,
		Gender:         req.Gender,
		DateOfBirth:    req.DateOfBirth,
		City:           req.City,
		Source:         domain.Source(req.Source),
		Priority:       priority,
		AssignedTo:     req.AssignedTo,
		NextFollowUpAt: req.NextFollowUpAt,
	}
	params.Score = scoring.Compute(scoring.Input{
		Source:   params.Source,
		Priority: params.Priority,
	}, s.now())

	lead, err := s.store.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	for _, tagID := range req.TagIDs {
		if err := s.store.AttachTag(ctx, lead.ID, tagID); err != nil {
			s.log.DatabaseError("leads.attach_tag", err)
		}
	}

	if _, err := s.store.AppendActivity(ctx, repository.AppendActivityParams{
		LeadID:    lead.ID,
		ActorID:   &actor.ID,
		ActorName: actor.Name,
		EventType: repository.ActivityCreated,
		NewValue:  strPtr(string(lead.Status)),
	}); err != nil {
		s.log.DatabaseError("leads.append_activity", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		LeadNumber: lead.LeadNumber,
		Source:     string(lead.Source),
		AssignedTo: lead.AssignedTo,
	})

	return s.toResponse(ctx, lead), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}
	return s.toResponse(ctx, lead), nil
}

// CheckDuplicate looks for an existing lead with the same normalized phone.
func (s *Service) CheckDuplicate(ctx context.Context, rawPhone string) (transport.DuplicateCheckResponse, error) {
	lead, err := s.store.FindByPhone(ctx, phone.NormalizeE164(rawPhone))
	if errors.Is(err, repository.ErrNotFound) {
		return transport.DuplicateCheckResponse{IsDuplicate: false}, nil
	}
	if err != nil {
		return transport.DuplicateCheckResponse{}, err
	}

	resp := s.toResponse(ctx, lead)
	return transport.DuplicateCheckResponse{IsDuplicate: true, ExistingLead: &resp}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	params := repository.UpdateLeadParams{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		AlternatePhone: req.AlternatePhone,
		Email:          req.Email,
		Gender:         req.Gender,
		City:           req.City,
		NextFollowUpAt: req.NextFollowUpAt,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		params.Priority = &priority
	}

	lead, err := s.store.Update(ctx, id, params)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}

	// Priority is a scoring input; recompute when it changed.
	if req.Priority != nil {
		lead = s.rescore(ctx, lead)
	}

	return s.toResponse(ctx, lead), nil
}

func (s *Service) Assign(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID, actor Actor) (transport.LeadResponse, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}

	lead, err := s.store.Assign(ctx, id, assigneeID)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}

	if _, err := s.store.AppendActivity(ctx, repository.AppendActivityParams{
		LeadID:    lead.ID,
		ActorID:   &actor.ID,
		ActorName: actor.Name,
		EventType: repository.ActivityAssigned,
		OldValue:  uuidPtrToStr(current.AssignedTo),
		NewValue:  uuidPtrToStr(assigneeID),
	}); err != nil {
		s.log.DatabaseError("leads.append_activity", err)
	}

	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		AssignedTo: assigneeID,
		ActorID:    actor.ID,
	})

	return s.toResponse(ctx, lead), nil
}

// Delete is the explicit administrative delete; pipeline flow never removes leads.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return mapNotFound(s.store.Delete(ctx, id))
}

func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 25
	}

	params := repository.ListLeadsParams{
		AssignedTo: req.AssignedTo,
		TagID:      req.TagID,
		Search:     req.Search,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		params.Status = &status
	}
	if req.Source != nil {
		source := domain.Source(*req.Source)
		params.Source = &source
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		params.Priority = &priority
	}

	leads, total, err := s.store.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, toLeadResponse(lead, nil))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) Timeline(ctx context.Context, id uuid.UUID, limit int) ([]transport.ActivityResponse, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}

	activities, err := s.store.ListActivities(ctx, id, limit)
	if err != nil {
		return nil, err
	}

	items := make([]transport.ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		items = append(items, transport.ActivityResponse{
			ID:        activity.ID,
			ActorID:   activity.ActorID,
			ActorName: activity.ActorName,
			EventType: activity.EventType,
			OldValue:  activity.OldValue,
			NewValue:  activity.NewValue,
			Summary:   activity.Summary,
			Metadata:  activity.Metadata,
			CreatedAt: activity.CreatedAt,
		})
	}
	return items, nil
}

func (s *Service) AddNote(ctx context.Context, id uuid.UUID, body string, actor Actor) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return mapNotFound(err)
	}

	_, err := s.store.AppendActivity(ctx, repository.AppendActivityParams{
		LeadID:    id,
		ActorID:   &actor.ID,
		ActorName: actor.Name,
		EventType: repository.ActivityNoteAdded,
		Summary:   repository.TruncateSummary(sanitize.Text(body), repository.SummaryMaxLen),
	})
	return err
}

func (s *Service) AttachTag(ctx context.Context, leadID, tagID uuid.UUID) error {
	if _, err := s.store.GetByID(ctx, leadID); err != nil {
		return mapNotFound(err)
	}
	return s.store.AttachTag(ctx, leadID, tagID)
}

func (s *Service) DetachTag(ctx context.Context, leadID, tagID uuid.UUID) error {
	return s.store.DetachTag(ctx, leadID, tagID)
}

// RecordContact updates last_contacted_at and recomputes the score.
// Invoked when the communications module logs an outbound contact.
func (s *Service) RecordContact(ctx context.Context, leadID uuid.UUID, at time.Time) {
	if err := s.store.TouchLastContacted(ctx, leadID, at); err != nil {
		s.log.DatabaseError("leads.touch_last_contacted", err)
		return
	}
	if lead, err := s.store.GetByID(ctx, leadID); err == nil {
		s.rescore(ctx, lead)
	}
}

// RecordTaskCompletion appends a timeline entry for a completed follow-up
// task and recomputes the score.
func (s *Service) RecordTaskCompletion(ctx context.Context, leadID, taskID uuid.UUID, outcome string) {
	_, err := s.store.AppendActivity(ctx, repository.AppendActivityParams{
		LeadID:    leadID,
		ActorName: "system",
		EventType: repository.ActivityTaskCompleted,
		Summary:   repository.TruncateSummary(outcome, repository.SummaryMaxLen),
		Metadata:  map[string]any{"taskId": taskID.String()},
	})
	if err != nil {
		s.log.DatabaseError("leads.append_activity", err)
	}
	s.Rescore(ctx, leadID)
}

// CountByStatus returns the pipeline distribution for funnel analytics.
func (s *Service) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	return s.store.CountByStatus(ctx)
}

// CountBySource returns the lead-by-source histogram.
func (s *Service) CountBySource(ctx context.Context) (map[domain.Source]int, error) {
	return s.store.CountBySource(ctx)
}

// Rescore recomputes and persists the score for a lead; used by event
// subscriptions when an engagement count changes elsewhere.
func (s *Service) Rescore(ctx context.Context, leadID uuid.UUID) {
	if lead, err := s.store.GetByID(ctx, leadID); err == nil {
		s.rescore(ctx, lead)
	}
}

// rescore recomputes the score from current attributes and engagement
// counts. Score is derived state; failures are logged and the stale score
// stands until the next recomputation.
func (s *Service) rescore(ctx context.Context, lead repository.Lead) repository.Lead {
	counts, err := s.store.GetEngagementCounts(ctx, lead.ID)
	if err != nil {
		s.log.DatabaseError("leads.engagement_counts", err)
		return lead
	}

	score := scoring.Compute(scoring.Input{
		Source:             lead.Source,
		Priority:           lead.Priority,
		LastContactedAt:    lead.LastContactedAt,
		ActivityCount:      counts.Activities,
		CommunicationCount: counts.Communications,
		CompletedTaskCount: counts.CompletedTasks,
		SurveyAvgRating:    counts.SurveyAvgRating,
	}, s.now())

	if score != lead.Score {
		if err := s.store.SetScore(ctx, lead.ID, score); err != nil {
			s.log.DatabaseError("leads.set_score", err)
			return lead
		}
		lead.Score = score
	}
	return lead
}

func (s *Service) toResponse(ctx context.Context, lead repository.Lead) transport.LeadResponse {
	tags, err := s.store.ListTags(ctx, lead.ID)
	if err != nil {
		s.log.DatabaseError("leads.list_tags", err)
	}
	return toLeadResponse(lead, tags)
}

func toLeadResponse(lead repository.Lead, tags []repository.LeadTag) transport.LeadResponse {
	tagItems := make([]transport.TagResponse, 0, len(tags))
	for _, tag := range tags {
		tagItems = append(tagItems, transport.TagResponse{
			ID:       tag.ID,
			Name:     tag.Name,
			Color:    tag.Color,
			Category: tag.Category,
		})
	}

	return transport.LeadResponse{
		ID:                   lead.ID,
		LeadNumber:           lead.LeadNumber,
		FirstName:            lead.FirstName,
		LastName:             lead.LastName,
		Phone:                lead.Phone,
		AlternatePhone:       lead.AlternatePhone,
		Email:                lead.Email,
		Gender:               lead.Gender,
		DateOfBirth:          lead.DateOfBirth,
		City:                 lead.City,
		Source:               lead.Source,
		Status:               lead.Status,
		Priority:             lead.Priority,
		Score:                lead.Score,
		ScoreBand:            string(scoring.BandFor(lead.Score)),
		AssignedTo:           lead.AssignedTo,
		LostReason:           lead.LostReason,
		ConvertedToPatientID: lead.ConvertedToPatientID,
		LastContactedAt:      lead.LastContactedAt,
		NextFollowUpAt:       lead.NextFollowUpAt,
		Tags:                 tagItems,
		CreatedAt:            lead.CreatedAt,
		UpdatedAt:            lead.UpdatedAt,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	return err
}

func strPtr(s string) *string { return &s }

func uuidPtrToStr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	value := id.String()
	return &value
}
