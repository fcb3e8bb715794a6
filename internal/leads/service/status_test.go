package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/leads/domain"
	"hospital_crm_backend/internal/leads/repository"
	"hospital_crm_backend/internal/leads/transport"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	leads      map[uuid.UUID]repository.Lead
	activities []repository.Activity
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: make(map[uuid.UUID]repository.Lead)}
}

func (f *fakeStore) seed(status domain.Status) uuid.UUID {
	id := uuid.New()
	f.leads[id] = repository.Lead{
		ID:         id,
		LeadNumber: "LD-000001",
		FirstName:  "Amina",
		LastName:   "Yusuf",
		Phone:      "+15551230001",
		Source:     domain.SourceWebsite,
		Status:     status,
		Priority:   domain.PriorityMedium,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	return id
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	id := uuid.New()
	lead := repository.Lead{
		ID: id, LeadNumber: "LD-000001", FirstName: params.FirstName,
		LastName: params.LastName, Phone: params.Phone, Source: params.Source,
		Status: domain.StatusNew, Priority: params.Priority, Score: params.Score,
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) FindByPhone(_ context.Context, phone string) (repository.Lead, error) {
	for _, lead := range f.leads {
		if lead.Phone == phone {
			return lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, _ repository.UpdateLeadParams) (repository.Lead, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status, lostReason *string) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.Status != from {
		return repository.Lead{}, repository.ErrStaleState
	}
	lead.Status = to
	if lostReason != nil {
		lead.LostReason = lostReason
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) MarkConverted(_ context.Context, id uuid.UUID, patientID string) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.ConvertedToPatientID != nil || lead.Status.IsTerminal() {
		return repository.Lead{}, repository.ErrStaleState
	}
	lead.Status = domain.StatusConverted
	lead.ConvertedToPatientID = &patientID
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) Assign(_ context.Context, id uuid.UUID, assigneeID *uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.AssignedTo = assigneeID
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) SetScore(_ context.Context, id uuid.UUID, score int) error {
	lead, ok := f.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	lead.Score = score
	f.leads[id] = lead
	return nil
}

func (f *fakeStore) TouchLastContacted(_ context.Context, id uuid.UUID, at time.Time) error {
	lead, ok := f.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	lead.LastContactedAt = &at
	f.leads[id] = lead
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.leads, id)
	return nil
}

func (f *fakeStore) List(_ context.Context, _ repository.ListLeadsParams) ([]repository.Lead, int, error) {
	items := make([]repository.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		items = append(items, lead)
	}
	return items, len(items), nil
}

func (f *fakeStore) AppendActivity(_ context.Context, params repository.AppendActivityParams) (repository.Activity, error) {
	activity := repository.Activity{
		ID:        uuid.New(),
		LeadID:    params.LeadID,
		ActorID:   params.ActorID,
		ActorName: params.ActorName,
		EventType: params.EventType,
		OldValue:  params.OldValue,
		NewValue:  params.NewValue,
		Summary:   params.Summary,
		Metadata:  params.Metadata,
		CreatedAt: time.Now(),
	}
	f.activities = append(f.activities, activity)
	return activity, nil
}

func (f *fakeStore) ListActivities(_ context.Context, leadID uuid.UUID, _ int) ([]repository.Activity, error) {
	items := make([]repository.Activity, 0)
	for _, activity := range f.activities {
		if activity.LeadID == leadID {
			items = append(items, activity)
		}
	}
	return items, nil
}

func (f *fakeStore) GetEngagementCounts(_ context.Context, leadID uuid.UUID) (repository.EngagementCounts, error) {
	var counts repository.EngagementCounts
	for _, activity := range f.activities {
		if activity.LeadID == leadID {
			counts.Activities++
		}
	}
	return counts, nil
}

func (f *fakeStore) AttachTag(_ context.Context, _, _ uuid.UUID) error { return nil }
func (f *fakeStore) DetachTag(_ context.Context, _, _ uuid.UUID) error { return nil }
func (f *fakeStore) ListTags(_ context.Context, _ uuid.UUID) ([]repository.LeadTag, error) {
	return nil, nil
}

func (f *fakeStore) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	counts := make(map[domain.Status]int)
	for _, lead := range f.leads {
		counts[lead.Status]++
	}
	return counts, nil
}

func (f *fakeStore) CountBySource(_ context.Context) (map[domain.Source]int, error) {
	counts := make(map[domain.Source]int)
	for _, lead := range f.leads {
		counts[lead.Source]++
	}
	return counts, nil
}

type fakePatients struct {
	patientID string
	err       error
	calls     int
}

func (f *fakePatients) CreatePatient(_ context.Context, _ transport.ConvertLeadRequest) (string, error) {
	f.calls++
	return f.patientID, f.err
}

func newTestService(store Store, patients PatientConverter) *Service {
	log := logger.New("development")
	return New(store, patients, events.NewInMemoryBus(log), log)
}

var testActor = Actor{ID: uuid.New(), Name: "Dr. Okafor"}

func TestChangeStatus_LostRequiresReason(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusQualified)
	svc := newTestService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), id, domain.StatusLost, "", testActor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.leads[id].Status != domain.StatusQualified {
		t.Fatal("rejected transition must leave status unchanged")
	}

	resp, err := svc.ChangeStatus(context.Background(), id, domain.StatusLost, "went to another hospital", testActor)
	if err != nil {
		t.Fatalf("LOST with reason should succeed, got %v", err)
	}
	if resp.LostReason == nil || *resp.LostReason != "went to another hospital" {
		t.Fatalf("lostReason not recorded: %+v", resp.LostReason)
	}
}

func TestChangeStatus_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []domain.Status{domain.StatusConverted, domain.StatusLost} {
		store := newFakeStore()
		id := store.seed(terminal)
		svc := newTestService(store, nil)

		_, err := svc.ChangeStatus(context.Background(), id, domain.StatusContacted, "", testActor)
		if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("expected conflict from %s, got %v", terminal, err)
		}
		if store.leads[id].Status != terminal {
			t.Fatal("terminal lead status must remain unchanged")
		}
	}
}

func TestChangeStatus_SameStatusRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusContacted)
	svc := newTestService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), id, domain.StatusContacted, "", testActor)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for same-status write, got %v", err)
	}
}

func TestRequestTransition_SameStatusIsNoop(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusContacted)
	svc := newTestService(store, nil)

	resp, err := svc.RequestTransition(context.Background(), id, domain.StatusContacted, "", testActor)
	if err != nil {
		t.Fatalf("same-status drop must be a no-op success, got %v", err)
	}
	if resp.Status != domain.StatusContacted {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	if len(store.activities) != 0 {
		t.Fatal("no-op transition must not append an activity record")
	}
}

func TestChangeStatus_AppendsActivityRecord(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusNew)
	svc := newTestService(store, nil)

	if _, err := svc.ChangeStatus(context.Background(), id, domain.StatusQualified, "walk-in screening done", testActor); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	if len(store.activities) != 1 {
		t.Fatalf("expected 1 activity record, got %d", len(store.activities))
	}
	activity := store.activities[0]
	if activity.EventType != repository.ActivityStatusChanged {
		t.Fatalf("unexpected event type %s", activity.EventType)
	}
	if *activity.OldValue != "NEW" || *activity.NewValue != "QUALIFIED" {
		t.Fatalf("old/new values wrong: %s -> %s", *activity.OldValue, *activity.NewValue)
	}
}

func TestChangeStatus_RecomputesScore(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusNew)
	svc := newTestService(store, nil)

	if _, err := svc.ChangeStatus(context.Background(), id, domain.StatusContacted, "", testActor); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	// The transition appended an activity, which is a scoring input;
	// the stored score must reflect it without waiting for a later
	// communication or task event.
	if store.leads[id].Score == 0 {
		t.Fatal("accepted transition must recompute the lead score")
	}
}

func TestChangeStatus_DirectConvertRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusConsultationDone)
	svc := newTestService(store, nil)

	_, err := svc.ChangeStatus(context.Background(), id, domain.StatusConverted, "", testActor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConvert_SetsPatientIDAndClosesLead(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusConsultationDone)
	patients := &fakePatients{patientID: "PAT-9001"}
	svc := newTestService(store, patients)

	resp, err := svc.Convert(context.Background(), id, transport.ConvertLeadRequest{
		FirstName: "Amina", LastName: "Yusuf", Phone: "+15551230001",
	}, testActor)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if resp.PatientID != "PAT-9001" {
		t.Fatalf("unexpected patient id %s", resp.PatientID)
	}
	if resp.Lead.ConvertedToPatientID == nil || *resp.Lead.ConvertedToPatientID != "PAT-9001" {
		t.Fatal("convertedToPatientId not set")
	}

	// Converted is terminal: any further transition must fail.
	_, err = svc.ChangeStatus(context.Background(), id, domain.StatusContacted, "", testActor)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict after conversion, got %v", err)
	}
}

func TestConvert_AlreadyClosedRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusConverted)
	patients := &fakePatients{patientID: "PAT-9002"}
	svc := newTestService(store, patients)

	_, err := svc.Convert(context.Background(), id, transport.ConvertLeadRequest{
		FirstName: "Amina", LastName: "Yusuf", Phone: "+15551230001",
	}, testActor)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if patients.calls != 0 {
		t.Fatal("collaborator must not be called for a closed lead")
	}
}

func TestConvert_CollaboratorFailureLeavesLeadUntouched(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusQualified)
	patients := &fakePatients{err: errors.New("connection refused")}
	svc := newTestService(store, patients)

	_, err := svc.Convert(context.Background(), id, transport.ConvertLeadRequest{
		FirstName: "Amina", LastName: "Yusuf", Phone: "+15551230001",
	}, testActor)
	if !apperr.Is(err, apperr.KindDependency) {
		t.Fatalf("expected dependency failure, got %v", err)
	}
	if store.leads[id].Status != domain.StatusQualified {
		t.Fatal("lead must not be mutated when the collaborator fails")
	}
	if store.leads[id].ConvertedToPatientID != nil {
		t.Fatal("patient reference must not be set on failure")
	}
}
