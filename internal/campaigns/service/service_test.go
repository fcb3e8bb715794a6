package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hospital_crm_backend/internal/campaigns/domain"
	"hospital_crm_backend/internal/campaigns/repository"
	"hospital_crm_backend/internal/campaigns/transport"
	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/leads"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	campaigns  map[uuid.UUID]repository.Campaign
	recipients map[uuid.UUID]repository.Recipient
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns:  make(map[uuid.UUID]repository.Campaign),
		recipients: make(map[uuid.UUID]repository.Recipient),
	}
}

func (f *fakeStore) seed(status domain.Status) uuid.UUID {
	id := uuid.New()
	f.campaigns[id] = repository.Campaign{
		ID:       id,
		Name:     "spring checkup reminders",
		Channel:  domain.ChannelSMS,
		Status:   status,
		Audience: json.RawMessage(`{}`),
	}
	return id
}

func (f *fakeStore) seedRecipient(campaignID uuid.UUID, stage domain.Stage) uuid.UUID {
	id := uuid.New()
	f.recipients[id] = repository.Recipient{
		ID: id, CampaignID: campaignID, LeadID: uuid.New(),
		FirstName: "Amina", Phone: "+15551230001", Stage: stage,
	}
	return id
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateCampaignParams) (repository.Campaign, error) {
	id := uuid.New()
	c := repository.Campaign{
		ID: id, Name: params.Name, Description: params.Description,
		Channel: params.Channel, TemplateID: params.TemplateID,
		Status: domain.StatusDraft, Audience: params.Audience,
	}
	f.campaigns[id] = c
	return c, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return repository.Campaign{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) List(_ context.Context, _ *domain.Status, _ *domain.Channel) ([]repository.Campaign, error) {
	var out []repository.Campaign
	for _, c := range f.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, params repository.UpdateCampaignParams) (repository.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return repository.Campaign{}, repository.ErrNotFound
	}
	if c.Status != domain.StatusDraft {
		return repository.Campaign{}, repository.ErrStaleState
	}
	if params.Name != nil {
		c.Name = *params.Name
	}
	f.campaigns[id] = c
	return c, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status) (repository.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return repository.Campaign{}, repository.ErrNotFound
	}
	if c.Status != from {
		return repository.Campaign{}, repository.ErrStaleState
	}
	c.Status = to
	now := time.Now()
	switch to {
	case domain.StatusRunning:
		if c.StartedAt == nil {
			c.StartedAt = &now
		}
	case domain.StatusCompleted:
		c.CompletedAt = &now
	}
	f.campaigns[id] = c
	return c, nil
}

func (f *fakeStore) SetSchedule(_ context.Context, id uuid.UUID, at time.Time) (repository.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return repository.Campaign{}, repository.ErrNotFound
	}
	if c.Status != domain.StatusDraft {
		return repository.Campaign{}, repository.ErrStaleState
	}
	c.Status = domain.StatusScheduled
	c.ScheduledAt = &at
	f.campaigns[id] = c
	return c, nil
}

func (f *fakeStore) SetTotalRecipients(_ context.Context, id uuid.UUID, total int) error {
	c := f.campaigns[id]
	c.Funnel.TotalRecipients = total
	f.campaigns[id] = c
	return nil
}

func (f *fakeStore) IncrementCounters(_ context.Context, id uuid.UUID, deltas domain.Funnel) error {
	c := f.campaigns[id]
	c.Funnel.Sent += deltas.Sent
	c.Funnel.Delivered += deltas.Delivered
	c.Funnel.Opened += deltas.Opened
	c.Funnel.Clicked += deltas.Clicked
	c.Funnel.Responded += deltas.Responded
	c.Funnel.Converted += deltas.Converted
	c.Funnel.Failed += deltas.Failed
	f.campaigns[id] = c
	return nil
}

func (f *fakeStore) ListScheduledDue(_ context.Context, now time.Time) ([]repository.Campaign, error) {
	var out []repository.Campaign
	for _, c := range f.campaigns {
		if c.Status == domain.StatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRunning(_ context.Context) ([]repository.Campaign, error) {
	var out []repository.Campaign
	for _, c := range f.campaigns {
		if c.Status == domain.StatusRunning {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertRecipients(_ context.Context, campaignID uuid.UUID, seeds []repository.RecipientSeed) (int, error) {
	for _, seed := range seeds {
		id := uuid.New()
		f.recipients[id] = repository.Recipient{
			ID: id, CampaignID: campaignID, LeadID: seed.LeadID,
			FirstName: seed.FirstName, Phone: seed.Phone, Email: seed.Email,
			Stage: domain.StagePending,
		}
	}
	return len(seeds), nil
}

func (f *fakeStore) GetRecipient(_ context.Context, id uuid.UUID) (repository.Recipient, error) {
	rec, ok := f.recipients[id]
	if !ok {
		return repository.Recipient{}, repository.ErrRecipientNotFound
	}
	return rec, nil
}

func (f *fakeStore) ListRecipients(_ context.Context, campaignID uuid.UUID, stage *domain.Stage) ([]repository.Recipient, error) {
	var out []repository.Recipient
	for _, rec := range f.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		if stage != nil && rec.Stage != *stage {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStore) ClaimPendingBatch(_ context.Context, campaignID uuid.UUID, limit int) ([]repository.Recipient, error) {
	var out []repository.Recipient
	for _, rec := range f.recipients {
		if rec.CampaignID == campaignID && rec.Stage == domain.StagePending && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) AdvanceRecipientStage(_ context.Context, id uuid.UUID, from, to domain.Stage, providerRef *string, at time.Time) (bool, error) {
	rec, ok := f.recipients[id]
	if !ok || rec.Stage != from {
		return false, nil
	}
	rec.Stage = to
	if providerRef != nil {
		rec.ProviderRef = providerRef
	}
	rec.LastEventAt = &at
	f.recipients[id] = rec
	return true, nil
}

func (f *fakeStore) MarkRecipientResponded(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	rec, ok := f.recipients[id]
	if !ok || rec.Responded {
		return false, nil
	}
	rec.Responded = true
	rec.LastEventAt = &at
	f.recipients[id] = rec
	return true, nil
}

func (f *fakeStore) MarkRecipientConverted(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	rec, ok := f.recipients[id]
	if !ok || rec.Converted {
		return false, nil
	}
	rec.Converted = true
	rec.LastEventAt = &at
	f.recipients[id] = rec
	return true, nil
}

func (f *fakeStore) CountPending(_ context.Context, campaignID uuid.UUID) (int, error) {
	n := 0
	for _, rec := range f.recipients {
		if rec.CampaignID == campaignID && rec.Stage == domain.StagePending {
			n++
		}
	}
	return n, nil
}

type fakeAudience struct {
	members []leads.AudienceMember
	err     error
}

func (f *fakeAudience) SelectAudience(context.Context, leads.AudienceCriteria) ([]leads.AudienceMember, error) {
	return f.members, f.err
}

type fakeEnqueuer struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeEnqueuer) EnqueueCampaignDispatch(_ context.Context, id uuid.UUID) error {
	f.calls = append(f.calls, id)
	return f.err
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Subscribe(string, events.Handler) {}
func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}

func newTestService(store *fakeStore, audience *fakeAudience, enqueuer *fakeEnqueuer) (*Service, *recordingBus) {
	bus := &recordingBus{}
	svc := New(store, audience, enqueuer, bus, logger.New("test"))
	return svc, bus
}

func TestLaunch_SnapshotsAudienceAndDispatches(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusDraft)
	audience := &fakeAudience{members: []leads.AudienceMember{
		{LeadID: uuid.New(), FirstName: "Amina", Phone: "+15551230001"},
		{LeadID: uuid.New(), FirstName: "Ben", Phone: "+15551230002"},
	}}
	enqueuer := &fakeEnqueuer{}
	svc, bus := newTestService(store, audience, enqueuer)

	resp, err := svc.Launch(context.Background(), id)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if resp.Status != string(domain.StatusRunning) {
		t.Errorf("status = %s, want RUNNING", resp.Status)
	}
	if resp.Funnel.TotalRecipients != 2 {
		t.Errorf("totalRecipients = %d, want 2", resp.Funnel.TotalRecipients)
	}
	if resp.StartedAt == nil {
		t.Error("startedAt not stamped")
	}
	if len(enqueuer.calls) != 1 {
		t.Errorf("dispatch enqueued %d times, want 1", len(enqueuer.calls))
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	evt, ok := bus.published[0].(events.CampaignLaunched)
	if !ok {
		t.Fatalf("expected CampaignLaunched, got %T", bus.published[0])
	}
	if evt.TotalRecipients != 2 {
		t.Errorf("event recipients = %d, want 2", evt.TotalRecipients)
	}
}

func TestLaunch_DoubleLaunchRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusRunning)
	svc, _ := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	_, err := svc.Launch(context.Background(), id)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLaunch_AudienceFailureIsDependencyError(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusDraft)
	audience := &fakeAudience{err: errors.New("lead store timeout")}
	svc, _ := newTestService(store, audience, &fakeEnqueuer{})

	_, err := svc.Launch(context.Background(), id)
	if !apperr.Is(err, apperr.KindDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if store.campaigns[id].Status != domain.StatusDraft {
		t.Fatalf("status = %s, want DRAFT restored after failed snapshot", store.campaigns[id].Status)
	}
}

func TestPause_FromDraftRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusDraft)
	svc, _ := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	_, err := svc.Pause(context.Background(), id)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPauseResume_PreservesCounters(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusRunning)
	c := store.campaigns[id]
	c.Funnel = domain.Funnel{TotalRecipients: 10, Sent: 5, Delivered: 4}
	store.campaigns[id] = c
	svc, _ := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	paused, err := svc.Pause(context.Background(), id)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused.Funnel.Sent != 5 || paused.Funnel.Delivered != 4 {
		t.Fatalf("counters lost on pause: %+v", paused.Funnel)
	}

	resumed, err := svc.Resume(context.Background(), id)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != string(domain.StatusRunning) {
		t.Errorf("status = %s, want RUNNING", resumed.Status)
	}
}

func TestIngest_OutOfOrderReportCountsImpliedStages(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusRunning)
	recID := store.seedRecipient(id, domain.StageSent)
	svc, _ := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	// OPENED arrives before the DELIVERED report.
	err := svc.IngestDeliveryReport(context.Background(), id, transport.DeliveryReportRequest{
		RecipientID: recID,
		Event:       "OPENED",
	})
	if err != nil {
		t.Fatalf("IngestDeliveryReport: %v", err)
	}

	funnel := store.campaigns[id].Funnel
	if funnel.Delivered != 1 || funnel.Opened != 1 {
		t.Fatalf("delivered=%d opened=%d, want 1/1", funnel.Delivered, funnel.Opened)
	}

	// The late DELIVERED report is a duplicate now.
	err = svc.IngestDeliveryReport(context.Background(), id, transport.DeliveryReportRequest{
		RecipientID: recID,
		Event:       "DELIVERED",
	})
	if err != nil {
		t.Fatalf("late report: %v", err)
	}
	funnel = store.campaigns[id].Funnel
	if funnel.Delivered != 1 || funnel.Opened != 1 {
		t.Fatalf("late report moved counters: delivered=%d opened=%d", funnel.Delivered, funnel.Opened)
	}
}

func TestIngest_DuplicateReportIsNoop(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusRunning)
	recID := store.seedRecipient(id, domain.StagePending)
	svc, _ := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	for i := 0; i < 3; i++ {
		err := svc.IngestDeliveryReport(context.Background(), id, transport.DeliveryReportRequest{
			RecipientID: recID,
			Event:       "SENT",
		})
		if err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}

	if sent := store.campaigns[id].Funnel.Sent; sent != 1 {
		t.Fatalf("sent = %d after duplicate reports, want 1", sent)
	}
}

func TestIngest_RespondedIsIdempotent(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusRunning)
	recID := store.seedRecipient(id, domain.StageDelivered)
	svc, _ := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	for i := 0; i < 2; i++ {
		err := svc.IngestDeliveryReport(context.Background(), id, transport.DeliveryReportRequest{
			RecipientID: recID,
			Event:       "RESPONDED",
		})
		if err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}

	if responded := store.campaigns[id].Funnel.Responded; responded != 1 {
		t.Fatalf("responded = %d, want 1", responded)
	}
}

func TestIngest_WrongCampaignRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusRunning)
	other := store.seed(domain.StatusRunning)
	recID := store.seedRecipient(other, domain.StageSent)
	svc, _ := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	err := svc.IngestDeliveryReport(context.Background(), id, transport.DeliveryReportRequest{
		RecipientID: recID,
		Event:       "DELIVERED",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordSendResult_FailureCountsFailed(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusRunning)
	okID := store.seedRecipient(id, domain.StagePending)
	failID := store.seedRecipient(id, domain.StagePending)
	svc, _ := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	if err := svc.RecordSendResult(context.Background(), okID, nil, nil); err != nil {
		t.Fatalf("RecordSendResult ok: %v", err)
	}
	if err := svc.RecordSendResult(context.Background(), failID, nil, errors.New("gateway 502")); err != nil {
		t.Fatalf("RecordSendResult fail: %v", err)
	}

	funnel := store.campaigns[id].Funnel
	if funnel.Sent != 1 || funnel.Failed != 1 {
		t.Fatalf("sent=%d failed=%d, want 1/1", funnel.Sent, funnel.Failed)
	}
	if store.recipients[failID].Stage != domain.StageFailed {
		t.Errorf("failed recipient stage = %s", store.recipients[failID].Stage)
	}
}

func TestResolveCompletion(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusRunning)
	pendingID := store.seedRecipient(id, domain.StagePending)
	store.seedRecipient(id, domain.StageSent)
	svc, bus := newTestService(store, &fakeAudience{}, &fakeEnqueuer{})

	if err := svc.ResolveCompletion(context.Background(), id); err != nil {
		t.Fatalf("ResolveCompletion: %v", err)
	}
	if store.campaigns[id].Status != domain.StatusRunning {
		t.Fatal("campaign completed while a recipient is still pending")
	}

	rec := store.recipients[pendingID]
	rec.Stage = domain.StageFailed
	store.recipients[pendingID] = rec

	if err := svc.ResolveCompletion(context.Background(), id); err != nil {
		t.Fatalf("ResolveCompletion: %v", err)
	}
	if store.campaigns[id].Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", store.campaigns[id].Status)
	}
	if store.campaigns[id].CompletedAt == nil {
		t.Error("completedAt not stamped")
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	if _, ok := bus.published[0].(events.CampaignCompleted); !ok {
		t.Fatalf("expected CampaignCompleted, got %T", bus.published[0])
	}
}
