package service

import (
	"context"
	"testing"
	"time"

	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/surveys/domain"
	"hospital_crm_backend/internal/surveys/repository"
	"hospital_crm_backend/internal/surveys/transport"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	surveys   map[uuid.UUID]repository.Survey
	responses map[uuid.UUID]repository.Response
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		surveys:   make(map[uuid.UUID]repository.Survey),
		responses: make(map[uuid.UUID]repository.Response),
	}
}

func (f *fakeStore) seedSurvey() uuid.UUID {
	id := uuid.New()
	f.surveys[id] = repository.Survey{ID: id, Name: "Post-visit satisfaction", Kind: "POST_VISIT", CreatedAt: time.Now()}
	return id
}

func (f *fakeStore) seedAnonymousSurvey() uuid.UUID {
	id := uuid.New()
	f.surveys[id] = repository.Survey{ID: id, Name: "Staff feedback", Kind: "GENERAL", IsAnonymous: true, CreatedAt: time.Now()}
	return id
}

func (f *fakeStore) CreateSurvey(_ context.Context, params repository.CreateSurveyParams) (repository.Survey, error) {
	s := repository.Survey{
		ID:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		Kind:        params.Kind,
		IsAnonymous: params.IsAnonymous,
		Questions:   params.Questions,
		CreatedAt:   time.Now(),
	}
	f.surveys[s.ID] = s
	return s, nil
}

func (f *fakeStore) GetSurvey(_ context.Context, id uuid.UUID) (repository.Survey, error) {
	s, ok := f.surveys[id]
	if !ok {
		return repository.Survey{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ListSurveys(_ context.Context) ([]repository.Survey, error) {
	out := make([]repository.Survey, 0, len(f.surveys))
	for _, s := range f.surveys {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) CreateResponse(_ context.Context, params repository.CreateResponseParams) (repository.Response, error) {
	resp := repository.Response{
		ID:               uuid.New(),
		SurveyID:         params.SurveyID,
		LeadID:           params.LeadID,
		PatientID:        params.PatientID,
		OverallRating:    params.OverallRating,
		NPSScore:         params.NPSScore,
		Sentiment:        params.Sentiment,
		Comments:         params.Comments,
		Answers:          params.Answers,
		RequiresFollowUp: params.RequiresFollowUp,
		SubmittedAt:      time.Now(),
	}
	f.responses[resp.ID] = resp
	return resp, nil
}

func (f *fakeStore) ListResponses(_ context.Context, surveyID uuid.UUID) ([]repository.Response, error) {
	var out []repository.Response
	for _, resp := range f.responses {
		if resp.SurveyID == surveyID {
			out = append(out, resp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListFollowUps(_ context.Context) ([]repository.Response, error) {
	var out []repository.Response
	for _, resp := range f.responses {
		if resp.RequiresFollowUp && !resp.FollowUpDone {
			out = append(out, resp)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkFollowUpDone(_ context.Context, responseID uuid.UUID) error {
	resp, ok := f.responses[responseID]
	if !ok || !resp.RequiresFollowUp || resp.FollowUpDone {
		return repository.ErrResponseNotFound
	}
	resp.FollowUpDone = true
	f.responses[responseID] = resp
	return nil
}

func (f *fakeStore) ListAllResponses(_ context.Context) ([]repository.Response, error) {
	out := make([]repository.Response, 0, len(f.responses))
	for _, resp := range f.responses {
		out = append(out, resp)
	}
	return out, nil
}

// recordingBus captures published events synchronously.
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

func newTestService(store *fakeStore) (*Service, *recordingBus) {
	bus := &recordingBus{}
	svc := New(store, bus, logger.New("test"))
	return svc, bus
}

func intPtr(v int) *int { return &v }

func TestSubmitResponse_PublishesEvent(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(store)
	surveyID := store.seedSurvey()
	leadID := uuid.New()

	item, err := svc.SubmitResponse(context.Background(), surveyID, transport.SubmitResponseRequest{
		LeadID:        &leadID,
		OverallRating: intPtr(5),
		NPSScore:      intPtr(9),
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if item.Sentiment != "POSITIVE" {
		t.Errorf("sentiment = %q, want POSITIVE", item.Sentiment)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	evt, ok := bus.published[0].(events.SurveyResponseSubmitted)
	if !ok {
		t.Fatalf("published %T, want SurveyResponseSubmitted", bus.published[0])
	}
	if evt.SurveyID != surveyID {
		t.Errorf("event survey = %s, want %s", evt.SurveyID, surveyID)
	}
	if evt.LeadID == nil || *evt.LeadID != leadID {
		t.Errorf("event lead = %v, want %s", evt.LeadID, leadID)
	}
}

func TestCreate_KeepsQuestionSchema(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), transport.CreateSurveyRequest{
		Name:        "Discharge experience",
		IsAnonymous: true,
		Questions: []transport.Question{
			{Key: "ward_cleanliness", Label: "How clean was the ward?", Kind: "RATING"},
			{Key: "comments", Label: "Anything else?", Kind: "TEXT"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.IsAnonymous {
		t.Error("survey should be anonymous")
	}
	if len(created.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(created.Questions))
	}
	if created.Questions[0].Key != "ward_cleanliness" || created.Questions[0].Kind != "RATING" {
		t.Errorf("first question = %+v", created.Questions[0])
	}

	fetched, err := svc.GetByID(context.Background(), uuid.MustParse(created.ID))
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(fetched.Questions) != 2 {
		t.Errorf("fetched questions = %d, want 2", len(fetched.Questions))
	}
}

func TestSubmitResponse_StoredSentimentWinsOverRating(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	surveyID := store.seedSurvey()

	item, err := svc.SubmitResponse(context.Background(), surveyID, transport.SubmitResponseRequest{
		OverallRating: intPtr(5),
		Sentiment:     "NEGATIVE",
		Answers:       map[string]any{"wait_time": "over an hour"},
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if item.Sentiment != "NEGATIVE" {
		t.Errorf("sentiment = %q, want stored NEGATIVE over rating-derived POSITIVE", item.Sentiment)
	}
	if item.Answers["wait_time"] != "over an hour" {
		t.Errorf("answers = %v", item.Answers)
	}

	analytics, err := svc.Analytics(context.Background(), surveyID)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	for _, sc := range analytics.Sentiment {
		if sc.Sentiment == domain.SentimentNegative && sc.Count != 1 {
			t.Errorf("negative count = %d, want 1", sc.Count)
		}
		if sc.Sentiment == domain.SentimentPositive && sc.Count != 0 {
			t.Errorf("positive count = %d, want 0", sc.Count)
		}
	}
}

func TestSubmitResponse_AnonymousSurveyDropsLinks(t *testing.T) {
	store := newFakeStore()
	svc, bus := newTestService(store)
	surveyID := store.seedAnonymousSurvey()
	leadID := uuid.New()
	patientID := "P-2041"

	item, err := svc.SubmitResponse(context.Background(), surveyID, transport.SubmitResponseRequest{
		LeadID:        &leadID,
		PatientID:     &patientID,
		OverallRating: intPtr(4),
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if item.LeadID != nil || item.PatientID != nil {
		t.Errorf("anonymous response kept links: lead=%v patient=%v", item.LeadID, item.PatientID)
	}

	evt := bus.published[0].(events.SurveyResponseSubmitted)
	if evt.LeadID != nil {
		t.Errorf("event carries lead %v, want nil", evt.LeadID)
	}
}

func TestSubmitResponse_UnknownSurvey(t *testing.T) {
	svc, bus := newTestService(newFakeStore())

	_, err := svc.SubmitResponse(context.Background(), uuid.New(), transport.SubmitResponseRequest{
		OverallRating: intPtr(3),
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events, want 0", len(bus.published))
	}
}

func TestAnalytics_ExcludesCompletedFollowUps(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	surveyID := store.seedSurvey()

	first, err := svc.SubmitResponse(context.Background(), surveyID, transport.SubmitResponseRequest{
		OverallRating:    intPtr(1),
		RequiresFollowUp: true,
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if _, err := svc.SubmitResponse(context.Background(), surveyID, transport.SubmitResponseRequest{
		OverallRating:    intPtr(2),
		RequiresFollowUp: true,
	}); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	if err := svc.CompleteFollowUp(context.Background(), uuid.MustParse(first.ID)); err != nil {
		t.Fatalf("CompleteFollowUp: %v", err)
	}

	analytics, err := svc.Analytics(context.Background(), surveyID)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if analytics.FollowUpsDue != 1 {
		t.Errorf("follow-ups due = %d, want 1", analytics.FollowUpsDue)
	}
	if analytics.TotalResponses != 2 {
		t.Errorf("total responses = %d, want 2", analytics.TotalResponses)
	}

	queue, err := svc.FollowUpQueue(context.Background())
	if err != nil {
		t.Fatalf("FollowUpQueue: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queue))
	}
}

func TestCompleteFollowUp_UnknownResponse(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	err := svc.CompleteFollowUp(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
