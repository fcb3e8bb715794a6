package service

import (
	"context"
	"testing"

	"hospital_crm_backend/internal/templates/domain"
	"hospital_crm_backend/internal/templates/repository"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	templates map[uuid.UUID]repository.Template
	usage     map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates: make(map[uuid.UUID]repository.Template),
		usage:     make(map[uuid.UUID]int),
	}
}

func (f *fakeStore) seed(subject *string, body string, variables []string) uuid.UUID {
	id := uuid.New()
	f.templates[id] = repository.Template{
		ID: id, Name: "appointment reminder", Channel: domain.ChannelEmail,
		Subject: subject, Body: body, Variables: variables,
	}
	return id
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateTemplateParams) (repository.Template, error) {
	id := uuid.New()
	tpl := repository.Template{
		ID: id, Name: params.Name, Channel: params.Channel,
		Subject: params.Subject, Body: params.Body, Variables: params.Variables,
	}
	f.templates[id] = tpl
	return tpl, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return repository.Template{}, repository.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeStore) List(_ context.Context, _ *domain.Channel) ([]repository.Template, error) {
	var out []repository.Template
	for _, tpl := range f.templates {
		out = append(out, tpl)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, params repository.UpdateTemplateParams) (repository.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return repository.Template{}, repository.ErrNotFound
	}
	if params.Body != nil {
		tpl.Body = *params.Body
	}
	f.templates[id] = tpl
	return tpl, nil
}

func (f *fakeStore) IncrementUsage(_ context.Context, id uuid.UUID) error {
	f.usage[id]++
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.templates, id)
	return nil
}

func TestRender_SubstitutesAndCountsUsage(t *testing.T) {
	store := newFakeStore()
	subject := "Reminder for {{firstName}}"
	id := store.seed(&subject, "Hi {{firstName}}, see you on {{date}}.", []string{"firstName", "date"})
	svc := New(store, logger.New("test"))

	rendered, err := svc.Render(context.Background(), id, map[string]string{
		"firstName": "Amina",
		"date":      "March 3",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered.Subject != "Reminder for Amina" {
		t.Errorf("subject = %q", rendered.Subject)
	}
	if rendered.Body != "Hi Amina, see you on March 3." {
		t.Errorf("body = %q", rendered.Body)
	}
	if store.usage[id] != 1 {
		t.Errorf("usage count = %d, want 1", store.usage[id])
	}

	if _, err := svc.Render(context.Background(), id, nil); err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if store.usage[id] != 2 {
		t.Errorf("usage count = %d, want 2", store.usage[id])
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	svc := New(newFakeStore(), logger.New("test"))

	_, err := svc.Render(context.Background(), uuid.New(), nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
