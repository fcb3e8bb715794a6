package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/tasks/domain"
	"hospital_crm_backend/internal/tasks/repository"
	"hospital_crm_backend/internal/tasks/transport"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	tasks map[uuid.UUID]repository.Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[uuid.UUID]repository.Task)}
}

func (f *fakeStore) seed(status domain.Status, due time.Time, leadID *uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.tasks[id] = repository.Task{
		ID:         id,
		Title:      "Call back about consultation",
		Type:       domain.TypeCall,
		Priority:   domain.PriorityMedium,
		Status:     status,
		AssignedTo: uuid.New(),
		DueDate:    due,
		LeadID:     leadID,
	}
	return id
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateTaskParams) (repository.Task, error) {
	id := uuid.New()
	task := repository.Task{
		ID: id, Title: params.Title, Description: params.Description,
		Type: params.Type, Priority: params.Priority, Status: domain.StatusPending,
		AssignedTo: params.AssignedTo, DueDate: params.DueDate, LeadID: params.LeadID,
	}
	f.tasks[id] = task
	return task, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, repository.ErrNotFound
	}
	return task, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, params repository.UpdateTaskParams) (repository.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, repository.ErrNotFound
	}
	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.DueDate != nil {
		task.DueDate = *params.DueDate
	}
	if params.AssignedTo != nil {
		task.AssignedTo = *params.AssignedTo
	}
	f.tasks[id] = task
	return task, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status, outcome *string, completedAt *time.Time) (repository.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, repository.ErrNotFound
	}
	if task.Status != from {
		return repository.Task{}, repository.ErrStaleState
	}
	task.Status = to
	if outcome != nil {
		task.Outcome = outcome
	}
	if completedAt != nil {
		task.CompletedAt = completedAt
	}
	f.tasks[id] = task
	return task, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListTasksParams) ([]repository.Task, int, error) {
	var out []repository.Task
	for _, task := range f.tasks {
		if params.AssignedTo != nil && task.AssignedTo != *params.AssignedTo {
			continue
		}
		if params.Status != nil && task.Status != *params.Status {
			continue
		}
		if params.OverdueOnly && !domain.IsOverdue(task.Status, task.DueDate, params.Now) {
			continue
		}
		out = append(out, task)
	}
	return out, len(out), nil
}

func (f *fakeStore) ListDueBetween(_ context.Context, from, to time.Time) ([]repository.Task, error) {
	var out []repository.Task
	for _, task := range f.tasks {
		if task.Status.IsOpen() && !task.DueDate.Before(from) && task.DueDate.Before(to) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeStore) GetWorkloadCounts(_ context.Context, now time.Time) (repository.WorkloadCounts, error) {
	var counts repository.WorkloadCounts
	for _, task := range f.tasks {
		if task.Status.IsOpen() {
			counts.Open++
			if task.DueDate.Before(now) {
				counts.Overdue++
			}
		}
	}
	return counts, nil
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

func TestCreate_RequiresAssignee(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	due := time.Now().Add(24 * time.Hour)

	_, err := svc.Create(context.Background(), transport.CreateTaskRequest{
		Title:   "Follow up on quote",
		DueDate: &due,
	}, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "MissingAssignee") {
		t.Fatalf("error must carry the MissingAssignee identifier, got %q", err.Error())
	}
}

func TestCreate_RequiresDueDate(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	assignee := uuid.New()

	_, err := svc.Create(context.Background(), transport.CreateTaskRequest{
		Title:      "Follow up on quote",
		AssignedTo: &assignee,
	}, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "MissingDueDate") {
		t.Fatalf("error must carry the MissingDueDate identifier, got %q", err.Error())
	}
}

func TestCreate_DefaultsTypeAndPriority(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	assignee := uuid.New()
	due := time.Now().Add(24 * time.Hour)

	task, err := svc.Create(context.Background(), transport.CreateTaskRequest{
		Title:      "Check in after consultation",
		AssignedTo: &assignee,
		DueDate:    &due,
	}, uuid.New())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Type != string(domain.TypeFollowUp) {
		t.Errorf("type = %s, want FOLLOW_UP", task.Type)
	}
	if task.Priority != string(domain.PriorityMedium) {
		t.Errorf("priority = %s, want MEDIUM", task.Priority)
	}
	if task.Status != string(domain.StatusPending) {
		t.Errorf("status = %s, want PENDING", task.Status)
	}
}

func TestChangeStatus_CompletePublishesEventWithLeadLink(t *testing.T) {
	store := newFakeStore()
	leadID := uuid.New()
	id := store.seed(domain.StatusInProgress, time.Now().Add(time.Hour), &leadID)
	svc, bus := newTestService(store)

	task, err := svc.ChangeStatus(context.Background(), id, domain.StatusCompleted, "reached, appointment booked")
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if task.CompletedAt == nil {
		t.Fatal("expected completedAt to be stamped")
	}
	if task.Outcome == nil || *task.Outcome != "reached, appointment booked" {
		t.Fatalf("outcome not recorded: %v", task.Outcome)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	evt, ok := bus.published[0].(events.TaskCompleted)
	if !ok {
		t.Fatalf("expected TaskCompleted, got %T", bus.published[0])
	}
	if evt.LeadID == nil || *evt.LeadID != leadID {
		t.Errorf("event lead link = %v, want %s", evt.LeadID, leadID)
	}
}

func TestChangeStatus_TerminalIsFinal(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusCompleted, time.Now(), nil)
	svc, bus := newTestService(store)

	_, err := svc.ChangeStatus(context.Background(), id, domain.StatusInProgress, "")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event expected, got %d", len(bus.published))
	}
}

func TestChangeStatus_CancelDoesNotPublish(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusPending, time.Now(), nil)
	svc, bus := newTestService(store)

	task, err := svc.ChangeStatus(context.Background(), id, domain.StatusCancelled, "")
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if task.Status != string(domain.StatusCancelled) {
		t.Fatalf("status = %s, want CANCELLED", task.Status)
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event expected for cancellation, got %d", len(bus.published))
	}
}

func TestUpdate_ClosedTaskRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusCancelled, time.Now(), nil)
	svc, _ := newTestService(store)

	title := "new title"
	_, err := svc.Update(context.Background(), id, transport.UpdateTaskRequest{Title: &title})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestList_OverdueViewFiltersByPredicate(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	overdueID := store.seed(domain.StatusPending, now.Add(-time.Hour), nil)
	store.seed(domain.StatusPending, now.Add(time.Hour), nil)
	store.seed(domain.StatusCompleted, now.Add(-time.Hour), nil)
	svc, _ := newTestService(store)

	result, err := svc.List(context.Background(), transport.ListTasksRequest{View: "overdue"}, uuid.New())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 overdue task, got %d", len(result.Items))
	}
	if result.Items[0].ID != overdueID.String() {
		t.Errorf("wrong task returned")
	}
	if !result.Items[0].Overdue {
		t.Error("overdue flag not set on response")
	}
}

func TestList_MyViewFiltersByActor(t *testing.T) {
	store := newFakeStore()
	id := store.seed(domain.StatusPending, time.Now().Add(time.Hour), nil)
	store.seed(domain.StatusPending, time.Now().Add(time.Hour), nil)
	actor := store.tasks[id].AssignedTo
	svc, _ := newTestService(store)

	result, err := svc.List(context.Background(), transport.ListTasksRequest{View: "my"}, actor)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 task for actor, got %d", len(result.Items))
	}
}
