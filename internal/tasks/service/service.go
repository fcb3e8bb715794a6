// Package service implements follow-up task scheduling: creation with
// mandatory assignee and due date, the task status machine, and the
// all/my/overdue/today workload views.
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/tasks/domain"
	"hospital_crm_backend/internal/tasks/repository"
	"hospital_crm_backend/internal/tasks/transport"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// statusRetryLimit bounds re-validation attempts when a concurrent writer
// moves the task between our read and the guarded update.
const statusRetryLimit = 2

// Store is the data access interface the task service needs.
// Satisfied by *repository.Repository; tests substitute a fake.
type Store interface {
	Create(ctx context.Context, params repository.CreateTaskParams) (repository.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Task, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateTaskParams) (repository.Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, outcome *string, completedAt *time.Time) (repository.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params repository.ListTasksParams) ([]repository.Task, int, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]repository.Task, error)
	GetWorkloadCounts(ctx context.Context, now time.Time) (repository.WorkloadCounts, error)
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

func (s *Service) Create(ctx context.Context, req transport.CreateTaskRequest, createdBy uuid.UUID) (transport.TaskResponse, error) {
	if req.AssignedTo == nil {
		return transport.TaskResponse{}, apperr.Validation(domain.ErrMissingAssignee.Error())
	}
	if req.DueDate == nil {
		return transport.TaskResponse{}, apperr.Validation(domain.ErrMissingDueDate.Error())
	}

	taskType := domain.TypeFollowUp
	if req.Type != "" {
		taskType = domain.Type(req.Type)
	}
	priority := domain.PriorityMedium
	if req.Priority != "" {
		priority = domain.Priority(req.Priority)
	}

	task, err := s.store.Create(ctx, repository.CreateTaskParams{
		Title:       req.Title,
		Description: strPtrOrNil(req.Description),
		Type:        taskType,
		Priority:    priority,
		AssignedTo:  *req.AssignedTo,
		DueDate:     *req.DueDate,
		LeadID:      req.LeadID,
		CreatedBy:   &createdBy,
	})
	if err != nil {
		return transport.TaskResponse{}, err
	}
	return s.toResponse(task), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.TaskResponse, error) {
	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.TaskResponse{}, mapNotFound(err)
	}
	return s.toResponse(task), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateTaskRequest) (transport.TaskResponse, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.TaskResponse{}, mapNotFound(err)
	}
	if current.Status.IsTerminal() {
		return transport.TaskResponse{}, apperr.Conflict(string(domain.ErrTaskClosed))
	}

	params := repository.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}
	if req.Type != nil {
		t := domain.Type(*req.Type)
		params.Type = &t
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		params.Priority = &p
	}

	task, err := s.store.Update(ctx, id, params)
	if err != nil {
		return transport.TaskResponse{}, mapNotFound(err)
	}
	return s.toResponse(task), nil
}

// ChangeStatus validates and applies a task transition. Completion stamps
// completed_at, records the optional outcome, and publishes TaskCompleted
// so a linked lead picks up the engagement signal.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, target domain.Status, outcome string) (transport.TaskResponse, error) {
	for attempt := 0; attempt < statusRetryLimit; attempt++ {
		task, err := s.store.GetByID(ctx, id)
		if err != nil {
			return transport.TaskResponse{}, mapNotFound(err)
		}

		if err := domain.ValidateTransition(task.Status, target); err != nil {
			return transport.TaskResponse{}, mapTransitionError(err)
		}

		var outcomePtr *string
		var completedAt *time.Time
		if target == domain.StatusCompleted {
			now := s.now()
			completedAt = &now
			if outcome != "" {
				outcomePtr = &outcome
			}
		}

		updated, err := s.store.UpdateStatus(ctx, id, task.Status, target, outcomePtr, completedAt)
		if errors.Is(err, repository.ErrStaleState) {
			continue
		}
		if err != nil {
			return transport.TaskResponse{}, err
		}

		if target == domain.StatusCompleted {
			s.bus.Publish(ctx, events.TaskCompleted{
				BaseEvent: events.NewBaseEvent(),
				TaskID:    updated.ID,
				LeadID:    updated.LeadID,
				Outcome:   outcome,
			})
		}
		return s.toResponse(updated), nil
	}

	return transport.TaskResponse{}, apperr.Conflict("task was modified concurrently, retry")
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return mapNotFound(s.store.Delete(ctx, id))
}

// List resolves the requested view to filter parameters. Every view reads
// the same table; my/overdue/today are projections, not separate state.
func (s *Service) List(ctx context.Context, req transport.ListTasksRequest, actorID uuid.UUID) (transport.TaskListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 25
	}

	params := repository.ListTasksParams{
		Now:    s.now(),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	switch req.View {
	case "my":
		params.AssignedTo = &actorID
	case "overdue":
		params.OverdueOnly = true
	case "today":
		params.DueToday = true
	}
	if req.Status != "" {
		status := domain.Status(req.Status)
		params.Status = &status
	}
	if req.AssignedTo != "" {
		if id, err := uuid.Parse(req.AssignedTo); err == nil {
			params.AssignedTo = &id
		}
	}
	if req.LeadID != "" {
		if id, err := uuid.Parse(req.LeadID); err == nil {
			params.LeadID = &id
		}
	}

	tasks, total, err := s.store.List(ctx, params)
	if err != nil {
		return transport.TaskListResponse{}, err
	}

	items := make([]transport.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, s.toResponse(task))
	}
	return transport.TaskListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// DueWithin returns open tasks due inside the window starting now,
// consumed by the reminder scan.
func (s *Service) DueWithin(ctx context.Context, window time.Duration) ([]transport.TaskResponse, error) {
	now := s.now()
	tasks, err := s.store.ListDueBetween(ctx, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	out := make([]transport.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, s.toResponse(task))
	}
	return out, nil
}

// WorkloadCounts backs the dashboard task widget.
func (s *Service) WorkloadCounts(ctx context.Context) (repository.WorkloadCounts, error) {
	return s.store.GetWorkloadCounts(ctx, s.now())
}

func (s *Service) toResponse(task repository.Task) transport.TaskResponse {
	resp := transport.TaskResponse{
		ID:          task.ID.String(),
		Title:       task.Title,
		Type:        string(task.Type),
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		AssignedTo:  task.AssignedTo.String(),
		DueDate:     task.DueDate,
		Overdue:     domain.IsOverdue(task.Status, task.DueDate, s.now()),
		Outcome:     task.Outcome,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if task.Description != nil {
		resp.Description = *task.Description
	}
	if task.LeadID != nil {
		id := task.LeadID.String()
		resp.LeadID = &id
	}
	return resp
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("task not found")
	}
	return err
}

func mapTransitionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTaskClosed), errors.Is(err, domain.ErrSameStatus):
		return apperr.Conflict(err.Error())
	default:
		return apperr.Validation(err.Error())
	}
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
