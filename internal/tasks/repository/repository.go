package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hospital_crm_backend/internal/tasks/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("task not found")
	// ErrStaleState is returned when a guarded update matched no row
	// because the task's status changed under the caller.
	ErrStaleState = errors.New("task state changed")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Task struct {
	ID          uuid.UUID
	Title       string
	Description *string
	Type        domain.Type
	Priority    domain.Priority
	Status      domain.Status
	AssignedTo  uuid.UUID
	DueDate     time.Time
	LeadID      *uuid.UUID
	Outcome     *string
	CompletedAt *time.Time
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const taskColumns = `id, title, description, type, priority, status, assigned_to,
	due_date, lead_id, outcome, completed_at, created_by, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var task Task
	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.Type, &task.Priority,
		&task.Status, &task.AssignedTo, &task.DueDate, &task.LeadID,
		&task.Outcome, &task.CompletedAt, &task.CreatedBy,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return task, err
}

type CreateTaskParams struct {
	Title       string
	Description *string
	Type        domain.Type
	Priority    domain.Priority
	AssignedTo  uuid.UUID
	DueDate     time.Time
	LeadID      *uuid.UUID
	CreatedBy   *uuid.UUID
}

func (r *Repository) Create(ctx context.Context, params CreateTaskParams) (Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, type, priority, status, assigned_to, due_date, lead_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+taskColumns,
		params.Title, params.Description, params.Type, params.Priority,
		domain.StatusPending, params.AssignedTo, params.DueDate,
		params.LeadID, params.CreatedBy,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Task, error) {
	return scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

type UpdateTaskParams struct {
	Title       *string
	Description *string
	Type        *domain.Type
	Priority    *domain.Priority
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateTaskParams) (Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			type = COALESCE($4, type),
			priority = COALESCE($5, priority),
			assigned_to = COALESCE($6, assigned_to),
			due_date = COALESCE($7, due_date),
			updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns,
		id, params.Title, params.Description, params.Type, params.Priority,
		params.AssignedTo, params.DueDate,
	))
}

// UpdateStatus moves a task from one status to another. The WHERE clause
// re-validates the current status so a concurrent writer cannot be
// overwritten silently.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, outcome *string, completedAt *time.Time) (Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks SET
			status = $3,
			outcome = COALESCE($4, outcome),
			completed_at = COALESCE($5, completed_at),
			updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+taskColumns,
		id, from, to, outcome, completedAt,
	))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return Task{}, ErrStaleState
		}
		return Task{}, ErrNotFound
	}
	return task, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type ListTasksParams struct {
	AssignedTo *uuid.UUID
	LeadID     *uuid.UUID
	Status     *domain.Status
	// OverdueOnly and DueToday are filter projections over the same table,
	// evaluated against Now. Lateness is never stored.
	OverdueOnly bool
	DueToday    bool
	Now         time.Time
	Limit       int
	Offset      int
}

func (r *Repository) List(ctx context.Context, params ListTasksParams) ([]Task, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.AssignedTo != nil {
		where = append(where, "assigned_to = "+arg(*params.AssignedTo))
	}
	if params.LeadID != nil {
		where = append(where, "lead_id = "+arg(*params.LeadID))
	}
	if params.Status != nil {
		where = append(where, "status = "+arg(*params.Status))
	}
	if params.OverdueOnly {
		where = append(where,
			"due_date < "+arg(params.Now),
			"status IN ("+arg(domain.StatusPending)+", "+arg(domain.StatusInProgress)+")")
	}
	if params.DueToday {
		dayStart := params.Now.Truncate(24 * time.Hour)
		where = append(where,
			"due_date >= "+arg(dayStart),
			"due_date < "+arg(dayStart.Add(24*time.Hour)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM tasks WHERE `+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + whereClause +
		` ORDER BY due_date ASC`
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", params.Limit, params.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}
	return tasks, total, rows.Err()
}

// ListDueBetween returns open tasks whose due date falls inside the window,
// for the follow-up reminder scan.
func (r *Repository) ListDueBetween(ctx context.Context, from, to time.Time) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE due_date >= $1 AND due_date < $2 AND status IN ($3, $4)
		ORDER BY due_date ASC`,
		from, to, domain.StatusPending, domain.StatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// WorkloadCounts backs the dashboard task widget.
type WorkloadCounts struct {
	Open           int
	Overdue        int
	CompletedToday int
}

func (r *Repository) GetWorkloadCounts(ctx context.Context, now time.Time) (WorkloadCounts, error) {
	dayStart := now.Truncate(24 * time.Hour)
	var counts WorkloadCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status IN ($2, $3)),
			count(*) FILTER (WHERE status IN ($2, $3) AND due_date < $1),
			count(*) FILTER (WHERE status = $4 AND completed_at >= $5)
		FROM tasks`,
		now, domain.StatusPending, domain.StatusInProgress,
		domain.StatusCompleted, dayStart,
	).Scan(&counts.Open, &counts.Overdue, &counts.CompletedToday)
	return counts, err
}
