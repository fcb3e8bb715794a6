// Package transport contains request and response DTOs for the tasks API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Type        string     `json:"type" validate:"omitempty,oneof=CALL EMAIL SMS FOLLOW_UP APPOINTMENT_REMINDER OTHER"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AssignedTo  *uuid.UUID `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
	LeadID      *uuid.UUID `json:"leadId"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Type        *string    `json:"type" validate:"omitempty,oneof=CALL EMAIL SMS FOLLOW_UP APPOINTMENT_REMINDER OTHER"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AssignedTo  *uuid.UUID `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

type ChangeTaskStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Outcome string `json:"outcome" validate:"max=1000"`
}

type ListTasksRequest struct {
	View       string `form:"view" validate:"omitempty,oneof=all my overdue today"`
	Status     string `form:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	LeadID     string `form:"leadId" validate:"omitempty,uuid"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type TaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     time.Time  `json:"dueDate"`
	Overdue     bool       `json:"overdue"`
	LeadID      *string    `json:"leadId,omitempty"`
	Outcome     *string    `json:"outcome,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TaskListResponse struct {
	Items      []TaskResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}
