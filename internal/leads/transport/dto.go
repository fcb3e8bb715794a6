package transport

import (
	"time"

	"hospital_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	FirstName      string     `json:"firstName" validate:"required,min=1,max=100"`
	LastName       string     `json:"lastName" validate:"required,min=1,max=100"`
	Phone          string     `json:"phone" validate:"required,min=5,max=20"`
	AlternatePhone *string    `json:"alternatePhone,omitempty" validate:"omitempty,min=5,max=20"`
	Email          *string    `json:"email,omitempty" validate:"omitempty,email"`
	Gender         *string    `json:"gender,omitempty" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	City           *string    `json:"city,omitempty" validate:"omitempty,max=100"`
	Source         string     `json:"source" validate:"required,oneof=WEBSITE REFERRAL WALK_IN PHONE SOCIAL_MEDIA ADVERTISEMENT OTHER"`
	Priority       string     `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AssignedTo     *uuid.UUID `json:"assignedTo,omitempty"`
	NextFollowUpAt *time.Time `json:"nextFollowUpAt,omitempty"`
	TagIDs         []uuid.UUID `json:"tagIds,omitempty"`
}

type UpdateLeadRequest struct {
	FirstName      *string    `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName       *string    `json:"lastName,omitempty" validate:"omitempty,min=1,max=100"`
	Phone          *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	AlternatePhone *string    `json:"alternatePhone,omitempty" validate:"omitempty,min=5,max=20"`
	Email          *string    `json:"email,omitempty" validate:"omitempty,email"`
	Gender         *string    `json:"gender,omitempty" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	City           *string    `json:"city,omitempty" validate:"omitempty,max=100"`
	Priority       *string    `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	NextFollowUpAt *time.Time `json:"nextFollowUpAt,omitempty"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type AssignLeadRequest struct {
	AssigneeID *uuid.UUID `json:"assigneeId"`
}

// ConvertLeadRequest carries the patient intake data handed to the
// patient-record collaborator when a lead converts.
type ConvertLeadRequest struct {
	FirstName string  `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string  `json:"lastName" validate:"required,min=1,max=100"`
	Phone     string  `json:"phone" validate:"required,min=5,max=20"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Notes     string  `json:"notes,omitempty" validate:"max=2000"`
}

type AddNoteRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
}

type TagLinkRequest struct {
	TagID uuid.UUID `json:"tagId" validate:"required"`
}

type ListLeadsRequest struct {
	Status     *string    `form:"status" validate:"omitempty,oneof=NEW CONTACTED QUALIFIED APPOINTMENT_SCHEDULED CONSULTATION_DONE CONVERTED LOST"`
	Source     *string    `form:"source" validate:"omitempty,oneof=WEBSITE REFERRAL WALK_IN PHONE SOCIAL_MEDIA ADVERTISEMENT OTHER"`
	Priority   *string    `form:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AssignedTo *uuid.UUID `form:"assignedTo"`
	TagID      *uuid.UUID `form:"tagId"`
	Search     string     `form:"search" validate:"max=100"`
	Page       int        `form:"page" validate:"omitempty,min=1"`
	PageSize   int        `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs

type TagResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Category *string   `json:"category,omitempty"`
}

type LeadResponse struct {
	ID                   uuid.UUID       `json:"id"`
	LeadNumber           string          `json:"leadNumber"`
	FirstName            string          `json:"firstName"`
	LastName             string          `json:"lastName"`
	Phone                string          `json:"phone"`
	AlternatePhone       *string         `json:"alternatePhone,omitempty"`
	Email                *string         `json:"email,omitempty"`
	Gender               *string         `json:"gender,omitempty"`
	DateOfBirth          *time.Time      `json:"dateOfBirth,omitempty"`
	City                 *string         `json:"city,omitempty"`
	Source               domain.Source   `json:"source"`
	Status               domain.Status   `json:"status"`
	Priority             domain.Priority `json:"priority"`
	Score                int             `json:"score"`
	ScoreBand            string          `json:"scoreBand"`
	AssignedTo           *uuid.UUID      `json:"assignedTo,omitempty"`
	LostReason           *string         `json:"lostReason,omitempty"`
	ConvertedToPatientID *string         `json:"convertedToPatientId,omitempty"`
	LastContactedAt      *time.Time      `json:"lastContactedAt,omitempty"`
	NextFollowUpAt       *time.Time      `json:"nextFollowUpAt,omitempty"`
	Tags                 []TagResponse   `json:"tags,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type ActivityResponse struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   *uuid.UUID     `json:"actorId,omitempty"`
	ActorName string         `json:"actorName"`
	EventType string         `json:"eventType"`
	OldValue  *string        `json:"oldValue,omitempty"`
	NewValue  *string        `json:"newValue,omitempty"`
	Summary   *string        `json:"summary,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ConvertLeadResponse struct {
	Lead      LeadResponse `json:"lead"`
	PatientID string       `json:"patientId"`
}

type DuplicateCheckResponse struct {
	IsDuplicate  bool          `json:"isDuplicate"`
	ExistingLead *LeadResponse `json:"existingLead,omitempty"`
}
