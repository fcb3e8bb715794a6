// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"hospital_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	LeadNumber string     `json:"leadNumber"`
	Source     string     `json:"source"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published for every accepted status transition.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Reason    string    `json:"reason,omitempty"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadAssigned is published when a lead changes owner.
type LeadAssigned struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	AssignedTo *uuid.UUID `json:"assignedTo"`
	ActorID    uuid.UUID  `json:"actorId"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadConverted is published once per lead, when it becomes a patient.
type LeadConverted struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	PatientID string    `json:"patientId"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e LeadConverted) EventName() string { return "leads.lead.converted" }

// =============================================================================
// Task Domain Events
// =============================================================================

// TaskCompleted is published when a follow-up task reaches COMPLETED.
type TaskCompleted struct {
	BaseEvent
	TaskID  uuid.UUID  `json:"taskId"`
	LeadID  *uuid.UUID `json:"leadId,omitempty"`
	Outcome string     `json:"outcome,omitempty"`
}

func (e TaskCompleted) EventName() string { return "tasks.task.completed" }

// =============================================================================
// Campaign Domain Events
// =============================================================================

// CampaignLaunched is published when a campaign starts running.
type CampaignLaunched struct {
	BaseEvent
	CampaignID      uuid.UUID `json:"campaignId"`
	Channel         string    `json:"channel"`
	TotalRecipients int       `json:"totalRecipients"`
}

func (e CampaignLaunched) EventName() string { return "campaigns.campaign.launched" }

// CampaignCompleted is published when all deliveries resolved.
type CampaignCompleted struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
}

func (e CampaignCompleted) EventName() string { return "campaigns.campaign.completed" }

// =============================================================================
// Survey Domain Events
// =============================================================================

// SurveyResponseSubmitted is published for every stored survey response.
type SurveyResponseSubmitted struct {
	BaseEvent
	SurveyID          uuid.UUID  `json:"surveyId"`
	ResponseID        uuid.UUID  `json:"responseId"`
	LeadID            *uuid.UUID `json:"leadId,omitempty"`
	RequiresFollowUp  bool       `json:"requiresFollowUp"`
	OverallRating     *int       `json:"overallRating,omitempty"`
	NPSScore          *int       `json:"npsScore,omitempty"`
}

func (e SurveyResponseSubmitted) EventName() string { return "surveys.response.submitted" }

// =============================================================================
// Communication Domain Events
// =============================================================================

// CommunicationLogged is published when a contact event is recorded.
type CommunicationLogged struct {
	BaseEvent
	CommunicationID uuid.UUID  `json:"communicationId"`
	LeadID          *uuid.UUID `json:"leadId,omitempty"`
	Channel         string     `json:"channel"`
	Direction       string     `json:"direction"`
}

func (e CommunicationLogged) EventName() string { return "communications.logged" }
