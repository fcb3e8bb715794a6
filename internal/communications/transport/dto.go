// Package transport contains request and response DTOs for the
// communications API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type LogCommunicationRequest struct {
	Channel     string     `json:"channel" validate:"required,oneof=PHONE EMAIL SMS WHATSAPP IN_PERSON"`
	Direction   string     `json:"direction" validate:"required,oneof=INBOUND OUTBOUND"`
	Status      string     `json:"status" validate:"omitempty,oneof=COMPLETED MISSED NO_ANSWER FAILED"`
	LeadID      *uuid.UUID `json:"leadId"`
	PatientID   *string    `json:"patientId" validate:"omitempty,max=64"`
	TemplateID  *uuid.UUID `json:"templateId"`
	Subject     string     `json:"subject" validate:"max=200"`
	Summary     string     `json:"summary" validate:"max=2000"`
	CallOutcome string     `json:"callOutcome" validate:"max=500"`
	OccurredAt  *time.Time `json:"occurredAt"`
}

type ListCommunicationsRequest struct {
	LeadID    string `form:"leadId" validate:"omitempty,uuid"`
	Channel   string `form:"channel" validate:"omitempty,oneof=PHONE EMAIL SMS WHATSAPP IN_PERSON"`
	Direction string `form:"direction" validate:"omitempty,oneof=INBOUND OUTBOUND"`
	From      string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type CommunicationResponse struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	Direction   string    `json:"direction"`
	Status      string    `json:"status,omitempty"`
	LeadID      *string   `json:"leadId,omitempty"`
	PatientID   *string   `json:"patientId,omitempty"`
	TemplateID  *string   `json:"templateId,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	CallOutcome string    `json:"callOutcome,omitempty"`
	LoggedBy    string    `json:"loggedBy"`
	OccurredAt  time.Time `json:"occurredAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CommunicationListResponse struct {
	Items      []CommunicationResponse `json:"items"`
	Total      int                     `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"pageSize"`
	TotalPages int                     `json:"totalPages"`
}

// ChannelStat is one row of the channel breakdown.
type ChannelStat struct {
	Channel  string `json:"channel"`
	Total    int    `json:"total"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type StatsResponse struct {
	Total    int           `json:"total"`
	Channels []ChannelStat `json:"channels"`
}
