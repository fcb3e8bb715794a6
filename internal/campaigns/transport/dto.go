// Package transport contains request and response DTOs for the campaigns API.
package transport

import (
	"time"

	"hospital_crm_backend/internal/campaigns/domain"

	"github.com/google/uuid"
)

// AudienceCriteria mirrors the lead targeting filters. Stored verbatim on
// the campaign so the audience definition survives after launch.
type AudienceCriteria struct {
	Statuses []string    `json:"statuses" validate:"dive,oneof=NEW CONTACTED QUALIFIED APPOINTMENT_SCHEDULED CONSULTATION_DONE CONVERTED LOST"`
	Sources  []string    `json:"sources" validate:"dive,oneof=WEBSITE REFERRAL WALK_IN PHONE SOCIAL_MEDIA ADVERTISEMENT OTHER"`
	TagIDs   []uuid.UUID `json:"tagIds"`
	MinScore *int        `json:"minScore" validate:"omitempty,min=0,max=100"`
}

type CreateCampaignRequest struct {
	Name        string           `json:"name" validate:"required,min=1,max=160"`
	Description string           `json:"description" validate:"max=2000"`
	Channel     string           `json:"channel" validate:"required,oneof=EMAIL SMS WHATSAPP"`
	TemplateID  *uuid.UUID       `json:"templateId"`
	Audience    AudienceCriteria `json:"audience"`
}

type UpdateCampaignRequest struct {
	Name        *string           `json:"name" validate:"omitempty,min=1,max=160"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	TemplateID  *uuid.UUID        `json:"templateId"`
	Audience    *AudienceCriteria `json:"audience"`
}

type ScheduleCampaignRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

// DeliveryReportRequest is one collaborator status report for a recipient.
type DeliveryReportRequest struct {
	RecipientID uuid.UUID  `json:"recipientId" validate:"required"`
	Event       string     `json:"event" validate:"required,oneof=SENT DELIVERED OPENED CLICKED RESPONDED CONVERTED FAILED"`
	ProviderRef string     `json:"providerRef" validate:"max=200"`
	OccurredAt  *time.Time `json:"occurredAt"`
}

type ListCampaignsRequest struct {
	Status  string `form:"status" validate:"omitempty,oneof=DRAFT SCHEDULED RUNNING PAUSED COMPLETED CANCELLED"`
	Channel string `form:"channel" validate:"omitempty,oneof=EMAIL SMS WHATSAPP"`
}

type FunnelResponse struct {
	TotalRecipients int          `json:"totalRecipients"`
	Sent            int          `json:"sent"`
	Delivered       int          `json:"delivered"`
	Opened          int          `json:"opened"`
	Clicked         int          `json:"clicked"`
	Responded       int          `json:"responded"`
	Converted       int          `json:"converted"`
	Failed          int          `json:"failed"`
	Rates           domain.Rates `json:"rates"`
}

type CampaignResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Channel     string           `json:"channel"`
	TemplateID  *string          `json:"templateId,omitempty"`
	Status      string           `json:"status"`
	Audience    AudienceCriteria `json:"audience"`
	Funnel      FunnelResponse   `json:"funnel"`
	ScheduledAt *time.Time       `json:"scheduledAt,omitempty"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type RecipientResponse struct {
	ID          string     `json:"id"`
	LeadID      string     `json:"leadId"`
	FirstName   string     `json:"firstName"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email,omitempty"`
	Stage       string     `json:"stage"`
	Responded   bool       `json:"responded"`
	Converted   bool       `json:"converted"`
	ProviderRef string     `json:"providerRef,omitempty"`
	LastEventAt *time.Time `json:"lastEventAt,omitempty"`
}
