package leads

import (
	"context"

	"hospital_crm_backend/internal/leads/repository"
)

// AudienceMember is a lead selected for campaign targeting.
type AudienceMember = repository.AudienceMember

// AudienceCriteria filters leads for campaign targeting.
type AudienceCriteria = repository.AudienceCriteria

// AudienceSelector resolves campaign targeting criteria to a recipient
// snapshot. Consumed by the campaigns module.
type AudienceSelector interface {
	SelectAudience(ctx context.Context, criteria AudienceCriteria) ([]AudienceMember, error)
}
