// Package transport contains request and response DTOs for the surveys API.
package transport

import (
	"time"

	"hospital_crm_backend/internal/surveys/domain"

	"github.com/google/uuid"
)

type CreateSurveyRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=160"`
	Description string     `json:"description" validate:"max=2000"`
	Kind        string     `json:"kind" validate:"omitempty,oneof=POST_VISIT POST_CONVERSION GENERAL"`
	IsAnonymous bool       `json:"isAnonymous"`
	Questions   []Question `json:"questions" validate:"max=50,dive"`
}

// Question is one entry in a survey's question schema.
type Question struct {
	Key   string `json:"key" validate:"required,min=1,max=64"`
	Label string `json:"label" validate:"required,min=1,max=500"`
	Kind  string `json:"kind" validate:"omitempty,oneof=RATING NPS TEXT CHOICE"`
}

type SubmitResponseRequest struct {
	LeadID           *uuid.UUID     `json:"leadId"`
	PatientID        *string        `json:"patientId" validate:"omitempty,max=64"`
	OverallRating    *int           `json:"overallRating" validate:"omitempty,min=1,max=5"`
	NPSScore         *int           `json:"npsScore" validate:"omitempty,min=0,max=10"`
	Sentiment        string         `json:"sentiment" validate:"omitempty,oneof=POSITIVE NEUTRAL NEGATIVE"`
	Comments         string         `json:"comments" validate:"max=4000"`
	Answers          map[string]any `json:"answers"`
	RequiresFollowUp bool           `json:"requiresFollowUp"`
}

type SurveyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Kind          string     `json:"kind"`
	IsAnonymous   bool       `json:"isAnonymous"`
	Questions     []Question `json:"questions"`
	ResponseCount int        `json:"responseCount"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type ResponseItem struct {
	ID               string         `json:"id"`
	SurveyID         string         `json:"surveyId"`
	LeadID           *string        `json:"leadId,omitempty"`
	PatientID        *string        `json:"patientId,omitempty"`
	OverallRating    *int           `json:"overallRating"`
	NPSScore         *int           `json:"npsScore"`
	Sentiment        string         `json:"sentiment,omitempty"`
	Comments         string         `json:"comments,omitempty"`
	Answers          map[string]any `json:"answers,omitempty"`
	RequiresFollowUp bool           `json:"requiresFollowUp"`
	FollowUpDone     bool           `json:"followUpDone"`
	SubmittedAt      time.Time      `json:"submittedAt"`
}

// AnalyticsResponse wraps the pure aggregation snapshot.
type AnalyticsResponse struct {
	SurveyID string `json:"surveyId"`
	domain.Snapshot
}
