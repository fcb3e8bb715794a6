// Package service implements survey management and response analytics.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/surveys/domain"
	"hospital_crm_backend/internal/surveys/repository"
	"hospital_crm_backend/internal/surveys/transport"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the data access interface the survey service needs.
type Store interface {
	CreateSurvey(ctx context.Context, params repository.CreateSurveyParams) (repository.Survey, error)
	GetSurvey(ctx context.Context, id uuid.UUID) (repository.Survey, error)
	ListSurveys(ctx context.Context) ([]repository.Survey, error)
	CreateResponse(ctx context.Context, params repository.CreateResponseParams) (repository.Response, error)
	ListResponses(ctx context.Context, surveyID uuid.UUID) ([]repository.Response, error)
	ListFollowUps(ctx context.Context) ([]repository.Response, error)
	MarkFollowUpDone(ctx context.Context, responseID uuid.UUID) error
	ListAllResponses(ctx context.Context) ([]repository.Response, error)
}

type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

func (s *Service) Create(ctx context.Context, req transport.CreateSurveyRequest) (transport.SurveyResponse, error) {
	kind := req.Kind
	if kind == "" {
		kind = "GENERAL"
	}
	var description *string
	if req.Description != "" {
		description = &req.Description
	}
	var questions json.RawMessage
	if len(req.Questions) > 0 {
		questions, _ = json.Marshal(req.Questions)
	}

	survey, err := s.store.CreateSurvey(ctx, repository.CreateSurveyParams{
		Name:        req.Name,
		Description: description,
		Kind:        kind,
		IsAnonymous: req.IsAnonymous,
		Questions:   questions,
	})
	if err != nil {
		return transport.SurveyResponse{}, err
	}
	return toSurveyResponse(survey), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.SurveyResponse, error) {
	survey, err := s.store.GetSurvey(ctx, id)
	if err != nil {
		return transport.SurveyResponse{}, mapNotFound(err)
	}
	return toSurveyResponse(survey), nil
}

func (s *Service) List(ctx context.Context) ([]transport.SurveyResponse, error) {
	surveys, err := s.store.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.SurveyResponse, 0, len(surveys))
	for _, survey := range surveys {
		out = append(out, toSurveyResponse(survey))
	}
	return out, nil
}

// SubmitResponse stores one submission and publishes
// SurveyResponseSubmitted so a linked lead's score picks up the signal.
func (s *Service) SubmitResponse(ctx context.Context, surveyID uuid.UUID, req transport.SubmitResponseRequest) (transport.ResponseItem, error) {
	survey, err := s.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return transport.ResponseItem{}, mapNotFound(err)
	}

	var comments *string
	if cleaned := sanitize.Text(req.Comments); cleaned != "" {
		comments = &cleaned
	}
	var sentiment *string
	if req.Sentiment != "" {
		sentiment = &req.Sentiment
	}

	leadID := req.LeadID
	patientID := req.PatientID
	if survey.IsAnonymous {
		// Anonymous surveys never store a respondent link.
		leadID = nil
		patientID = nil
	}

	resp, err := s.store.CreateResponse(ctx, repository.CreateResponseParams{
		SurveyID:         surveyID,
		LeadID:           leadID,
		PatientID:        patientID,
		OverallRating:    req.OverallRating,
		NPSScore:         req.NPSScore,
		Sentiment:        sentiment,
		Comments:         comments,
		Answers:          req.Answers,
		RequiresFollowUp: req.RequiresFollowUp,
	})
	if err != nil {
		return transport.ResponseItem{}, err
	}

	s.bus.Publish(ctx, events.SurveyResponseSubmitted{
		BaseEvent:        events.NewBaseEvent(),
		SurveyID:         surveyID,
		ResponseID:       resp.ID,
		LeadID:           resp.LeadID,
		RequiresFollowUp: resp.RequiresFollowUp,
		OverallRating:    resp.OverallRating,
		NPSScore:         resp.NPSScore,
	})

	return toResponseItem(resp), nil
}

func (s *Service) Responses(ctx context.Context, surveyID uuid.UUID) ([]transport.ResponseItem, error) {
	if _, err := s.store.GetSurvey(ctx, surveyID); err != nil {
		return nil, mapNotFound(err)
	}
	responses, err := s.store.ListResponses(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ResponseItem, 0, len(responses))
	for _, resp := range responses {
		out = append(out, toResponseItem(resp))
	}
	return out, nil
}

// Analytics aggregates one survey's responses into a snapshot.
func (s *Service) Analytics(ctx context.Context, surveyID uuid.UUID) (transport.AnalyticsResponse, error) {
	if _, err := s.store.GetSurvey(ctx, surveyID); err != nil {
		return transport.AnalyticsResponse{}, mapNotFound(err)
	}
	responses, err := s.store.ListResponses(ctx, surveyID)
	if err != nil {
		return transport.AnalyticsResponse{}, err
	}

	return transport.AnalyticsResponse{
		SurveyID: surveyID.String(),
		Snapshot: domain.Aggregate(toAnalyticsInput(responses)),
	}, nil
}

// FollowUpQueue returns the open follow-up worklist across all surveys.
func (s *Service) FollowUpQueue(ctx context.Context) ([]transport.ResponseItem, error) {
	responses, err := s.store.ListFollowUps(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ResponseItem, 0, len(responses))
	for _, resp := range responses {
		out = append(out, toResponseItem(resp))
	}
	return out, nil
}

func (s *Service) CompleteFollowUp(ctx context.Context, responseID uuid.UUID) error {
	err := s.store.MarkFollowUpDone(ctx, responseID)
	if errors.Is(err, repository.ErrResponseNotFound) {
		return apperr.NotFound("survey response not found")
	}
	return err
}

// OverallSnapshot aggregates every response across all surveys, for the
// dashboard widget.
func (s *Service) OverallSnapshot(ctx context.Context) (domain.Snapshot, error) {
	responses, err := s.store.ListAllResponses(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Aggregate(toAnalyticsInput(responses)), nil
}

func toAnalyticsInput(responses []repository.Response) []domain.Response {
	out := make([]domain.Response, 0, len(responses))
	for _, resp := range responses {
		in := domain.Response{
			OverallRating:    resp.OverallRating,
			NPSScore:         resp.NPSScore,
			RequiresFollowUp: resp.RequiresFollowUp && !resp.FollowUpDone,
		}
		if resp.Sentiment != nil {
			sentiment := domain.Sentiment(*resp.Sentiment)
			in.Sentiment = &sentiment
		}
		out = append(out, in)
	}
	return out
}

func toSurveyResponse(survey repository.Survey) transport.SurveyResponse {
	resp := transport.SurveyResponse{
		ID:            survey.ID.String(),
		Name:          survey.Name,
		Kind:          survey.Kind,
		IsAnonymous:   survey.IsAnonymous,
		Questions:     []transport.Question{},
		ResponseCount: survey.ResponseCount,
		CreatedAt:     survey.CreatedAt,
	}
	if survey.Description != nil {
		resp.Description = *survey.Description
	}
	if len(survey.Questions) > 0 {
		_ = json.Unmarshal(survey.Questions, &resp.Questions)
	}
	return resp
}

func toResponseItem(resp repository.Response) transport.ResponseItem {
	item := transport.ResponseItem{
		ID:               resp.ID.String(),
		SurveyID:         resp.SurveyID.String(),
		OverallRating:    resp.OverallRating,
		NPSScore:         resp.NPSScore,
		RequiresFollowUp: resp.RequiresFollowUp,
		FollowUpDone:     resp.FollowUpDone,
		SubmittedAt:      resp.SubmittedAt,
	}
	if resp.LeadID != nil {
		id := resp.LeadID.String()
		item.LeadID = &id
	}
	item.PatientID = resp.PatientID
	item.Answers = resp.Answers
	if sentiment, ok := domain.EffectiveSentiment(domain.Response{
		OverallRating: resp.OverallRating,
		Sentiment:     storedSentiment(resp),
	}); ok {
		item.Sentiment = string(sentiment)
	}
	if resp.Comments != nil {
		item.Comments = *resp.Comments
	}
	return item
}

func storedSentiment(resp repository.Response) *domain.Sentiment {
	if resp.Sentiment == nil {
		return nil
	}
	sentiment := domain.Sentiment(*resp.Sentiment)
	return &sentiment
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("survey not found")
	}
	return err
}
