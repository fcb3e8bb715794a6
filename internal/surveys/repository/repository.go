package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("survey not found")
	ErrResponseNotFound = errors.New("survey response not found")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Survey struct {
	ID            uuid.UUID
	Name          string
	Description   *string
	Kind          string
	IsAnonymous   bool
	Questions     json.RawMessage
	ResponseCount int
	CreatedAt     time.Time
}

type Response struct {
	ID               uuid.UUID
	SurveyID         uuid.UUID
	LeadID           *uuid.UUID
	PatientID        *string
	OverallRating    *int
	NPSScore         *int
	Sentiment        *string
	Comments         *string
	Answers          map[string]any
	RequiresFollowUp bool
	FollowUpDone     bool
	SubmittedAt      time.Time
}

const surveyColumns = `s.id, s.name, s.description, s.kind, s.is_anonymous, s.questions, s.created_at`

const responseColumns = `id, survey_id, lead_id, patient_id, overall_rating, nps_score,
	sentiment, comments, answers, requires_follow_up, follow_up_done, submitted_at`

func scanResponse(row pgx.Row) (Response, error) {
	var resp Response
	var answersJSON []byte
	err := row.Scan(
		&resp.ID, &resp.SurveyID, &resp.LeadID, &resp.PatientID,
		&resp.OverallRating, &resp.NPSScore, &resp.Sentiment, &resp.Comments,
		&answersJSON, &resp.RequiresFollowUp, &resp.FollowUpDone, &resp.SubmittedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Response{}, ErrResponseNotFound
	}
	if err != nil {
		return Response{}, err
	}
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &resp.Answers); err != nil {
			return Response{}, err
		}
	}
	return resp, nil
}

type CreateSurveyParams struct {
	Name        string
	Description *string
	Kind        string
	IsAnonymous bool
	Questions   json.RawMessage
}

func (r *Repository) CreateSurvey(ctx context.Context, params CreateSurveyParams) (Survey, error) {
	questions := params.Questions
	if len(questions) == 0 {
		questions = json.RawMessage(`[]`)
	}

	var s Survey
	err := r.pool.QueryRow(ctx, `
		INSERT INTO surveys (name, description, kind, is_anonymous, questions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, kind, is_anonymous, questions, created_at`,
		params.Name, params.Description, params.Kind, params.IsAnonymous, []byte(questions),
	).Scan(&s.ID, &s.Name, &s.Description, &s.Kind, &s.IsAnonymous, &s.Questions, &s.CreatedAt)
	return s, err
}

func (r *Repository) GetSurvey(ctx context.Context, id uuid.UUID) (Survey, error) {
	var s Survey
	err := r.pool.QueryRow(ctx, `
		SELECT `+surveyColumns+`, count(sr.id)
		FROM surveys s
		LEFT JOIN survey_responses sr ON sr.survey_id = s.id
		WHERE s.id = $1
		GROUP BY `+surveyColumns,
		id,
	).Scan(&s.ID, &s.Name, &s.Description, &s.Kind, &s.IsAnonymous, &s.Questions, &s.CreatedAt, &s.ResponseCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Survey{}, ErrNotFound
	}
	return s, err
}

func (r *Repository) ListSurveys(ctx context.Context) ([]Survey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+surveyColumns+`, count(sr.id)
		FROM surveys s
		LEFT JOIN survey_responses sr ON sr.survey_id = s.id
		GROUP BY `+surveyColumns+`
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var surveys []Survey
	for rows.Next() {
		var s Survey
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Kind, &s.IsAnonymous, &s.Questions, &s.CreatedAt, &s.ResponseCount); err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}
	return surveys, rows.Err()
}

type CreateResponseParams struct {
	SurveyID         uuid.UUID
	LeadID           *uuid.UUID
	PatientID        *string
	OverallRating    *int
	NPSScore         *int
	Sentiment        *string
	Comments         *string
	Answers          map[string]any
	RequiresFollowUp bool
}

func (r *Repository) CreateResponse(ctx context.Context, params CreateResponseParams) (Response, error) {
	var answersJSON []byte
	if params.Answers != nil {
		var err error
		answersJSON, err = json.Marshal(params.Answers)
		if err != nil {
			return Response{}, err
		}
	}

	return scanResponse(r.pool.QueryRow(ctx, `
		INSERT INTO survey_responses (
			survey_id, lead_id, patient_id, overall_rating, nps_score,
			sentiment, comments, answers, requires_follow_up
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+responseColumns,
		params.SurveyID, params.LeadID, params.PatientID, params.OverallRating,
		params.NPSScore, params.Sentiment, params.Comments, answersJSON,
		params.RequiresFollowUp,
	))
}

func (r *Repository) ListResponses(ctx context.Context, surveyID uuid.UUID) ([]Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM survey_responses WHERE survey_id = $1 ORDER BY submitted_at DESC`,
		surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// ListFollowUps returns responses flagged for follow-up and not yet
// worked, oldest first, across all surveys.
func (r *Repository) ListFollowUps(ctx context.Context) ([]Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM survey_responses
		WHERE requires_follow_up AND NOT follow_up_done
		ORDER BY submitted_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func (r *Repository) MarkFollowUpDone(ctx context.Context, responseID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE survey_responses SET follow_up_done = true WHERE id = $1 AND requires_follow_up`,
		responseID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrResponseNotFound
	}
	return nil
}

// ListAllResponses backs the dashboard survey widget: all responses
// across all surveys.
func (r *Repository) ListAllResponses(ctx context.Context) ([]Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM survey_responses`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}
