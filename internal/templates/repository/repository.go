package repository

import (
	"context"
	"errors"
	"time"

	"hospital_crm_backend/internal/templates/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("template not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Template struct {
	ID         uuid.UUID
	Name       string
	Channel    domain.Channel
	Subject    *string
	Body       string
	Variables  []string
	UsageCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const templateColumns = `id, name, channel, subject, body, variables, usage_count, created_at, updated_at`

func scanTemplate(row pgx.Row) (Template, error) {
	var tpl Template
	err := row.Scan(
		&tpl.ID, &tpl.Name, &tpl.Channel, &tpl.Subject, &tpl.Body,
		&tpl.Variables, &tpl.UsageCount, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return tpl, err
}

type CreateTemplateParams struct {
	Name      string
	Channel   domain.Channel
	Subject   *string
	Body      string
	Variables []string
}

func (r *Repository) Create(ctx context.Context, params CreateTemplateParams) (Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `
		INSERT INTO templates (name, channel, subject, body, variables)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+templateColumns,
		params.Name, params.Channel, params.Subject, params.Body, params.Variables,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = $1`, id))
}

func (r *Repository) List(ctx context.Context, channel *domain.Channel) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates`
	args := []any{}
	if channel != nil {
		query += ` WHERE channel = $1`
		args = append(args, *channel)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

type UpdateTemplateParams struct {
	Name      *string
	Subject   *string
	Body      *string
	Variables *[]string
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateTemplateParams) (Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `
		UPDATE templates SET
			name = COALESCE($2, name),
			subject = COALESCE($3, subject),
			body = COALESCE($4, body),
			variables = COALESCE($5, variables),
			updated_at = now()
		WHERE id = $1
		RETURNING `+templateColumns,
		id, params.Name, params.Subject, params.Body, params.Variables,
	))
}

// IncrementUsage bumps usage_count by one. Fired per render; losing a
// bump under failure is acceptable, the count is informational.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE templates SET usage_count = usage_count + 1 WHERE id = $1`, id)
	return err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
