package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hospital_crm_backend/internal/campaigns/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("campaign not found")
	// ErrStaleState is returned when a guarded update matched no row
	// because the campaign's status changed under the caller.
	ErrStaleState = errors.New("campaign state changed")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Campaign struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Channel     domain.Channel
	TemplateID  *uuid.UUID
	Status      domain.Status
	Audience    json.RawMessage
	Funnel      domain.Funnel
	ScheduledAt *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const campaignColumns = `id, name, description, channel, template_id, status, audience,
	total_recipients, sent_count, delivered_count, opened_count, clicked_count,
	responded_count, converted_count, failed_count,
	scheduled_at, started_at, completed_at, created_by, created_at, updated_at`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Channel, &c.TemplateID, &c.Status,
		&c.Audience, &c.Funnel.TotalRecipients, &c.Funnel.Sent, &c.Funnel.Delivered,
		&c.Funnel.Opened, &c.Funnel.Clicked, &c.Funnel.Responded,
		&c.Funnel.Converted, &c.Funnel.Failed,
		&c.ScheduledAt, &c.StartedAt, &c.CompletedAt, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return c, err
}

type CreateCampaignParams struct {
	Name        string
	Description *string
	Channel     domain.Channel
	TemplateID  *uuid.UUID
	Audience    json.RawMessage
	CreatedBy   *uuid.UUID
}

func (r *Repository) Create(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	return scanCampaign(r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (name, description, channel, template_id, status, audience, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+campaignColumns,
		params.Name, params.Description, params.Channel, params.TemplateID,
		domain.StatusDraft, params.Audience, params.CreatedBy,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	return scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
}

func (r *Repository) List(ctx context.Context, status *domain.Status, channel *domain.Channel) ([]Campaign, error) {
	where := []string{"1=1"}
	args := []any{}
	if status != nil {
		args = append(args, *status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if channel != nil {
		args = append(args, *channel)
		where = append(where, fmt.Sprintf("channel = $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

type UpdateCampaignParams struct {
	Name        *string
	Description *string
	TemplateID  *uuid.UUID
	Audience    json.RawMessage
}

// Update edits campaign definition fields. Guarded to DRAFT: a launched
// campaign's definition is part of its audit trail.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateCampaignParams) (Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx, `
		UPDATE campaigns SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			template_id = COALESCE($4, template_id),
			audience = COALESCE($5, audience),
			updated_at = now()
		WHERE id = $1 AND status = $6
		RETURNING `+campaignColumns,
		id, params.Name, params.Description, params.TemplateID, params.Audience,
		domain.StatusDraft,
	))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return Campaign{}, ErrStaleState
		}
		return Campaign{}, ErrNotFound
	}
	return c, err
}

// UpdateStatus moves a campaign between lifecycle states. The WHERE clause
// re-validates the current status so a concurrent writer cannot be
// overwritten silently.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (Campaign, error) {
	set := `status = $3, updated_at = now()`
	switch to {
	case domain.StatusRunning:
		set += `, started_at = COALESCE(started_at, now())`
	case domain.StatusCompleted:
		set += `, completed_at = now()`
	}

	c, err := scanCampaign(r.pool.QueryRow(ctx, `
		UPDATE campaigns SET `+set+`
		WHERE id = $1 AND status = $2
		RETURNING `+campaignColumns,
		id, from, to,
	))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return Campaign{}, ErrStaleState
		}
		return Campaign{}, ErrNotFound
	}
	return c, err
}

func (r *Repository) SetSchedule(ctx context.Context, id uuid.UUID, at time.Time) (Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx, `
		UPDATE campaigns SET status = $3, scheduled_at = $2, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+campaignColumns,
		id, at, domain.StatusScheduled, domain.StatusDraft,
	))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return Campaign{}, ErrStaleState
		}
		return Campaign{}, ErrNotFound
	}
	return c, err
}

// SetTotalRecipients stamps the audience snapshot size at launch.
func (r *Repository) SetTotalRecipients(ctx context.Context, id uuid.UUID, total int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET total_recipients = $2, updated_at = now() WHERE id = $1`, id, total)
	return err
}

// IncrementCounters bumps funnel counters by the given deltas. Deltas are
// only ever non-negative, which keeps every counter monotonic.
func (r *Repository) IncrementCounters(ctx context.Context, id uuid.UUID, deltas domain.Funnel) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET
			sent_count = sent_count + $2,
			delivered_count = delivered_count + $3,
			opened_count = opened_count + $4,
			clicked_count = clicked_count + $5,
			responded_count = responded_count + $6,
			converted_count = converted_count + $7,
			failed_count = failed_count + $8,
			updated_at = now()
		WHERE id = $1`,
		id, deltas.Sent, deltas.Delivered, deltas.Opened, deltas.Clicked,
		deltas.Responded, deltas.Converted, deltas.Failed,
	)
	return err
}

// ListScheduledDue returns scheduled campaigns whose launch time has passed.
func (r *Repository) ListScheduledDue(ctx context.Context, now time.Time) ([]Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE status = $1 AND scheduled_at <= $2`,
		domain.StatusScheduled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ListRunning returns campaigns eligible for completion resolution.
func (r *Repository) ListRunning(ctx context.Context) ([]Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE status = $1`, domain.StatusRunning)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}
