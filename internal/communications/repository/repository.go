package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hospital_crm_backend/internal/communications/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("communication not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Communication struct {
	ID          uuid.UUID
	Channel     domain.Channel
	Direction   domain.Direction
	Status      *domain.Status
	LeadID      *uuid.UUID
	PatientID   *string
	TemplateID  *uuid.UUID
	Subject     *string
	Summary     *string
	CallOutcome *string
	LoggedBy    uuid.UUID
	OccurredAt  time.Time
	CreatedAt   time.Time
}

const commColumns = `id, channel, direction, status, lead_id, patient_id, template_id,
	subject, summary, call_outcome, logged_by, occurred_at, created_at`

func scanCommunication(row pgx.Row) (Communication, error) {
	var comm Communication
	err := row.Scan(
		&comm.ID, &comm.Channel, &comm.Direction, &comm.Status, &comm.LeadID,
		&comm.PatientID, &comm.TemplateID, &comm.Subject, &comm.Summary,
		&comm.CallOutcome, &comm.LoggedBy, &comm.OccurredAt, &comm.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Communication{}, ErrNotFound
	}
	return comm, err
}

type CreateCommunicationParams struct {
	Channel     domain.Channel
	Direction   domain.Direction
	Status      *domain.Status
	LeadID      *uuid.UUID
	PatientID   *string
	TemplateID  *uuid.UUID
	Subject     *string
	Summary     *string
	CallOutcome *string
	LoggedBy    uuid.UUID
	OccurredAt  time.Time
}

func (r *Repository) Create(ctx context.Context, params CreateCommunicationParams) (Communication, error) {
	return scanCommunication(r.pool.QueryRow(ctx, `
		INSERT INTO communications (
			channel, direction, status, lead_id, patient_id, template_id,
			subject, summary, call_outcome, logged_by, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+commColumns,
		params.Channel, params.Direction, params.Status, params.LeadID,
		params.PatientID, params.TemplateID, params.Subject, params.Summary,
		params.CallOutcome, params.LoggedBy, params.OccurredAt,
	))
}

type ListCommunicationsParams struct {
	LeadID    *uuid.UUID
	Channel   *domain.Channel
	Direction *domain.Direction
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

func (r *Repository) List(ctx context.Context, params ListCommunicationsParams) ([]Communication, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.LeadID != nil {
		where = append(where, "lead_id = "+arg(*params.LeadID))
	}
	if params.Channel != nil {
		where = append(where, "channel = "+arg(*params.Channel))
	}
	if params.Direction != nil {
		where = append(where, "direction = "+arg(*params.Direction))
	}
	if params.From != nil {
		where = append(where, "occurred_at >= "+arg(*params.From))
	}
	if params.To != nil {
		where = append(where, "occurred_at < "+arg(*params.To))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM communications WHERE `+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + commColumns + ` FROM communications WHERE ` + whereClause +
		` ORDER BY occurred_at DESC`
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", params.Limit, params.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var comms []Communication
	for rows.Next() {
		comm, err := scanCommunication(rows)
		if err != nil {
			return nil, 0, err
		}
		comms = append(comms, comm)
	}
	return comms, total, rows.Err()
}

// ChannelCount is one channel's volume split by direction.
type ChannelCount struct {
	Channel  domain.Channel
	Total    int
	Inbound  int
	Outbound int
}

// GetChannelBreakdown backs the dashboard communications widget.
func (r *Repository) GetChannelBreakdown(ctx context.Context) ([]ChannelCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel,
			count(*),
			count(*) FILTER (WHERE direction = $1),
			count(*) FILTER (WHERE direction = $2)
		FROM communications
		GROUP BY channel
		ORDER BY count(*) DESC`,
		domain.DirectionInbound, domain.DirectionOutbound)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ChannelCount
	for rows.Next() {
		var c ChannelCount
		if err := rows.Scan(&c.Channel, &c.Total, &c.Inbound, &c.Outbound); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
