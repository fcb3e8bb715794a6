package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hospital_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrStaleState is returned when a guarded update matched no row
	// because the lead's status changed under the caller.
	ErrStaleState = errors.New("lead state changed")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                   uuid.UUID
	LeadNumber           string
	FirstName            string
	LastName             string
	Phone                string
	AlternatePhone       *string
	Email                *string
	Gender               *string
	DateOfBirth          *time.Time
	City                 *string
	Source               domain.Source
	Status               domain.Status
	Priority             domain.Priority
	Score                int
	AssignedTo           *uuid.UUID
	LostReason           *string
	ConvertedToPatientID *string
	LastContactedAt      *time.Time
	NextFollowUpAt       *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

const leadColumns = `id, lead_number, first_name, last_name, phone, alternate_phone, email,
	gender, date_of_birth, city, source, status, priority, score, assigned_to,
	lost_reason, converted_to_patient_id, last_contacted_at, next_follow_up_at,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.LeadNumber, &lead.FirstName, &lead.LastName, &lead.Phone,
		&lead.AlternatePhone, &lead.Email, &lead.Gender, &lead.DateOfBirth, &lead.City,
		&lead.Source, &lead.Status, &lead.Priority, &lead.Score, &lead.AssignedTo,
		&lead.LostReason, &lead.ConvertedToPatientID, &lead.LastContactedAt,
		&lead.NextFollowUpAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

type CreateLeadParams struct {
	FirstName      string
	LastName       string
	Phone          string
	AlternatePhone *string
	Email          *string
	Gender         *string
	DateOfBirth    *time.Time
	City           *string
	Source         domain.Source
	Priority       domain.Priority
	Score          int
	AssignedTo     *uuid.UUID
	NextFollowUpAt *time.Time
}

// Create inserts a lead in status NEW. The human-readable lead_number is
// derived from a dedicated sequence inside the same statement.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			lead_number, first_name, last_name, phone, alternate_phone, email,
			gender, date_of_birth, city, source, status, priority, score,
			assigned_to, next_follow_up_at
		) VALUES (
			'LD-' || lpad(nextval('lead_number_seq')::text, 6, '0'),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING `+leadColumns,
		params.FirstName, params.LastName, params.Phone, params.AlternatePhone,
		params.Email, params.Gender, params.DateOfBirth, params.City,
		params.Source, domain.StatusNew, params.Priority, params.Score,
		params.AssignedTo, params.NextFollowUpAt,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// FindByPhone returns the most recent lead with the given normalized phone,
// used for duplicate detection at intake.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE phone = $1 ORDER BY created_at DESC LIMIT 1`, phone))
}

type UpdateLeadParams struct {
	FirstName      *string
	LastName       *string
	Phone          *string
	AlternatePhone *string
	Email          *string
	Gender         *string
	City           *string
	Priority       *domain.Priority
	NextFollowUpAt *time.Time
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			phone = COALESCE($4, phone),
			alternate_phone = COALESCE($5, alternate_phone),
			email = COALESCE($6, email),
			gender = COALESCE($7, gender),
			city = COALESCE($8, city),
			priority = COALESCE($9, priority),
			next_follow_up_at = COALESCE($10, next_follow_up_at),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, params.FirstName, params.LastName, params.Phone, params.AlternatePhone,
		params.Email, params.Gender, params.City, params.Priority, params.NextFollowUpAt,
	))
}

// UpdateStatus applies a status transition guarded by the expected current
// status. Re-validating against the stored row at commit time is the whole
// concurrency policy: a racing writer that already moved the lead makes this
// statement match nothing and the caller re-reads.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, lostReason *string) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $3, lost_reason = COALESCE($4, lost_reason), updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+leadColumns,
		id, from, to, lostReason,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrStaleState
	}
	return lead, err
}

// MarkConverted stamps the created patient reference and moves the lead to
// CONVERTED. The converted_to_patient_id IS NULL guard makes conversion
// exactly-once even under concurrent convert calls.
func (r *Repository) MarkConverted(ctx context.Context, id uuid.UUID, patientID string) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $3, converted_to_patient_id = $2, updated_at = now()
		WHERE id = $1 AND converted_to_patient_id IS NULL AND status NOT IN ($3, $4)
		RETURNING `+leadColumns,
		id, patientID, domain.StatusConverted, domain.StatusLost,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrStaleState
	}
	return lead, err
}

func (r *Repository) Assign(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET assigned_to = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, assigneeID,
	))
}

func (r *Repository) SetScore(ctx context.Context, id uuid.UUID, score int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET score = $2, updated_at = now() WHERE id = $1`, id, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE leads SET last_contacted_at = $2, updated_at = now() WHERE id = $1`, id, at)
	return err
}

// Delete removes a lead. Normal pipeline flow never deletes; this backs the
// explicit administrative delete only.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type ListLeadsParams struct {
	Status     *domain.Status
	Source     *domain.Source
	Priority   *domain.Priority
	AssignedTo *uuid.UUID
	TagID      *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

// List returns leads matching the filters, newest first, plus the total count
// for pagination.
func (r *Repository) List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error) {
	where := make([]string, 0, 6)
	args := make([]any, 0, 8)

	addFilter := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if params.Status != nil {
		addFilter("status = $%d", *params.Status)
	}
	if params.Source != nil {
		addFilter("source = $%d", *params.Source)
	}
	if params.Priority != nil {
		addFilter("priority = $%d", *params.Priority)
	}
	if params.AssignedTo != nil {
		addFilter("assigned_to = $%d", *params.AssignedTo)
	}
	if params.TagID != nil {
		addFilter("id IN (SELECT lead_id FROM lead_tags WHERE tag_id = $%d)", *params.TagID)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		addFilter("(first_name || ' ' || last_name || ' ' || phone || ' ' || lead_number) ILIKE $%d", "%"+search+"%")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM leads`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads`+clause+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(
			&lead.ID, &lead.LeadNumber, &lead.FirstName, &lead.LastName, &lead.Phone,
			&lead.AlternatePhone, &lead.Email, &lead.Gender, &lead.DateOfBirth, &lead.City,
			&lead.Source, &lead.Status, &lead.Priority, &lead.Score, &lead.AssignedTo,
			&lead.LostReason, &lead.ConvertedToPatientID, &lead.LastContactedAt,
			&lead.NextFollowUpAt, &lead.CreatedAt, &lead.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	return leads, total, rows.Err()
}

// SelectAudience returns the lead IDs and contact details matching campaign
// targeting criteria. Used by campaign launch to snapshot recipients.
type AudienceMember struct {
	LeadID    uuid.UUID
	FirstName string
	Phone     string
	Email     *string
}

type AudienceCriteria struct {
	Statuses  []domain.Status
	Sources   []domain.Source
	TagIDs    []uuid.UUID
	MinScore  *int
	CreatedTo *time.Time
}

func (r *Repository) SelectAudience(ctx context.Context, criteria AudienceCriteria) ([]AudienceMember, error) {
	where := make([]string, 0, 5)
	args := make([]any, 0, 5)

	if len(criteria.Statuses) > 0 {
		args = append(args, criteria.Statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	} else {
		// Closed leads are never targeted unless asked for explicitly.
		args = append(args, domain.StatusConverted, domain.StatusLost)
		where = append(where, fmt.Sprintf("status NOT IN ($%d, $%d)", len(args)-1, len(args)))
	}
	if len(criteria.Sources) > 0 {
		args = append(args, criteria.Sources)
		where = append(where, fmt.Sprintf("source = ANY($%d)", len(args)))
	}
	if len(criteria.TagIDs) > 0 {
		args = append(args, criteria.TagIDs)
		where = append(where, fmt.Sprintf("id IN (SELECT lead_id FROM lead_tags WHERE tag_id = ANY($%d))", len(args)))
	}
	if criteria.MinScore != nil {
		args = append(args, *criteria.MinScore)
		where = append(where, fmt.Sprintf("score >= $%d", len(args)))
	}
	if criteria.CreatedTo != nil {
		args = append(args, *criteria.CreatedTo)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, first_name, phone, email FROM leads WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]AudienceMember, 0)
	for rows.Next() {
		var m AudienceMember
		if err := rows.Scan(&m.LeadID, &m.FirstName, &m.Phone, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
