package repository

import (
	"context"
	"errors"
	"time"

	"hospital_crm_backend/internal/campaigns/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrRecipientNotFound = errors.New("recipient not found")

// Recipient is one row of a campaign's audience snapshot, frozen at launch.
type Recipient struct {
	ID          uuid.UUID
	CampaignID  uuid.UUID
	LeadID      uuid.UUID
	FirstName   string
	Phone       string
	Email       *string
	Stage       domain.Stage
	Responded   bool
	Converted   bool
	ProviderRef *string
	LastEventAt *time.Time
}

const recipientColumns = `id, campaign_id, lead_id, first_name, phone, email,
	stage, responded, converted, provider_ref, last_event_at`

func scanRecipient(row pgx.Row) (Recipient, error) {
	var rec Recipient
	err := row.Scan(
		&rec.ID, &rec.CampaignID, &rec.LeadID, &rec.FirstName, &rec.Phone,
		&rec.Email, &rec.Stage, &rec.Responded, &rec.Converted,
		&rec.ProviderRef, &rec.LastEventAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, ErrRecipientNotFound
	}
	return rec, err
}

type RecipientSeed struct {
	LeadID    uuid.UUID
	FirstName string
	Phone     string
	Email     *string
}

// InsertRecipients materializes the audience snapshot in bulk via COPY.
func (r *Repository) InsertRecipients(ctx context.Context, campaignID uuid.UUID, seeds []RecipientSeed) (int, error) {
	rows := make([][]any, 0, len(seeds))
	for _, seed := range seeds {
		rows = append(rows, []any{
			campaignID, seed.LeadID, seed.FirstName, seed.Phone, seed.Email,
			domain.StagePending,
		})
	}

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"campaign_recipients"},
		[]string{"campaign_id", "lead_id", "first_name", "phone", "email", "stage"},
		pgx.CopyFromRows(rows),
	)
	return int(n), err
}

func (r *Repository) GetRecipient(ctx context.Context, id uuid.UUID) (Recipient, error) {
	return scanRecipient(r.pool.QueryRow(ctx,
		`SELECT `+recipientColumns+` FROM campaign_recipients WHERE id = $1`, id))
}

func (r *Repository) ListRecipients(ctx context.Context, campaignID uuid.UUID, stage *domain.Stage) ([]Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM campaign_recipients WHERE campaign_id = $1`
	args := []any{campaignID}
	if stage != nil {
		query += ` AND stage = $2`
		args = append(args, *stage)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

// ClaimPendingBatch returns up to limit PENDING recipients for dispatch,
// locked against concurrent workers via SKIP LOCKED.
func (r *Repository) ClaimPendingBatch(ctx context.Context, campaignID uuid.UUID, limit int) ([]Recipient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recipientColumns+` FROM campaign_recipients
		WHERE campaign_id = $1 AND stage = $2
		ORDER BY id
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		campaignID, domain.StagePending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

// AdvanceRecipientStage moves a recipient forward in the funnel. Guarded on
// the current stage: a duplicate or late report matches no row.
func (r *Repository) AdvanceRecipientStage(ctx context.Context, id uuid.UUID, from, to domain.Stage, providerRef *string, at time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE campaign_recipients SET
			stage = $3,
			provider_ref = COALESCE($4, provider_ref),
			last_event_at = $5
		WHERE id = $1 AND stage = $2`,
		id, from, to, providerRef, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// MarkRecipientResponded flips the responded flag. Returns false when the
// flag was already set, which makes RESPONDED reports idempotent.
func (r *Repository) MarkRecipientResponded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE campaign_recipients SET responded = true, last_event_at = $2
		WHERE id = $1 AND NOT responded`, id, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// MarkRecipientConverted flips the converted flag, idempotently.
func (r *Repository) MarkRecipientConverted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE campaign_recipients SET converted = true, last_event_at = $2
		WHERE id = $1 AND NOT converted`, id, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// CountPending returns how many recipients have not resolved to sent or
// failed, for completion resolution.
func (r *Repository) CountPending(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM campaign_recipients
		WHERE campaign_id = $1 AND stage = $2`,
		campaignID, domain.StagePending).Scan(&n)
	return n, err
}
