package repository

import (
	"context"

	"hospital_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// EngagementCounts are the per-lead interaction tallies the scoring model
// consumes. They are always counted from the linked tables, never cached on
// the lead row.
type EngagementCounts struct {
	Activities         int
	Communications     int
	CompletedTasks     int
	SurveyAvgRating    *float64
	SurveyResponseSeen bool
}

func (r *Repository) GetEngagementCounts(ctx context.Context, leadID uuid.UUID) (EngagementCounts, error) {
	var counts EngagementCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM lead_activities WHERE lead_id = $1),
			(SELECT count(*) FROM communications WHERE lead_id = $1),
			(SELECT count(*) FROM tasks WHERE lead_id = $1 AND status = 'COMPLETED'),
			(SELECT avg(overall_rating) FROM survey_responses WHERE lead_id = $1 AND overall_rating IS NOT NULL),
			EXISTS (SELECT 1 FROM survey_responses WHERE lead_id = $1)
	`, leadID).Scan(
		&counts.Activities,
		&counts.Communications,
		&counts.CompletedTasks,
		&counts.SurveyAvgRating,
		&counts.SurveyResponseSeen,
	)
	return counts, err
}

// CountByStatus returns the pipeline distribution for funnel analytics.
func (r *Repository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// CountBySource returns the lead-by-source histogram.
func (r *Repository) CountBySource(ctx context.Context) (map[domain.Source]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT source, count(*) FROM leads GROUP BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Source]int)
	for rows.Next() {
		var source domain.Source
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		counts[source] = count
	}

	return counts, rows.Err()
}
